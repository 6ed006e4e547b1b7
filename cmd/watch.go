package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"playstore-analytics/config"
	"playstore-analytics/models"
	"playstore-analytics/services"
)

var watchApply string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Drive the reactive controller from JSON events on stdin",
	Long: `Publishes the initial bundle, then reads one control event per line
from stdin and writes one bundle per line to stdout, in event order.

An event looks like:
  {"control":"category-filter","values":["GAME","SOCIAL"]}
  {"control":"rating-slider","range":[3.5,5]}
  {"control":"apply-filters"}

Examples:
  playstore-analytics watch < events.jsonl
  playstore-analytics watch --apply batched`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyModeFlag(watchApply); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ctl, _, closer, err := newController(ctx)
		if err != nil {
			return err
		}
		defer closer.Close()

		pub := services.NewJSONPublisher(cmd.OutOrStdout())
		if err := pub.Publish(ctx, ctl.Initial(ctx)); err != nil {
			return err
		}
		logger.Info("[watch] Listening for events (%s mode)", cfg.ApplyMode)

		events := make(chan models.Event)
		go readEvents(ctx, cmd.InOrStdin(), events)

		err = ctl.Run(ctx, events, pub)
		if errors.Is(err, context.Canceled) {
			logger.Info("[watch] Interrupted")
			return nil
		}
		return err
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchApply, "apply", "", "apply mode: live or batched (default from APPLY_MODE)")
	rootCmd.AddCommand(watchCmd)
}

// readEvents decodes JSON lines into events and closes out at EOF.
// Lines that fail to decode are logged and skipped.
func readEvents(ctx context.Context, r io.Reader, out chan<- models.Event) {
	defer close(out)
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var ev models.Event
		if err := json.Unmarshal([]byte(text), &ev); err != nil {
			logger.Warn("[watch] line %d: invalid event: %v", line, err)
			continue
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return
		}
	}
	if err := sc.Err(); err != nil {
		logger.Error("[watch] read events: %v", err)
	}
}

// applyModeFlag overrides APPLY_MODE when the flag is set.
func applyModeFlag(mode string) error {
	switch mode {
	case "":
		return nil
	case config.ApplyLive, config.ApplyBatched:
		cfg.ApplyMode = mode
		return nil
	}
	return fmt.Errorf("--apply must be %q or %q, got %q", config.ApplyLive, config.ApplyBatched, mode)
}

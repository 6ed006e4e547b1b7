package cmd

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"playstore-analytics/services"
	"playstore-analytics/storage"
)

var (
	preprocessInput    string
	preprocessOutput   string
	preprocessFormat   string
	preprocessTop      int
	preprocessPostgres bool
)

var preprocessCmd = &cobra.Command{
	Use:   "preprocess",
	Short: "Clean the raw export and derive the popularity score",
	Long: `Reads the raw Play Store CSV, drops impossible ratings, imputes missing
ratings and app types, parses installs and reviews, derives the normalized
metrics and popularity_score, and writes clean_data.<ext> (every category)
and clean_data_score.<ext> (best categories by mean score).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		input := firstNonEmpty(preprocessInput, cfg.RawDataPath)
		output := firstNonEmpty(preprocessOutput, cfg.OutputDir)
		format, err := storage.ParseFormat(firstNonEmpty(preprocessFormat, cfg.OutputFormat))
		if err != nil {
			return err
		}
		top := cfg.TopCategories
		if cmd.Flags().Changed("top-categories") {
			top = preprocessTop
		}

		logger.Info("=== Preprocessing %s → %s (%s) ===", input, output, format)
		p := services.NewPreprocessor(logger, top)

		if preprocessPostgres || cfg.PostgresEnabled {
			store, err := storage.NewPostgresStore(cmd.Context(), cfg.DSN(), retryConfig())
			if err != nil {
				return fmt.Errorf("connect to PostgreSQL: %w", err)
			}
			defer store.Close()
			p.WithStore(store)
		}

		report, err := p.Run(cmd.Context(), input, output, format)
		if err != nil {
			return err
		}

		ok := color.New(color.FgGreen, color.Bold)
		ok.Fprintf(cmd.OutOrStdout(), "  Kept %s of %s apps", humanize.Comma(int64(report.Kept)), humanize.Comma(int64(report.Read)))
		fmt.Fprintf(cmd.OutOrStdout(), " (rating>5: %d, unrated: %d, malformed: %d)\n",
			report.DroppedRating, report.DroppedUnrated, report.DroppedMalformed)
		fmt.Fprintf(cmd.OutOrStdout(), "  Top categories: %s\n", strings.Join(report.TopCategories, ", "))
		fmt.Fprintf(cmd.OutOrStdout(), "  Full table  → %s\n", report.FullPath)
		fmt.Fprintf(cmd.OutOrStdout(), "  Score table → %s (%s rows)\n", report.ScorePath, humanize.Comma(int64(report.ScoreRows)))
		return nil
	},
}

func init() {
	preprocessCmd.Flags().StringVar(&preprocessInput, "input", "", "raw CSV export (default from RAW_DATA_PATH)")
	preprocessCmd.Flags().StringVar(&preprocessOutput, "output", "", "output directory (default from OUTPUT_DIR)")
	preprocessCmd.Flags().StringVar(&preprocessFormat, "format", "", "output format: csv, parquet or xlsx (default from OUTPUT_FORMAT)")
	preprocessCmd.Flags().IntVar(&preprocessTop, "top-categories", 10, "categories kept in the score table")
	preprocessCmd.Flags().BoolVar(&preprocessPostgres, "postgres", false, "also store the score table in PostgreSQL")
	rootCmd.AddCommand(preprocessCmd)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

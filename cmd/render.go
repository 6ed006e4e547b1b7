package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"playstore-analytics/models"
	"playstore-analytics/services"
)

// filterFlags are the filter controls as command-line flags.
type filterFlags struct {
	categories     []string
	types          []string
	contentRatings []string
	minRating      float64
	maxRating      float64
}

func (f *filterFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.categories, "category", nil, "category to include (repeatable, max 4 applied)")
	cmd.Flags().StringSliceVar(&f.types, "type", nil, "app type to include: Free, Paid")
	cmd.Flags().StringSliceVar(&f.contentRatings, "content-rating", nil, "content rating to include (repeatable)")
	cmd.Flags().Float64Var(&f.minRating, "min-rating", models.MinRating, "lowest rating")
	cmd.Flags().Float64Var(&f.maxRating, "max-rating", models.MaxRating, "highest rating")
}

// state maps omitted filters to "All".
func (f *filterFlags) state() models.FilterState {
	return models.FilterState{
		Types:          orAll(f.types),
		RatingRange:    []float64{f.minRating, f.maxRating},
		ContentRatings: orAll(f.contentRatings),
		Categories:     orAll(f.categories),
	}
}

var (
	renderFilters  filterFlags
	renderCloudPNG string
	renderIndent   bool
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Run one reactive cycle and print the output bundle as JSON",
	Long: `Applies one filter selection to the dataset and prints the bundle of
chart specifications, summary statistics and word cloud. Omitted filters
default to "All" and the full rating range.

Examples:
  playstore-analytics render
  playstore-analytics render --category GAME --category EDUCATION --type Free
  playstore-analytics render --min-rating 4.5 --wordcloud cloud.png`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctl, _, closer, err := newController(cmd.Context())
		if err != nil {
			return err
		}
		defer closer.Close()

		bundle := ctl.Update(cmd.Context(), renderFilters.state())

		if renderCloudPNG != "" {
			if bundle.Cloud == nil {
				logger.Warn("[render] No word cloud for this selection; %s not written", renderCloudPNG)
			} else if err := os.WriteFile(renderCloudPNG, bundle.Cloud.PNG, 0644); err != nil {
				return fmt.Errorf("write word cloud: %w", err)
			} else {
				logger.Info("[render] Word cloud saved to %s", renderCloudPNG)
			}
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		if renderIndent {
			enc.SetIndent("", "  ")
		}
		return enc.Encode(bundle)
	},
}

var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "Print the dropdown options of every filter control as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := loadTable(cmd.Context())
		if err != nil {
			return err
		}
		out := struct {
			Controls    map[models.ControlID][]string `json:"controls"`
			RatingRange []float64                     `json:"rating_range"`
			RatingStep  float64                       `json:"rating_step"`
		}{services.Options(t), []float64{models.MinRating, models.MaxRating}, 0.5}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	renderFilters.bind(renderCmd)
	renderCmd.Flags().StringVar(&renderCloudPNG, "wordcloud", "", "also write the word cloud PNG to this file")
	renderCmd.Flags().BoolVar(&renderIndent, "indent", false, "indent the JSON output")
	rootCmd.AddCommand(renderCmd, optionsCmd)
}

func orAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return []string{models.All}
	}
	return out
}

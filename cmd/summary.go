package cmd

import (
	"github.com/spf13/cobra"

	"playstore-analytics/services"
)

var summaryFilters filterFlags

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the summary statistics of a filter selection",
	Long: `Filters the dataset and prints mean, median, min, max and standard
deviation of rating, reviews and installs, followed by the app count per
category.

Examples:
  playstore-analytics summary
  playstore-analytics summary --type Paid --content-rating Teen`,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := loadTable(cmd.Context())
		if err != nil {
			return err
		}
		view, sel, err := services.ApplyFilters(t, summaryFilters.state(), cfg.CategoryLimit)
		if err != nil {
			return err
		}
		logger.Debug("[summary] %d rows for categories %v", view.Len(), sel.Categories)

		svc := services.NewSummaryService(logger)
		svc.Print(cmd.OutOrStdout(), svc.Generate(view), view)
		return nil
	},
}

func init() {
	summaryFilters.bind(summaryCmd)
	rootCmd.AddCommand(summaryCmd)
}

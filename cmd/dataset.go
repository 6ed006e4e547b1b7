package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"playstore-analytics/services"
)

var (
	sampleSize int
	sampleSeed uint64
)

var convertCmd = &cobra.Command{
	Use:   "convert <src> <dst>",
	Short: "Convert a cleaned dataset between csv, parquet and xlsx",
	Long: `Converts a cleaned dataset. The formats are taken from the file
extensions; src may also be "postgres" or a postgres:// URL.

Examples:
  playstore-analytics convert data/preprocessed/clean_data_score.csv data/preprocessed/clean_data_score.parquet
  playstore-analytics convert postgres export.xlsx`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := services.NewDatasetService(logger, loadOptions())
		n, err := svc.Convert(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  %d rows written to %s\n", n, args[1])
		return nil
	},
}

var sampleCmd = &cobra.Command{
	Use:   "sample <src> <dst>",
	Short: "Write a random sample of a cleaned dataset",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := services.NewDatasetService(logger, loadOptions())
		n, err := svc.Sample(cmd.Context(), args[0], args[1], sampleSize, sampleSeed)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  %d sampled rows written to %s\n", n, args[1])
		return nil
	},
}

func init() {
	sampleCmd.Flags().IntVarP(&sampleSize, "size", "n", 1000, "number of rows to keep")
	sampleCmd.Flags().Uint64Var(&sampleSeed, "seed", 42, "random seed")
	rootCmd.AddCommand(convertCmd, sampleCmd)
}

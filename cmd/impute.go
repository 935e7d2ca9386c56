package cmd

import (
	"fmt"
	"strconv"

	"github.com/nycdatalab/tlcaudit/internal/impute"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var imputeCmd = &cobra.Command{
	Use:   "impute <year> <month>",
	Short: "Build a synthetic month from prior years for an unpublished period",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		year, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid year %q", args[0])
		}
		month, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid month %q", args[1])
		}

		p, err := newPipeline()
		if err != nil {
			return err
		}

		imputer := impute.NewImputer(p.cfg, p.store, p.loader)
		entries, err := imputer.Impute(year, month)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("imputed %s -> %s\n", e.PeriodLabel(), e.Path)
		}
		return nil
	},
}

func init() {
	imputeCmd.Flags().Bool("force-overwrite", false, "Replace an existing real entry with a synthetic one")
	viper.BindPFlag("impute.force_overwrite", imputeCmd.Flags().Lookup("force-overwrite"))
	rootCmd.AddCommand(imputeCmd)
}

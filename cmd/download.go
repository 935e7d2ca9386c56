package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var downloadCmd = &cobra.Command{
	Use:   "download [years...]",
	Short: "Download monthly trip files and the zone lookup table into the cache",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		if _, err := p.fetcher.FetchZoneLookup(ctx); err != nil {
			return err
		}

		classes, err := p.cfg.Classes()
		if err != nil {
			return err
		}

		for _, arg := range args {
			year, err := strconv.Atoi(arg)
			if err != nil {
				return fmt.Errorf("invalid year %q", arg)
			}
			res, err := p.fetcher.DownloadYear(ctx, year, classes)
			if err != nil {
				return err
			}
			fmt.Printf("%d: %d downloaded, %d skipped, %d failed\n",
				year, len(res.Downloaded), len(res.Skipped), len(res.Failed))
			for _, fe := range res.Failed {
				fmt.Printf("  partial: %v\n", fe)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(downloadCmd)
}

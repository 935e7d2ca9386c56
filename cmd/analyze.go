package cmd

import (
	"fmt"

	"github.com/nycdatalab/tlcaudit/internal/aggregate"
	"github.com/spf13/cobra"
)

var (
	analyzeFrom int
	analyzeTo   int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <border|velocity|tips|leakage|decline|elasticity>",
	Short: "Run one of the congestion-toll analyses against the cache",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		engine, err := p.engine(ctx)
		if err != nil {
			return err
		}

		switch args[0] {
		case "border":
			res, err := engine.BorderEffect(ctx, analyzeFrom, analyzeTo)
			if err != nil {
				return err
			}
			fmt.Println(res.Table)
			printSynthetic(res.SyntheticPeriods())
		case "velocity":
			classes, err := p.cfg.Classes()
			if err != nil {
				return err
			}
			cmp, err := engine.CompareVelocity(analyzeFrom, analyzeTo, classes)
			if err != nil {
				return err
			}
			fmt.Printf("Q1 %d average in-zone speed: %.1f mph\n", analyzeFrom, cmp.Before.Overall)
			fmt.Printf("Q1 %d average in-zone speed: %.1f mph\n", analyzeTo, cmp.After.Overall)
			fmt.Printf("overall change: %+.1f mph\n", cmp.Delta)
		case "tips":
			res, err := engine.TipCrowdingOut(ctx, analyzeTo)
			if err != nil {
				return err
			}
			fmt.Println(res.Table)
			fmt.Printf("correlation r=%.2f, p=%.4f\n", res.Correlation.R, res.Correlation.PValue)
			printSynthetic(res.SyntheticPeriods())
		case "leakage":
			res, err := engine.LeakageAudit(analyzeTo, 3)
			if err != nil {
				return err
			}
			fmt.Printf("compliance rate: %.4f (%d of %d liable trips paid)\n",
				res.ComplianceRate, res.TotalPaid, res.TotalLiable)
			fmt.Println(res.TopMissing)
		case "decline":
			rows, _, err := engine.YellowVsGreen(analyzeFrom, analyzeTo)
			if err != nil {
				return err
			}
			fmt.Printf("%-8s %12s %12s %12s %10s\n", "class",
				fmt.Sprintf("Q1 %d", analyzeFrom), fmt.Sprintf("Q1 %d", analyzeTo), "change", "% change")
			for _, row := range rows {
				fmt.Printf("%-8s %12d %12d %12d %9.1f%%\n",
					row.Label, row.CountA, row.CountB, row.Change, row.PctChange)
			}
		case "elasticity":
			res, err := engine.Aggregate(ctx, elasticityRequest(analyzeTo))
			if err != nil {
				return err
			}
			el := res.Elasticity
			fmt.Printf("slope (trips per mm rain): %.2f\n", el.Slope)
			fmt.Printf("correlation r: %.3f\n", el.R)
			fmt.Printf("p-value: %.5f\n", el.PValue)
			fmt.Printf("classification: %s\n", el.Classification)
			fmt.Printf("wettest month: %s\n", el.WettestMonth)
			printSynthetic(res.SyntheticPeriods())
		default:
			return fmt.Errorf("unknown analysis %q", args[0])
		}
		return nil
	},
}

func elasticityRequest(year int) aggregate.Request {
	return aggregate.Request{
		Periods:   []aggregate.Period{aggregate.FullYear(year)},
		Statistic: aggregate.Elasticity,
		Dimension: aggregate.ByDay,
		Value:     aggregate.TripCount,
	}
}

func printSynthetic(periods []string) {
	if len(periods) == 0 {
		return
	}
	fmt.Printf("note: estimated (imputed) periods used: %v\n", periods)
}

func init() {
	analyzeCmd.Flags().IntVar(&analyzeFrom, "from", 2024, "Baseline year")
	analyzeCmd.Flags().IntVar(&analyzeTo, "to", 2025, "Comparison year")
	rootCmd.AddCommand(analyzeCmd)
}

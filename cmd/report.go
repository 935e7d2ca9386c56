package cmd

import (
	"fmt"

	"github.com/nycdatalab/tlcaudit/internal/report"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var reportYear int

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the yearly congestion audit report as a PDF",
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

		var uploader report.Uploader
		if p.cfg.Report.UploadEnabled {
			uploader, err = report.NewS3Uploader(p.cfg.Report.Region, p.cfg.Report.BucketName)
			if err != nil {
				return err
			}
		}

		builder := report.NewBuilder(p.cfg, engine)
		path, err := builder.Generate(ctx, reportYear, uploader)
		if err != nil {
			return err
		}
		fmt.Printf("report written to %s\n", path)
		return nil
	},
}

func init() {
	reportCmd.Flags().IntVar(&reportYear, "year", 2025, "Audit year")
	reportCmd.Flags().Bool("upload", false, "Upload the rendered report to S3")
	reportCmd.Flags().String("output", "audit_report.pdf", "Output path for the rendered PDF")
	viper.BindPFlag("report.upload_enabled", reportCmd.Flags().Lookup("upload"))
	viper.BindPFlag("report.output_file", reportCmd.Flags().Lookup("output"))
	rootCmd.AddCommand(reportCmd)
}

package cmd

import (
	"log"

	"github.com/nycdatalab/tlcaudit/internal/impute"
	"github.com/nycdatalab/tlcaudit/internal/report"
	"github.com/nycdatalab/tlcaudit/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard HTTP API",
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

		imputer := impute.NewImputer(p.cfg, p.store, p.loader)
		builder := report.NewBuilder(p.cfg, engine)
		srv := server.New(p.cfg, p.store, p.fetcher, imputer, engine, builder, uploader)

		log.Printf("dashboard listening on %s", p.cfg.Server.Addr)
		return srv.Run()
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "Listen address")
	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	rootCmd.AddCommand(serveCmd)
}

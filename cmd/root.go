package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/nycdatalab/tlcaudit/internal/aggregate"
	"github.com/nycdatalab/tlcaudit/internal/cache"
	"github.com/nycdatalab/tlcaudit/internal/crawler"
	"github.com/nycdatalab/tlcaudit/internal/models"
	"github.com/nycdatalab/tlcaudit/internal/tripdata"
	"github.com/nycdatalab/tlcaudit/internal/weather"
	"github.com/nycdatalab/tlcaudit/internal/zones"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "tlcaudit",
	Short: "Downloads and analyzes NYC TLC trip data around the congestion toll",
	Long: `tlcaudit is a CLI tool that crawls the public TLC trip record archive,
caches monthly parquet files locally, imputes unpublished months, and computes
congestion-toll statistics: border-zone drop-off changes, in-zone speeds,
tip/surcharge correlation, surcharge compliance, and rain elasticity of demand.`,
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./tlcaudit.yaml)")

	rootCmd.PersistentFlags().String("cache-dir", "tlc_data", "Local cache directory for downloaded trip files")
	rootCmd.PersistentFlags().Bool("force-refresh", false, "Re-download files that are already cached")
	rootCmd.PersistentFlags().Float64("growth-factor", 1.0, "Trip count scaling applied to imputed months")
	rootCmd.PersistentFlags().Float64("elasticity-threshold", 0.2, "Coefficient magnitude above which demand is classified elastic")
	rootCmd.PersistentFlags().Bool("log-transform", false, "Regress elasticity on log1p-transformed values")

	viper.BindPFlag("cache_dir", rootCmd.PersistentFlags().Lookup("cache-dir"))
	viper.BindPFlag("force_refresh", rootCmd.PersistentFlags().Lookup("force-refresh"))
	viper.BindPFlag("impute.growth_factor", rootCmd.PersistentFlags().Lookup("growth-factor"))
	viper.BindPFlag("elasticity.threshold", rootCmd.PersistentFlags().Lookup("elasticity-threshold"))
	viper.BindPFlag("elasticity.log_transform", rootCmd.PersistentFlags().Lookup("log-transform"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
	viper.AutomaticEnv()
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*models.Config, error) {
	return models.LoadConfig(cfgFile)
}

// pipeline bundles the pieces every subcommand wires the same way.
type pipeline struct {
	cfg     *models.Config
	store   *cache.Store
	loader  *tripdata.Loader
	fetcher *crawler.Fetcher
}

func newPipeline() (*pipeline, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store := cache.New(cfg.CacheDir)
	return &pipeline{
		cfg:     cfg,
		store:   store,
		loader:  tripdata.NewLoader(),
		fetcher: crawler.NewFetcher(cfg, store),
	}, nil
}

// engine builds the aggregation engine, downloading the zone lookup table
// if it is not on disk yet.
func (p *pipeline) engine(ctx context.Context) (*aggregate.Engine, error) {
	lookupPath, err := p.fetcher.FetchZoneLookup(ctx)
	if err != nil {
		return nil, err
	}
	lookup, err := zones.Load(lookupPath)
	if err != nil {
		return nil, err
	}
	ws := weather.NewClient(p.cfg.Weather, time.Duration(p.cfg.HTTPTimeout)*time.Second)
	return aggregate.NewEngine(p.cfg, p.store, p.loader, lookup, ws), nil
}

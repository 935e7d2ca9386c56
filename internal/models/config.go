package models

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Config struct {
	CacheDir       string   `mapstructure:"cache_dir"`
	SupportedYears []int    `mapstructure:"supported_years"`
	VehicleClasses []string `mapstructure:"vehicle_classes"`

	TripDataBaseURL string `mapstructure:"trip_data_base_url"`
	ZoneLookupURL   string `mapstructure:"zone_lookup_url"`
	ZoneLookupFile  string `mapstructure:"zone_lookup_file"`
	HTTPTimeout     int    `mapstructure:"http_timeout_seconds"`
	ForceRefresh    bool   `mapstructure:"force_refresh"`

	TollStartDate time.Time `mapstructure:"toll_start_date"`

	Impute     ImputeConfig     `mapstructure:"impute"`
	Elasticity ElasticityConfig `mapstructure:"elasticity"`
	Weather    WeatherConfig    `mapstructure:"weather"`
	Report     ReportConfig     `mapstructure:"report"`
	Server     ServerConfig     `mapstructure:"server"`
}

// ImputeConfig controls the synthetic-month policy. The growth factor is a
// plain scaling input with no statistical intent behind the default.
type ImputeConfig struct {
	GrowthFactor   float64 `mapstructure:"growth_factor"`
	PriorYearWt    float64 `mapstructure:"prior_year_weight"`
	EarlierYearWt  float64 `mapstructure:"earlier_year_weight"`
	ForceOverwrite bool    `mapstructure:"force_overwrite"`
	Seed           int64   `mapstructure:"seed"`
}

type ElasticityConfig struct {
	Threshold    float64 `mapstructure:"threshold"`
	LogTransform bool    `mapstructure:"log_transform"`
}

type WeatherConfig struct {
	ArchiveURL string  `mapstructure:"archive_url"`
	Latitude   float64 `mapstructure:"latitude"`
	Longitude  float64 `mapstructure:"longitude"`
	Timezone   string  `mapstructure:"timezone"`
	CacheFile  string  `mapstructure:"cache_file"`
}

type ReportConfig struct {
	OutputFile string `mapstructure:"output_file"`
	TopVendors int    `mapstructure:"top_vendors"`

	UploadEnabled bool   `mapstructure:"upload_enabled"`
	BucketName    string `mapstructure:"bucket_name"`
	Region        string `mapstructure:"region"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

func setDefaults() {
	viper.SetDefault("cache_dir", "tlc_data")
	viper.SetDefault("supported_years", []int{2023, 2024, 2025})
	viper.SetDefault("vehicle_classes", []string{"yellow", "green"})
	viper.SetDefault("trip_data_base_url", "https://d37ci6vzurychx.cloudfront.net/trip-data")
	viper.SetDefault("zone_lookup_url", "https://d37ci6vzurychx.cloudfront.net/misc/taxi_zone_lookup.csv")
	viper.SetDefault("zone_lookup_file", "tlc_data/taxi_zone_lookup.csv")
	viper.SetDefault("http_timeout_seconds", 30)
	viper.SetDefault("toll_start_date", "2025-01-05T00:00:00Z")

	viper.SetDefault("impute.growth_factor", 1.0)
	viper.SetDefault("impute.prior_year_weight", 0.70)
	viper.SetDefault("impute.earlier_year_weight", 0.30)
	viper.SetDefault("impute.seed", 42)

	viper.SetDefault("elasticity.threshold", 0.2)
	viper.SetDefault("elasticity.log_transform", false)

	viper.SetDefault("weather.archive_url", "https://archive-api.open-meteo.com/v1/archive")
	viper.SetDefault("weather.latitude", 40.7812)
	viper.SetDefault("weather.longitude", -73.9665)
	viper.SetDefault("weather.timezone", "America/New_York")
	viper.SetDefault("weather.cache_file", "tlc_data/weather_central_park.csv")

	viper.SetDefault("report.output_file", "audit_report.pdf")
	viper.SetDefault("report.top_vendors", 5)

	viper.SetDefault("server.addr", ":8080")
}

// LoadConfig initializes and reads the configuration using Viper
func LoadConfig(cfgFile string) (*Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("tlcaudit")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	decoderConfigOption := viper.DecoderConfigOption(func(config *mapstructure.DecoderConfig) {
		config.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			config.DecodeHook,
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		)
	})
	if err := viper.Unmarshal(&config, decoderConfigOption); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}

	return &config, nil
}

// SupportsYear reports whether year is in the configured supported set.
func (cfg *Config) SupportsYear(year int) bool {
	for _, y := range cfg.SupportedYears {
		if y == year {
			return true
		}
	}
	return false
}

// Classes returns the configured vehicle classes, validated.
func (cfg *Config) Classes() ([]VehicleClass, error) {
	out := make([]VehicleClass, 0, len(cfg.VehicleClasses))
	for _, s := range cfg.VehicleClasses {
		c, err := ParseVehicleClass(s)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

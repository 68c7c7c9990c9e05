package config

import (
	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
type Config struct {
	PostgresURL     string `mapstructure:"POSTGRES_URL"`
	ServerPort      string `mapstructure:"SERVER_PORT"`
	FetchWorkers    int    `mapstructure:"FETCH_WORKERS"`
	FetchTimeout    int    `mapstructure:"FETCH_TIMEOUT"`
	ImageMaxWidth   int    `mapstructure:"IMAGE_MAX_WIDTH"`
	ImageMaxHeight  int    `mapstructure:"IMAGE_MAX_HEIGHT"`
	ImageQuality    int    `mapstructure:"IMAGE_QUALITY"`
	AssetHostSource string `mapstructure:"ASSET_HOST_SOURCE"`
	AssetHostTarget string `mapstructure:"ASSET_HOST_TARGET"`
}

// Load reads configuration from file or environment variables.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	// Attempt to read the .env file, but don't fail if it's not present
	// This allows configuration purely through environment variables in production
	_ = viper.ReadInConfig()

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("FETCH_WORKERS", 8)
	viper.SetDefault("FETCH_TIMEOUT", 10) // in seconds
	viper.SetDefault("IMAGE_MAX_WIDTH", 512)
	viper.SetDefault("IMAGE_MAX_HEIGHT", 384)
	viper.SetDefault("IMAGE_QUALITY", 85)
	// Authoring-time image URLs reference a host that is not reachable from
	// this process's network context; rewrite them before fetching.
	viper.SetDefault("ASSET_HOST_SOURCE", "http://localhost:4000")
	viper.SetDefault("ASSET_HOST_TARGET", "http://caddy")

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

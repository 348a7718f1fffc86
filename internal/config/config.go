package config

import (
	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
type Config struct {
	ServerPort      string `mapstructure:"SERVER_PORT"`
	DataDir         string `mapstructure:"DATA_DIR"`
	RedisAddr       string `mapstructure:"REDIS_ADDR"`
	SheetsAPIURL    string `mapstructure:"SHEETS_API_URL"`
	MaxPages        int    `mapstructure:"MAX_PAGES"`
	PageLoadTimeout int    `mapstructure:"PAGE_LOAD_TIMEOUT"`
	ExtractTimeout  int    `mapstructure:"EXTRACT_TIMEOUT"`
	Headless        bool   `mapstructure:"HEADLESS"`
	SeenCacheDays   int    `mapstructure:"SEEN_CACHE_DAYS"`
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
	viper.SetDefault("DATA_DIR", ".")
	viper.SetDefault("REDIS_ADDR", "") // empty disables the seen-URL cache
	viper.SetDefault("SHEETS_API_URL", "http://localhost:5000")
	viper.SetDefault("MAX_PAGES", 5)
	viper.SetDefault("PAGE_LOAD_TIMEOUT", 30) // in seconds
	viper.SetDefault("EXTRACT_TIMEOUT", 15)   // in seconds
	viper.SetDefault("HEADLESS", true)
	viper.SetDefault("SEEN_CACHE_DAYS", 2)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// ErrMissingToken means no API credential was supplied and no local
// snapshot file was configured either. Startup-fatal.
var ErrMissingToken = errors.New("config: YNAB_API_KEY is not set")

// Config holds everything a build run needs. The token is carried here
// and passed down explicitly; nothing else reads the environment.
type Config struct {
	Token        string
	BudgetID     string
	OutputDir    string
	StaticDir    string
	SiteFile     string
	SnapshotFile string
	APIBaseURL   string
	Timeout      time.Duration
	MaxAttempts  int
}

// Build assembles configuration from .env (if present), the config file,
// environment variables and flag overrides, in ascending priority.
func Build(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	// Best effort: local development keeps the token in .env, CI injects
	// it directly.
	_ = gotenv.Load()

	v := viper.New()
	v.SetDefault("budget", "last-used")
	v.SetDefault("output", "_site")
	v.SetDefault("static", "_static")
	v.SetDefault("site", "site.yaml")
	v.SetDefault("api_url", "")
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("max_attempts", 3)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: reading %s: %w", v.ConfigFileUsed(), err)
		}
	}

	_ = v.BindEnv("token", "YNAB_API_KEY")
	_ = v.BindEnv("snapshot", "YNAB_TRANSACTIONS_FILE")
	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		Token:        v.GetString("token"),
		BudgetID:     v.GetString("budget"),
		OutputDir:    v.GetString("output"),
		StaticDir:    v.GetString("static"),
		SiteFile:     v.GetString("site"),
		SnapshotFile: v.GetString("snapshot"),
		APIBaseURL:   v.GetString("api_url"),
		Timeout:      v.GetDuration("timeout"),
		MaxAttempts:  v.GetInt("max_attempts"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the credential requirement: a token is mandatory unless
// the run reads from a local snapshot file.
func (c *Config) Validate() error {
	if c.Token == "" && c.SnapshotFile == "" {
		return ErrMissingToken
	}
	if c.OutputDir == "" {
		return errors.New("config: output directory cannot be empty")
	}
	return nil
}

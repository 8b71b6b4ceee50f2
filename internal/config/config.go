package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	AuthSecret  string   `mapstructure:"AUTH_SECRET"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	// Booking policy settings consumed by the scheduling domain.
	SlotIntervalMinutes   int `mapstructure:"SLOT_INTERVAL_MINUTES"`
	SlotSearchMaxAttempts int `mapstructure:"SLOT_SEARCH_MAX_ATTEMPTS"`
	PreferredDateMaxDays  int `mapstructure:"PREFERRED_DATE_MAX_DAYS"`
	CancelLeadDays        int `mapstructure:"CANCEL_LEAD_DAYS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("SLOT_INTERVAL_MINUTES", 10)
	v.SetDefault("SLOT_SEARCH_MAX_ATTEMPTS", 100)
	v.SetDefault("PREFERRED_DATE_MAX_DAYS", 180)
	v.SetDefault("CANCEL_LEAD_DAYS", 2)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("AUTH_SECRET")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("SLOT_INTERVAL_MINUTES")
	v.BindEnv("SLOT_SEARCH_MAX_ATTEMPTS")
	v.BindEnv("PREFERRED_DATE_MAX_DAYS")
	v.BindEnv("CANCEL_LEAD_DAYS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Unmarshal does not split comma-separated env values into a slice.
	if cfg.CORSOrigins == nil {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run. Outside development
// mode AUTH_SECRET must be set so that real bearer authentication is
// enforced, and the booking policy settings must describe a usable grid.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthSecret == "" {
		return fmt.Errorf("AUTH_SECRET is required when ENV=%q", c.Env)
	}
	if c.SlotIntervalMinutes < 1 || c.SlotIntervalMinutes > 60 {
		return fmt.Errorf("SLOT_INTERVAL_MINUTES must be between 1 and 60, got %d", c.SlotIntervalMinutes)
	}
	if 60%c.SlotIntervalMinutes != 0 {
		return fmt.Errorf("SLOT_INTERVAL_MINUTES must divide the hour evenly, got %d", c.SlotIntervalMinutes)
	}
	if c.SlotSearchMaxAttempts < 1 {
		return fmt.Errorf("SLOT_SEARCH_MAX_ATTEMPTS must be positive, got %d", c.SlotSearchMaxAttempts)
	}
	if c.PreferredDateMaxDays < 1 {
		return fmt.Errorf("PREFERRED_DATE_MAX_DAYS must be positive, got %d", c.PreferredDateMaxDays)
	}
	if c.CancelLeadDays < 0 {
		return fmt.Errorf("CANCEL_LEAD_DAYS must not be negative, got %d", c.CancelLeadDays)
	}
	return nil
}

// Package config loads the TOML configuration file describing the gym
// application, the users and their recurring slots.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/example/wod-scheduler/internal/schedule"
)

// SlotSpec is one configured recurring slot: the time of day and an
// optional activity-name filter (matched case-insensitively, substring).
type SlotSpec struct {
	Time     string `mapstructure:"time"`
	Activity string `mapstructure:"activity"`
}

// User is one account on the booking service plus the weekday names of
// the slots to book for it.
type User struct {
	Name     string   `mapstructure:"name"`
	Login    string   `mapstructure:"login"`
	Password string   `mapstructure:"password"`
	Slots    []string `mapstructure:"slots"`
}

// App identifies the gym on the Nubapp platform.
type App struct {
	ApplicationID      string `mapstructure:"application_id"`
	CategoryActivityID string `mapstructure:"category_activity_id"`
}

// Dashboard configures the optional password gate in front of the web
// dashboard. With an empty PasswordHash the dashboard is open.
type Dashboard struct {
	PasswordHash   string `mapstructure:"password_hash"`
	CookieHashKey  string `mapstructure:"cookie_hash_key"`
	CookieBlockKey string `mapstructure:"cookie_block_key"`
}

type Config struct {
	Timezone    string              `mapstructure:"timezone"`
	ListenAddr  string              `mapstructure:"listen_addr"`
	StateFile   string              `mapstructure:"state_file"`
	HistoryFile string              `mapstructure:"history_file"`
	App         App                 `mapstructure:"app"`
	Users       []User              `mapstructure:"users"`
	Slots       map[string]SlotSpec `mapstructure:"slots"`
	Dashboard   Dashboard           `mapstructure:"dashboard"`
}

// Load reads and validates the config at path. State and history files
// default to living next to the config file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("timezone", "Europe/Madrid")
	v.SetDefault("listen_addr", "0.0.0.0:3009")
	v.SetEnvPrefix("WODSCHED")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if cfg.StateFile == "" {
		cfg.StateFile = filepath.Join(dir, "scheduler_state.json")
	}
	if cfg.HistoryFile == "" {
		cfg.HistoryFile = filepath.Join(dir, "history.db")
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.App.ApplicationID == "" {
		return fmt.Errorf("app.application_id is required")
	}
	if c.App.CategoryActivityID == "" {
		return fmt.Errorf("app.category_activity_id is required")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	for name, spec := range c.Slots {
		if _, _, _, ok := schedule.ParseTimeOfDay(spec.Time); !ok {
			return fmt.Errorf("slot %q: invalid time %q", name, spec.Time)
		}
	}
	return nil
}

// Location returns the configured timezone. Load validates it, so a
// failure here means the tz database changed underneath us; fall back
// to UTC rather than crash.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// FirstUser returns the first configured user, the default account for
// one-shot CLI commands.
func (c *Config) FirstUser() (User, bool) {
	if len(c.Users) == 0 {
		return User{}, false
	}
	return c.Users[0], true
}

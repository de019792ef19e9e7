// Package config loads server configuration with viper.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Models   ModelsConfig   `mapstructure:"models"`
	Events   EventsConfig   `mapstructure:"events"`
	Session  SessionConfig  `mapstructure:"session"`
	List     ListConfig     `mapstructure:"list"`
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string { return fmt.Sprintf(":%d", c.Port) }

// DatabaseConfig holds sqlite settings. An empty DSN keeps records in memory.
type DatabaseConfig struct {
	DSN  string `mapstructure:"dsn"`
	Seed bool   `mapstructure:"seed"` // demo records for the built-in models
}

// ModelsConfig selects where models come from. With Dir empty the built-in
// ent schemas are served; otherwise the CUE package in Dir.
type ModelsConfig struct {
	Dir string `mapstructure:"dir"`
}

// EventsConfig holds event bus settings.
type EventsConfig struct {
	Buffer int  `mapstructure:"buffer"`
	Log    bool `mapstructure:"log"`
	// History is the number of events kept when no database is configured.
	History int `mapstructure:"history"`
}

// SessionConfig holds live session expiry settings.
type SessionConfig struct {
	MaxAge      time.Duration `mapstructure:"max_age"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

// ListConfig holds list screen defaults.
type ListConfig struct {
	ItemsPerPage int `mapstructure:"items_per_page"`
}

// Load reads configuration from file and env. Env var overrides use prefix
// SCREENS_, e.g. SCREENS_SERVER_PORT. A TOML file is read from
// $SCREENS_CONFIG, or ./screens.toml when present.
func Load() (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.seed", true)
	v.SetDefault("models.dir", "")
	v.SetDefault("events.buffer", 256)
	v.SetDefault("events.log", true)
	v.SetDefault("events.history", 10000)
	v.SetDefault("session.max_age", 4*time.Hour)
	v.SetDefault("session.idle_timeout", 30*time.Minute)
	v.SetDefault("list.items_per_page", 25)

	v.SetConfigType("toml")

	cfgPath := os.Getenv("SCREENS_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("screens")
	}

	v.SetEnvPrefix("SCREENS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// An explicitly named file must exist; the default one is optional.
		if cfgPath != "" {
			return Config{}, fmt.Errorf("read config %s: %w", cfgPath, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	case c.List.ItemsPerPage < 1:
		return fmt.Errorf("config: list.items_per_page must be positive")
	case c.Session.IdleTimeout <= 0 || c.Session.MaxAge <= 0:
		return fmt.Errorf("config: session timeouts must be positive")
	}
	return nil
}

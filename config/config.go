// Package config loads application configuration via Viper, env-first with
// an optional local file. Env vars take priority; defaults suit local dev.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config groups the application configuration.
type Config struct {
	App  AppConfig
	DB   DBConfig
	HTTP HTTPConfig
	Keg  KegConfig
}

// AppConfig is the general application configuration.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string // trace, debug, info, warn, error
}

// DBConfig is the SQLite configuration. Path ":memory:" gives an in-memory
// database for tests and demos.
type DBConfig struct {
	Path string
}

// HTTPConfig is the server listen configuration.
type HTTPConfig struct {
	Host        string
	Port        int
	CORSOrigins []string
}

// Addr returns the listen address (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// KegConfig holds ledger business settings.
type KegConfig struct {
	// DuplicateWindow bounds the payload-match duplicate suppression.
	// Zero disables it (idempotency keys still apply).
	DuplicateWindow time.Duration
}

// Load reads configuration from environment variables and, when present,
// a local config file (.env / config.env). Env vars win.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig() // optional file

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "kegtracer"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		DB: DBConfig{
			Path: getString(v, "DB_PATH", "kegtracer.db"),
		},
		HTTP: HTTPConfig{
			Host:        getString(v, "HTTP_HOST", "0.0.0.0"),
			Port:        getInt(v, "HTTP_PORT", 8080),
			CORSOrigins: getStrings(v, "CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:8080"}),
		},
		Keg: KegConfig{
			DuplicateWindow: time.Duration(getInt(v, "DUPLICATE_WINDOW_SECONDS", 15)) * time.Second,
		},
	}

	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		return v.GetInt(key)
	}
	return def
}

func getStrings(v *viper.Viper, key string, def []string) []string {
	if v.IsSet(key) {
		raw := v.GetString(key)
		if raw != "" {
			parts := strings.Split(raw, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			return parts
		}
	}
	return def
}

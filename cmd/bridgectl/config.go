package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/webridge/internal/server"
)

// bridgectl config.toml key mapping to bridge runtime settings.
type fileConfig struct {
	Name           string   `toml:"name"`
	Addr           string   `toml:"addr"`
	CorsOrigins    []string `toml:"cors_origins"`
	DefaultSession string   `toml:"default_session"`
	ReplyTimeout   string   `toml:"reply_timeout"`
	ShutdownGrace  string   `toml:"shutdown_grace"`
}

// bridgectl loader for TOML config with default overlay.
func loadServiceConfig(path string) (server.ServiceConfig, error) {
	cfg := server.DefaultServiceConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return server.ServiceConfig{}, fmt.Errorf("load bridge config: %w", err)
	}

	if meta.IsDefined("name") {
		cfg.Name = strings.TrimSpace(raw.Name)
	}
	if meta.IsDefined("addr") {
		cfg.ListenAddr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = raw.CorsOrigins
	}
	if meta.IsDefined("default_session") {
		cfg.DefaultSession = strings.TrimSpace(raw.DefaultSession)
	}
	if meta.IsDefined("reply_timeout") {
		d, err := parsePositiveDuration("reply_timeout", raw.ReplyTimeout)
		if err != nil {
			return server.ServiceConfig{}, err
		}
		cfg.ReplyTimeout = d
	}
	if meta.IsDefined("shutdown_grace") {
		d, err := parsePositiveDuration("shutdown_grace", raw.ShutdownGrace)
		if err != nil {
			return server.ServiceConfig{}, err
		}
		cfg.ShutdownGrace = d
	}
	return cfg, nil
}

func parsePositiveDuration(key string, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("load bridge config: %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("load bridge config: %s must be positive", key)
	}
	return d, nil
}

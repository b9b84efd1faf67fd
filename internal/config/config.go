package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// BridgeConfig is the on-disk shape consumed by bridgectl.
type BridgeConfig struct {
	Name           string   `toml:"name"`
	Addr           string   `toml:"addr"`
	CorsOrigins    []string `toml:"cors_origins"`
	DefaultSession string   `toml:"default_session"`
	ReplyTimeout   string   `toml:"reply_timeout"`
	ShutdownGrace  string   `toml:"shutdown_grace"`
}

// PageScript is the on-disk shape consumed by pagectl. It scripts the
// reply a page client returns for each instruction type.
type PageScript struct {
	SnapshotHTML string `toml:"snapshot_html"`
	Confirm      bool   `toml:"confirm"`
	Answer       string `toml:"answer"`
	ReplyDelay   string `toml:"reply_delay"`
}

func LoadBridgeConfig(path string) (BridgeConfig, error) {
	var cfg BridgeConfig
	if err := loadToml(path, &cfg); err != nil {
		return BridgeConfig{}, err
	}
	if cfg.Name == "" {
		cfg.Name = "webridge"
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8000"
	}
	if cfg.DefaultSession == "" {
		cfg.DefaultSession = "default"
	}
	if cfg.ReplyTimeout == "" {
		cfg.ReplyTimeout = "60s"
	}
	if cfg.ShutdownGrace == "" {
		cfg.ShutdownGrace = "5s"
	}
	if err := ValidateBridgeConfig(cfg); err != nil {
		return BridgeConfig{}, err
	}
	return cfg, nil
}

// DefaultPageScript returns the scripted replies used when no script
// file is supplied.
func DefaultPageScript() PageScript {
	return PageScript{
		SnapshotHTML: "<html><body><h1>scripted page</h1></body></html>",
		Confirm:      true,
		Answer:       "42",
		ReplyDelay:   "0s",
	}
}

func LoadPageScript(path string) (PageScript, error) {
	var script PageScript
	if err := loadToml(path, &script); err != nil {
		return PageScript{}, err
	}
	if err := ValidatePageScript(script); err != nil {
		return PageScript{}, err
	}
	return script, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateBridgeConfig(cfg BridgeConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("bridge config missing name")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("bridge config missing addr")
	}
	if strings.TrimSpace(cfg.DefaultSession) == "" {
		return fmt.Errorf("bridge config missing default_session")
	}
	if _, err := time.ParseDuration(cfg.ReplyTimeout); err != nil {
		return fmt.Errorf("bridge config invalid reply_timeout: %w", err)
	}
	if _, err := time.ParseDuration(cfg.ShutdownGrace); err != nil {
		return fmt.Errorf("bridge config invalid shutdown_grace: %w", err)
	}
	return nil
}

func ValidatePageScript(script PageScript) error {
	if script.ReplyDelay != "" {
		if _, err := time.ParseDuration(script.ReplyDelay); err != nil {
			return fmt.Errorf("page script invalid reply_delay: %w", err)
		}
	}
	return nil
}

// Timeouts returns the parsed reply and shutdown-grace durations.
func (c BridgeConfig) Timeouts() (reply, grace time.Duration, err error) {
	reply, err = time.ParseDuration(c.ReplyTimeout)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid reply_timeout: %w", err)
	}
	grace, err = time.ParseDuration(c.ShutdownGrace)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid shutdown_grace: %w", err)
	}
	return reply, grace, nil
}

func (s PageScript) ReplyDelayDuration() (time.Duration, error) {
	if s.ReplyDelay == "" {
		return 0, nil
	}
	return time.ParseDuration(s.ReplyDelay)
}

package main

import (
	"flag"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/webridge/internal/logging"
	"github.com/danmuck/webridge/internal/observability"
	"github.com/danmuck/webridge/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to bridge config.toml (built-in defaults when unset)")
	listenAddr := flag.String("addr", "", "listen address, overrides the config file")
	logLevel := flag.String("log-level", "", "log level (trace|debug|info|warn|error), overrides "+logging.EnvLogLevel)
	flag.Parse()

	if lvl := strings.TrimSpace(*logLevel); lvl != "" {
		os.Setenv(logging.EnvLogLevel, lvl)
	}
	observability.InitLogger("bridgectl")

	cfg := server.DefaultServiceConfig()
	if path := strings.TrimSpace(*configPath); path != "" {
		loaded, err := loadServiceConfig(path)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load bridge config")
		}
		cfg = loaded
		log.Info().Str("path", path).Msg("loaded bridge config")
	}
	if addr := strings.TrimSpace(*listenAddr); addr != "" {
		cfg.ListenAddr = addr
	}

	svc := server.NewServiceWithConfig(cfg)
	log.Info().Str("name", cfg.Name).Str("addr", cfg.ListenAddr).Msg("bridge started")
	if err := svc.Run(); err != nil {
		log.Fatal().Err(err).Msg("bridge stopped")
	}
}

package server

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/webridge/internal/bridge"
	"github.com/danmuck/webridge/internal/observability"
	"github.com/danmuck/webridge/internal/tools"
)

// Bridge HTTP endpoint configuration.
type ServiceConfig struct {
	Name           string
	ListenAddr     string
	CorsOrigins    []string
	DefaultSession string
	ReplyTimeout   time.Duration
	ShutdownGrace  time.Duration
}

// Bridge service defaults for the localhost development posture.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Name:           "webridge",
		ListenAddr:     "127.0.0.1:8000",
		CorsOrigins:    nil,
		DefaultSession: "default",
		ReplyTimeout:   bridge.DefaultReplyTimeout,
		ShutdownGrace:  5 * time.Second,
	}
}

// Bridge runtime service owning the HTTP surface, the session
// registry, and the MCP tool rim.
type Service struct {
	cfg ServiceConfig

	manager   *bridge.SessionManager
	exchanger *bridge.Exchanger
	pages     *tools.Pages
	router    *gin.Engine
	upgrader  websocket.Upgrader
	mcpServer *mcp.Server

	appeared time.Time
}

// Bridge service constructor using default configuration.
func NewService() *Service {
	return NewServiceWithConfig(DefaultServiceConfig())
}

// Bridge service constructor using explicit configuration.
func NewServiceWithConfig(cfg ServiceConfig) *Service {
	defaults := DefaultServiceConfig()
	if strings.TrimSpace(cfg.Name) == "" {
		cfg.Name = defaults.Name
	}
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		cfg.ListenAddr = defaults.ListenAddr
	}
	if strings.TrimSpace(cfg.DefaultSession) == "" {
		cfg.DefaultSession = defaults.DefaultSession
	}
	if cfg.ReplyTimeout <= 0 {
		cfg.ReplyTimeout = defaults.ReplyTimeout
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = defaults.ShutdownGrace
	}

	svc := &Service{
		cfg:      cfg,
		manager:  bridge.NewSessionManager(),
		appeared: time.Now(),
	}
	svc.exchanger = bridge.NewExchanger(svc.manager, cfg.ReplyTimeout)
	svc.pages = tools.NewPages(svc.exchanger)
	svc.upgrader = makeUpgrader(normalizeOrigins(cfg.CorsOrigins))
	svc.mcpServer = svc.buildMCPServer()
	svc.router = svc.buildRouter()
	svc.registerRoutes()
	return svc
}

// Manager exposes the session registry boundary.
func (s *Service) Manager() *bridge.SessionManager {
	return s.manager
}

// Pages exposes the typed tool surface.
func (s *Service) Pages() *tools.Pages {
	return s.pages
}

// Router returns the HTTP engine for in-process serving and tests.
func (s *Service) Router() *gin.Engine {
	return s.router
}

// Bridge runtime entrypoint that blocks until signal shutdown.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Serve(ctx)
}

// Serve runs the HTTP listener until ctx ends, then drains with the
// configured grace period. Attached sessions close first so suspended
// exchanges settle before the listener stops.
func (s *Service) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr,
		Handler: s.router,
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()
	log.Warn().Msgf("bridge.Service.Run listening addr=%q", s.cfg.ListenAddr)

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.manager.Shutdown()
	observability.SetSessionsActive(0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-serveErr; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Warn().Msgf("bridge.Service.Run stopped addr=%q", s.cfg.ListenAddr)
	return nil
}

package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/chapterly/storefront/internal/app/session"
	"github.com/chapterly/storefront/internal/pkg/api"
	"github.com/chapterly/storefront/internal/pkg/config"
)

// Server holds the dependencies for the HTTP server
type Server struct {
	cfg      *config.Config
	logger   *zap.Logger
	client   *api.Client
	store    session.Store
	sessions *session.Manager
	redis    *redis.Client
	router   http.Handler
}

// New creates a new Server instance with all dependencies
func New(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logger,
		client: api.NewClient(cfg.StoreAPI, logger),
	}

	store, err := s.setupSessionStore()
	if err != nil {
		return nil, fmt.Errorf("failed to setup session store: %w", err)
	}
	s.store = store
	s.sessions = session.NewManager(store, logger)

	return s, nil
}

// setupSessionStore builds the configured session backend. The cookie
// backend needs no external service; redis keeps records server-side and
// survives restarts.
func (s *Server) setupSessionStore() (session.Store, error) {
	switch s.cfg.Session.Backend {
	case "redis":
		opts, err := redis.ParseURL(s.cfg.Session.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		s.redis = redis.NewClient(opts)
		s.logger.Info("Using redis session store", zap.String("addr", opts.Addr))
		return session.NewRedisStore(s.redis, s.cfg.Session.CookieName, s.cfg.Session.TTL), nil
	case "cookie":
		s.logger.Info("Using cookie session store")
		return session.NewCookieStore(), nil
	default:
		return nil, fmt.Errorf("unsupported session backend %q", s.cfg.Session.Backend)
	}
}

// HTTPServer creates and configures the HTTP server
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         ":" + s.cfg.ServerPort,
		Handler:      s.router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// SetRouter sets the HTTP router/handler
func (s *Server) SetRouter(router http.Handler) {
	s.router = router
}

// Sessions returns the session manager
func (s *Server) Sessions() *session.Manager {
	return s.sessions
}

// APIClient returns the remote store client
func (s *Server) APIClient() *api.Client {
	return s.client
}

// GetLogger returns the logger instance
func (s *Server) GetLogger() *zap.Logger {
	return s.logger
}

// GetConfig returns the configuration
func (s *Server) GetConfig() *config.Config {
	return s.cfg
}

// Close closes all server resources
func (s *Server) Close() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}
}

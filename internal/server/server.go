// Package server exposes the counter client over HTTP. One client is
// built at startup and shared by every request; the server never holds
// counter state of its own.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/saurabh-kaul-yral/onboarding-counter/internal/counter"
	"github.com/saurabh-kaul-yral/onboarding-counter/internal/observability"
)

// Config carries the listen address and CORS origins for the API surface.
type Config struct {
	ListenAddr   string
	AllowOrigins []string
}

// WithDefaults fills the zero-value fields.
func (c Config) WithDefaults() Config {
	if c.ListenAddr == "" {
		c.ListenAddr = ":9000"
	}
	if len(c.AllowOrigins) == 0 {
		c.AllowOrigins = []string{"http://localhost:3000"}
	}
	return c
}

// Server routes HTTP requests onto a shared counter dispatcher.
type Server struct {
	cfg        Config
	client     *counter.Client
	dispatcher *counter.Dispatcher
	router     *gin.Engine
	logger     zerolog.Logger
	startedAt  time.Time
}

// New wires the router, middleware and routes around an already-built
// client. The client must be Ready; construction failures belong to the
// caller.
func New(cfg Config, client *counter.Client, logger zerolog.Logger) *Server {
	cfg = cfg.WithDefaults()
	observability.RegisterMetrics()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(logger))
	r.Use(observability.RequestMetricsMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	s := &Server{
		cfg:        cfg,
		client:     client,
		dispatcher: counter.NewDispatcher(client, &logger),
		router:     r,
		logger:     logger,
		startedAt:  time.Now(),
	}
	s.registerRoutes()
	return s
}

// Handler exposes the router for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run blocks serving the API until the listener fails or ctx is
// cancelled. Shutdown drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr,
		Handler: s.router,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	s.logger.Info().Str("addr", s.cfg.ListenAddr).Msg("counter api listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Package api serves the construction-project JSON API consumed by the map
// browser.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/buildwatch/internal/metrics"
	"github.com/zulandar/buildwatch/internal/source"
	"gorm.io/gorm"
)

// StartOpts holds configuration for the API server.
type StartOpts struct {
	DB      *gorm.DB
	Port    int
	Out     io.Writer
	Metrics *metrics.Metrics // optional; nil disables /metrics

	// Fallback is served when the store holds no projects. Defaults to the
	// demo set.
	Fallback source.Source

	RateLimit float64 // requests per second per client IP; 0 disables
	RateBurst int

	// TrustedProxies may set X-Forwarded-For. Empty means the remote
	// address is the client IP.
	TrustedProxies []string

	// DemoNotifications seeds a client's empty inbox with demo entries.
	DemoNotifications bool

	// SSE timing; zero values use 3s and 15s.
	PollInterval time.Duration
	Heartbeat    time.Duration

	Now func() time.Time
}

// server carries handler dependencies.
type server struct {
	db                *gorm.DB
	fallback          source.Source
	demoNotifications bool
	pollInterval      time.Duration
	heartbeat         time.Duration
	now               func() time.Time
}

// NewRouter builds the gin engine with every route and middleware installed.
func NewRouter(opts StartOpts) (*gin.Engine, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("api: db is required")
	}
	s := &server{
		db:                opts.DB,
		fallback:          opts.Fallback,
		demoNotifications: opts.DemoNotifications,
		pollInterval:      opts.PollInterval,
		heartbeat:         opts.Heartbeat,
		now:               opts.Now,
	}
	if s.fallback == nil {
		s.fallback = source.Demo{}
	}
	if s.pollInterval <= 0 {
		s.pollInterval = 3 * time.Second
	}
	if s.heartbeat <= 0 {
		s.heartbeat = 15 * time.Second
	}
	if s.now == nil {
		s.now = time.Now
	}

	router := gin.New()
	if err := router.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, fmt.Errorf("api: trusted proxies: %w", err)
	}
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(observe(opts.Metrics))
	router.Use(cors())
	if opts.RateLimit > 0 {
		router.Use(rateLimit(newLimiterSet(opts.RateLimit, opts.RateBurst, 10*time.Minute)))
	}

	registerRoutes(router, s, opts.Metrics)
	return router, nil
}

// Start launches the API server. It blocks until ctx is cancelled, then shuts
// down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	gin.SetMode(gin.ReleaseMode)
	router, err := NewRouter(opts)
	if err != nil {
		return err
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "API listening on http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}

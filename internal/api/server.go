// Package api exposes the catalog entities over HTTP. Every entity gets the
// same five routes under its own prefix.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-records/internal/catalog"
	"github.com/celerix-dev/celerix-records/internal/resource"
	"github.com/celerix-dev/celerix-records/pkg/records"
)

// HealthPath answers liveness probes.
const HealthPath = "/healthz"

// Options tunes the HTTP surface.
type Options struct {
	AllowOrigins   []string
	MetricsEnabled bool
	MetricsPath    string
	OmitNull       bool
}

// Server owns the gin engine and the storage provider behind it.
type Server struct {
	router   *gin.Engine
	logger   *zap.Logger
	provider records.Provider
	metrics  *Metrics
	opts     Options
	reserved map[string]bool
}

// NewServer builds the engine with logging, recovery, CORS and request ids.
// Entities are added with Mount.
func NewServer(provider records.Provider, logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(opts.AllowOrigins) == 0 {
		opts.AllowOrigins = []string{"*"}
	}

	router := gin.New()
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))
	router.Use(corsMiddleware(opts.AllowOrigins))
	router.Use(requestID())

	s := &Server{
		router:   router,
		logger:   logger,
		provider: provider,
		opts:     opts,
		reserved: map[string]bool{HealthPath: true},
	}

	router.GET(HealthPath, s.health)

	if opts.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		s.metrics = NewMetrics(reg)
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(s.metrics.Handler()))
		s.reserved[path] = true
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, resource.ErrorBody{Error: "route not found"})
	})
	return s
}

// Mount opens a gateway for every entity and registers its routes.
func (s *Server) Mount(ctx context.Context, entities []catalog.Entity) error {
	for _, e := range entities {
		if s.reserved[e.Prefix] {
			return fmt.Errorf("mount %s: prefix %s is reserved", e.Schema.Name(), e.Prefix)
		}
		gw, err := s.provider.Collection(ctx, e.Schema)
		if err != nil {
			return fmt.Errorf("open collection %s: %w", e.Schema.Name(), err)
		}
		h, err := resource.NewHandler(e.Schema, gw,
			resource.WithLogger(s.logger),
			resource.WithOmitNull(s.opts.OmitNull),
		)
		if err != nil {
			return err
		}
		Register(s.router.Group(e.Prefix), h, s.metrics)
		s.reserved[e.Prefix] = true
		s.logger.Info("Entity mounted",
			zap.String("entity", e.Schema.Name()),
			zap.String("prefix", e.Prefix),
			zap.String("table", e.Schema.Table()),
			zap.String("fields", strings.Join(e.Schema.Columns(), ",")),
		)
	}
	return nil
}

// Router returns the http.Handler to serve.
func (s *Server) Router() *gin.Engine { return s.router }

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := s.provider.Ping(ctx); err != nil {
		s.logger.Warn("Health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

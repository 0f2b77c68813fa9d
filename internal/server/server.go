// Package server exposes the milestone codec and tracker over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/milestonectl/internal/auth"
	"github.com/danmuck/milestonectl/internal/observability"
	"github.com/danmuck/milestonectl/internal/protocol/rlp"
	"github.com/danmuck/milestonectl/internal/tracker"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const version = "0.1.0"

type Config struct {
	Name         string
	Addr         string
	CorsOrigins  []string
	MaxBodyBytes int64
	Limits       rlp.Limits
	Tracker      *tracker.Tracker
	// Auth gates tracker writes; nil leaves them open.
	Auth auth.Validator
}

type Server struct {
	Name     string
	Addr     string
	Appeared time.Time

	tracker      *tracker.Tracker
	limits       rlp.Limits
	maxBodyBytes int64
	auth         auth.Validator
	router       *gin.Engine
}

func New(cfg Config) *Server {
	observability.RegisterMetrics()
	// Misspelled JSON keys must not silently decode to zero values.
	binding.EnableDecoderDisallowUnknownFields = true
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(cfg.Name))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.CorsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	limits := cfg.Limits
	if limits.MaxDepth <= 0 {
		limits = rlp.DefaultLimits()
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	return &Server{
		Name:         cfg.Name,
		Addr:         cfg.Addr,
		Appeared:     time.Now(),
		tracker:      cfg.Tracker,
		limits:       limits,
		maxBodyBytes: maxBody,
		auth:         cfg.Auth,
		router:       r,
	}
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

func (s *Server) RegisterRoutes() {
	r := s.router
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.Name,
			"version": version,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":   s.tracker != nil,
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.Name,
			"version": version,
		})
	})

	v1 := r.Group("/v1", s.limitBody)
	codec := v1.Group("/codec")
	codec.POST("/encode", s.handleEncode)
	codec.POST("/decode", s.handleDecode)
	codec.POST("/directive", s.handleDirective)

	tr := v1.Group("/tracker", s.requireTracker)
	tr.GET("/state", s.handleState)
	tr.GET("/methods", s.handleMethods)
	writes := tr.Group("", s.requireAuth)
	writes.POST("/propose", s.handlePropose)
	writes.POST("/calls/:method", s.handleCall)
	writes.POST("/milestones/:id/collect", s.handleCollect)
}

// Run serves until ctx is canceled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.Addr).Str("service", s.Name).Msg("http listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Str("service", s.Name).Msg("http stopped")
	return nil
}

func (s *Server) limitBody(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBodyBytes)
	c.Next()
}

func (s *Server) requireTracker(c *gin.Context) {
	if s.tracker == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "tracker not configured"})
		return
	}
	c.Next()
}

func (s *Server) requireAuth(c *gin.Context) {
	if s.auth == nil {
		c.Next()
		return
	}
	if err := auth.CheckHeader(s.auth, c.GetHeader("Authorization")); err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.Next()
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"http://localhost:3000"}
	}
	return out
}

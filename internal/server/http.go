package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/rizkyandriawan/monowire/internal/config"
	"github.com/rizkyandriawan/monowire/internal/engine"
	"github.com/rizkyandriawan/monowire/internal/observability"
	"github.com/rs/zerolog"
)

const (
	defaultRequestLimit = 50
	maxRequestLimit     = 1000
)

// HTTPServer serves the admin API
type HTTPServer struct {
	config *config.Config
	engine *engine.Engine
	router *gin.Engine
	server *http.Server
}

// NewHTTPServer creates a new HTTPServer. metrics may be nil, in which
// case /metrics is not routed.
func NewHTTPServer(cfg *config.Config, eng *engine.Engine, metrics *observability.Metrics, logger zerolog.Logger) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)

	s := &HTTPServer{
		config: cfg,
		engine: eng,
		router: gin.New(),
	}
	s.router.Use(gin.Recovery(), observability.RequestLogger(observability.Component(logger, "http")))

	// Open routes
	s.router.GET("/health", s.handleHealth)
	if metrics != nil {
		s.router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	api := s.router.Group("/api", s.authMiddleware())
	api.GET("/versions", s.handleVersions)
	api.GET("/requests", s.handleRequests)
	api.GET("/stats", s.handleStats)

	s.server = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler exposes the router, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server
func (s *HTTPServer) ListenAndServe() error {
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Serve serves on an existing listener.
func (s *HTTPServer) Serve(ln net.Listener) error {
	err := s.server.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the server, letting in-flight requests finish until ctx
// expires.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Close closes the HTTP server
func (s *HTTPServer) Close() error {
	return s.server.Close()
}

func (s *HTTPServer) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.config.Security.Enabled {
			auth := c.GetHeader("Authorization")
			token, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || token != s.config.Security.Token {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
				return
			}
		}
		c.Next()
	}
}

func (s *HTTPServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type apiVersionView struct {
	APIKey     int16  `json:"api_key"`
	Name       string `json:"name"`
	MinVersion int16  `json:"min_version"`
	MaxVersion int16  `json:"max_version"`
}

func (s *HTTPServer) handleVersions(c *gin.Context) {
	versions := s.engine.Versions()
	out := make([]apiVersionView, 0, len(versions))
	for _, v := range versions {
		out = append(out, apiVersionView{
			APIKey:     v.APIKey,
			Name:       s.engine.APILabel(v.APIKey),
			MinVersion: v.MinVersion,
			MaxVersion: v.MaxVersion,
		})
	}
	c.JSON(http.StatusOK, gin.H{"api_versions": out})
}

func (s *HTTPServer) handleRequests(c *gin.Context) {
	limit := defaultRequestLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxRequestLimit)
	}

	entries, err := s.engine.RecentRequests(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		out = append(out, gin.H{
			"time":           e.Time,
			"remote_addr":    e.RemoteAddr,
			"api":            s.engine.APILabel(e.APIKey),
			"api_key":        e.APIKey,
			"api_version":    e.APIVersion,
			"correlation_id": e.CorrelationID,
			"client_id":      e.ClientID,
			"error_code":     e.ErrorCode,
			"duration":       e.Duration.String(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"requests": out})
}

func (s *HTTPServer) handleStats(c *gin.Context) {
	st := s.engine.Stats()
	c.JSON(http.StatusOK, gin.H{
		"requests":        st.Requests,
		"errors":          st.Errors,
		"by_api":          st.ByAPI,
		"bytes_in":        st.BytesIn,
		"bytes_out":       st.BytesOut,
		"bytes_in_human":  humanize.Bytes(st.BytesIn),
		"bytes_out_human": humanize.Bytes(st.BytesOut),
		"journal_entries": st.JournalEntries,
		"storage":         s.config.Storage.Backend,
		"started_at":      st.StartedAt,
		"uptime":          strings.TrimSpace(humanize.RelTime(st.StartedAt, time.Now(), "", "")),
	})
}

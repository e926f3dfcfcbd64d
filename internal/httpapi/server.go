// Package httpapi is the gin HTTP surface over the analysis service.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"gapscan/internal/domain"
	"gapscan/internal/logger"
	"gapscan/internal/metrics"
)

type Config struct {
	Host           string
	Port           int
	MaxUploadBytes int64
	CORSOrigins    []string
}

type RouterConfig struct {
	Handler *Handler
	Metrics *metrics.Metrics
	Logger  *logger.Logger
	Origins []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(cfg.Logger))
	r.Use(Metrics(cfg.Metrics))
	r.Use(CORS(cfg.Origins))

	r.GET("/", cfg.Handler.Root)
	r.GET("/health", cfg.Handler.Health)
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}
	r.POST("/upload", cfg.Handler.Upload)
	r.POST("/analyze", cfg.Handler.Analyze)
	r.GET("/domains", cfg.Handler.Domains)
	r.GET("/domains/:id", cfg.Handler.Members)
	return r
}

type Server struct {
	Engine *gin.Engine
	http   *http.Server
	log    *logger.Logger
}

func NewServer(cfg Config, svc domain.AnalysisService, m *metrics.Metrics, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	engine := NewRouter(RouterConfig{
		Handler: NewHandler(svc, cfg.MaxUploadBytes),
		Metrics: m,
		Logger:  log,
		Origins: cfg.CORSOrigins,
	})
	return &Server{
		Engine: engine,
		http: &http.Server{
			Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

func (s *Server) Addr() string { return s.http.Addr }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return <-errCh
}

// Package server exposes the scan service over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ludo-technologies/solscan/domain"
	"github.com/ludo-technologies/solscan/internal/config"
	"github.com/ludo-technologies/solscan/internal/logging"
)

// ScanService is what the HTTP layer needs from the service layer
type ScanService interface {
	domain.ScanService

	// HistoryEnabled reports whether results are persisted
	HistoryEnabled() bool

	// History returns stored results, newest first
	History(ctx context.Context, contractName string, limit int) ([]domain.ScanRecord, error)
}

// Server is the HTTP front end of the scanner
type Server struct {
	cfg          config.ServerConfig
	historyLimit int
	service      ScanService
	logger       *zap.Logger
	engine       *gin.Engine
}

// New builds a server and registers its routes
func New(cfg config.ServerConfig, historyLimit int, service ScanService, logger *zap.Logger) *Server {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if historyLimit <= 0 {
		historyLimit = config.DefaultHistoryLimit
	}

	s := &Server{
		cfg:          cfg,
		historyLimit: historyLimit,
		service:      service,
		logger:       logging.OrNop(logger),
		engine:       gin.New(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.engine
	r.Use(recovery(s.logger), requestLogger(s.logger), cors(s.cfg.AllowedOrigins))

	r.GET("/health", s.health)

	api := r.Group("/api/ml")
	api.Use(rateLimit(NewRateLimiter(s.cfg.RateLimitPerMinute)), bodyLimit(s.cfg.MaxBodyBytes))
	{
		api.POST("/analyze", s.analyze)
		api.POST("/batch", s.batch)
		api.GET("/patterns", s.patterns)
		api.GET("/history", s.history)
	}
}

// Handler returns the HTTP handler serving every route
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.Int("rules", len(s.service.ListRules())),
			zap.Bool("history", s.service.HistoryEnabled()),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

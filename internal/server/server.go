package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/polychat/polychat-go/internal/config"
	"github.com/polychat/polychat-go/internal/provider"
	"github.com/polychat/polychat-go/internal/routing"
)

const ServiceName = "PolyChat"

type Server struct {
	cfg    *config.Config
	engine *gin.Engine
	router *routing.Router
	logger *slog.Logger
}

func New(cfg *config.Config, rt *routing.Router, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(logger), cors.New(corsConfig()))
	srv := &Server{cfg: cfg, engine: r, router: rt, logger: logger}
	srv.registerRoutes()
	return srv
}

// corsConfig allows any origin. "*" cannot be combined with credentials, so
// the origin is reflected instead.
func corsConfig() cors.Config {
	return cors.Config{
		AllowOriginFunc:  func(string) bool { return true },
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-Id"},
		ExposeHeaders:    []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/", s.root)
	s.engine.POST("/chat", s.chat)
	s.engine.GET("/providers", s.listProviders)
	s.engine.GET("/healthz", s.healthz)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Handler exposes the engine for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until ctx is cancelled, then drains in-flight requests for at
// most the configured shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("shutdown failed", slog.String("error", err.Error()))
		}
	}()
	s.logger.Info("listening", slog.String("address", s.cfg.Address))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": ServiceName + " backend is running!"})
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listProviders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"providers": s.router.Models()})
}

func (s *Server) chat(c *gin.Context) {
	var req provider.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Detail: "invalid request: " + err.Error(), Code: codeInvalidRequest})
		return
	}
	c.Set(providerKey, req.Provider)

	resp, err := s.router.Dispatch(c.Request.Context(), req)
	if err != nil {
		status, body := classify(err)
		body.Provider = req.Provider
		if status >= http.StatusInternalServerError {
			_ = c.Error(err)
		}
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, resp)
}

package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/polychat/polychat-go/internal/config"
	"github.com/polychat/polychat-go/internal/guardrails"
	"github.com/polychat/polychat-go/internal/observability"
	"github.com/polychat/polychat-go/internal/provider/anthropic"
	"github.com/polychat/polychat-go/internal/provider/gemini"
	"github.com/polychat/polychat-go/internal/provider/ollama"
	"github.com/polychat/polychat-go/internal/provider/openai"
	"github.com/polychat/polychat-go/internal/routing"
	"github.com/polychat/polychat-go/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TelemetryURL != "" {
		tp, err := observability.Setup(ctx, cfg.TelemetryURL)
		if err != nil {
			logger.Error("failed to set up tracing", "err", err)
			os.Exit(1)
		}
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	srv := server.New(cfg, newRouter(cfg, logger), logger)
	if err := srv.Start(ctx); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}

func newRouter(cfg *config.Config, logger *slog.Logger) *routing.Router {
	client := &http.Client{Timeout: cfg.RequestTimeout}

	rt := routing.New(
		routing.WithGuardrails(guardrails.New(cfg.MaxPromptChars)),
		routing.WithLogger(logger),
	)

	oa := openai.New(openai.Config{APIKey: cfg.OpenAIAPIKey, BaseURL: cfg.OpenAIBaseURL, Model: cfg.OpenAIModel}, client)
	rt.Register(openai.Name, oa.Model(), oa)

	cl := anthropic.New(anthropic.Config{
		APIKey:    cfg.ClaudeAPIKey,
		BaseURL:   cfg.ClaudeBaseURL,
		Model:     cfg.ClaudeModel,
		MaxTokens: cfg.ClaudeMaxTokens,
	}, client)
	rt.Register(anthropic.Name, cl.Model(), cl)

	gm := gemini.New(gemini.Config{
		APIKey:         cfg.GeminiAPIKey,
		BaseURL:        cfg.GeminiBaseURL,
		Model:          cfg.GeminiModel,
		ForwardHistory: cfg.ForwardHistory,
	}, client)
	rt.Register(gemini.Name, gm.Model(), gm)

	ol := ollama.New(ollama.Config{BaseURL: cfg.OllamaAPIURL, Model: cfg.OllamaModel, ForwardHistory: cfg.ForwardHistory}, client)
	rt.Register(ollama.Name, ol.Model(), ol)

	for _, m := range rt.Models() {
		logger.Info("provider registered", "provider", m.Provider, "model", m.Name)
	}
	return rt
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return l
}

package ollama

import (
	"context"
	"net/http"
	"strings"

	"github.com/polychat/polychat-go/internal/provider"
)

const (
	Name           = "ollama"
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2:latest"
)

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response *string `json:"response"`
}

type chatRequest struct {
	Model    string             `json:"model"`
	Messages []provider.Message `json:"messages"`
	Stream   bool               `json:"stream"`
}

type chatResponse struct {
	Message *struct {
		Content *string `json:"content"`
	} `json:"message"`
}

// Config points at a local Ollama server. When ForwardHistory is false the
// single-turn /api/generate endpoint is used.
type Config struct {
	BaseURL        string
	Model          string
	ForwardHistory bool
}

// Provider talks to a local Ollama server.
type Provider struct {
	cfg    Config
	client *http.Client
}

func New(cfg Config, client *http.Client) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &Provider{cfg: cfg, client: client}
}

func (p *Provider) Model() string { return p.cfg.Model }

func (p *Provider) Generate(ctx context.Context, prompt string, history []provider.Message) (string, error) {
	base := strings.TrimRight(p.cfg.BaseURL, "/")
	if !p.cfg.ForwardHistory {
		var out generateResponse
		err := provider.PostJSON(ctx, p.client, provider.Call{
			Provider: Name,
			URL:      base + "/api/generate",
			Body:     generateRequest{Model: p.cfg.Model, Prompt: prompt},
		}, &out)
		if err != nil {
			return "", err
		}
		if out.Response == nil {
			return "", provider.Malformed(Name, "response")
		}
		return *out.Response, nil
	}

	var out chatResponse
	err := provider.PostJSON(ctx, p.client, provider.Call{
		Provider: Name,
		URL:      base + "/api/chat",
		Body: chatRequest{
			Model:    p.cfg.Model,
			Messages: provider.WithPrompt(history, prompt),
		},
	}, &out)
	if err != nil {
		return "", err
	}
	if out.Message == nil || out.Message.Content == nil {
		return "", provider.Malformed(Name, "message.content")
	}
	return *out.Message.Content, nil
}

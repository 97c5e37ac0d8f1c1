package openai

import (
	"context"
	"net/http"
	"strings"

	"github.com/polychat/polychat-go/internal/provider"
)

const (
	Name           = "openai"
	DefaultBaseURL = "https://api.openai.com"
	DefaultModel   = "gpt-3.5-turbo"
)

type chatRequest struct {
	Model    string             `json:"model"`
	Messages []provider.Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Config holds the OpenAI credentials and endpoint.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Provider talks to the Chat Completions endpoint.
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

func chatURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if strings.HasSuffix(base, "/v1") {
		return base + "/chat/completions"
	}
	return base + "/v1/chat/completions"
}

// Generate forwards history verbatim and appends prompt as the final user turn.
func (p *Provider) Generate(ctx context.Context, prompt string, history []provider.Message) (string, error) {
	if p.cfg.APIKey == "" {
		return "", &provider.ConfigurationError{Provider: Name, Setting: "OPENAI_API_KEY"}
	}

	var out chatResponse
	err := provider.PostJSON(ctx, p.client, provider.Call{
		Provider: Name,
		URL:      chatURL(p.cfg.BaseURL),
		Header:   http.Header{"Authorization": {"Bearer " + p.cfg.APIKey}},
		Body: chatRequest{
			Model:    p.cfg.Model,
			Messages: provider.WithPrompt(history, prompt),
		},
	}, &out)
	if err != nil {
		return "", err
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == nil {
		return "", provider.Malformed(Name, "choices[0].message.content")
	}
	return *out.Choices[0].Message.Content, nil
}

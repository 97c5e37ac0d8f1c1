package anthropic

import (
	"context"
	"net/http"
	"strings"

	"github.com/polychat/polychat-go/internal/provider"
)

const (
	Name             = "claude"
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-7-sonnet-20250219"
	DefaultMaxTokens = 1024
	APIVersion       = "2023-06-01"
)

type messagesRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []provider.Message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string  `json:"type"`
		Text *string `json:"text"`
	} `json:"content"`
}

// Config holds the Anthropic credentials and model settings.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// Provider talks to the Messages API.
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
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	return &Provider{cfg: cfg, client: client}
}

func (p *Provider) Model() string { return p.cfg.Model }

// Generate forwards history with prompt appended as the final user turn.
// System turns are not accepted inside messages by the API, so they are
// joined into the top-level system field.
func (p *Provider) Generate(ctx context.Context, prompt string, history []provider.Message) (string, error) {
	if p.cfg.APIKey == "" {
		return "", &provider.ConfigurationError{Provider: Name, Setting: "CLAUDE_API_KEY"}
	}

	system, turns := splitSystem(history)
	var out messagesResponse
	err := provider.PostJSON(ctx, p.client, provider.Call{
		Provider: Name,
		URL:      strings.TrimRight(p.cfg.BaseURL, "/") + "/v1/messages",
		Header: http.Header{
			"X-Api-Key":         {p.cfg.APIKey},
			"Anthropic-Version": {APIVersion},
		},
		Body: messagesRequest{
			Model:     p.cfg.Model,
			MaxTokens: p.cfg.MaxTokens,
			System:    system,
			Messages:  provider.WithPrompt(turns, prompt),
		},
	}, &out)
	if err != nil {
		return "", err
	}
	if len(out.Content) == 0 || out.Content[0].Text == nil {
		return "", provider.Malformed(Name, "content[0].text")
	}
	return *out.Content[0].Text, nil
}

func splitSystem(history []provider.Message) (string, []provider.Message) {
	var system []string
	turns := make([]provider.Message, 0, len(history))
	for _, m := range history {
		if m.Role == provider.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		turns = append(turns, m)
	}
	return strings.Join(system, "\n\n"), turns
}

package gemini

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/polychat/polychat-go/internal/provider"
)

const (
	Name           = "gemini"
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-2.0-flash"
)

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents          []content `json:"contents"`
	SystemInstruction *content  `json:"systemInstruction,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Config holds the Gemini credentials and endpoint. When ForwardHistory is
// false only the current prompt is sent.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	ForwardHistory bool
}

// Provider talks to the generateContent endpoint.
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

func (p *Provider) generateURL() string {
	return strings.TrimRight(p.cfg.BaseURL, "/") + "/v1beta/models/" + url.PathEscape(p.cfg.Model) + ":generateContent"
}

func (p *Provider) Generate(ctx context.Context, prompt string, history []provider.Message) (string, error) {
	if p.cfg.APIKey == "" {
		return "", &provider.ConfigurationError{Provider: Name, Setting: "GEMINI_API_KEY"}
	}

	var out generateResponse
	err := provider.PostJSON(ctx, p.client, provider.Call{
		Provider: Name,
		URL:      p.generateURL(),
		Header:   http.Header{"X-Goog-Api-Key": {p.cfg.APIKey}},
		Body:     p.buildRequest(prompt, history),
	}, &out)
	if err != nil {
		return "", err
	}
	if len(out.Candidates) == 0 || out.Candidates[0].Content == nil ||
		len(out.Candidates[0].Content.Parts) == 0 || out.Candidates[0].Content.Parts[0].Text == nil {
		return "", provider.Malformed(Name, "candidates[0].content.parts[0].text")
	}
	return *out.Candidates[0].Content.Parts[0].Text, nil
}

func (p *Provider) buildRequest(prompt string, history []provider.Message) generateRequest {
	if !p.cfg.ForwardHistory {
		return generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}}
	}

	var req generateRequest
	var system []part
	for _, m := range provider.WithPrompt(history, prompt) {
		switch m.Role {
		case provider.RoleSystem:
			system = append(system, part{Text: m.Content})
		case provider.RoleAssistant:
			req.Contents = append(req.Contents, content{Role: "model", Parts: []part{{Text: m.Content}}})
		default:
			req.Contents = append(req.Contents, content{Role: "user", Parts: []part{{Text: m.Content}}})
		}
	}
	if len(system) > 0 {
		req.SystemInstruction = &content{Parts: system}
	}
	return req
}

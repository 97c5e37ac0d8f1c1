package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/polychat/polychat-go/internal/guardrails"
	"github.com/polychat/polychat-go/internal/metrics"
	"github.com/polychat/polychat-go/internal/provider"
)

const tracerName = "github.com/polychat/polychat-go/internal/routing"

// UnknownProviderError is returned for a provider name that is not registered.
type UnknownProviderError struct {
	Provider string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown provider %q", e.Provider)
}

// Model describes a registered provider and the model it serves.
type Model struct {
	Provider string `json:"provider"`
	Name     string `json:"model"`
}

type route struct {
	model    string
	provider provider.Provider
}

// Router maps provider names to providers.
type Router struct {
	routes map[string]route
	guards *guardrails.Guardrails
	logger *slog.Logger
}

type Option func(*Router)

// WithGuardrails validates every request after the provider is resolved.
func WithGuardrails(g *guardrails.Guardrails) Option {
	return func(r *Router) { r.guards = g }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.logger = l }
}

func New(opts ...Option) *Router {
	r := &Router{
		routes: make(map[string]route),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register associates a provider name with an implementation. It is meant to
// be called during start-up only; the table is read-only afterwards.
func (r *Router) Register(name, model string, p provider.Provider) {
	r.routes[name] = route{model: model, provider: p}
}

// ProviderFor returns the provider registered under name.
func (r *Router) ProviderFor(name string) (provider.Provider, error) {
	rt, ok := r.routes[name]
	if !ok {
		return nil, &UnknownProviderError{Provider: name}
	}
	return rt.provider, nil
}

// Dispatch routes req to its provider and wraps the reply.
func (r *Router) Dispatch(ctx context.Context, req provider.ChatRequest) (provider.ChatResponse, error) {
	p, err := r.ProviderFor(req.Provider)
	if err != nil {
		return provider.ChatResponse{}, err
	}
	if r.guards != nil {
		if err := r.guards.CheckInput(req); err != nil {
			return provider.ChatResponse{}, err
		}
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "routing.Dispatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("polychat.provider", req.Provider),
		attribute.Int("polychat.history_len", len(req.History)),
	)

	start := time.Now()
	text, err := p.Generate(ctx, req.Prompt, req.History)
	outcome := outcomeOf(err)
	metrics.ObserveProvider(req.Provider, outcome, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		r.logger.WarnContext(ctx, "provider call failed",
			slog.String("provider", req.Provider),
			slog.String("outcome", outcome),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()),
		)
		return provider.ChatResponse{}, fmt.Errorf("dispatch %s: %w", req.Provider, err)
	}
	return provider.ChatResponse{Response: text}, nil
}

// Models lists the registered providers sorted by name.
func (r *Router) Models() []Model {
	out := make([]Model, 0, len(r.routes))
	for name, rt := range r.routes {
		out = append(out, Model{Provider: name, Name: rt.model})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out
}

func outcomeOf(err error) string {
	var (
		pe *provider.ProviderError
		me *provider.MalformedResponseError
		ce *provider.ConfigurationError
		te *provider.TransportError
	)
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.As(err, &pe):
		return metrics.OutcomeUpstreamError
	case errors.As(err, &me):
		return metrics.OutcomeMalformed
	case errors.As(err, &ce):
		return metrics.OutcomeNotConfigured
	case errors.As(err, &te):
		return metrics.OutcomeTransport
	default:
		return metrics.OutcomeError
	}
}

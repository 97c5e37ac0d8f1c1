package routing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/polychat/polychat-go/internal/guardrails"
	"github.com/polychat/polychat-go/internal/metrics"
	"github.com/polychat/polychat-go/internal/provider"
	"github.com/polychat/polychat-go/internal/provider/anthropic"
	"github.com/polychat/polychat-go/internal/provider/gemini"
	"github.com/polychat/polychat-go/internal/provider/ollama"
	"github.com/polychat/polychat-go/internal/provider/openai"
)

type fakeProvider struct {
	reply   string
	err     error
	calls   int
	prompt  string
	history []provider.Message
}

func (f *fakeProvider) Generate(_ context.Context, prompt string, history []provider.Message) (string, error) {
	f.calls++
	f.prompt = prompt
	f.history = history
	return f.reply, f.err
}

func TestRouterProvider(t *testing.T) {
	r := New()
	p := &fakeProvider{}
	r.Register("openai", "gpt", p)

	got, err := r.ProviderFor("openai")
	require.NoError(t, err)
	require.Same(t, p, got)

	_, err = r.ProviderFor("echo")
	var ue *UnknownProviderError
	require.True(t, errors.As(err, &ue))
	require.Equal(t, "echo", ue.Provider)
}

func TestDispatch_WrapsReply(t *testing.T) {
	r := New()
	p := &fakeProvider{reply: "hi there"}
	r.Register("openai", "gpt", p)

	history := []provider.Message{{Role: provider.RoleUser, Content: "before"}}
	out, err := r.Dispatch(context.Background(), provider.ChatRequest{Provider: "openai", Prompt: "hello", History: history})
	require.NoError(t, err)
	require.Equal(t, provider.ChatResponse{Response: "hi there"}, out)
	require.Equal(t, 1, p.calls)
	require.Equal(t, "hello", p.prompt)
	require.Equal(t, history, p.history)
}

func TestDispatch_UnknownProvider(t *testing.T) {
	r := New(WithGuardrails(guardrails.New(0)))
	p := &fakeProvider{reply: "x"}
	r.Register("openai", "gpt", p)

	for _, req := range []provider.ChatRequest{
		{Provider: "not-a-real-provider", Prompt: "hello"},
		{Provider: "not-a-real-provider", Prompt: ""},
		{Provider: "", Prompt: "hello", History: []provider.Message{{Role: "bogus"}}},
		{Provider: "OpenAI", Prompt: "hello"},
	} {
		_, err := r.Dispatch(context.Background(), req)
		var ue *UnknownProviderError
		require.True(t, errors.As(err, &ue), "req=%+v err=%v", req, err)
	}
	require.Zero(t, p.calls)
}

func TestDispatch_GuardrailsRejectBeforeCall(t *testing.T) {
	r := New(WithGuardrails(guardrails.New(0)))
	p := &fakeProvider{reply: "x"}
	r.Register("openai", "gpt", p)

	_, err := r.Dispatch(context.Background(), provider.ChatRequest{Provider: "openai", Prompt: " "})
	var ve *guardrails.ValidationError
	require.True(t, errors.As(err, &ve))
	require.Zero(t, p.calls)
}

func TestDispatch_PropagatesProviderFailure(t *testing.T) {
	r := New()
	upstream := &provider.ProviderError{Provider: "claude", StatusCode: 500, Body: "boom"}
	r.Register("claude", "sonnet", &fakeProvider{err: upstream})

	before := testutil.ToFloat64(metrics.ProviderRequestsTotal.WithLabelValues("claude", metrics.OutcomeUpstreamError))

	out, err := r.Dispatch(context.Background(), provider.ChatRequest{Provider: "claude", Prompt: "hello"})
	require.Empty(t, out.Response)
	var pe *provider.ProviderError
	require.True(t, errors.As(err, &pe))
	require.Equal(t, 500, pe.StatusCode)

	var ue *UnknownProviderError
	require.False(t, errors.As(err, &ue))
	require.Equal(t, before+1, testutil.ToFloat64(metrics.ProviderRequestsTotal.WithLabelValues("claude", metrics.OutcomeUpstreamError)))
}

func TestDispatch_RecordsSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	r := New()
	r.Register("gemini", "flash", &fakeProvider{err: provider.Malformed("gemini", "candidates")})
	_, err := r.Dispatch(context.Background(), provider.ChatRequest{Provider: "gemini", Prompt: "hello"})
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, "routing.Dispatch", spans[0].Name())
	require.Equal(t, codes.Error, spans[0].Status().Code)
	require.Equal(t, metrics.OutcomeMalformed, spans[0].Status().Description)
}

func TestModels(t *testing.T) {
	r := New()
	r.Register("openai", "gpt-3.5-turbo", &fakeProvider{})
	r.Register("claude", "claude-3-7-sonnet-20250219", &fakeProvider{})
	r.Register("gemini", "gemini-2.0-flash", &fakeProvider{})

	require.Equal(t, []Model{
		{Provider: "claude", Name: "claude-3-7-sonnet-20250219"},
		{Provider: "gemini", Name: "gemini-2.0-flash"},
		{Provider: "openai", Name: "gpt-3.5-turbo"},
	}, r.Models())
}

func TestDispatch_AllProvidersAgainstStubs(t *testing.T) {
	replies := map[string]string{
		"/v1/chat/completions":                            `{"choices":[{"message":{"content":"known text"}}]}`,
		"/v1/messages":                                    `{"content":[{"type":"text","text":"known text"}]}`,
		"/v1beta/models/gemini-2.0-flash:generateContent": `{"candidates":[{"content":{"parts":[{"text":"known text"}]}}]}`,
		"/api/chat":                                       `{"message":{"role":"assistant","content":"known text"}}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := replies[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	client := &http.Client{Timeout: 2 * time.Second}
	r := New(WithGuardrails(guardrails.New(0)))
	r.Register(openai.Name, openai.DefaultModel, openai.New(openai.Config{APIKey: "k", BaseURL: srv.URL}, client))
	r.Register(anthropic.Name, anthropic.DefaultModel, anthropic.New(anthropic.Config{APIKey: "k", BaseURL: srv.URL}, client))
	r.Register(gemini.Name, gemini.DefaultModel, gemini.New(gemini.Config{APIKey: "k", BaseURL: srv.URL, ForwardHistory: true}, client))
	r.Register(ollama.Name, ollama.DefaultModel, ollama.New(ollama.Config{BaseURL: srv.URL, ForwardHistory: true}, client))

	history := []provider.Message{
		{Role: provider.RoleUser, Content: "one"},
		{Role: provider.RoleAssistant, Content: "two"},
	}
	for _, name := range []string{"openai", "claude", "gemini", "ollama"} {
		out, err := r.Dispatch(context.Background(), provider.ChatRequest{Provider: name, Prompt: "hello", History: history})
		require.NoError(t, err, name)
		require.Equal(t, provider.ChatResponse{Response: "known text"}, out, name)
	}
}

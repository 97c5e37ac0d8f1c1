package guardrails

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/polychat/polychat-go/internal/provider"
)

// ValidationError reports a request the caller has to fix.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Guardrails performs simple input validation.
type Guardrails struct {
	maxPromptChars int
}

// New returns guardrails rejecting prompts longer than maxPromptChars runes.
// Zero disables the length check.
func New(maxPromptChars int) *Guardrails {
	return &Guardrails{maxPromptChars: maxPromptChars}
}

// CheckInput returns a *ValidationError if the prompt is blank or too long,
// or if a history turn carries an unknown role.
func (g *Guardrails) CheckInput(req provider.ChatRequest) error {
	if strings.TrimSpace(req.Prompt) == "" {
		return &ValidationError{Field: "prompt", Reason: "must not be empty"}
	}
	if g.maxPromptChars > 0 && utf8.RuneCountInString(req.Prompt) > g.maxPromptChars {
		return &ValidationError{Field: "prompt", Reason: fmt.Sprintf("longer than %d characters", g.maxPromptChars)}
	}
	for i, m := range req.History {
		if !m.Role.Valid() {
			return &ValidationError{Field: fmt.Sprintf("history[%d].role", i), Reason: fmt.Sprintf("unknown role %q", m.Role)}
		}
	}
	return nil
}

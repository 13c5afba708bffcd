package script

import (
	"context"
	"fmt"
)

// Message is one chat turn sent to a text provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Prompt is the provider-agnostic request.
type Prompt struct {
	Model       string
	Persona     string
	Messages    []Message
	Temperature float64
}

// TextProvider abstracts a text-generation backend.
type TextProvider interface {
	Name() string
	Complete(ctx context.Context, p Prompt) (string, error)
}

// StatusError is returned when a provider answers with a non-2xx status.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Code, e.Body)
}

package script

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// Groq talks to the OpenAI-compatible chat completions endpoint.
// Docs: https://console.groq.com/docs/api-reference#chat-create
type Groq struct {
	apiKey string
	client openai.Client
}

// NewGroq returns a Groq provider. An empty baseURL uses the public API.
// Extra options are applied after the defaults.
func NewGroq(apiKey, baseURL string, opts ...option.RequestOption) *Groq {
	if baseURL == "" {
		baseURL = groqBaseURL
	}
	base := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(&http.Client{Timeout: 90 * time.Second}),
	}
	return &Groq{
		apiKey: apiKey,
		client: openai.NewClient(append(base, opts...)...),
	}
}

func (g *Groq) Name() string { return "groq" }

func (g *Groq) Complete(ctx context.Context, p Prompt) (string, error) {
	if g.apiKey == "" {
		return "", errors.New("groq: GROQ_API_KEY not set")
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(p.Messages)+1)
	if p.Persona != "" {
		messages = append(messages, openai.SystemMessage(p.Persona))
	}
	for _, m := range p.Messages {
		switch m.Role {
		case "system":
			messages = append(messages, openai.SystemMessage(m.Content))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    p.Model,
		Messages: messages,
	}
	if p.Temperature > 0 {
		params.Temperature = openai.Float(p.Temperature)
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &StatusError{Provider: "groq", Code: apiErr.StatusCode, Body: truncate(apiErr.Message, 300)}
		}
		return "", fmt.Errorf("groq request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("groq returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

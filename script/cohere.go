package script

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	coherecore "github.com/cohere-ai/cohere-go/v2/core"
	cohereoption "github.com/cohere-ai/cohere-go/v2/option"
)

// Cohere generates text through the Cohere chat endpoint.
// SDK: github.com/cohere-ai/cohere-go/v2
type Cohere struct {
	client *cohereclient.Client
}

// NewCohere builds a Cohere provider. HTTP/1.1 is forced to avoid the HTTP/2
// stream resets the chat endpoint occasionally returns. Extra options are
// applied after the defaults.
func NewCohere(apiKey string, opts ...cohereoption.RequestOption) *Cohere {
	httpClient := &http.Client{
		Timeout: 90 * time.Second,
		Transport: &http.Transport{
			TLSNextProto:      make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
			ForceAttemptHTTP2: false,
		},
	}
	base := []cohereoption.RequestOption{
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(httpClient),
	}
	return &Cohere{client: cohereclient.NewClient(append(base, opts...)...)}
}

func (c *Cohere) Name() string { return "cohere" }

func (c *Cohere) Complete(ctx context.Context, p Prompt) (string, error) {
	if len(p.Messages) == 0 {
		return "", errors.New("cohere: prompt has no messages")
	}

	// The chat endpoint takes a single message; earlier turns are folded in.
	parts := make([]string, 0, len(p.Messages))
	for _, m := range p.Messages {
		parts = append(parts, m.Content)
	}

	req := &cohere.ChatRequest{Message: strings.Join(parts, "\n\n")}
	if p.Model != "" {
		req.Model = &p.Model
	}
	if p.Persona != "" {
		req.Preamble = &p.Persona
	}
	if p.Temperature > 0 {
		temp := p.Temperature
		req.Temperature = &temp
	}

	resp, err := c.client.Chat(ctx, req)
	if err != nil {
		var apiErr *coherecore.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode != 0 {
			return "", &StatusError{Provider: "cohere", Code: apiErr.StatusCode, Body: truncate(err.Error(), 300)}
		}
		return "", fmt.Errorf("cohere chat error: %w", err)
	}
	if resp == nil {
		return "", errors.New("cohere chat returned empty response")
	}

	return strings.TrimSpace(resp.Text), nil
}

package topics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

const extractorTimeout = 30 * time.Second

// Extractor pulls the readable body text out of an article page.
type Extractor struct {
	client *http.Client
}

// NewExtractor returns an article extractor with its own HTTP client.
func NewExtractor() *Extractor {
	return &Extractor{client: &http.Client{Timeout: extractorTimeout}}
}

// Extract downloads pageURL and returns its main text content.
func (e *Extractor) Extract(ctx context.Context, pageURL string) (string, error) {
	if pageURL == "" {
		return "", errors.New("article URL is empty")
	}
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid article URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch article: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch article: status %d", resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, parsed)
	if err != nil {
		return "", fmt.Errorf("readability extraction failed: %w", err)
	}

	text := strings.Join(strings.Fields(article.TextContent), " ")
	if text == "" {
		return "", errors.New("article has no readable text")
	}
	return text, nil
}

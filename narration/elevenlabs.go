package narration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const elevenLabsEndpoint = "https://api.elevenlabs.io/v1/text-to-speech/"

// ElevenLabs calls the ElevenLabs text-to-speech REST API.
// Docs: https://elevenlabs.io/docs/api-reference/text-to-speech
type ElevenLabs struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// NewElevenLabs returns an ElevenLabs provider. An empty endpoint uses the
// public API.
func NewElevenLabs(apiKey, endpoint string) *ElevenLabs {
	if endpoint == "" {
		endpoint = elevenLabsEndpoint
	}
	return &ElevenLabs{
		apiKey:     apiKey,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

func (e *ElevenLabs) Name() string { return "elevenlabs" }

func (e *ElevenLabs) Synthesize(ctx context.Context, s Speech, path string) error {
	if e.apiKey == "" {
		return errors.New("elevenlabs: ELEVENLABS_API_KEY not set")
	}

	payload := map[string]interface{}{
		"text":     s.Text,
		"model_id": s.Model,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+s.Voice, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("elevenlabs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("elevenlabs: status %d: %s", resp.StatusCode, body)
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write narration: %w", err)
	}
	if n == 0 {
		return errors.New("elevenlabs returned empty audio")
	}
	return nil
}

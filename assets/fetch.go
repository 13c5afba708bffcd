package assets

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"time"
)

// maxImageBytes caps a single download.
const maxImageBytes = 30 << 20

// Fetcher downloads a candidate and checks it decodes as an image.
type Fetcher struct {
	httpClient *http.Client
}

// NewFetcher returns a fetcher with a generous timeout for slow synthesis.
func NewFetcher() *Fetcher {
	return &Fetcher{httpClient: &http.Client{Timeout: 120 * time.Second}}
}

// Fetch writes the image at rawURL to path and returns its decoded format.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; shortsfactory/1.0)")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download: status %d", resp.StatusCode)
	}

	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	n, copyErr := io.Copy(out, io.LimitReader(resp.Body, maxImageBytes+1))
	closeErr := out.Close()
	if copyErr != nil {
		return "", copyErr
	}
	if closeErr != nil {
		return "", closeErr
	}
	if n > maxImageBytes {
		return "", fmt.Errorf("image larger than %d bytes", maxImageBytes)
	}

	return decodeCheck(path)
}

func decodeCheck(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	cfg, format, err := image.DecodeConfig(file)
	if err != nil {
		return "", fmt.Errorf("not a decodable image: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return "", fmt.Errorf("image has empty dimensions %dx%d", cfg.Width, cfg.Height)
	}
	return format, nil
}

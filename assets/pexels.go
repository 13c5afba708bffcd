package assets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const pexelsEndpoint = "https://api.pexels.com/v1/search"

// Pexels searches the Pexels stock-photo API.
// Docs: https://www.pexels.com/api/documentation/#photos-search
type Pexels struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// NewPexels returns a Pexels source. An empty endpoint uses the public API.
func NewPexels(apiKey, endpoint string) *Pexels {
	if endpoint == "" {
		endpoint = pexelsEndpoint
	}
	return &Pexels{
		apiKey:     apiKey,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *Pexels) Name() string     { return "pexels" }
func (p *Pexels) Kind() SourceKind { return Stock }

type pexelsResponse struct {
	Photos []struct {
		Width  int `json:"width"`
		Height int `json:"height"`
		Src    struct {
			Original string `json:"original"`
			Large2x  string `json:"large2x"`
			Portrait string `json:"portrait"`
		} `json:"src"`
	} `json:"photos"`
}

func (p *Pexels) Search(ctx context.Context, q Query) ([]Candidate, error) {
	if p.apiKey == "" {
		return nil, errors.New("pexels: PEXELS_API_KEY not set")
	}

	params := url.Values{}
	params.Set("query", q.Text)
	params.Set("per_page", strconv.Itoa(max(q.Count, 1)))
	if q.Orientation != "" {
		params.Set("orientation", q.Orientation)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pexels request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("pexels: status %d: %s", resp.StatusCode, body)
	}

	var parsed pexelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parse pexels response: %w", err)
	}

	out := make([]Candidate, 0, len(parsed.Photos))
	for _, ph := range parsed.Photos {
		// Highest quality variant first.
		u := ph.Src.Original
		if u == "" {
			u = ph.Src.Large2x
		}
		if u == "" {
			continue
		}
		out = append(out, Candidate{URL: u, Width: ph.Width, Height: ph.Height})
	}
	return out, nil
}

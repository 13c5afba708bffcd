package assets

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/url"
	"strings"

	"shortsfactory/config"
)

const pollinationsEndpoint = "https://image.pollinations.ai/prompt/"

// Pollinations synthesizes images from a prompt. The service renders on GET,
// so Search only builds one URL per requested candidate, each with its own seed.
type Pollinations struct {
	endpoint string
	model    string
	seed     func() int
}

// NewPollinations returns a synthesis source. An empty endpoint uses the public API.
func NewPollinations(endpoint string) *Pollinations {
	if endpoint == "" {
		endpoint = pollinationsEndpoint
	}
	return &Pollinations{
		endpoint: endpoint,
		model:    "flux",
		seed:     func() int { return rand.IntN(1 << 30) },
	}
}

func (p *Pollinations) Name() string     { return "pollinations" }
func (p *Pollinations) Kind() SourceKind { return Synthesized }

func (p *Pollinations) Search(ctx context.Context, q Query) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prompt := strings.TrimSpace(q.Text)
	if prompt == "" {
		return nil, nil
	}

	count := max(q.Count, 1)
	seen := make(map[int]bool, count)
	out := make([]Candidate, 0, count)
	for attempts := 0; len(out) < count && attempts < count*4; attempts++ {
		seed := p.seed()
		if seen[seed] {
			continue
		}
		seen[seed] = true
		u := fmt.Sprintf("%s%s?width=%d&height=%d&nologo=true&model=%s&seed=%d",
			p.endpoint, url.PathEscape(prompt), config.VideoWidth, config.VideoHeight, p.model, seed)
		out = append(out, Candidate{URL: u, Width: config.VideoWidth, Height: config.VideoHeight})
	}
	return out, nil
}

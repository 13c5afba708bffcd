package assets

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shortsfactory/config"
	"shortsfactory/types"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Downloader fetches a candidate URL to a local file.
type Downloader interface {
	Fetch(ctx context.Context, rawURL, path string) (string, error)
}

// Encoder converts a downloaded image into the output frame format.
type Encoder interface {
	Encode(ctx context.Context, src, dst string) error
}

// Options tunes a Resolver. Zero values fall back to package defaults.
type Options struct {
	Candidates  int
	Concurrency int
	Timeout     time.Duration
	// Pick chooses a candidate index in [0, n). Defaults to a uniform random pick.
	Pick func(n int) int
}

// Resolver finds one image per scene.
type Resolver struct {
	strategy    Strategy
	download    Downloader
	encode      Encoder
	candidates  int
	concurrency int
	timeout     time.Duration
	pick        func(n int) int
}

// NewResolver returns a resolver that finds candidates with strategy. Zero
// values in opts fall back to defaults.
func NewResolver(strategy Strategy, download Downloader, encode Encoder, opts Options) *Resolver {
	r := &Resolver{
		strategy:    strategy,
		download:    download,
		encode:      encode,
		candidates:  opts.Candidates,
		concurrency: opts.Concurrency,
		timeout:     opts.Timeout,
		pick:        opts.Pick,
	}
	if r.candidates <= 0 {
		r.candidates = config.DefaultCandidates
	}
	if r.concurrency <= 0 {
		r.concurrency = config.MaxConcurrentScenes
	}
	if r.timeout <= 0 {
		r.timeout = config.DefaultProviderTimeout
	}
	if r.pick == nil {
		r.pick = rand.IntN
	}
	return r
}

// Request carries the job context every scene resolution needs.
type Request struct {
	JobID string
	Dir   string
	Topic string
	Style types.Style
}

// ResolveAll resolves every scene concurrently. Assets are attached to the
// scenes only when all of them succeed; on error scenes are left untouched.
func (r *Resolver) ResolveAll(ctx context.Context, req Request, scenes []types.Scene) error {
	if r.strategy.Primary == nil {
		return types.NewStageError(types.StageAssets, errors.New("no image source configured"))
	}
	if err := os.MkdirAll(req.Dir, 0o755); err != nil {
		return types.NewStageError(types.StageAssets, err)
	}

	results := make([]*types.Asset, len(scenes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i := range scenes {
		scene := scenes[i]
		g.Go(func() error {
			asset, err := r.Resolve(gctx, req, scene)
			if err != nil {
				return err
			}
			results[i] = asset
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	for i := range scenes {
		scenes[i].Asset = results[i]
	}
	return nil
}

// Resolve finds, downloads and re-encodes the image for one scene. When the
// primary query yields no candidates exactly one fallback query is issued.
func (r *Resolver) Resolve(ctx context.Context, req Request, scene types.Scene) (*types.Asset, error) {
	source := r.strategy.Primary
	query := r.queryFor(source, scene.Text, req.Style)

	cands, err := r.search(ctx, source, query)
	if err != nil {
		return nil, types.NewSceneError(types.StageAssets, scene.Index, err)
	}

	usedFallback := false
	if len(cands) == 0 {
		fbSource, fbQuery := r.fallback(req, scene)
		log.Warn().
			Str("job_id", req.JobID).
			Int("scene", scene.Index).
			Str("query", query.Text).
			Str("fallback_source", fbSource.Name()).
			Str("fallback_query", fbQuery.Text).
			Msg("no image candidates, trying fallback")

		cands, err = r.search(ctx, fbSource, fbQuery)
		if err != nil {
			return nil, types.NewSceneError(types.StageAssets, scene.Index, fmt.Errorf("fallback: %w", err))
		}
		if len(cands) == 0 {
			return nil, types.NewSceneError(types.StageAssets, scene.Index,
				fmt.Errorf("no candidates for %q or fallback %q", query.Text, fbQuery.Text))
		}
		source, query, usedFallback = fbSource, fbQuery, true
	}

	path, sourceURL, err := r.fetchOne(ctx, req, scene.Index, cands)
	if err != nil {
		return nil, types.NewSceneError(types.StageAssets, scene.Index, err)
	}

	log.Debug().
		Str("job_id", req.JobID).
		Int("scene", scene.Index).
		Str("provider", source.Name()).
		Bool("fallback", usedFallback).
		Msg("scene image resolved")

	return &types.Asset{
		Path:         path,
		Provider:     source.Name(),
		Query:        query.Text,
		SourceURL:    sourceURL,
		UsedFallback: usedFallback,
	}, nil
}

func (r *Resolver) queryFor(source ImageSource, text string, style types.Style) Query {
	q := Query{Count: r.candidates, Orientation: "portrait"}
	if source.Kind() == Synthesized {
		q.Text = CinematicPrompt(text, style)
		return q
	}
	q.Text = DeriveQuery(text)
	if q.Text == "" {
		q.Text = strings.TrimSpace(text)
	}
	return q
}

// fallback broadens to the job topic on a stock source, or synthesizes from
// the scene text when the primary was stock and a synthesis source exists.
func (r *Resolver) fallback(req Request, scene types.Scene) (ImageSource, Query) {
	fb := r.strategy.Fallback
	if fb == nil {
		fb = r.strategy.Primary
	}
	q := Query{Count: r.candidates, Orientation: "portrait"}
	switch {
	case fb.Kind() == Stock:
		q.Text = req.Topic
	case r.strategy.Primary.Kind() == Stock:
		q.Text = CinematicPrompt(scene.Text, req.Style)
	default:
		q.Text = CinematicPrompt(req.Topic, req.Style)
	}
	return fb, q
}

func (r *Resolver) search(ctx context.Context, source ImageSource, q Query) ([]Candidate, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cands, err := source.Search(callCtx, q)
	if err != nil {
		return nil, fmt.Errorf("%s search: %w", source.Name(), err)
	}
	return cands, nil
}

// fetchOne tries a random candidate first and walks the rest in order until
// one downloads, decodes and re-encodes.
func (r *Resolver) fetchOne(ctx context.Context, req Request, index int, cands []Candidate) (string, string, error) {
	first := r.pick(len(cands))
	order := make([]int, 0, len(cands))
	order = append(order, first)
	for i := range cands {
		if i != first {
			order = append(order, i)
		}
	}

	raw := filepath.Join(req.Dir, fmt.Sprintf("scene_%03d.src", index))
	dst := filepath.Join(req.Dir, fmt.Sprintf("scene_%03d.jpg", index))
	defer os.Remove(raw)

	var errs []error
	for _, i := range order {
		if err := ctx.Err(); err != nil {
			return "", "", err
		}
		c := cands[i]
		if err := r.fetchAndEncode(ctx, c.URL, raw, dst); err != nil {
			log.Debug().Err(err).Str("job_id", req.JobID).Int("scene", index).Str("url", c.URL).Msg("candidate rejected")
			errs = append(errs, err)
			continue
		}
		return dst, c.URL, nil
	}
	return "", "", fmt.Errorf("all %d candidates failed: %w", len(cands), errors.Join(errs...))
}

func (r *Resolver) fetchAndEncode(ctx context.Context, url, raw, dst string) error {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.download.Fetch(callCtx, url, raw); err != nil {
		return fmt.Errorf("download: %w", err)
	}
	return r.encode.Encode(callCtx, raw, dst)
}

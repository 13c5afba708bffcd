package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"shortsfactory/types"
)

type fakeSource struct {
	name    string
	kind    SourceKind
	results map[string][]Candidate
	err     error

	mu      sync.Mutex
	queries []string
}

func (f *fakeSource) Name() string     { return f.name }
func (f *fakeSource) Kind() SourceKind { return f.kind }

func (f *fakeSource) Search(ctx context.Context, q Query) ([]Candidate, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q.Text)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.results[q.Text], nil
}

func (f *fakeSource) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

// fakeDownloader writes the URL into the file so tests can see which
// candidate was used. URLs listed in bad fail.
type fakeDownloader struct {
	bad   map[string]bool
	delay time.Duration
}

func (f *fakeDownloader) Fetch(ctx context.Context, rawURL, path string) (string, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.bad[rawURL] {
		return "", errors.New("404")
	}
	return "jpeg", os.WriteFile(path, []byte(rawURL), 0o644)
}

type copyEncoder struct{ calls atomic.Int32 }

func (c *copyEncoder) Encode(ctx context.Context, src, dst string) error {
	c.calls.Add(1)
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

func firstPick(int) int { return 0 }

func newTestResolver(strategy Strategy, dl Downloader) *Resolver {
	return NewResolver(strategy, dl, &copyEncoder{}, Options{Candidates: 3, Timeout: time.Second, Pick: firstPick})
}

func TestResolveWithCandidatesNeverFallsBack(t *testing.T) {
	stock := &fakeSource{name: "stock", kind: Stock, results: map[string][]Candidate{
		"whales sing songs travel": {{URL: "http://img/1"}, {URL: "http://img/2"}},
	}}
	synth := &fakeSource{name: "synth", kind: Synthesized}
	r := newTestResolver(Strategy{Primary: stock, Fallback: synth}, &fakeDownloader{})

	dir := t.TempDir()
	asset, err := r.Resolve(context.Background(), Request{Dir: dir, Topic: "ocean"},
		types.Scene{Index: 2, Text: "Some whales sing songs that travel for miles."})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	if synth.calls() != 0 {
		t.Fatal("fallback must not be called when candidates exist")
	}
	if asset.UsedFallback || asset.Provider != "stock" || asset.Query != "whales sing songs travel" {
		t.Fatalf("unexpected asset %+v", asset)
	}
	if asset.Path != filepath.Join(dir, "scene_002.jpg") {
		t.Fatalf("unexpected path %q", asset.Path)
	}
	if _, err := os.Stat(filepath.Join(dir, "scene_002.src")); !os.IsNotExist(err) {
		t.Fatal("raw download should be removed")
	}
}

func TestResolveFallsBackExactlyOnce(t *testing.T) {
	tests := []struct {
		name         string
		fallbackHits bool
		wantErr      bool
	}{
		{"fallback succeeds", true, false},
		{"fallback empty", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stock := &fakeSource{name: "stock", kind: Stock, results: map[string][]Candidate{}}
			if tt.fallbackHits {
				stock.results["ocean facts"] = []Candidate{{URL: "http://img/topic"}}
			}
			r := newTestResolver(Strategy{Primary: stock}, &fakeDownloader{})

			asset, err := r.Resolve(context.Background(), Request{Dir: t.TempDir(), Topic: "ocean facts"},
				types.Scene{Index: 0, Text: "Jellyfish drift without any brain."})

			if stock.calls() != 2 {
				t.Fatalf("expected primary + one fallback query, got %d: %v", stock.calls(), stock.queries)
			}
			if stock.queries[1] != "ocean facts" {
				t.Fatalf("fallback should broaden to the topic, got %q", stock.queries[1])
			}
			if tt.wantErr {
				if !errors.Is(err, types.ErrAssetResolution) {
					t.Fatalf("expected ErrAssetResolution, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve returned error: %v", err)
			}
			if !asset.UsedFallback || asset.SourceURL != "http://img/topic" {
				t.Fatalf("unexpected asset %+v", asset)
			}
		})
	}
}

func TestResolveStockFallsBackToSynthesis(t *testing.T) {
	stock := &fakeSource{name: "stock", kind: Stock}
	text := "A lighthouse keeper vanished one night."
	prompt := CinematicPrompt(text, types.StyleDark)
	synth := &fakeSource{name: "synth", kind: Synthesized, results: map[string][]Candidate{
		prompt: {{URL: "http://gen/1"}},
	}}
	r := newTestResolver(StrategyFor(types.ImageModeStock, stock, synth), &fakeDownloader{})

	asset, err := r.Resolve(context.Background(), Request{Dir: t.TempDir(), Topic: "lighthouse", Style: types.StyleDark},
		types.Scene{Index: 1, Text: text})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if stock.calls() != 1 || synth.calls() != 1 {
		t.Fatalf("expected one call each, got stock=%d synth=%d", stock.calls(), synth.calls())
	}
	if asset.Provider != "synth" || !asset.UsedFallback {
		t.Fatalf("unexpected asset %+v", asset)
	}
}

func TestResolveSearchErrorSurfaces(t *testing.T) {
	stock := &fakeSource{name: "stock", kind: Stock, err: errors.New("status 500")}
	synth := &fakeSource{name: "synth", kind: Synthesized}
	r := newTestResolver(Strategy{Primary: stock, Fallback: synth}, &fakeDownloader{})

	_, err := r.Resolve(context.Background(), Request{Dir: t.TempDir()}, types.Scene{Index: 4, Text: "anything at all here"})
	if !errors.Is(err, types.ErrAssetResolution) {
		t.Fatalf("expected ErrAssetResolution, got %v", err)
	}
	var se *types.StageError
	if !errors.As(err, &se) || se.Scene != 4 {
		t.Fatalf("expected scene 4 in error, got %v", err)
	}
	if synth.calls() != 0 {
		t.Fatal("provider failure is not an empty result and must not trigger fallback")
	}
}

func TestResolveSkipsBrokenCandidates(t *testing.T) {
	stock := &fakeSource{name: "stock", kind: Stock, results: map[string][]Candidate{
		"coral reefs": {{URL: "http://img/broken"}, {URL: "http://img/good"}},
	}}
	r := newTestResolver(Strategy{Primary: stock}, &fakeDownloader{bad: map[string]bool{"http://img/broken": true}})

	asset, err := r.Resolve(context.Background(), Request{Dir: t.TempDir()}, types.Scene{Text: "Coral reefs"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if asset.SourceURL != "http://img/good" {
		t.Fatalf("expected the working candidate, got %q", asset.SourceURL)
	}
}

func TestResolveAllKeepsIndexAlignment(t *testing.T) {
	results := map[string][]Candidate{}
	scenes := make([]types.Scene, 8)
	for i := range scenes {
		text := fmt.Sprintf("scene%d unique subject", i)
		scenes[i] = types.Scene{Index: i, Text: text}
		results[DeriveQuery(text)] = []Candidate{{URL: fmt.Sprintf("http://img/%d", i)}}
	}
	stock := &fakeSource{name: "stock", kind: Stock, results: results}
	r := newTestResolver(Strategy{Primary: stock}, &fakeDownloader{delay: time.Millisecond})

	dir := t.TempDir()
	if err := r.ResolveAll(context.Background(), Request{Dir: dir}, scenes); err != nil {
		t.Fatalf("ResolveAll returned error: %v", err)
	}
	for i, sc := range scenes {
		if sc.Asset == nil {
			t.Fatalf("scene %d has no asset", i)
		}
		data, err := os.ReadFile(sc.Asset.Path)
		if err != nil {
			t.Fatalf("read scene %d: %v", i, err)
		}
		if string(data) != fmt.Sprintf("http://img/%d", i) {
			t.Fatalf("scene %d got image %q", i, data)
		}
	}
}

func TestResolveAllLeavesScenesUntouchedOnFailure(t *testing.T) {
	scenes := []types.Scene{
		{Index: 0, Text: "good subject line"},
		{Index: 1, Text: "missing subject line"},
	}
	stock := &fakeSource{name: "stock", kind: Stock, results: map[string][]Candidate{
		DeriveQuery(scenes[0].Text): {{URL: "http://img/0"}},
	}}
	r := newTestResolver(Strategy{Primary: stock}, &fakeDownloader{})

	err := r.ResolveAll(context.Background(), Request{Dir: t.TempDir(), Topic: "nothing matches"}, scenes)
	if !errors.Is(err, types.ErrAssetResolution) {
		t.Fatalf("expected ErrAssetResolution, got %v", err)
	}
	for i, sc := range scenes {
		if sc.Asset != nil {
			t.Fatalf("scene %d should not carry a partial asset", i)
		}
	}
}

func TestStrategyFor(t *testing.T) {
	stock := &fakeSource{name: "stock", kind: Stock}
	synth := &fakeSource{name: "synth", kind: Synthesized}

	if s := StrategyFor(types.ImageModeStock, stock, synth); s.Primary != stock || s.Fallback != synth {
		t.Fatalf("stock mode: %+v", s)
	}
	if s := StrategyFor(types.ImageModeSynth, stock, synth); s.Primary != synth || s.Fallback != stock {
		t.Fatalf("synth mode: %+v", s)
	}
	if s := StrategyFor(types.ImageModeStock, nil, synth); s.Primary != synth || s.Fallback != nil {
		t.Fatalf("stock mode without stock source: %+v", s)
	}
}

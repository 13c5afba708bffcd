package assets

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"shortsfactory/types"
)

func TestDeriveQuery(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Some whales sing songs that travel for miles.", "whales sing songs travel"},
		{"Did you know the ocean, the OCEAN, is huge?", "ocean huge"},
		{"It is what it is.", ""},
		{"Don't look under the old bridge at night", "look old bridge night"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := DeriveQuery(tt.text); got != tt.want {
				t.Fatalf("DeriveQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCinematicPrompt(t *testing.T) {
	p := CinematicPrompt("an abandoned hospital", types.StyleDark)
	if !strings.Contains(p, "abandoned hospital") || !strings.Contains(p, "shadows") || !strings.Contains(p, "9:16") {
		t.Fatalf("unexpected prompt %q", p)
	}
	if p := CinematicPrompt("x", "unknown"); !strings.Contains(p, "natural light") {
		t.Fatalf("unknown style should use the normal look: %q", p)
	}
}

func TestCinematicPromptTruncatesRunes(t *testing.T) {
	text := strings.Repeat("é", 400)
	p := CinematicPrompt(text, types.StyleNormal)
	if !utf8.ValidString(p) {
		t.Fatalf("prompt is not valid UTF-8: %q", p)
	}
	if got := strings.Count(p, "é"); got != maxPromptRunes {
		t.Fatalf("kept %d runes, want %d", got, maxPromptRunes)
	}
}

func TestPexelsSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "key" {
			t.Errorf("missing api key")
		}
		q := r.URL.Query()
		if q.Get("query") != "deep sea" || q.Get("per_page") != "3" || q.Get("orientation") != "portrait" {
			t.Errorf("unexpected query %v", q)
		}
		w.Write([]byte(`{"photos":[
			{"width":3000,"height":5000,"src":{"original":"http://img/orig.jpg","large2x":"http://img/l.jpg"}},
			{"width":100,"height":100,"src":{"original":"","large2x":"http://img/only-large.jpg"}},
			{"width":1,"height":1,"src":{}}
		]}`))
	}))
	defer srv.Close()

	cands, err := NewPexels("key", srv.URL).Search(context.Background(), Query{Text: "deep sea", Count: 3, Orientation: "portrait"})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(cands) != 2 || cands[0].URL != "http://img/orig.jpg" || cands[1].URL != "http://img/only-large.jpg" {
		t.Fatalf("unexpected candidates %+v", cands)
	}
}

func TestPexelsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	if _, err := NewPexels("key", srv.URL).Search(context.Background(), Query{Text: "x"}); err == nil {
		t.Fatal("expected error on 429")
	}
	if _, err := NewPexels("", srv.URL).Search(context.Background(), Query{Text: "x"}); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestPollinationsDistinctSeeds(t *testing.T) {
	p := NewPollinations("http://gen/prompt/")
	next := 0
	p.seed = func() int {
		next++
		return next / 2 // every value repeats once
	}

	cands, err := p.Search(context.Background(), Query{Text: "foggy pier at dawn", Count: 3})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(cands) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(cands))
	}
	seen := map[string]bool{}
	for _, c := range cands {
		u, err := url.Parse(c.URL)
		if err != nil {
			t.Fatalf("bad url %q", c.URL)
		}
		if u.Query().Get("width") != "1080" || u.Query().Get("height") != "1920" {
			t.Fatalf("wrong size in %q", c.URL)
		}
		seed := u.Query().Get("seed")
		if seen[seed] {
			t.Fatalf("seed %s repeated", seed)
		}
		seen[seed] = true
	}

	if cands, _ := p.Search(context.Background(), Query{Text: "  "}); len(cands) != 0 {
		t.Fatal("blank prompt should yield no candidates")
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 6))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestFetcherValidatesImages(t *testing.T) {
	pngData := pngBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			w.Write(pngData)
		case "/html":
			w.Write([]byte("<html>rate limited</html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFetcher()
	dir := t.TempDir()

	format, err := f.Fetch(context.Background(), srv.URL+"/ok.png", filepath.Join(dir, "a"))
	if err != nil || format != "png" {
		t.Fatalf("Fetch() = %q, %v", format, err)
	}
	if _, err := f.Fetch(context.Background(), srv.URL+"/html", filepath.Join(dir, "b")); err == nil {
		t.Fatal("expected decode error for html body")
	}
	if _, err := f.Fetch(context.Background(), srv.URL+"/missing", filepath.Join(dir, "c")); err == nil {
		t.Fatal("expected error for 404")
	}
}

type recordingRunner struct{ args []string }

func (r *recordingRunner) Run(ctx context.Context, args []string) error {
	r.args = args
	return nil
}

func TestPortraitEncoderArgs(t *testing.T) {
	runner := &recordingRunner{}
	enc := NewPortraitEncoder(runner)
	if err := enc.Encode(context.Background(), "in.src", "out.jpg"); err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	joined := strings.Join(runner.args, " ")
	for _, want := range []string{"in.src", "scale=", "force_original_aspect_ratio=increase", "crop=", "1080", "1920", "-frames:v"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args %q missing %q", joined, want)
		}
	}
	if runner.args[len(runner.args)-1] != "out.jpg" && !strings.Contains(joined, "-y") {
		t.Fatalf("unexpected args %q", joined)
	}
}

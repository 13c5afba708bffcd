package scenes

import (
	"context"
	"errors"
	"strings"
	"testing"

	"shortsfactory/types"
)

type fakeSplitter struct {
	lines []string
	err   error
	calls int
}

func (f *fakeSplitter) SplitScenes(ctx context.Context, text string, n int) ([]string, error) {
	f.calls++
	return f.lines, f.err
}

func script(lines ...string) types.Script {
	return types.Script{Raw: strings.Join(lines, "\n"), Lines: lines}
}

func TestSegmentPreservesLineOrder(t *testing.T) {
	lines := []string{
		"The ocean covers most of the planet.",
		"Less than a quarter of the seafloor is mapped.",
		"Some whales sing songs that travel for miles.",
		"Deep sea fish make their own light.",
		"The ocean makes much of the oxygen we breathe.",
	}
	got, err := NewSegmenter(nil).Segment(context.Background(), script(lines...), 0)
	if err != nil {
		t.Fatalf("Segment returned error: %v", err)
	}
	if len(got) != len(lines) {
		t.Fatalf("expected %d scenes, got %d", len(lines), len(got))
	}
	for i, sc := range got {
		if sc.Index != i || sc.Text != lines[i] {
			t.Fatalf("scene %d = %+v, want index %d text %q", i, sc, i, lines[i])
		}
		if sc.Duration != 0 || sc.Asset != nil {
			t.Fatalf("scene %d should start unassigned", i)
		}
	}
}

func TestSegmentEmptyScript(t *testing.T) {
	splitter := &fakeSplitter{}
	_, err := NewSegmenter(splitter).Segment(context.Background(), script(), 3)
	if !errors.Is(err, types.ErrSegmentation) {
		t.Fatalf("expected ErrSegmentation, got %v", err)
	}
	if splitter.calls != 0 {
		t.Fatal("splitter must not be called for an empty script")
	}
}

func TestSegmentForcedCount(t *testing.T) {
	tests := []struct {
		name   string
		lines  []string
		target int
		want   []string
	}{
		{
			name:   "merge adjacent lines",
			lines:  []string{"one line here.", "two line here.", "three line here.", "four line here.", "five line here."},
			target: 2,
			want:   []string{"one line here. two line here. three line here.", "four line here. five line here."},
		},
		{
			name:   "split at sentence boundary",
			lines:  []string{"Sharks are old. Older than trees.", "Whales sing for hours."},
			target: 3,
			want:   []string{"Sharks are old.", "Older than trees.", "Whales sing for hours."},
		},
		{
			name:   "split at clause when no sentence left",
			lines:  []string{"The reef glows at night, lit by tiny creatures."},
			target: 2,
			want:   []string{"The reef glows at night,", "lit by tiny creatures."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewSegmenter(nil).Segment(context.Background(), script(tt.lines...), tt.target)
			if err != nil {
				t.Fatalf("Segment returned error: %v", err)
			}
			if len(got) != tt.target {
				t.Fatalf("expected %d scenes, got %d", tt.target, len(got))
			}
			for i := range got {
				if got[i].Text != tt.want[i] || got[i].Index != i {
					t.Fatalf("scene %d = %+v, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSegmentRequeriesProvider(t *testing.T) {
	splitter := &fakeSplitter{lines: []string{"a first part", "a second part", "a third part", "a fourth part"}}
	got, err := NewSegmenter(splitter).Segment(context.Background(), script("no boundaries in this single line"), 3)
	if err != nil {
		t.Fatalf("Segment returned error: %v", err)
	}
	if splitter.calls != 1 {
		t.Fatalf("expected one re-query, got %d", splitter.calls)
	}
	if len(got) != 3 || got[0].Text != "a first part a second part" {
		t.Fatalf("unexpected scenes %+v", got)
	}
}

func TestSegmentRequeryShortfall(t *testing.T) {
	tests := []struct {
		name     string
		splitter Splitter
	}{
		{"no splitter", nil},
		{"splitter error", &fakeSplitter{err: errors.New("boom")}},
		{"too few lines", &fakeSplitter{lines: []string{"only one"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSegmenter(tt.splitter).Segment(context.Background(), script("no boundaries in this single line"), 3)
			if !errors.Is(err, types.ErrSegmentation) {
				t.Fatalf("expected ErrSegmentation, got %v", err)
			}
		})
	}
}

package scenes

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"shortsfactory/types"

	"github.com/rs/zerolog/log"
)

// Splitter re-queries a text provider to regroup narration into n lines.
type Splitter interface {
	SplitScenes(ctx context.Context, text string, n int) ([]string, error)
}

// Segmenter turns a normalized script into ordered scenes.
type Segmenter struct {
	splitter Splitter
}

// NewSegmenter returns a segmenter. splitter may be nil, in which case a
// forced scene count that cannot be met locally fails.
func NewSegmenter(splitter Splitter) *Segmenter {
	return &Segmenter{splitter: splitter}
}

// Segment produces one scene per script line. A positive target forces
// exactly that many scenes, preferring natural line and sentence boundaries
// and falling back to a provider re-query.
func (s *Segmenter) Segment(ctx context.Context, script types.Script, target int) ([]types.Scene, error) {
	lines := nonEmpty(script.Lines)
	if len(lines) == 0 {
		return nil, types.NewStageError(types.StageSegment, errors.New("script has no usable narration lines"))
	}
	if target <= 0 || target == len(lines) {
		return toScenes(lines), nil
	}

	if target < len(lines) {
		return toScenes(merge(lines, target)), nil
	}

	if split := splitToCount(lines, target); len(split) == target {
		return toScenes(split), nil
	}

	if s.splitter == nil {
		return nil, types.NewStageError(types.StageSegment,
			fmt.Errorf("cannot split %d lines into %d scenes", len(lines), target))
	}

	log.Info().Int("lines", len(lines)).Int("target", target).Msg("re-querying provider for scene split")
	requeried, err := s.splitter.SplitScenes(ctx, strings.Join(lines, "\n"), target)
	if err != nil {
		return nil, types.NewStageError(types.StageSegment, fmt.Errorf("scene split request: %w", err))
	}
	requeried = nonEmpty(requeried)
	switch {
	case len(requeried) > target:
		requeried = merge(requeried, target)
	case len(requeried) < target:
		return nil, types.NewStageError(types.StageSegment,
			fmt.Errorf("provider split returned %d scenes, want %d", len(requeried), target))
	}
	return toScenes(requeried), nil
}

func toScenes(lines []string) []types.Scene {
	out := make([]types.Scene, len(lines))
	for i, line := range lines {
		out[i] = types.Scene{Index: i, Text: line}
	}
	return out
}

func nonEmpty(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// merge joins adjacent lines into n groups whose sizes differ by at most one.
// Earlier groups take the extra line.
func merge(lines []string, n int) []string {
	out := make([]string, 0, n)
	base, extra := len(lines)/n, len(lines)%n
	pos := 0
	for i := 0; i < n; i++ {
		size := base
		if i < extra {
			size++
		}
		out = append(out, strings.Join(lines[pos:pos+size], " "))
		pos += size
	}
	return out
}

var (
	sentenceEnd = regexp.MustCompile(`[.!?]+["')\]]*\s+`)
	clauseEnd   = regexp.MustCompile(`[,;:]\s+`)
)

// splitToCount breaks the longest pieces at sentence boundaries, then clause
// boundaries, until there are n pieces or nothing left to split.
func splitToCount(lines []string, n int) []string {
	pieces := append([]string(nil), lines...)
	for _, boundary := range []*regexp.Regexp{sentenceEnd, clauseEnd} {
		for len(pieces) < n {
			idx, parts := longestSplittable(pieces, boundary)
			if idx < 0 {
				break
			}
			pieces = append(pieces[:idx], append(parts, pieces[idx+1:]...)...)
		}
	}
	return pieces
}

// longestSplittable picks the longest piece that can be cut in two at
// boundary and returns the halves. The cut nearest the middle wins.
func longestSplittable(pieces []string, boundary *regexp.Regexp) (int, []string) {
	best, bestLen := -1, 0
	var bestParts []string
	for i, p := range pieces {
		if len(p) <= bestLen {
			continue
		}
		locs := boundary.FindAllStringIndex(p, -1)
		if len(locs) == 0 {
			continue
		}
		mid := len(p) / 2
		cut := locs[0]
		for _, loc := range locs[1:] {
			if abs(loc[1]-mid) < abs(cut[1]-mid) {
				cut = loc
			}
		}
		left := strings.TrimSpace(p[:cut[1]])
		right := strings.TrimSpace(p[cut[1]:])
		if left == "" || right == "" {
			continue
		}
		best, bestLen, bestParts = i, len(p), []string{left, right}
	}
	return best, bestParts
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

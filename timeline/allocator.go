package timeline

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"shortsfactory/types"

	"github.com/samber/lo"
)

// Policy decides how the narration duration is shared between scenes.
type Policy string

const (
	// Uniform gives every scene the same share. It is the default.
	Uniform Policy = "uniform"
	// Weighted shares the duration in proportion to each scene's rune count.
	Weighted Policy = "weighted"
)

// ParsePolicy maps a config value to a Policy, defaulting to Uniform.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", Uniform:
		return Uniform, nil
	case Weighted:
		return Weighted, nil
	}
	return "", fmt.Errorf("unknown timing policy %q", s)
}

// Allocator assigns per-scene display durations.
type Allocator struct {
	Policy Policy
}

// NewAllocator returns an allocator for policy.
func NewAllocator(policy Policy) *Allocator {
	return &Allocator{Policy: policy}
}

// Allocate writes a duration into every scene and returns the timeline.
// The durations always sum to the narration duration: the last scene takes
// whatever floating-point remainder is left.
func (a *Allocator) Allocate(scenes []types.Scene, track types.NarrationTrack) (types.Timeline, error) {
	if len(scenes) == 0 {
		return types.Timeline{}, types.NewStageError(types.StageTimeline, errors.New("no scenes to allocate"))
	}
	if track.Duration <= 0 {
		// A silent track is a narration fault, not a timing one.
		return types.Timeline{}, types.NewStageError(types.StageNarration,
			fmt.Errorf("narration duration %.3fs is not positive", track.Duration))
	}

	shares := a.shares(scenes)
	entries := make([]types.TimelineEntry, len(scenes))

	var assigned float64
	for i := range scenes {
		d := track.Duration * shares[i]
		if i == len(scenes)-1 {
			d = track.Duration - assigned
		}
		assigned += d

		scenes[i].Duration = d
		entry := types.TimelineEntry{Index: scenes[i].Index, Duration: d}
		if scenes[i].Asset != nil {
			entry.Image = scenes[i].Asset.Path
		}
		entries[i] = entry
	}

	return types.Timeline{Entries: entries}, nil
}

// shares returns fractions summing to 1. Every fraction is strictly positive.
func (a *Allocator) shares(scenes []types.Scene) []float64 {
	n := len(scenes)
	out := make([]float64, n)

	if a.Policy == Weighted {
		weights := lo.Map(scenes, func(s types.Scene, _ int) int {
			return max(utf8.RuneCountInString(s.Text), 1)
		})
		total := float64(lo.Sum(weights))
		for i, w := range weights {
			out[i] = float64(w) / total
		}
		return out
	}

	for i := range out {
		out[i] = 1 / float64(n)
	}
	return out
}

package narration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"shortsfactory/types"

	"github.com/rs/zerolog/log"
)

// Synthesizer produces the narration track for a script.
type Synthesizer struct {
	provider TTSProvider
	prober   Prober
	voice    string
	model    string
	timeout  time.Duration
}

// NewSynthesizer returns a synthesizer speaking with voice and model. timeout
// bounds each provider call.
func NewSynthesizer(provider TTSProvider, prober Prober, voice, model string, timeout time.Duration) *Synthesizer {
	return &Synthesizer{
		provider: provider,
		prober:   prober,
		voice:    voice,
		model:    model,
		timeout:  timeout,
	}
}

// Synthesize renders script into dir/narration.mp3 and measures it. The
// measured duration, not the requested one, is what the timeline uses.
func (s *Synthesizer) Synthesize(ctx context.Context, jobID, dir string, script types.Script) (types.NarrationTrack, error) {
	text := PrepareText(script.Lines)
	if text == "" {
		return types.NarrationTrack{}, types.NewStageError(types.StageNarration, errors.New("narration text is empty"))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return types.NarrationTrack{}, types.NewStageError(types.StageNarration, err)
	}

	path := filepath.Join(dir, "narration.mp3")
	if err := s.render(ctx, Speech{Text: text, Voice: s.voice, Model: s.model}, path); err != nil {
		return types.NarrationTrack{}, types.NewStageError(types.StageNarration, err)
	}

	duration, err := s.measure(ctx, path)
	if err != nil {
		return types.NarrationTrack{}, types.NewStageError(types.StageNarration, err)
	}
	if duration <= 0 {
		return types.NarrationTrack{}, types.NewStageError(types.StageNarration,
			fmt.Errorf("measured duration %.3fs is not positive", duration))
	}

	log.Info().
		Str("job_id", jobID).
		Str("provider", s.provider.Name()).
		Float64("duration", duration).
		Int("chars", len(text)).
		Msg("narration synthesized")

	return types.NarrationTrack{Path: path, Duration: duration}, nil
}

func (s *Synthesizer) render(ctx context.Context, speech Speech, path string) error {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.provider.Synthesize(callCtx, speech, path); err != nil {
		return fmt.Errorf("%s: %w", s.provider.Name(), err)
	}
	return nil
}

func (s *Synthesizer) measure(ctx context.Context, path string) (float64, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.prober.Duration(callCtx, path)
}

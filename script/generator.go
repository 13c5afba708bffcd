package script

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shortsfactory/types"

	"github.com/rs/zerolog/log"
)

// Generator produces normalized scripts from a text provider.
type Generator struct {
	provider    TextProvider
	model       string
	temperature float64
	timeout     time.Duration
}

// NewGenerator wires a provider. timeout bounds every provider call.
func NewGenerator(provider TextProvider, model string, temperature float64, timeout time.Duration) *Generator {
	return &Generator{
		provider:    provider,
		model:       model,
		temperature: temperature,
		timeout:     timeout,
	}
}

// Generate requests a script for job. Provider failures and blank responses
// are reported as generation errors. A response whose every line is filtered
// out by normalization yields a Script with no lines; the segmenter rejects it.
func (g *Generator) Generate(ctx context.Context, job types.Job, source string) (types.Script, error) {
	if strings.TrimSpace(job.Topic) == "" {
		return types.Script{}, types.NewStageError(types.StageScript, errors.New("topic is empty"))
	}
	if job.DurationHint <= 0 {
		return types.Script{}, types.NewStageError(types.StageScript,
			fmt.Errorf("duration hint %d is not positive", job.DurationHint))
	}

	prompt := BuildScriptPrompt(job, g.model, g.temperature, source)
	raw, err := g.complete(ctx, prompt)
	if err != nil {
		return types.Script{}, types.NewStageError(types.StageScript, err)
	}
	if strings.TrimSpace(raw) == "" {
		return types.Script{}, types.NewStageError(types.StageScript,
			fmt.Errorf("%s returned an empty response", g.provider.Name()))
	}

	lines := Normalize(raw)
	log.Info().
		Str("job_id", job.ID).
		Str("provider", g.provider.Name()).
		Int("lines", len(lines)).
		Msg("script generated")

	return types.Script{Raw: raw, Lines: lines}, nil
}

// SplitScenes asks the provider to regroup text into exactly n narration
// lines. The answer is normalized; callers check the count.
func (g *Generator) SplitScenes(ctx context.Context, text string, n int) ([]string, error) {
	raw, err := g.complete(ctx, BuildSplitPrompt(text, n, g.model))
	if err != nil {
		return nil, err
	}
	return Normalize(raw), nil
}

func (g *Generator) complete(ctx context.Context, p Prompt) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.provider.Complete(callCtx, p)
}

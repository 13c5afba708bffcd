package main

import (
	"context"
	"fmt"
	"time"

	"shortsfactory/assets"
	"shortsfactory/common"
	"shortsfactory/config"
	"shortsfactory/narration"
	"shortsfactory/pipeline"
	"shortsfactory/publish"
	"shortsfactory/scenes"
	"shortsfactory/script"
	"shortsfactory/timeline"
	"shortsfactory/topics"
	"shortsfactory/types"
	"shortsfactory/video"

	"github.com/rs/zerolog/log"
)

// buildPipeline wires the configured providers into a pipeline. Optional
// collaborators are left nil when their credentials are missing.
func buildPipeline(ctx context.Context, cfg *config.Config) (*pipeline.Pipeline, error) {
	timeout := cfg.Jobs.ProviderTimeout

	text, err := newTextProvider(cfg.Script)
	if err != nil {
		return nil, err
	}
	generator := script.NewGenerator(text, cfg.Script.Model, cfg.Script.Temperature, timeout)

	tts, err := newTTSProvider(cfg.Narration)
	if err != nil {
		return nil, err
	}

	policy, err := timeline.ParsePolicy(cfg.Timeline.Policy)
	if err != nil {
		return nil, err
	}

	runner := common.NewFFmpegRunner()
	p := &pipeline.Pipeline{
		Generator: generator,
		Segmenter: scenes.NewSegmenter(generator),
		Resolvers: newResolvers(cfg.Assets, runner, timeout),
		Narrator:  narration.NewSynthesizer(tts, narration.FFProbe{Timeout: timeout}, cfg.Narration.Voice, cfg.Narration.Model, timeout),
		Allocator: timeline.NewAllocator(policy),
		Assembler: video.NewAssembler(runner),
		Extractor: topics.NewExtractor(),
		Opts:      pipeline.OptionsFromConfig(cfg),
	}

	if cfg.Storage.Bucket != "" {
		store, err := common.NewS3(ctx, common.S3Config{
			Bucket:       cfg.Storage.Bucket,
			Prefix:       cfg.Storage.Prefix,
			Region:       cfg.Storage.Region,
			Profile:      cfg.Storage.Profile,
			UsePathStyle: cfg.Storage.UsePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 mirror: %w", err)
		}
		p.Mirror = store
		log.Info().Str("bucket", cfg.Storage.Bucket).Msg("artifacts mirrored to s3")
	}

	if cfg.Upload.Enabled() {
		yt, err := publish.NewYouTube(ctx, cfg.Upload)
		if err != nil {
			return nil, fmt.Errorf("youtube publisher: %w", err)
		}
		p.Publisher = yt
	} else {
		log.Info().Msg("youtube credentials not set, publishing disabled")
	}

	return p, nil
}

func newTextProvider(cfg config.ScriptConfig) (script.TextProvider, error) {
	switch cfg.Provider {
	case "", "groq":
		if cfg.GroqAPIKey == "" {
			return nil, fmt.Errorf("GROQ_API_KEY is required for the groq script provider")
		}
		return script.NewGroq(cfg.GroqAPIKey, ""), nil
	case "cohere":
		if cfg.CohereKey == "" {
			return nil, fmt.Errorf("COHERE_API_KEY is required for the cohere script provider")
		}
		return script.NewCohere(cfg.CohereKey), nil
	default:
		return nil, fmt.Errorf("unknown script provider %q", cfg.Provider)
	}
}

func newTTSProvider(cfg config.NarrationConfig) (narration.TTSProvider, error) {
	switch cfg.Provider {
	case "", "elevenlabs":
		if cfg.ElevenLabsKey == "" {
			return nil, fmt.Errorf("ELEVENLABS_API_KEY is required for the elevenlabs narration provider")
		}
		return narration.NewElevenLabs(cfg.ElevenLabsKey, ""), nil
	case "edge-tts":
		return narration.NewEdgeTTS(cfg.EdgeTTSBinary), nil
	default:
		return nil, fmt.Errorf("unknown narration provider %q", cfg.Provider)
	}
}

// newResolvers builds one resolver per image mode. Pexels is only used when
// its key is set; Pollinations needs no credentials.
func newResolvers(cfg config.AssetsConfig, runner common.Runner, timeout time.Duration) map[types.ImageMode]pipeline.AssetResolver {
	var stock assets.ImageSource
	if cfg.PexelsKey != "" {
		stock = assets.NewPexels(cfg.PexelsKey, "")
	} else {
		log.Warn().Msg("PEXELS_API_KEY not set, stock mode falls back to synthesized images")
	}
	synth := assets.NewPollinations("")

	fetcher := assets.NewFetcher()
	encoder := assets.NewPortraitEncoder(runner)
	opts := assets.Options{Candidates: cfg.Candidates, Concurrency: cfg.Concurrent, Timeout: timeout}

	resolvers := make(map[types.ImageMode]pipeline.AssetResolver, 2)
	for _, mode := range []types.ImageMode{types.ImageModeStock, types.ImageModeSynth} {
		resolvers[mode] = assets.NewResolver(assets.StrategyFor(mode, stock, synth), fetcher, encoder, opts)
	}
	return resolvers
}

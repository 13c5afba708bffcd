package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"shortsfactory/assets"
	"shortsfactory/config"
	"shortsfactory/publish"
	"shortsfactory/types"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ScriptGenerator writes the narration script for a job. source is extracted
// article text, or "" when the job has no source URL.
type ScriptGenerator interface {
	Generate(ctx context.Context, job types.Job, source string) (types.Script, error)
}

// SceneSegmenter splits a script into target scenes.
type SceneSegmenter interface {
	Segment(ctx context.Context, script types.Script, target int) ([]types.Scene, error)
}

// AssetResolver attaches an asset to every scene or returns an error and
// leaves the scenes untouched.
type AssetResolver interface {
	ResolveAll(ctx context.Context, req assets.Request, scenes []types.Scene) error
}

// Narrator renders the script to one audio track in dir and reports its
// measured duration.
type Narrator interface {
	Synthesize(ctx context.Context, jobID, dir string, script types.Script) (types.NarrationTrack, error)
}

// TimelineAllocator shares the narration duration between scenes.
type TimelineAllocator interface {
	Allocate(scenes []types.Scene, track types.NarrationTrack) (types.Timeline, error)
}

// VideoAssembler renders the timeline and track to outPath. commit is called
// right before the output is renamed into place and may veto it.
type VideoAssembler interface {
	Assemble(ctx context.Context, jobID string, tl types.Timeline, track types.NarrationTrack, outPath string, commit func() error) (types.Artifact, error)
}

// Mirror copies a committed artifact to durable storage.
type Mirror interface {
	Mirror(ctx context.Context, jobID, localPath string) (key, url string, err error)
}

// SourceExtractor fetches a page and returns its readable text.
type SourceExtractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

// Hooks let the caller observe a run. Any field may be nil.
type Hooks struct {
	Stage func(stage types.Stage)
	Log   func(level, msg string)
	// Commit runs immediately before the output is renamed into place. An
	// error aborts the commit and fails the run with that error.
	Commit    func() error
	Committed func(artifact types.Artifact)
}

func (h Hooks) stage(s types.Stage) {
	if h.Stage != nil {
		h.Stage(s)
	}
}

func (h Hooks) logf(level, format string, args ...any) {
	if h.Log != nil {
		h.Log(level, fmt.Sprintf(format, args...))
	}
}

func (h Hooks) commit() error {
	if h.Commit != nil {
		return h.Commit()
	}
	return nil
}

func (h Hooks) committed(a types.Artifact) {
	if h.Committed != nil {
		h.Committed(a)
	}
}

// Options holds the paths and timeouts a run needs.
type Options struct {
	WorkDir       string
	OutputDir     string
	KeepWorkDir   bool
	UploadTimeout time.Duration
	Privacy       string
	CategoryID    string
}

// OptionsFromConfig maps the runtime configuration onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		WorkDir:       cfg.Paths.Work,
		OutputDir:     cfg.Paths.Output,
		KeepWorkDir:   cfg.Jobs.KeepWorkDir,
		UploadTimeout: cfg.Upload.Timeout,
		Privacy:       cfg.Upload.Privacy,
		CategoryID:    cfg.Upload.CategoryID,
	}
}

// Pipeline runs one job through every stage. It holds no per-job state and is
// safe to share between concurrent runs.
type Pipeline struct {
	Generator ScriptGenerator
	Segmenter SceneSegmenter
	// Resolvers holds one resolver per image mode; the job picks one up front.
	Resolvers map[types.ImageMode]AssetResolver
	Narrator  Narrator
	Allocator TimelineAllocator
	Assembler VideoAssembler

	// Optional collaborators.
	Extractor SourceExtractor
	Mirror    Mirror
	Publisher publish.Publisher

	Opts Options
}

// Run executes job and returns the committed artifact.
//
// Errors before the commit are stage-tagged (see types.StageOf) or wrap the
// context error when the job was canceled. After the commit the artifact is
// always returned; a failed upload comes back as a publish StageError next to
// the artifact.
func (p *Pipeline) Run(ctx context.Context, job types.Job, hooks Hooks) (types.Artifact, error) {
	job = job.WithDefaults()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if err := types.ValidateID(job.ID); err != nil {
		return types.Artifact{}, types.NewStageError(types.StageScript, err)
	}

	resolver, ok := p.Resolvers[job.ImageMode]
	if !ok {
		return types.Artifact{}, types.NewStageError(types.StageAssets,
			fmt.Errorf("no asset resolver for image mode %q", job.ImageMode))
	}

	wd, err := newWorkdir(p.Opts.WorkDir, job.ID)
	if err != nil {
		return types.Artifact{}, types.NewStageError(types.StageScript, err)
	}
	if !p.Opts.KeepWorkDir {
		defer func() {
			if err := wd.Remove(); err != nil {
				log.Warn().Err(err).Str("job_id", job.ID).Msg("failed to remove workdir")
			}
		}()
	}

	// Step 1: Source material
	source := p.extractSource(ctx, job, hooks)

	// Step 2: Script
	hooks.stage(types.StageScript)
	script, err := p.Generator.Generate(ctx, job, source)
	if err != nil {
		return types.Artifact{}, canceledOr(ctx, err)
	}
	if err := os.WriteFile(wd.ScriptFile(), []byte(script.Text()), 0o644); err != nil {
		return types.Artifact{}, types.NewStageError(types.StageScript, fmt.Errorf("write script: %w", err))
	}
	hooks.logf("info", "script ready with %d lines", len(script.Lines))

	// Step 3: Scenes
	hooks.stage(types.StageSegment)
	scenes, err := p.Segmenter.Segment(ctx, script, job.SceneCount)
	if err != nil {
		return types.Artifact{}, canceledOr(ctx, err)
	}
	hooks.logf("info", "segmented into %d scenes", len(scenes))

	// Step 4: Assets and narration have no data dependency on each other.
	hooks.stage(types.StageAssets)
	var track types.NarrationTrack
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return resolver.ResolveAll(gctx, assets.Request{
			JobID: job.ID,
			Dir:   wd.Images(),
			Topic: job.Topic,
			Style: job.Style,
		}, scenes)
	})
	g.Go(func() error {
		var err error
		track, err = p.Narrator.Synthesize(gctx, job.ID, wd.Root, script)
		return err
	})
	if err := g.Wait(); err != nil {
		return types.Artifact{}, canceledOr(ctx, err)
	}
	hooks.logf("info", "assets resolved, narration is %.2fs", track.Duration)

	// Step 5: Timeline
	hooks.stage(types.StageTimeline)
	tl, err := p.Allocator.Allocate(scenes, track)
	if err != nil {
		return types.Artifact{}, err
	}

	// Step 6: Assemble. The rename inside Assemble is the commit point.
	hooks.stage(types.StageAssemble)
	if err := ctx.Err(); err != nil {
		return types.Artifact{}, err
	}
	out := filepath.Join(p.Opts.OutputDir, job.ID+".mp4")
	artifact, err := p.Assembler.Assemble(ctx, job.ID, tl, track, out, hooks.commit)
	if err != nil {
		return types.Artifact{}, canceledOr(ctx, err)
	}
	hooks.committed(artifact)
	hooks.logf("info", "video committed to %s", artifact.Path)

	log.Info().
		Str("job_id", job.ID).
		Str("path", artifact.Path).
		Float64("duration", artifact.Duration).
		Msg("video committed")

	// Everything past this point runs detached from cancellation.
	post := context.WithoutCancel(ctx)

	// Step 7: Mirror
	if p.Mirror != nil {
		hooks.stage(types.StageStorage)
		p.mirror(post, job, &artifact, hooks)
	}

	// Step 8: Publish
	if job.Publish && p.Publisher != nil {
		hooks.stage(types.StagePublish)
		if err := p.publish(post, job, script, &artifact); err != nil {
			hooks.logf("error", "%v", err)
			return artifact, err
		}
		hooks.logf("info", "published as %s", artifact.VideoID)
	}

	return artifact, nil
}

func (p *Pipeline) extractSource(ctx context.Context, job types.Job, hooks Hooks) string {
	if job.SourceURL == "" || p.Extractor == nil {
		return ""
	}
	text, err := p.Extractor.Extract(ctx, job.SourceURL)
	if err != nil {
		log.Warn().Err(err).Str("job_id", job.ID).Str("url", job.SourceURL).Msg("source extraction failed, continuing without it")
		hooks.logf("warn", "source extraction failed: %v", err)
		return ""
	}
	return text
}

func (p *Pipeline) mirror(ctx context.Context, job types.Job, artifact *types.Artifact, hooks Hooks) {
	ctx, cancel := context.WithTimeout(ctx, p.uploadTimeout())
	defer cancel()

	key, url, err := p.Mirror.Mirror(ctx, job.ID, artifact.Path)
	if err != nil {
		log.Warn().Err(err).Str("job_id", job.ID).Msg("artifact mirror failed")
		hooks.logf("warn", "storage mirror failed: %v", err)
		return
	}
	artifact.StorageKey = key
	artifact.StorageURL = url
}

func (p *Pipeline) publish(ctx context.Context, job types.Job, script types.Script, artifact *types.Artifact) error {
	ctx, cancel := context.WithTimeout(ctx, p.uploadTimeout())
	defer cancel()

	privacy := job.Privacy
	if privacy == "" {
		privacy = p.Opts.Privacy
	}
	videoID, err := p.Publisher.Publish(ctx, publish.Upload{
		Path:     artifact.Path,
		Metadata: publish.BuildMetadata(job, script, p.Opts.CategoryID),
		Privacy:  privacy,
	})
	if err != nil {
		perr := types.NewStageError(types.StagePublish, err)
		artifact.PublishErr = perr.Error()
		return perr
	}
	artifact.VideoID = videoID
	return nil
}

func (p *Pipeline) uploadTimeout() time.Duration {
	if p.Opts.UploadTimeout > 0 {
		return p.Opts.UploadTimeout
	}
	return config.DefaultPublishTimeout
}

// canceledOr prefers the context error so a canceled job is not reported as
// a stage failure.
func canceledOr(ctx context.Context, err error) error {
	ctxErr := ctx.Err()
	if ctxErr == nil {
		return err
	}
	if errors.Is(err, ctxErr) {
		return ctxErr
	}
	return fmt.Errorf("%w: %v", ctxErr, err)
}

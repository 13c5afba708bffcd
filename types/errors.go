package types

import (
	"errors"
	"fmt"
)

// Stage names a pipeline step.
type Stage string

const (
	StageScript    Stage = "script"
	StageSegment   Stage = "segment"
	StageAssets    Stage = "assets"
	StageNarration Stage = "narration"
	StageTimeline  Stage = "timeline"
	StageAssemble  Stage = "assemble"
	StageStorage   Stage = "storage"
	StagePublish   Stage = "publish"
)

var (
	ErrGeneration      = errors.New("script generation failed")
	ErrSegmentation    = errors.New("scene segmentation failed")
	ErrAssetResolution = errors.New("asset resolution failed")
	ErrSynthesis       = errors.New("narration synthesis failed")
	ErrEmptyTimeline   = errors.New("timeline has no scenes")
	ErrAssembly        = errors.New("video assembly failed")
	ErrPublish         = errors.New("publish failed")
)

var stageKinds = map[Stage]error{
	StageScript:    ErrGeneration,
	StageSegment:   ErrSegmentation,
	StageAssets:    ErrAssetResolution,
	StageNarration: ErrSynthesis,
	StageTimeline:  ErrEmptyTimeline,
	StageAssemble:  ErrAssembly,
	StagePublish:   ErrPublish,
}

// StageError tags a failure with the stage that produced it. It matches both
// its Kind sentinel and the underlying cause with errors.Is.
type StageError struct {
	Stage Stage
	Kind  error
	// Scene is the failing scene index, or -1 when the error is not scene scoped.
	Scene int
	Err   error
}

func (e *StageError) Error() string {
	msg := e.Kind.Error()
	if e.Scene >= 0 {
		msg = fmt.Sprintf("%s (scene %d)", msg, e.Scene)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return fmt.Sprintf("[%s] %s", e.Stage, msg)
}

func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewStageError builds a StageError using the stage's default kind.
func NewStageError(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Kind: kindFor(stage), Scene: -1, Err: err}
}

// NewSceneError builds a StageError scoped to one scene.
func NewSceneError(stage Stage, scene int, err error) *StageError {
	return &StageError{Stage: stage, Kind: kindFor(stage), Scene: scene, Err: err}
}

func kindFor(stage Stage) error {
	if k, ok := stageKinds[stage]; ok {
		return k
	}
	return fmt.Errorf("%s failed", stage)
}

// StageOf returns the stage recorded in err, or "" when err carries none.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

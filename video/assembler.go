package video

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"shortsfactory/common"
	"shortsfactory/config"
	"shortsfactory/types"

	"github.com/rs/zerolog/log"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Assembler muxes the timeline images and the narration into one MP4.
type Assembler struct {
	runner common.Runner
	width  int
	height int
	fps    int
}

// NewAssembler returns an Assembler producing 1080x1920 output through runner.
func NewAssembler(runner common.Runner) *Assembler {
	return &Assembler{
		runner: runner,
		width:  config.VideoWidth,
		height: config.VideoHeight,
		fps:    config.VideoFPS,
	}
}

// OutputDuration is the length of the muxed file: the shorter of the image
// sequence and the narration, so there is never trailing silence or a frame
// past the narration's end.
func OutputDuration(tl types.Timeline, track types.NarrationTrack) float64 {
	return math.Min(tl.Total(), track.Duration)
}

// Args builds the ffmpeg arguments that write the video to out.
func (a *Assembler) Args(tl types.Timeline, track types.NarrationTrack, out string) ([]string, error) {
	if len(tl.Entries) == 0 {
		return nil, errors.New("no images supplied")
	}
	if track.Path == "" {
		return nil, errors.New("no narration track supplied")
	}

	size := fmt.Sprintf("%d:%d", a.width, a.height)
	fps := strconv.Itoa(a.fps)

	// Each still is looped for exactly its allocated duration, then forced to
	// the output frame so concat sees identical inputs.
	frames := make([]*ffmpeg.Stream, 0, len(tl.Entries))
	for _, e := range tl.Entries {
		if e.Image == "" {
			return nil, fmt.Errorf("scene %d has no image", e.Index)
		}
		if e.Duration <= 0 {
			return nil, fmt.Errorf("scene %d has non-positive duration %.3f", e.Index, e.Duration)
		}
		still := ffmpeg.Input(e.Image, ffmpeg.KwArgs{
			"loop":      1,
			"t":         formatSeconds(e.Duration),
			"framerate": fps,
		})
		frames = append(frames, still.
			Filter("scale", ffmpeg.Args{size}, ffmpeg.KwArgs{"force_original_aspect_ratio": "increase"}).
			Filter("crop", ffmpeg.Args{size}).
			Filter("setsar", ffmpeg.Args{"1"}).
			Filter("fps", ffmpeg.Args{fps}))
	}

	video := ffmpeg.Concat(frames, ffmpeg.KwArgs{"v": 1, "a": 0}).
		Filter("format", ffmpeg.Args{config.PixelFormat})
	audio := ffmpeg.Input(track.Path).Audio()

	return ffmpeg.Output([]*ffmpeg.Stream{video, audio}, out, ffmpeg.KwArgs{
		"c:v":      config.VideoCodec,
		"c:a":      config.AudioCodec,
		"b:a":      config.AudioBitrate,
		"preset":   config.VideoPreset,
		"pix_fmt":  config.PixelFormat,
		"r":        fps,
		"t":        formatSeconds(OutputDuration(tl, track)),
		"movflags": "+faststart",
		"shortest": "",
	}).OverWriteOutput().GetArgs(), nil
}

// Assemble encodes into a temporary file next to outPath and renames it into
// place. The rename is the commit point; any earlier output is replaced.
// commit, when set, runs right before the rename and can veto it; the caller
// uses it to stop accepting cancellation.
func (a *Assembler) Assemble(ctx context.Context, jobID string, tl types.Timeline, track types.NarrationTrack, outPath string, commit func() error) (types.Artifact, error) {
	partial := outPath + ".partial.mp4"
	args, err := a.Args(tl, track, partial)
	if err != nil {
		return types.Artifact{}, types.NewStageError(types.StageAssemble, err)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return types.Artifact{}, types.NewStageError(types.StageAssemble, err)
	}

	log.Info().
		Str("job_id", jobID).
		Int("scenes", len(tl.Entries)).
		Float64("duration", OutputDuration(tl, track)).
		Msg("assembling video")

	if err := a.runner.Run(ctx, args); err != nil {
		os.Remove(partial)
		if ctx.Err() != nil {
			return types.Artifact{}, ctx.Err()
		}
		return types.Artifact{}, types.NewStageError(types.StageAssemble, err)
	}

	// Cancellation is honoured up to the rename and ignored afterwards.
	if err := ctx.Err(); err != nil {
		os.Remove(partial)
		return types.Artifact{}, err
	}
	if commit != nil {
		if err := commit(); err != nil {
			os.Remove(partial)
			return types.Artifact{}, err
		}
	}
	if err := os.Rename(partial, outPath); err != nil {
		os.Remove(partial)
		return types.Artifact{}, types.NewStageError(types.StageAssemble, fmt.Errorf("commit output: %w", err))
	}

	return types.Artifact{
		JobID:    jobID,
		Path:     outPath,
		Duration: OutputDuration(tl, track),
	}, nil
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 6, 64)
}

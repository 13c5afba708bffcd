package assets

import (
	"context"
	"fmt"

	"shortsfactory/common"
	"shortsfactory/config"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// PortraitEncoder re-encodes an image to the fixed vertical frame size by
// scaling to cover it and center cropping the overflow.
type PortraitEncoder struct {
	runner common.Runner
	width  int
	height int
}

// NewPortraitEncoder returns an encoder that shells out through runner.
func NewPortraitEncoder(runner common.Runner) *PortraitEncoder {
	return &PortraitEncoder{runner: runner, width: config.VideoWidth, height: config.VideoHeight}
}

// Args builds the ffmpeg arguments without running them.
func (e *PortraitEncoder) Args(src, dst string) []string {
	size := fmt.Sprintf("%d:%d", e.width, e.height)
	return ffmpeg.Input(src).
		Filter("scale", ffmpeg.Args{size}, ffmpeg.KwArgs{"force_original_aspect_ratio": "increase"}).
		Filter("crop", ffmpeg.Args{size}).
		Filter("setsar", ffmpeg.Args{"1"}).
		Output(dst, ffmpeg.KwArgs{"frames:v": 1, "q:v": 2}).
		OverWriteOutput().
		GetArgs()
}

// Encode writes the portrait version of src to dst.
func (e *PortraitEncoder) Encode(ctx context.Context, src, dst string) error {
	if err := e.runner.Run(ctx, e.Args(src, dst)); err != nil {
		return fmt.Errorf("portrait re-encode: %w", err)
	}
	return nil
}

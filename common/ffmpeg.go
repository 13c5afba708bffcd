package common

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes one ffmpeg invocation. Args exclude the binary name, which
// matches what ffmpeg-go's GetArgs returns.
type Runner interface {
	Run(ctx context.Context, args []string) error
}

// FFmpegRunner runs the ffmpeg binary and kills it when ctx is done.
type FFmpegRunner struct {
	Binary string
}

// NewFFmpegRunner returns a runner using the ffmpeg found on PATH.
func NewFFmpegRunner() *FFmpegRunner {
	return &FFmpegRunner{Binary: "ffmpeg"}
}

func (r *FFmpegRunner) Run(ctx context.Context, args []string) error {
	bin := r.Binary
	if bin == "" {
		bin = "ffmpeg"
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg failed: %w: %s", err, tail(stderr.String(), 6))
	}
	return nil
}

// tail keeps the last n non-empty lines of ffmpeg's stderr.
func tail(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}

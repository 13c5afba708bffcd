package narration

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// EdgeTTS shells out to the edge-tts CLI, which needs no API key.
type EdgeTTS struct {
	Binary string
}

// NewEdgeTTS returns a provider running binary, or edge-tts from PATH when
// binary is empty.
func NewEdgeTTS(binary string) *EdgeTTS {
	if binary == "" {
		binary = "edge-tts"
	}
	return &EdgeTTS{Binary: binary}
}

func (e *EdgeTTS) Name() string { return "edge-tts" }

// Args returns the CLI arguments for one synthesis.
func (e *EdgeTTS) Args(s Speech, path string) []string {
	voice := s.Voice
	if voice == "" {
		voice = "en-US-GuyNeural"
	}
	return []string{"--voice", voice, "--text", s.Text, "--write-media", path}
}

func (e *EdgeTTS) Synthesize(ctx context.Context, s Speech, path string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.Binary, e.Args(s, path)...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("edge-tts failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

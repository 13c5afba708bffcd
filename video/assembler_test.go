package video

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shortsfactory/types"
)

// fakeRunner writes a placeholder to the output file named in args.
type fakeRunner struct {
	err  error
	args []string
}

func (f *fakeRunner) Run(ctx context.Context, args []string) error {
	f.args = args
	if f.err != nil {
		return f.err
	}
	for _, a := range args {
		if strings.HasSuffix(a, ".partial.mp4") {
			return os.WriteFile(a, []byte("mp4"), 0o644)
		}
	}
	return errors.New("no output in args")
}

func oceanTimeline() (types.Timeline, types.NarrationTrack) {
	entries := make([]types.TimelineEntry, 5)
	for i := range entries {
		entries[i] = types.TimelineEntry{Index: i, Image: filepath.Join("img", "scene.jpg"), Duration: 5.68}
	}
	return types.Timeline{Entries: entries}, types.NarrationTrack{Path: "narration.mp3", Duration: 28.4}
}

func TestAssembleCommitsOutput(t *testing.T) {
	runner := &fakeRunner{}
	tl, track := oceanTimeline()
	out := filepath.Join(t.TempDir(), "final", "job.mp4")

	art, err := NewAssembler(runner).Assemble(context.Background(), "job", tl, track, out, nil)
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	if art.Path != out || art.JobID != "job" {
		t.Fatalf("unexpected artifact %+v", art)
	}
	if art.Duration < 28.4-1e-3 || art.Duration > 28.4+1e-3 {
		t.Fatalf("artifact duration = %v, want 28.4", art.Duration)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("output not committed: %v", err)
	}
	if _, err := os.Stat(out + ".partial.mp4"); !os.IsNotExist(err) {
		t.Fatal("partial file should be renamed away")
	}

	joined := strings.Join(runner.args, " ")
	for _, want := range []string{"-loop", "concat", "n=5", "yuv420p", "-shortest", "libx264", "aac", "1080", "1920", "narration.mp3"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args missing %q: %s", want, joined)
		}
	}
}

func TestOutputDurationIsShorterOfTheTwo(t *testing.T) {
	tl, track := oceanTimeline()
	if got := OutputDuration(tl, track); got < 28.4-1e-9 || got > 28.4+1e-9 {
		t.Fatalf("OutputDuration() = %v", got)
	}

	track.Duration = 20
	if got := OutputDuration(tl, track); got != 20 {
		t.Fatalf("OutputDuration() = %v, want 20", got)
	}

	args, err := NewAssembler(&fakeRunner{}).Args(tl, track, "out.mp4")
	if err != nil {
		t.Fatalf("Args returned error: %v", err)
	}
	found := false
	for i, a := range args {
		if a == "-t" && i+1 < len(args) && args[i+1] == "20.000000" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected output -t 20.000000 in %v", args)
	}
}

func TestAssembleErrors(t *testing.T) {
	tl, track := oceanTimeline()
	noImage := types.Timeline{Entries: []types.TimelineEntry{{Index: 0, Duration: 1}}}

	tests := []struct {
		name   string
		runner *fakeRunner
		tl     types.Timeline
		track  types.NarrationTrack
	}{
		{"zero images", &fakeRunner{}, types.Timeline{}, track},
		{"missing image", &fakeRunner{}, noImage, track},
		{"missing audio", &fakeRunner{}, tl, types.NarrationTrack{Duration: 1}},
		{"encoder exits non-zero", &fakeRunner{err: errors.New("exit status 1")}, tl, track},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "job.mp4")
			_, err := NewAssembler(tt.runner).Assemble(context.Background(), "job", tt.tl, tt.track, out, nil)
			if !errors.Is(err, types.ErrAssembly) {
				t.Fatalf("expected ErrAssembly, got %v", err)
			}
			if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
				t.Fatal("no output should be written on failure")
			}
		})
	}
}

func TestAssembleCanceledBeforeCommit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tl, track := oceanTimeline()
	out := filepath.Join(t.TempDir(), "job.mp4")
	_, err := NewAssembler(&fakeRunner{}).Assemble(ctx, "job", tl, track, out, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, types.ErrAssembly) {
		t.Fatal("cancellation is not an assembly failure")
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatal("canceled job must not commit output")
	}
}

func TestAssembleOverwritesPreviousOutput(t *testing.T) {
	tl, track := oceanTimeline()
	out := filepath.Join(t.TempDir(), "job.mp4")
	if err := os.WriteFile(out, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewAssembler(&fakeRunner{}).Assemble(context.Background(), "job", tl, track, out, nil); err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	data, _ := os.ReadFile(out)
	if string(data) != "mp4" {
		t.Fatalf("output not replaced: %q", data)
	}
}

func TestAssembleCommitVeto(t *testing.T) {
	tl, track := oceanTimeline()
	out := filepath.Join(t.TempDir(), "job.mp4")
	veto := errors.New("job canceled")

	calls := 0
	_, err := NewAssembler(&fakeRunner{}).Assemble(context.Background(), "job", tl, track, out, func() error {
		calls++
		return veto
	})
	if !errors.Is(err, veto) {
		t.Fatalf("expected the veto error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("commit called %d times", calls)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatal("vetoed commit must not write output")
	}
	if _, statErr := os.Stat(out + ".partial.mp4"); !os.IsNotExist(statErr) {
		t.Fatal("partial file should be cleaned up")
	}
}

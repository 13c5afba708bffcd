package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Workdir is the job-scoped directory for intermediate files. Concurrent jobs
// never share one, so scene file names only need to be unique per job.
type Workdir struct {
	Root string
}

func newWorkdir(base, jobID string) (Workdir, error) {
	if jobID == "" {
		return Workdir{}, fmt.Errorf("job id is required for a workdir")
	}
	root := filepath.Join(base, jobID)
	rel, err := filepath.Rel(base, root)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return Workdir{}, fmt.Errorf("job id %q escapes the work directory", jobID)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return Workdir{}, fmt.Errorf("create workdir: %w", err)
	}
	return Workdir{Root: root}, nil
}

func (w Workdir) Images() string {
	return filepath.Join(w.Root, "images")
}

func (w Workdir) ScriptFile() string {
	return filepath.Join(w.Root, "script.txt")
}

// Remove deletes the directory and everything in it.
func (w Workdir) Remove() error {
	return os.RemoveAll(w.Root)
}

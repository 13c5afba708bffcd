package types

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// Style selects the narration persona. Values outside the known set are
// passed through to providers untouched.
type Style string

const (
	StyleNormal Style = "normal"
	StyleDark   Style = "dark"
	StyleMoney  Style = "money"
)

// ImageMode picks the asset strategy for a whole job.
type ImageMode string

const (
	ImageModeStock ImageMode = "stock"
	ImageModeSynth ImageMode = "synth"
)

// Job is one end-to-end request. It is passed by value into the pipeline and
// never stored in shared mutable state.
type Job struct {
	ID           string    `json:"id"`
	Topic        string    `json:"topic"`
	DurationHint int       `json:"duration_hint"`
	Style        Style     `json:"style,omitempty"`
	Publish      bool      `json:"publish"`
	ImageMode    ImageMode `json:"image_mode,omitempty"`
	SceneCount   int       `json:"scene_count,omitempty"`
	SourceURL    string    `json:"source_url,omitempty"`
	Privacy      string    `json:"privacy,omitempty"`
}

// jobIDPattern keeps ids usable as a single path element: no separators,
// no dot segments.
var jobIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// ValidateID rejects ids that cannot name a workdir or output file. An empty
// id is allowed; one is generated later.
func ValidateID(id string) error {
	if id == "" || jobIDPattern.MatchString(id) {
		return nil
	}
	return errors.New("id must be 1-64 letters, digits, '-' or '_'")
}

// Validate checks the caller supplied fields.
func (j Job) Validate() error {
	if err := ValidateID(j.ID); err != nil {
		return err
	}
	if strings.TrimSpace(j.Topic) == "" {
		return errors.New("topic is required")
	}
	if j.DurationHint <= 0 {
		return errors.New("duration_hint must be a positive number of seconds")
	}
	if j.SceneCount < 0 {
		return errors.New("scene_count cannot be negative")
	}
	switch j.ImageMode {
	case "", ImageModeStock, ImageModeSynth:
	default:
		return errors.New("image_mode must be stock or synth")
	}
	return nil
}

// WithDefaults fills optional fields.
func (j Job) WithDefaults() Job {
	j.Topic = strings.TrimSpace(j.Topic)
	if j.Style == "" {
		j.Style = StyleNormal
	}
	if j.ImageMode == "" {
		j.ImageMode = ImageModeStock
	}
	return j
}

// Script holds the provider response and its normalized narration lines.
type Script struct {
	Raw   string   `json:"raw"`
	Lines []string `json:"lines"`
}

// Text joins the normalized lines with newlines.
func (s Script) Text() string {
	return strings.Join(s.Lines, "\n")
}

// Scene is one narration unit. Index defines playback order.
type Scene struct {
	Index    int     `json:"index"`
	Text     string  `json:"text"`
	Asset    *Asset  `json:"asset,omitempty"`
	Duration float64 `json:"duration"`
}

// Asset is a resolved image file owned by a single scene.
type Asset struct {
	Path         string `json:"path"`
	Provider     string `json:"provider"`
	Query        string `json:"query"`
	SourceURL    string `json:"source_url,omitempty"`
	UsedFallback bool   `json:"used_fallback"`
}

// NarrationTrack is the synthesized audio and its measured duration.
type NarrationTrack struct {
	Path     string  `json:"path"`
	Duration float64 `json:"duration"`
}

// TimelineEntry pairs a scene image with its display duration.
type TimelineEntry struct {
	Index    int     `json:"index"`
	Image    string  `json:"image"`
	Duration float64 `json:"duration"`
}

// Timeline is index aligned with the scene list.
type Timeline struct {
	Entries []TimelineEntry `json:"entries"`
}

// Total returns the sum of all entry durations.
func (t Timeline) Total() float64 {
	var total float64
	for _, e := range t.Entries {
		total += e.Duration
	}
	return total
}

// Artifact is the pipeline output.
type Artifact struct {
	JobID      string  `json:"job_id"`
	Path       string  `json:"path"`
	Duration   float64 `json:"duration"`
	VideoID    string  `json:"video_id,omitempty"`
	PublishErr string  `json:"publish_error,omitempty"`
	StorageKey string  `json:"storage_key,omitempty"`
	StorageURL string  `json:"storage_url,omitempty"`
}

// JobState is the lifecycle state reported to callers.
type JobState string

const (
	JobPending   JobState = "pending"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
	JobCanceled  JobState = "canceled"
)

// Terminal reports whether no further transitions can happen.
func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCanceled
}

// LogEntry is one line of job progress.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// JobStatus is a snapshot of a job as seen by the API, the TUI and Kafka.
type JobStatus struct {
	ID          string     `json:"id"`
	Job         Job        `json:"job"`
	State       JobState   `json:"state"`
	Stage       Stage      `json:"stage,omitempty"`
	FailedStage Stage      `json:"failed_stage,omitempty"`
	Error       string     `json:"error,omitempty"`
	Committed   bool       `json:"committed"`
	Artifact    *Artifact  `json:"artifact,omitempty"`
	Logs        []LogEntry `json:"logs,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

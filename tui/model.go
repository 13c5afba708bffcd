package tui

import (
	"fmt"
	"strings"

	"shortsfactory/types"

	tea "github.com/charmbracelet/bubbletea"
)

var stageText = map[types.Stage]string{
	types.StageScript:    "✍️  Writing the script...",
	types.StageSegment:   "✂️  Splitting into scenes...",
	types.StageAssets:    "🖼️  Finding images and recording narration...",
	types.StageTimeline:  "⏱️  Timing scenes to the narration...",
	types.StageAssemble:  "🎬 Encoding the video...",
	types.StageStorage:   "☁️  Uploading to storage...",
	types.StagePublish:   "📤 Publishing...",
	types.StageNarration: "🎙️  Recording narration...",
}

// Model is a thin client that watches one job.
type Model struct {
	Client *JobsClient
	JobID  string

	Status    *types.JobStatus
	Err       error
	Connected bool

	CancelRequested bool
}

// NewModel creates a model watching job id on the server at baseURL.
func NewModel(baseURL, id string) Model {
	return Model{
		Client: NewJobsClient(baseURL),
		JobID:  id,
	}
}

// Init implements tea.Model interface
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		pollStatus(m.Client, m.JobID),
		tickCmd(),
	)
}

func (m Model) finished() bool {
	return m.Status != nil && m.Status.State.Terminal()
}

// getStateText returns the line describing where the job is.
func (m Model) getStateText() string {
	if !m.Connected {
		msg := "❌ Not connected to server"
		if m.Err != nil {
			msg += ": " + m.Err.Error()
		}
		return ErrorStyle.Render(msg)
	}

	st := m.Status
	switch st.State {
	case types.JobPending:
		return InfoStyle.Render("⏳ Queued, waiting for a free slot...")
	case types.JobRunning:
		if text, ok := stageText[st.Stage]; ok {
			return StatusStyle.Render(text)
		}
		return StatusStyle.Render("⚙️  Running...")
	case types.JobCompleted:
		if st.FailedStage == types.StagePublish {
			return WarnStyle.Render("⚠️  Video ready, publish failed")
		}
		return HighlightStyle.Render("✅ COMPLETE")
	case types.JobCanceled:
		return WarnStyle.Render("🛑 Canceled")
	case types.JobFailed:
		return ErrorStyle.Render(fmt.Sprintf("❌ Failed at %s: %s", st.FailedStage, st.Error))
	default:
		return ""
	}
}

// formatResult formats the finished artifact for display
func (m Model) formatResult() string {
	a := m.Status.Artifact
	var b strings.Builder

	b.WriteString(HighlightStyle.Render("Result"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("File: %s\n", a.Path))
	b.WriteString(fmt.Sprintf("Duration: %.2fs\n", a.Duration))
	if a.VideoID != "" {
		b.WriteString(fmt.Sprintf("Video: https://youtube.com/shorts/%s\n", a.VideoID))
	}
	if a.StorageURL != "" {
		b.WriteString(fmt.Sprintf("Download: %s\n", InfoStyle.Render(a.StorageURL)))
	}
	if a.PublishErr != "" {
		b.WriteString(ErrorStyle.Render("Publish error: " + a.PublishErr))
		b.WriteString("\n")
	}
	return b.String()
}

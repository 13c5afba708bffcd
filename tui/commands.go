package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const pollInterval = 500 * time.Millisecond

// pollStatus creates a command to fetch the job status
func pollStatus(client *JobsClient, id string) tea.Cmd {
	return func() tea.Msg {
		status, err := client.GetStatus(id)
		return StatusUpdateMsg{Status: status, Err: err}
	}
}

// sendCancel creates a command to cancel the job
func sendCancel(client *JobsClient, id string) tea.Cmd {
	return func() tea.Msg {
		return CancelSentMsg{Err: client.Cancel(id)}
	}
}

// tickCmd creates a command that ticks every 500ms for polling
func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

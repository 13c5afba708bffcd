package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model interface
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case TickMsg:
		if m.finished() {
			return m, nil
		}
		return m, tea.Batch(pollStatus(m.Client, m.JobID), tickCmd())
	case StatusUpdateMsg:
		return m.handleStatusUpdate(msg)
	case CancelSentMsg:
		if msg.Err != nil {
			m.Err = msg.Err
			m.CancelRequested = false
		}
		return m, nil
	}
	return m, nil
}

// handleKeyPress processes keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "c", "C":
		if m.Connected && !m.finished() && !m.CancelRequested {
			m.CancelRequested = true
			return m, sendCancel(m.Client, m.JobID)
		}
	}
	return m, nil
}

// handleStatusUpdate stores the latest snapshot from the server
func (m Model) handleStatusUpdate(msg StatusUpdateMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.Connected = false
		m.Err = msg.Err
		return m, nil
	}
	m.Connected = true
	m.Err = nil
	m.Status = msg.Status
	return m, nil
}

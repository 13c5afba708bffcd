package tui

import (
	"fmt"
	"strings"
)

// View implements tea.Model interface
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("🎞️  Shorts Factory Job Monitor"))
	b.WriteString("\n\n")

	if m.Status != nil {
		b.WriteString(InfoStyle.Render(fmt.Sprintf("Job %s: %q (%ds, %s)",
			m.Status.ID, m.Status.Job.Topic, m.Status.Job.DurationHint, m.Status.Job.Style)))
		b.WriteString("\n\n")
	}

	b.WriteString(m.getStateText())
	b.WriteString("\n\n")

	if m.CancelRequested && !m.finished() {
		b.WriteString(WarnStyle.Render("Cancel requested..."))
		b.WriteString("\n\n")
	}
	if m.Err != nil && m.Connected {
		b.WriteString(ErrorStyle.Render(m.Err.Error()))
		b.WriteString("\n\n")
	}

	if m.Status != nil && len(m.Status.Logs) > 0 {
		b.WriteString(InfoStyle.Render("📝 Recent Activity:"))
		b.WriteString("\n")
		logs := m.Status.Logs
		if len(logs) > 10 {
			logs = logs[len(logs)-10:]
		}
		for _, entry := range logs {
			line := fmt.Sprintf("   %s %s", entry.Time.Format("15:04:05"), entry.Message)
			switch entry.Level {
			case "error":
				b.WriteString(ErrorStyle.Render(line))
			case "warn":
				b.WriteString(WarnStyle.Render(line))
			default:
				b.WriteString(InfoStyle.Render(line))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.finished() && m.Status.Artifact != nil {
		b.WriteString(BoxStyle.Render(m.formatResult()))
		b.WriteString("\n\n")
	}

	if m.finished() {
		b.WriteString(HighlightStyle.Render(TextFooterFinished))
	} else {
		b.WriteString(InfoStyle.Render(TextFooterRunning))
	}

	return b.String()
}

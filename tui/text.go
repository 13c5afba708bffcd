package tui

// UI Text Constants
const (
	TextFooterRunning  = "Press 'c' to cancel the job | Press 'q' to detach (job keeps running)"
	TextFooterFinished = "Press 'q' or Ctrl+C to exit"
)

package tui

import (
	"time"

	"shortsfactory/types"
)

// StatusUpdateMsg is sent when we receive a job status from the server
type StatusUpdateMsg struct {
	Status *types.JobStatus
	Err    error
}

// TickMsg is sent periodically to trigger polling
type TickMsg struct {
	Time time.Time
}

// CancelSentMsg reports the result of a cancel request
type CancelSentMsg struct {
	Err error
}

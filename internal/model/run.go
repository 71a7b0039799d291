package model

import "time"

// RunStatus represents the outcome of a marking run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
	RunStatusDryRun    RunStatus = "dry_run"
)

// Run is the audit record of one marking run against a room store.
type Run struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Status      RunStatus `json:"status"`
	Rooms       int       `json:"rooms"`
	Flats       int       `json:"flats"`
	MarkedFlats int       `json:"marked_flats"`
	MarkedRooms int       `json:"marked_rooms"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// Duration returns the wall time of the run.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

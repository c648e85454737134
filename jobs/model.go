package jobs

import (
	"time"

	"github.com/hxlong2024/LinkChanger/internal"
)

// Status represents the lifecycle state of a job.
type Status string

const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
)

// IsTerminal returns true when the job will receive no further updates.
func (s Status) IsTerminal() bool {
	return s == StatusDone
}

// LogEntry is one line of the job's streaming log. Kind mirrors the
// pipeline's step kinds: "info", "success", "warning" or "error".
type LogEntry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
	Kind    string    `json:"kind"`
}

// Progress counts processed links against the total found in the text.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// Job is the observable state of one text-processing run. Observers
// poll it while a worker goroutine appends logs and advances progress.
type Job struct {
	ID         string            `json:"id"`
	Status     Status            `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
	Progress   Progress          `json:"progress"`
	Logs       []LogEntry        `json:"logs"`
	ResultText string            `json:"result_text,omitempty"`
	Summary    *internal.Summary `json:"summary,omitempty"`
}

// snapshot returns a deep copy safe to hand to observers while the
// worker keeps mutating the original.
func (j *Job) snapshot() *Job {
	copied := *j
	copied.Logs = make([]LogEntry, len(j.Logs))
	copy(copied.Logs, j.Logs)
	if j.Summary != nil {
		summary := *j.Summary
		copied.Summary = &summary
	}
	return &copied
}

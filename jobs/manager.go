package jobs

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hxlong2024/LinkChanger/internal"
)

// Manager is an in-memory registry of jobs. Completed jobs stay
// readable until the retention window expires; expired jobs are swept
// opportunistically whenever a new job is created.
type Manager struct {
	mu        sync.RWMutex
	jobs      map[string]*Job
	retention time.Duration
	now       func() time.Time
}

// NewManager creates a registry that keeps jobs for the given
// retention period. A non-positive retention defaults to 24 hours.
func NewManager(retention time.Duration) *Manager {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &Manager{
		jobs:      make(map[string]*Job),
		retention: retention,
		now:       time.Now,
	}
}

// Create registers a new running job and returns its id.
func (m *Manager) Create() string {
	id := uuid.New().String()
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweepLocked(now)
	m.jobs[id] = &Job{
		ID:        id,
		Status:    StatusRunning,
		CreatedAt: now,
	}
	return id
}

// sweepLocked drops jobs older than the retention window. Caller holds
// the write lock.
func (m *Manager) sweepLocked(now time.Time) {
	for id, job := range m.jobs {
		if now.Sub(job.CreatedAt) > m.retention {
			delete(m.jobs, id)
		}
	}
}

// Get returns a snapshot of the job, or an error when the id is
// unknown or already evicted.
func (m *Manager) Get(id string) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s not found", id)
	}
	return job.snapshot(), nil
}

// AppendLog adds a log line to a running job. Appends to unknown or
// finished jobs are dropped silently; the worker may still be winding
// down after completion.
func (m *Manager) AppendLog(id, kind, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok || job.Status.IsTerminal() {
		return
	}
	job.Logs = append(job.Logs, LogEntry{
		Time:    m.now(),
		Message: message,
		Kind:    kind,
	})
}

// SetTotal fixes the total link count once extraction has run.
func (m *Manager) SetTotal(id string, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok || job.Status.IsTerminal() {
		return
	}
	job.Progress.Total = total
}

// Advance moves progress forward by one processed link. Progress never
// regresses and never exceeds the total.
func (m *Manager) Advance(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok || job.Status.IsTerminal() {
		return
	}
	if job.Progress.Current < job.Progress.Total {
		job.Progress.Current++
	}
}

// Complete marks the job done with its final text and summary. The
// first completion wins; later calls are ignored.
func (m *Manager) Complete(id, resultText string, summary internal.Summary) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok || job.Status.IsTerminal() {
		return
	}
	job.Status = StatusDone
	job.ResultText = resultText
	job.Summary = &summary
}

// Len returns the number of retained jobs.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.jobs)
}

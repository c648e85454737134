package utils

import (
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
)

// JobTracker renders link-processing progress on the terminal while a
// job runs in the background.
type JobTracker struct {
	bar       *pb.ProgressBar
	quiet     bool
	startTime time.Time
	total     int
	current   int
	mutex     sync.Mutex
}

// JobTrackerSummary contains final run statistics.
type JobTrackerSummary struct {
	Total     int
	TotalTime time.Duration
}

// NewJobTracker creates a tracker for the given number of links. In
// quiet mode no bar is drawn and the tracker only keeps counters.
func NewJobTracker(total int, quiet bool) *JobTracker {
	tracker := &JobTracker{
		quiet:     quiet,
		startTime: time.Now(),
		total:     total,
	}

	if !quiet && total > 0 {
		tmpl := `{{string . "prefix"}}{{counters . }} {{bar . }} {{percent . }} {{rtime . "ETA %s"}}`
		bar := pb.ProgressBarTemplate(tmpl).Start(total)
		bar.Set("prefix", "Transferring: ")
		tracker.bar = bar
	}

	return tracker
}

// Update advances the bar to the given link count.
func (t *JobTracker) Update(current int) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.current = current
	if t.bar != nil {
		t.bar.SetCurrent(int64(current))
	}
}

// Finish completes the bar and returns run statistics.
func (t *JobTracker) Finish() *JobTrackerSummary {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.bar != nil {
		t.bar.SetCurrent(int64(t.current))
		t.bar.Finish()
		t.bar = nil
	}

	return &JobTrackerSummary{
		Total:     t.total,
		TotalTime: time.Since(t.startTime),
	}
}

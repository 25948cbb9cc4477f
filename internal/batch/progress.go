package batch

import (
	"sync"
	"time"
)

// percentMultiplier is used to convert a ratio to percentage (0-100).
const percentMultiplier = 100

// Outcome classifies a finished item.
type Outcome int

// Item outcomes.
const (
	OutcomeSucceeded Outcome = iota
	OutcomeFailed
	OutcomeSkipped
)

// Progress tracks a running batch. It is safe for concurrent use.
type Progress struct {
	mu sync.RWMutex

	totalItems int
	succeeded  int
	failed     int
	skipped    int
	startTime  time.Time
	lastUpdate time.Time
}

// NewProgress creates a tracker for totalItems.
func NewProgress(totalItems int) *Progress {
	now := time.Now()
	return &Progress{
		totalItems: totalItems,
		startTime:  now,
		lastUpdate: now,
	}
}

// Add records one finished item.
func (p *Progress) Add(o Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch o {
	case OutcomeSucceeded:
		p.succeeded++
	case OutcomeFailed:
		p.failed++
	case OutcomeSkipped:
		p.skipped++
	}
	p.lastUpdate = time.Now()
}

// Snapshot returns a copy of the current state.
func (p *Progress) Snapshot() ProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	done := p.succeeded + p.failed + p.skipped
	s := ProgressSnapshot{
		TotalItems:     p.totalItems,
		DoneItems:      done,
		Succeeded:      p.succeeded,
		Failed:         p.failed,
		Skipped:        p.skipped,
		StartTime:      p.startTime,
		LastUpdateTime: p.lastUpdate,
		ElapsedTime:    time.Since(p.startTime),
	}
	if p.totalItems > 0 {
		s.PercentComplete = float64(done) / float64(p.totalItems) * percentMultiplier
	}
	return s
}

// ProgressSnapshot is an immutable view of Progress.
type ProgressSnapshot struct {
	TotalItems      int
	DoneItems       int
	Succeeded       int
	Failed          int
	Skipped         int
	StartTime       time.Time
	LastUpdateTime  time.Time
	ElapsedTime     time.Duration
	PercentComplete float64
}

// IsComplete reports whether every item finished.
func (s ProgressSnapshot) IsComplete() bool {
	return s.DoneItems >= s.TotalItems
}

package tasks

import (
	"sync"
	"time"

	"github.com/desertthunder/floe/internal/models"
	"github.com/desertthunder/floe/internal/shared"
)

// Run states for the single-flight sync guard.
const (
	StateIdle      = "idle"
	StateRunning   = "running"
	StateCompleted = "completed"
)

// RunState serializes sync runs. Only one sync may be in flight at a time;
// concurrent starts are rejected rather than queued.
type RunState struct {
	mu         sync.Mutex
	state      string
	startedAt  time.Time
	finishedAt time.Time
	lastReport *models.SyncReport
}

// NewRunState returns an idle RunState.
func NewRunState() *RunState {
	return &RunState{state: StateIdle}
}

// TryStart transitions to running, or returns ErrSyncInProgress if a run is
// already in flight.
func (s *RunState) TryStart() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateRunning {
		return shared.ErrSyncInProgress
	}

	s.state = StateRunning
	s.startedAt = time.Now()
	return nil
}

// Complete records the finished run's report and releases the guard.
func (s *RunState) Complete(report *models.SyncReport) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateCompleted
	s.finishedAt = time.Now()
	s.lastReport = report
}

// StateSnapshot is a point-in-time view of the run guard for status surfaces.
type StateSnapshot struct {
	State      string             `json:"state"`
	StartedAt  *time.Time         `json:"started_at,omitempty"`
	FinishedAt *time.Time         `json:"finished_at,omitempty"`
	LastReport *models.SyncReport `json:"last_report,omitempty"`
}

// Snapshot returns the current state without blocking a running sync.
func (s *RunState) Snapshot() StateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := StateSnapshot{State: s.state, LastReport: s.lastReport}
	if !s.startedAt.IsZero() {
		t := s.startedAt
		snap.StartedAt = &t
	}
	if !s.finishedAt.IsZero() {
		t := s.finishedAt
		snap.FinishedAt = &t
	}
	return snap
}

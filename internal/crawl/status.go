package crawl

import "time"

// State is the orchestrator's lifecycle state.
type State string

// Orchestrator states. A pass always returns to Idle; Suspended means the
// circuit breaker tripped and a cooldown marker is live.
const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateSuspended State = "suspended"
	StateFailed    State = "failed"
)

// Status is the ephemeral, in-memory snapshot of one running crawl. It is
// created at crawl start, mutated during the pass, and finalized at the
// end; it is never persisted beyond the process.
type Status struct {
	State           State     `json:"state"`
	IsRunning       bool      `json:"is_running"`
	CurrentPage     int       `json:"current_page"`
	TotalPages      int       `json:"total_pages"`
	ProcessedItems  int       `json:"processed_items"`
	SkippedItems    int       `json:"skipped_items"`
	FailedItems     int       `json:"failed_items"`
	ContinuousSkips int       `json:"continuous_skips"`
	StartedAt       time.Time `json:"started_at,omitempty"`
	FinishedAt      time.Time `json:"finished_at,omitempty"`
	LastError       string    `json:"last_error,omitempty"`
}

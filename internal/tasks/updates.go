package tasks

import "fmt"

// ProgressUpdate represents a progress event during a sync run.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Pipeline phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
}

// Pipeline phase enumeration
type Phase int

const (
	Provision Phase = iota
	FetchHistory
	Classify
	Reconcile
	Report
)

func (p Phase) String() string {
	switch p {
	case Provision:
		return "provision"
	case FetchHistory:
		return "fetch_history"
	case Classify:
		return "classify"
	case Reconcile:
		return "reconcile"
	case Report:
		return "report"
	default:
		return ""
	}
}

func provisionUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Provision,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Provisioning playlist: %s...", name),
	}
}

func fetchHistoryUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchHistory,
		Step:    1,
		Total:   1,
		Message: "Fetching listening history...",
	}
}

func classifyUpdate(newCount, cachedCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Classify,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Categorizing %d new songs (%d cached)...", newCount, cachedCount),
	}
}

func reconcileUpdate(step, total int, name string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Reconcile,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Adding %d songs to %s...", step, total, count, name),
	}
}

func reportUpdate(added int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Report,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Sync complete: %d songs added", added),
	}
}

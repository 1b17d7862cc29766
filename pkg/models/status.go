package models

// RunStatus is the overall outcome of one crawl run
type RunStatus string

const (
	RunStatusUnset     RunStatus = ""                      // Zero value = not yet derived
	RunStatusCompleted RunStatus = "completed"             // Every fetched page succeeded
	RunStatusPartial   RunStatus = "completed_with_errors" // At least one page succeeded and at least one failed (or the run was truncated)
	RunStatusFailed    RunStatus = "failed"                // No page could be fetched at all
)

// String implements fmt.Stringer for logging
func (s RunStatus) String() string {
	if s == "" {
		return "unset"
	}
	return string(s)
}

// IsValid returns true if the status is a known operational value
func (s RunStatus) IsValid() bool {
	switch s {
	case RunStatusCompleted, RunStatusPartial, RunStatusFailed:
		return true
	}
	return false
}

// DeriveRunStatus computes the overall status from per-page counts.
// truncated marks a run cut short by the run-level timeout; the truncation
// is a recorded, non-fatal condition, so it downgrades "completed" to
// "completed_with_errors" but never upgrades a failed run.
func DeriveRunStatus(successes, failures int, truncated bool) RunStatus {
	switch {
	case successes == 0:
		return RunStatusFailed
	case failures > 0 || truncated:
		return RunStatusPartial
	default:
		return RunStatusCompleted
	}
}

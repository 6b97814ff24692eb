package domain

import (
	"fmt"
	"strings"
)

// GateStatus is the lifecycle state of a gate.
type GateStatus string

const (
	GateStatusPending    GateStatus = "pending"
	GateStatusInProgress GateStatus = "in_progress"
	GateStatusComplete   GateStatus = "complete"
	GateStatusSkipped    GateStatus = "skipped"
)

// IsTerminal reports whether no further status transition is allowed.
func (s GateStatus) IsTerminal() bool {
	return s == GateStatusComplete || s == GateStatusSkipped
}

// JobStatus is the lifecycle state of a job.
type JobStatus string

const (
	JobStatusLead             JobStatus = "lead"
	JobStatusInProgress       JobStatus = "in_progress"
	JobStatusReadyForEstimate JobStatus = "ready_for_estimate"
	JobStatusNeedsFollowUp    JobStatus = "needs_follow_up"
	JobStatusComplete         JobStatus = "complete"
)

var jobStatuses = []JobStatus{
	JobStatusLead,
	JobStatusInProgress,
	JobStatusReadyForEstimate,
	JobStatusNeedsFollowUp,
	JobStatusComplete,
}

// ParseJobStatus accepts the stored value of a job status.
func ParseJobStatus(raw string) (JobStatus, error) {
	trimmed := strings.TrimSpace(raw)
	for _, status := range jobStatuses {
		if string(status) == trimmed {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown job status %q", raw)
}

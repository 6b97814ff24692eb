// Package monitor flags jobs whose gates were closed by exception unusually
// often. It is advisory and never blocks a transition.
package monitor

import (
	"fieldgate_backend/internal/gates/domain"
)

// DefaultThreshold is the exception count a job may reach before review.
const DefaultThreshold = 2

// Report is the outcome of an evaluation.
type Report struct {
	ExceptionCount int            `json:"exceptionCount"`
	NeedsReview    bool           `json:"needsReview"`
	Threshold      int            `json:"threshold"`
	Stages         []domain.Stage `json:"stages"`
}

// Monitor counts exception-flagged gates against a threshold.
type Monitor struct {
	threshold int
}

// New returns a monitor. Negative thresholds are treated as zero.
func New(threshold int) *Monitor {
	if threshold < 0 {
		threshold = 0
	}
	return &Monitor{threshold: threshold}
}

// Threshold returns the configured threshold.
func (m *Monitor) Threshold() int {
	return m.threshold
}

// Evaluate counts gates with requires_exception set. NeedsReview is true
// when the count is strictly greater than the threshold.
func (m *Monitor) Evaluate(gates []domain.Gate) Report {
	report := Report{Threshold: m.threshold, Stages: []domain.Stage{}}
	for _, g := range gates {
		if g.RequiresException {
			report.ExceptionCount++
			report.Stages = append(report.Stages, g.Stage)
		}
	}
	report.NeedsReview = report.ExceptionCount > m.threshold
	return report
}

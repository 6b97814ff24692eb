// Package consistency runs the rules that compare one gate against the
// other gates of the same job. Rules are pure and independent; the checker
// runs every rule that applies and reports all of their findings together.
package consistency

import (
	"time"

	"fieldgate_backend/internal/gates/domain"
	"fieldgate_backend/internal/gates/validation"
)

// Input is the state the rules read. Gate is the gate being completed and
// Gates holds every gate of its job.
type Input struct {
	Gate   *domain.Gate
	Gates  []domain.Gate
	Photos []domain.Photo
	Now    time.Time
}

// Rule is a single cross-gate check.
type Rule interface {
	Name() string
	AppliesTo(stage domain.Stage) bool
	Check(in Input) validation.Result
}

// Checker runs a fixed set of rules.
type Checker struct {
	rules []Rule
}

// NewChecker returns a checker with the given rules, or the default rule
// set when none are passed.
func NewChecker(rules ...Rule) *Checker {
	if len(rules) == 0 {
		rules = []Rule{RoomConsistency{}, TimestampOrder{}}
	}
	return &Checker{rules: rules}
}

// Applies reports whether any rule covers stage.
func (c *Checker) Applies(stage domain.Stage) bool {
	for _, rule := range c.rules {
		if rule.AppliesTo(stage) {
			return true
		}
	}
	return false
}

// Check runs every rule that applies to in.Gate and merges the results.
func (c *Checker) Check(in Input) validation.Result {
	res := validation.Valid()
	for _, rule := range c.rules {
		if !rule.AppliesTo(in.Gate.Stage) {
			continue
		}
		res = res.Merge(rule.Check(in))
	}
	return res
}

package domain

import (
	"fmt"
	"strings"
)

// Stage is one of the seven fixed checkpoints of a job visit.
type Stage string

const (
	StageArrival           Stage = "Arrival"
	StageIntake            Stage = "Intake"
	StagePhotos            Stage = "Photos"
	StageMoistureEquipment Stage = "Moisture/Equipment"
	StageScope             Stage = "Scope"
	StageSignoffs          Stage = "Sign-offs"
	StageDeparture         Stage = "Departure"
)

var stageOrder = []Stage{
	StageArrival,
	StageIntake,
	StagePhotos,
	StageMoistureEquipment,
	StageScope,
	StageSignoffs,
	StageDeparture,
}

// Stages returns the seven stages in visit order.
func Stages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// Order returns the zero-based position of the stage, or -1 when unknown.
func (s Stage) Order() int {
	for i, stage := range stageOrder {
		if stage == s {
			return i
		}
	}
	return -1
}

// IsKnown reports whether s is one of the fixed stages.
func (s Stage) IsKnown() bool {
	return s.Order() >= 0
}

// ParseStage matches a stage name case-insensitively.
func ParseStage(raw string) (Stage, error) {
	trimmed := strings.TrimSpace(raw)
	for _, stage := range stageOrder {
		if strings.EqualFold(string(stage), trimmed) {
			return stage, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q", raw)
}

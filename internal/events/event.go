// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"fieldgate_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Gates Domain Events
// =============================================================================

// GateCompleted is published after a gate passed validation and was written
// as complete.
type GateCompleted struct {
	BaseEvent
	GateID      uuid.UUID `json:"gateId"`
	JobID       uuid.UUID `json:"jobId"`
	Stage       string    `json:"stage"`
	ActorID     uuid.UUID `json:"actorId"`
	CompletedAt time.Time `json:"completedAt"`
	Warnings    []string  `json:"warnings,omitempty"`
	PhotoCount  int       `json:"photoCount"`
	// JobStatus is set when completing the gate changed the job status.
	JobStatus string `json:"jobStatus,omitempty"`
}

func (e GateCompleted) EventName() string { return "gates.gate.completed" }

// GateExceptionLogged is published when a gate was closed by exception.
type GateExceptionLogged struct {
	BaseEvent
	GateID  uuid.UUID `json:"gateId"`
	JobID   uuid.UUID `json:"jobId"`
	Stage   string    `json:"stage"`
	ActorID uuid.UUID `json:"actorId"`
	Reason  string    `json:"reason"`
}

func (e GateExceptionLogged) EventName() string { return "gates.gate.exception_logged" }

// JobFlaggedForReview is published when a job crossed the exception
// threshold and was queued for supervisor review.
type JobFlaggedForReview struct {
	BaseEvent
	JobID          uuid.UUID `json:"jobId"`
	ExceptionCount int       `json:"exceptionCount"`
	Threshold      int       `json:"threshold"`
	Stages         []string  `json:"stages"`
}

func (e JobFlaggedForReview) EventName() string { return "gates.job.flagged_for_review" }

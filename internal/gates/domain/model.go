package domain

import (
	"time"

	"github.com/google/uuid"
)

// Job is a restoration job visit. Each job owns exactly one gate per stage.
type Job struct {
	ID            uuid.UUID
	Title         string
	Address       string
	Status        JobStatus
	LeadTechID    uuid.UUID
	SiteLatitude  *float64
	SiteLongitude *float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Site returns the job's coordinates when both are known.
func (j *Job) Site() (lat, lon float64, ok bool) {
	if j.SiteLatitude == nil || j.SiteLongitude == nil {
		return 0, 0, false
	}
	return *j.SiteLatitude, *j.SiteLongitude, true
}

// Gate is a single checkpoint of a job.
type Gate struct {
	ID                uuid.UUID
	JobID             uuid.UUID
	Stage             Stage
	Status            GateStatus
	CompletedAt       *time.Time
	CompletedBy       *uuid.UUID
	RequiresException bool
	ExceptionReason   *string
	Metadata          Metadata
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// FindGate returns the gate of the given stage, or nil.
func FindGate(gates []Gate, stage Stage) *Gate {
	for i := range gates {
		if gates[i].Stage == stage {
			return &gates[i]
		}
	}
	return nil
}

// Photo is an uploaded piece of evidence. Photos are insert-only.
type Photo struct {
	ID          uuid.UUID
	JobID       uuid.UUID
	GateID      *uuid.UUID
	StoragePath string
	Metadata    PhotoMetadata
	IsPPE       bool
	TakenBy     uuid.UUID
	CreatedAt   time.Time
}

// BelongsTo reports whether the photo is attributed to gateID.
func (p *Photo) BelongsTo(gateID uuid.UUID) bool {
	return p.GateID != nil && *p.GateID == gateID
}

// GatePatch describes a gate write. Nil fields are left untouched.
type GatePatch struct {
	Status            *GateStatus
	CompletedAt       *time.Time
	CompletedBy       *uuid.UUID
	RequiresException *bool
	ExceptionReason   *string
	Metadata          Metadata

	// OnlyIfOpen makes the write conditional on the stored status not being
	// terminal. A gate that is already terminal yields ErrGateAlreadyResolved.
	OnlyIfOpen bool
	// OpenIfPending moves a pending gate to in_progress alongside the write.
	OpenIfPending bool
}

// JobPatch describes a job write. Nil fields are left untouched.
type JobPatch struct {
	Status     *JobStatus
	LeadTechID *uuid.UUID
}

// PhotoInput is the data needed to record an uploaded photo.
type PhotoInput struct {
	JobID       uuid.UUID
	GateID      *uuid.UUID
	StoragePath string
	Metadata    PhotoMetadata
	IsPPE       bool
	TakenBy     uuid.UUID
}

// NewJob is the data needed to create a job with its gates.
type NewJob struct {
	Title         string
	Address       string
	LeadTechID    uuid.UUID
	SiteLatitude  *float64
	SiteLongitude *float64
}

// JobFilter narrows ListJobs.
type JobFilter struct {
	LeadTechID *uuid.UUID
	Status     *JobStatus
	Limit      int
}

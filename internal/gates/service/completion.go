package service

import (
	"context"
	"strings"
	"time"

	"fieldgate_backend/internal/events"
	"fieldgate_backend/internal/gates/consistency"
	"fieldgate_backend/internal/gates/domain"
	"fieldgate_backend/internal/gates/evidence"
	"fieldgate_backend/internal/gates/validation"
	"fieldgate_backend/platform/sanitize"

	"github.com/google/uuid"
)

// CompleteGateInput is a completion request. Uploads are photos submitted
// together with the request; they count towards validation and are stored
// only when validation passes.
type CompleteGateInput struct {
	GateID  uuid.UUID
	ActorID uuid.UUID
	Uploads []Upload
}

// Completion is the outcome of a successful completion.
type Completion struct {
	Gate     *domain.Gate
	Job      *domain.Job
	Photos   []domain.Photo
	Warnings []string
}

// CompleteGate validates a gate and marks it complete.
//
// Required form fields are checked after the terminal and assignment
// checks, then the stage validator and cross-gate rules. Nothing is written
// when validation fails. Once validation passes the side effects run in
// order: staged photos are uploaded and recorded, Sign-offs gets its
// signature fingerprint, Departure updates the job status. The
// final gate write is conditional on the gate still being open; if it fails
// the job status change is reverted and the recorded photos are removed.
func (s *Service) CompleteGate(ctx context.Context, in CompleteGateInput) (*Completion, error) {
	gate, job, err := s.loadForMutation(ctx, in.GateID, in.ActorID, false)
	if err != nil {
		return nil, err
	}
	if err := s.checkRequiredFields(gate); err != nil {
		return nil, err
	}

	staged, err := s.stage(job, gate, in.ActorID, in.Uploads)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	res, err := s.evaluate(ctx, gate, job, staged.photos(), now)
	if err != nil {
		return nil, err
	}
	if !res.IsValid {
		s.log.GateBlocked(gate.ID.String(), string(gate.Stage), len(res.Errors), len(res.Warnings))
		return nil, validationFailed(res)
	}

	photos, err := s.persistUploads(ctx, gate, staged)
	if err != nil {
		return nil, err
	}

	patch := domain.GatePatch{
		Status:      ptr(domain.GateStatusComplete),
		CompletedAt: &now,
		CompletedBy: &in.ActorID,
		OnlyIfOpen:  true,
	}
	if m, ok := signoffMetadata(gate, now); ok {
		patch.Metadata = m
	}

	change, err := s.applyDepartureStatus(ctx, gate, job)
	if err != nil {
		s.discardPhotos(ctx, photos)
		return nil, err
	}

	updated, err := s.store.UpdateGate(ctx, gate.ID, patch)
	if err != nil {
		change.revert()
		s.discardPhotos(ctx, photos)
		return nil, mapError(err)
	}

	event := events.GateCompleted{
		BaseEvent:   events.NewBaseEvent(),
		GateID:      updated.ID,
		JobID:       updated.JobID,
		Stage:       string(updated.Stage),
		ActorID:     in.ActorID,
		CompletedAt: now,
		Warnings:    res.Warnings,
		PhotoCount:  len(photos),
	}
	if change.job != nil {
		job = change.job
		event.JobStatus = string(job.Status)
	}

	s.log.GateTransition(updated.ID.String(), updated.JobID.String(), string(updated.Stage), string(updated.Status), in.ActorID.String())
	s.eventBus.Publish(ctx, event)

	return &Completion{Gate: updated, Job: job, Photos: photos, Warnings: res.Warnings}, nil
}

// LogException closes a gate by exception. Validation is skipped entirely;
// the assignment check and a non-blank reason are still required.
func (s *Service) LogException(ctx context.Context, gateID, actorID uuid.UUID, reason string) (*domain.Gate, error) {
	gate, _, err := s.loadForMutation(ctx, gateID, actorID, false)
	if err != nil {
		return nil, err
	}

	cleaned := sanitize.Text(reason)
	if strings.TrimSpace(cleaned) == "" {
		return nil, mapError(domain.ErrInvalidExceptionReason)
	}

	now := s.now().UTC()
	updated, err := s.store.UpdateGate(ctx, gate.ID, domain.GatePatch{
		Status:            ptr(domain.GateStatusSkipped),
		CompletedAt:       &now,
		CompletedBy:       &actorID,
		RequiresException: ptr(true),
		ExceptionReason:   &cleaned,
		OnlyIfOpen:        true,
	})
	if err != nil {
		return nil, mapError(err)
	}

	s.log.GateTransition(updated.ID.String(), updated.JobID.String(), string(updated.Stage), string(updated.Status), actorID.String())
	s.eventBus.Publish(ctx, events.GateExceptionLogged{
		BaseEvent: events.NewBaseEvent(),
		GateID:    updated.ID,
		JobID:     updated.JobID,
		Stage:     string(updated.Stage),
		ActorID:   actorID,
		Reason:    cleaned,
	})

	return updated, nil
}

// ValidateGate is a dry run of the completion checks. It does not require
// the gate to be open or the caller to be assigned.
func (s *Service) ValidateGate(ctx context.Context, gateID, jobID uuid.UUID) (validation.Result, error) {
	gate, err := s.store.GetGate(ctx, gateID)
	if err != nil {
		return validation.Result{}, mapError(err)
	}
	if gate.JobID != jobID {
		return validation.Result{}, mapError(domain.ErrGateNotFound)
	}
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return validation.Result{}, mapError(err)
	}
	return s.evaluate(ctx, gate, job, nil, s.now().UTC())
}

// checkRequiredFields rejects form-driven stages whose required fields are
// missing. It runs after the terminal and assignment checks so those errors
// win over missing fields.
func (s *Service) checkRequiredFields(gate *domain.Gate) error {
	missing := s.validators.RequiredFields(gate)
	if len(missing) == 0 {
		return nil
	}
	s.log.GateBlocked(gate.ID.String(), string(gate.Stage), len(missing), 0)
	return validationFailed(validation.Result{IsValid: false, Errors: missing, Warnings: []string{}})
}

// evaluate runs the stage validator and, for Scope and Departure, the
// cross-gate rules over the stored photos plus extra.
func (s *Service) evaluate(ctx context.Context, gate *domain.Gate, job *domain.Job, extra []domain.Photo, now time.Time) (validation.Result, error) {
	stored, err := s.store.ListPhotos(ctx, job.ID, nil)
	if err != nil {
		return validation.Result{}, err
	}
	photos := append(stored, extra...)

	res := s.validators.Validate(validation.Input{Gate: gate, Job: job, Photos: photos})

	if !gate.RequiresException && s.checker.Applies(gate.Stage) {
		gates, err := s.store.ListGates(ctx, job.ID)
		if err != nil {
			return validation.Result{}, err
		}
		res = res.Merge(s.checker.Check(consistency.Input{Gate: gate, Gates: gates, Photos: photos, Now: now}))
	}
	return res, nil
}

// jobChange records a job status change made during completion.
type jobChange struct {
	job  *domain.Job
	undo func()
}

func (c jobChange) revert() {
	if c.undo != nil {
		c.undo()
	}
}

// applyDepartureStatus copies metadata.jobStatus onto the job when
// completing Departure. Unknown or unchanged statuses are ignored.
func (s *Service) applyDepartureStatus(ctx context.Context, gate *domain.Gate, job *domain.Job) (jobChange, error) {
	departure, ok := gate.Metadata.(*domain.DepartureMetadata)
	if !ok || gate.Stage != domain.StageDeparture {
		return jobChange{}, nil
	}
	next, err := domain.ParseJobStatus(departure.JobStatus)
	if err != nil || next == job.Status {
		return jobChange{}, nil
	}

	previous := job.Status
	updated, err := s.store.UpdateJob(ctx, job.ID, domain.JobPatch{Status: &next})
	if err != nil {
		return jobChange{}, mapError(err)
	}

	return jobChange{
		job: updated,
		undo: func() {
			if _, err := s.store.UpdateJob(context.WithoutCancel(ctx), job.ID, domain.JobPatch{Status: &previous}); err != nil {
				s.log.Error("failed to restore job status", "job_id", job.ID, "status", previous, "error", err)
			}
		},
	}, nil
}

// signoffMetadata stamps the signature fingerprint onto a Sign-offs payload.
func signoffMetadata(gate *domain.Gate, now time.Time) (domain.Metadata, bool) {
	current, ok := gate.Metadata.(*domain.SignoffsMetadata)
	if !ok || current == nil {
		return nil, false
	}
	fingerprint := evidence.SignatureFingerprint(current.Signature)
	if fingerprint == "" {
		return nil, false
	}
	stamped := *current
	stamped.SignatureFingerprint = fingerprint
	stamped.SignedAt = &now
	return &stamped, true
}

func ptr[T any](v T) *T {
	return &v
}

// Package service sequences the gate workflow: it loads state from the
// store, runs the stage validator and cross-gate rules, performs the side
// effects of a completion and writes the terminal status.
package service

import (
	"context"
	"errors"
	"time"

	"fieldgate_backend/internal/events"
	"fieldgate_backend/internal/gates/consistency"
	"fieldgate_backend/internal/gates/domain"
	"fieldgate_backend/internal/gates/monitor"
	"fieldgate_backend/internal/gates/ports"
	"fieldgate_backend/internal/gates/validation"
	"fieldgate_backend/platform/apperr"
	"fieldgate_backend/platform/logger"

	"github.com/google/uuid"
)

// Error messages returned to clients.
const (
	msgJobNotFound            = "job not found"
	msgGateNotFound           = "gate not found"
	msgPhotoNotFound          = "photo not found"
	msgNotAssigned            = "only the job's lead technician can change this gate"
	msgGateAlreadyResolved    = "gate is already resolved"
	msgValidationFailed       = "gate requirements are not met"
	msgInvalidExceptionReason = "an exception reason is required"
)

// Options tunes the service. Zero values fall back to defaults.
type Options struct {
	PhotoBucket       string
	UploadMaxAttempts int
	UploadRetryDelay  time.Duration
	// Now is the clock used for completion timestamps and the timestamp
	// ordering rule.
	Now func() time.Time
}

// Service implements the gate workflow operations.
type Service struct {
	store      ports.Store
	objects    ports.ObjectStorage
	signer     ports.URLSigner
	validators *validation.Registry
	checker    *consistency.Checker
	monitor    *monitor.Monitor
	eventBus   events.Bus
	log        *logger.Logger

	photoBucket string
	maxAttempts int
	retryDelay  time.Duration
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

// New creates a new gates service.
func New(store ports.Store, objects ports.ObjectStorage, validators *validation.Registry, checker *consistency.Checker, mon *monitor.Monitor, eventBus events.Bus, log *logger.Logger, opts Options) *Service {
	if opts.PhotoBucket == "" {
		opts.PhotoBucket = "gate-photos"
	}
	if opts.UploadMaxAttempts < 1 {
		opts.UploadMaxAttempts = 3
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		store:       store,
		objects:     objects,
		validators:  validators,
		checker:     checker,
		monitor:     mon,
		eventBus:    eventBus,
		log:         log,
		photoBucket: opts.PhotoBucket,
		maxAttempts: opts.UploadMaxAttempts,
		retryDelay:  opts.UploadRetryDelay,
		now:         opts.Now,
		sleep:       sleepContext,
	}
}

// SetURLSigner enables presigned photo downloads.
func (s *Service) SetURLSigner(signer ports.URLSigner) {
	s.signer = signer
}

// Monitor exposes the exception monitor for the review pipeline.
func (s *Service) Monitor() *monitor.Monitor {
	return s.monitor
}

// loadForMutation runs the shared preconditions of every gate write: the
// gate and its job exist, the gate is still open (unless allowResolved) and
// the actor is the job's lead technician.
func (s *Service) loadForMutation(ctx context.Context, gateID, actorID uuid.UUID, allowResolved bool) (*domain.Gate, *domain.Job, error) {
	gate, err := s.store.GetGate(ctx, gateID)
	if err != nil {
		return nil, nil, mapError(err)
	}
	job, err := s.store.GetJob(ctx, gate.JobID)
	if err != nil {
		return nil, nil, mapError(err)
	}
	if !allowResolved {
		if err := domain.EnsureResolvable(gate); err != nil {
			return nil, nil, mapError(err)
		}
	}
	if job.LeadTechID != actorID {
		return nil, nil, mapError(domain.ErrNotAssigned)
	}
	return gate, job, nil
}

// mapError converts domain sentinels into typed application errors. The
// sentinel stays reachable through errors.Is.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, domain.ErrJobNotFound):
		return apperr.Wrap(apperr.KindNotFound, msgJobNotFound, err)
	case errors.Is(err, domain.ErrGateNotFound):
		return apperr.Wrap(apperr.KindNotFound, msgGateNotFound, err)
	case errors.Is(err, domain.ErrPhotoNotFound):
		return apperr.Wrap(apperr.KindNotFound, msgPhotoNotFound, err)
	case errors.Is(err, domain.ErrNotAssigned):
		return apperr.Wrap(apperr.KindForbidden, msgNotAssigned, err)
	case errors.Is(err, domain.ErrGateAlreadyResolved):
		return apperr.Wrap(apperr.KindConflict, msgGateAlreadyResolved, err)
	case errors.Is(err, domain.ErrInvalidExceptionReason):
		return apperr.Wrap(apperr.KindBadRequest, msgInvalidExceptionReason, err)
	default:
		return err
	}
}

// validationFailed builds the error for a blocked completion. The result is
// attached as details so clients can show every message.
func validationFailed(res validation.Result) error {
	return apperr.Wrap(apperr.KindValidation, msgValidationFailed, domain.ErrValidationFailed).WithDetails(res)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

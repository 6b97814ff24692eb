package service

import (
	"context"

	"fieldgate_backend/internal/adapters/storage"
	"fieldgate_backend/internal/gates/domain"
	"fieldgate_backend/internal/gates/monitor"
	"fieldgate_backend/platform/apperr"
	"fieldgate_backend/platform/sanitize"

	"github.com/google/uuid"
)

// JobProgress is a job with its gates in stage order.
type JobProgress struct {
	Job      *domain.Job
	Gates    []domain.Gate
	Resolved int
	Total    int
}

func newProgress(job *domain.Job, gates []domain.Gate) *JobProgress {
	p := &JobProgress{Job: job, Gates: gates, Total: len(gates)}
	for _, g := range gates {
		if g.Status.IsTerminal() {
			p.Resolved++
		}
	}
	return p
}

// CreateJob creates a job assigned to a lead technician together with its
// seven pending gates.
func (s *Service) CreateJob(ctx context.Context, input domain.NewJob) (*JobProgress, error) {
	input.Title = sanitize.Text(input.Title)
	input.Address = sanitize.Text(input.Address)
	if input.Title == "" {
		return nil, apperr.BadRequest("job title is required")
	}
	if input.LeadTechID == uuid.Nil {
		return nil, apperr.BadRequest("a lead technician is required")
	}
	if (input.SiteLatitude == nil) != (input.SiteLongitude == nil) {
		return nil, apperr.BadRequest("site latitude and longitude must be set together")
	}

	job, gates, err := s.store.CreateJobWithGates(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}
	s.log.Info("job created", "job_id", job.ID, "lead_tech_id", job.LeadTechID)
	return newProgress(job, gates), nil
}

// ReassignJob changes the lead technician of a job. Gates already resolved
// keep their completed_by.
func (s *Service) ReassignJob(ctx context.Context, jobID, leadTechID uuid.UUID) (*domain.Job, error) {
	if leadTechID == uuid.Nil {
		return nil, apperr.BadRequest("a lead technician is required")
	}
	job, err := s.store.UpdateJob(ctx, jobID, domain.JobPatch{LeadTechID: &leadTechID})
	if err != nil {
		return nil, mapError(err)
	}
	s.log.Info("job reassigned", "job_id", job.ID, "lead_tech_id", leadTechID)
	return job, nil
}

// ListJobs returns jobs matching filter.
func (s *Service) ListJobs(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	return s.store.ListJobs(ctx, filter)
}

// ListJobGates returns a job's gates in stage order with a resolved count.
func (s *Service) ListJobGates(ctx context.Context, jobID uuid.UUID) (*JobProgress, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, mapError(err)
	}
	gates, err := s.store.ListGates(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return newProgress(job, gates), nil
}

// ListGatePhotos returns the photos attributed to a gate.
func (s *Service) ListGatePhotos(ctx context.Context, gateID uuid.UUID) ([]domain.Photo, error) {
	gate, err := s.store.GetGate(ctx, gateID)
	if err != nil {
		return nil, mapError(err)
	}
	return s.store.ListPhotos(ctx, gate.JobID, &gate.ID)
}

// CheckExceptionFrequency reports how many of a job's gates were closed by
// exception and whether the job needs supervisor review.
func (s *Service) CheckExceptionFrequency(ctx context.Context, jobID uuid.UUID) (monitor.Report, error) {
	if _, err := s.store.GetJob(ctx, jobID); err != nil {
		return monitor.Report{}, mapError(err)
	}
	gates, err := s.store.ListGates(ctx, jobID)
	if err != nil {
		return monitor.Report{}, err
	}
	return s.monitor.Evaluate(gates), nil
}

// PhotoDownloadURL returns a short-lived link to a photo. Only the job's
// lead technician and admins may fetch it.
func (s *Service) PhotoDownloadURL(ctx context.Context, photoID, actorID uuid.UUID, isAdmin bool) (*storage.PresignedURL, error) {
	if s.signer == nil {
		return nil, apperr.Unavailable("photo storage is not configured")
	}
	photo, err := s.store.GetPhoto(ctx, photoID)
	if err != nil {
		return nil, mapError(err)
	}
	if err := s.AuthorizeJobView(ctx, photo.JobID, actorID, isAdmin); err != nil {
		return nil, err
	}
	return s.signer.GenerateDownloadURL(ctx, s.photoBucket, photo.StoragePath)
}

// AuthorizeJobView allows reads of a job's gates, photos and reports to its
// lead technician and to admins.
func (s *Service) AuthorizeJobView(ctx context.Context, jobID, actorID uuid.UUID, isAdmin bool) error {
	if isAdmin {
		return nil
	}
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return mapError(err)
	}
	if job.LeadTechID != actorID {
		return mapError(domain.ErrNotAssigned)
	}
	return nil
}

// AuthorizeGateView is AuthorizeJobView for the job owning a gate. Unknown
// gates are reported as not found, even to admins.
func (s *Service) AuthorizeGateView(ctx context.Context, gateID, actorID uuid.UUID, isAdmin bool) error {
	gate, err := s.store.GetGate(ctx, gateID)
	if err != nil {
		return mapError(err)
	}
	return s.AuthorizeJobView(ctx, gate.JobID, actorID, isAdmin)
}

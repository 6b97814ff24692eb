package transport

import (
	"encoding/json"
	"time"

	"fieldgate_backend/internal/gates/domain"
	"fieldgate_backend/internal/gates/monitor"
	"fieldgate_backend/internal/gates/validation"

	"github.com/google/uuid"
)

// CreateJobRequest creates a job with its seven pending gates.
type CreateJobRequest struct {
	Title         string    `json:"title" validate:"required,notblank,max=200"`
	Address       string    `json:"address" validate:"max=500"`
	LeadTechID    uuid.UUID `json:"leadTechId" validate:"required"`
	SiteLatitude  *float64  `json:"siteLatitude" validate:"omitempty,latitude"`
	SiteLongitude *float64  `json:"siteLongitude" validate:"omitempty,longitude"`
}

// ReassignJobRequest moves a job to another lead technician.
type ReassignJobRequest struct {
	LeadTechID uuid.UUID `json:"leadTechId" validate:"required"`
}

// ListJobsQuery filters the job list.
type ListJobsQuery struct {
	Status string `form:"status" validate:"omitempty,oneof=lead in_progress ready_for_estimate needs_follow_up complete"`
	Limit  int    `form:"limit" validate:"omitempty,min=1,max=200"`
}

// LogExceptionRequest skips a gate with a reason.
type LogExceptionRequest struct {
	Reason string `json:"reason" validate:"required,notblank,max=2000"`
}

// SaveMetadataRequest is the autosave payload. Metadata is decoded against
// the gate's stage by the service.
type SaveMetadataRequest struct {
	Metadata json.RawMessage `json:"metadata" validate:"required"`
}

// UploadForm is the non-file part of a multipart photo upload.
type UploadForm struct {
	Room  string `form:"room" validate:"max=100"`
	Type  string `form:"type" validate:"max=100"`
	IsPPE bool   `form:"isPpe"`
}

// JobResponse is the response DTO for a job.
type JobResponse struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Address       string    `json:"address"`
	Status        string    `json:"status"`
	LeadTechID    uuid.UUID `json:"leadTechId"`
	SiteLatitude  *float64  `json:"siteLatitude,omitempty"`
	SiteLongitude *float64  `json:"siteLongitude,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// JobListResponse wraps a list of jobs.
type JobListResponse struct {
	Items []JobResponse `json:"items"`
}

// GateResponse is the response DTO for a gate. Metadata is the stage payload
// including any keys the server does not model.
type GateResponse struct {
	ID                uuid.UUID       `json:"id"`
	JobID             uuid.UUID       `json:"jobId"`
	Stage             string          `json:"stage"`
	Status            string          `json:"status"`
	CompletedAt       *time.Time      `json:"completedAt,omitempty"`
	CompletedBy       *uuid.UUID      `json:"completedBy,omitempty"`
	RequiresException bool            `json:"requiresException"`
	ExceptionReason   *string         `json:"exceptionReason,omitempty"`
	Metadata          json.RawMessage `json:"metadata"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// JobGatesResponse is the progress view of a job.
type JobGatesResponse struct {
	Job      JobResponse    `json:"job"`
	Gates    []GateResponse `json:"gates"`
	Resolved int            `json:"resolved"`
	Total    int            `json:"total"`
}

// PhotoResponse is the response DTO for a photo.
type PhotoResponse struct {
	ID          uuid.UUID  `json:"id"`
	JobID       uuid.UUID  `json:"jobId"`
	GateID      *uuid.UUID `json:"gateId,omitempty"`
	StoragePath string     `json:"storagePath"`
	Room        string     `json:"room,omitempty"`
	Type        string     `json:"type,omitempty"`
	IsPPE       bool       `json:"isPpe"`
	CapturedAt  *time.Time `json:"capturedAt,omitempty"`
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
	TakenBy     uuid.UUID  `json:"takenBy"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// PhotoListResponse wraps a list of photos.
type PhotoListResponse struct {
	Items []PhotoResponse `json:"items"`
}

// CompletionResponse is returned by a successful completion.
type CompletionResponse struct {
	Gate     GateResponse    `json:"gate"`
	Job      JobResponse     `json:"job"`
	Photos   []PhotoResponse `json:"photos"`
	Warnings []string        `json:"warnings"`
}

// ValidationResponse is the dry-run result of a gate's completion checks.
type ValidationResponse struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// ExceptionFrequencyResponse reports how many gates of a job were skipped.
type ExceptionFrequencyResponse struct {
	ExceptionCount int      `json:"exceptionCount"`
	NeedsReview    bool     `json:"needsReview"`
	Threshold      int      `json:"threshold"`
	Stages         []string `json:"stages"`
}

// PresignedDownloadResponse is the response containing the presigned URL for downloading.
type PresignedDownloadResponse struct {
	DownloadURL string `json:"downloadUrl"`
	ExpiresAt   int64  `json:"expiresAt"` // Unix timestamp
}

func ToJobResponse(j *domain.Job) JobResponse {
	return JobResponse{
		ID:            j.ID,
		Title:         j.Title,
		Address:       j.Address,
		Status:        string(j.Status),
		LeadTechID:    j.LeadTechID,
		SiteLatitude:  j.SiteLatitude,
		SiteLongitude: j.SiteLongitude,
		CreatedAt:     j.CreatedAt,
		UpdatedAt:     j.UpdatedAt,
	}
}

func ToJobListResponse(jobs []domain.Job) JobListResponse {
	items := make([]JobResponse, 0, len(jobs))
	for i := range jobs {
		items = append(items, ToJobResponse(&jobs[i]))
	}
	return JobListResponse{Items: items}
}

func ToGateResponse(g *domain.Gate) (GateResponse, error) {
	metadata, err := domain.EncodeMetadata(g.Metadata)
	if err != nil {
		return GateResponse{}, err
	}
	return GateResponse{
		ID:                g.ID,
		JobID:             g.JobID,
		Stage:             string(g.Stage),
		Status:            string(g.Status),
		CompletedAt:       g.CompletedAt,
		CompletedBy:       g.CompletedBy,
		RequiresException: g.RequiresException,
		ExceptionReason:   g.ExceptionReason,
		Metadata:          metadata,
		UpdatedAt:         g.UpdatedAt,
	}, nil
}

func ToGateResponses(gates []domain.Gate) ([]GateResponse, error) {
	out := make([]GateResponse, 0, len(gates))
	for i := range gates {
		resp, err := ToGateResponse(&gates[i])
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, nil
}

func ToPhotoResponse(p domain.Photo) PhotoResponse {
	return PhotoResponse{
		ID:          p.ID,
		JobID:       p.JobID,
		GateID:      p.GateID,
		StoragePath: p.StoragePath,
		Room:        p.Metadata.Room,
		Type:        p.Metadata.Type,
		IsPPE:       p.IsPPE,
		CapturedAt:  p.Metadata.CapturedAt,
		Latitude:    p.Metadata.Latitude,
		Longitude:   p.Metadata.Longitude,
		TakenBy:     p.TakenBy,
		CreatedAt:   p.CreatedAt,
	}
}

func ToPhotoListResponse(photos []domain.Photo) PhotoListResponse {
	items := make([]PhotoResponse, 0, len(photos))
	for _, p := range photos {
		items = append(items, ToPhotoResponse(p))
	}
	return PhotoListResponse{Items: items}
}

func ToValidationResponse(res validation.Result) ValidationResponse {
	return ValidationResponse{IsValid: res.IsValid, Errors: nonNil(res.Errors), Warnings: nonNil(res.Warnings)}
}

func ToExceptionFrequencyResponse(r monitor.Report) ExceptionFrequencyResponse {
	stages := make([]string, 0, len(r.Stages))
	for _, s := range r.Stages {
		stages = append(stages, string(s))
	}
	return ExceptionFrequencyResponse{
		ExceptionCount: r.ExceptionCount,
		NeedsReview:    r.NeedsReview,
		Threshold:      r.Threshold,
		Stages:         stages,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// Package ports defines what the gate workflow needs from the outside world.
// Implementations are wired by the composition root: the pgx repository for
// Store, the MinIO adapter for ObjectStorage.
package ports

import (
	"context"
	"io"

	"fieldgate_backend/internal/adapters/storage"
	"fieldgate_backend/internal/gates/domain"

	"github.com/google/uuid"
)

// Store is the entity store for jobs, gates and photos.
//
// Lookups return domain.ErrJobNotFound or domain.ErrGateNotFound when the row
// is missing. UpdateGate with OnlyIfOpen set must apply the write only while
// the stored status is not terminal and report domain.ErrGateAlreadyResolved
// otherwise; this is the serialization point between concurrent completers.
type Store interface {
	GetJob(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	GetGate(ctx context.Context, id uuid.UUID) (*domain.Gate, error)
	ListGates(ctx context.Context, jobID uuid.UUID) ([]domain.Gate, error)
	// ListPhotos returns the job's photos oldest first; a non-nil gateID
	// restricts the result to that gate.
	ListPhotos(ctx context.Context, jobID uuid.UUID, gateID *uuid.UUID) ([]domain.Photo, error)
	UpdateGate(ctx context.Context, id uuid.UUID, patch domain.GatePatch) (*domain.Gate, error)
	UpdateJob(ctx context.Context, id uuid.UUID, patch domain.JobPatch) (*domain.Job, error)
	CreatePhoto(ctx context.Context, input domain.PhotoInput) (*domain.Photo, error)
	GetPhoto(ctx context.Context, id uuid.UUID) (*domain.Photo, error)
	// DeletePhotos is the compensation for CreatePhoto when the completion
	// that recorded the photos fails afterwards.
	DeletePhotos(ctx context.Context, ids []uuid.UUID) error

	// CreateJobWithGates inserts the job and one pending gate per stage
	// atomically.
	CreateJobWithGates(ctx context.Context, job domain.NewJob) (*domain.Job, []domain.Gate, error)
	ListJobs(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error)
}

// ObjectStorage is the subset of the storage adapter used for photo objects.
type ObjectStorage interface {
	UploadFile(ctx context.Context, bucket, folder, fileName, contentType string, reader io.Reader, size int64) (string, error)
	DeleteObject(ctx context.Context, bucket, objectKey string) error
}

// URLSigner issues short-lived download links for stored photos.
type URLSigner interface {
	GenerateDownloadURL(ctx context.Context, bucket, fileKey string) (*storage.PresignedURL, error)
}

package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"fieldgate_backend/internal/adapters/storage"
	"fieldgate_backend/internal/gates/domain"
	"fieldgate_backend/internal/gates/evidence"
	"fieldgate_backend/platform/apperr"
	"fieldgate_backend/platform/sanitize"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Upload is a photo submitted by a technician. Data is held in memory so a
// failed attempt can be retried from the start.
type Upload struct {
	FileName    string
	ContentType string
	Data        []byte
	Room        string
	Type        string
	IsPPE       bool
}

// stagedUpload pairs an upload with the photo it will become.
type stagedUpload struct {
	upload Upload
	photo  domain.Photo
}

type stagedUploads []stagedUpload

func (s stagedUploads) photos() []domain.Photo {
	out := make([]domain.Photo, len(s))
	for i := range s {
		out[i] = s[i].photo
	}
	return out
}

// stage checks uploads and describes them as photos of gate so validation
// can count them before anything is stored.
func (s *Service) stage(job *domain.Job, gate *domain.Gate, actorID uuid.UUID, uploads []Upload) (stagedUploads, error) {
	staged := make(stagedUploads, 0, len(uploads))
	for _, up := range uploads {
		if err := storage.ValidateContentType(up.ContentType); err != nil {
			return nil, uploadError(err)
		}
		if err := storage.ValidateFileSize(int64(len(up.Data)), 0); err != nil {
			return nil, uploadError(err)
		}

		gateID := gate.ID
		staged = append(staged, stagedUpload{
			upload: up,
			photo: domain.Photo{
				JobID:    job.ID,
				GateID:   &gateID,
				Metadata: photoMetadata(gate.Stage, up),
				IsPPE:    up.IsPPE,
				TakenBy:  actorID,
			},
		})
	}
	return staged, nil
}

func photoMetadata(stage domain.Stage, up Upload) domain.PhotoMetadata {
	meta := domain.PhotoMetadata{
		Room:        sanitize.Text(up.Room),
		Type:        strings.TrimSpace(up.Type),
		ContentType: storage.NormalizeContentType(up.ContentType),
	}
	if meta.Type == "" && stage == domain.StageArrival {
		meta.Type = domain.PhotoTypeArrival
	}

	info := evidence.ExtractBytes(up.Data)
	meta.CapturedAt = info.CapturedAt
	meta.Latitude = info.Latitude
	meta.Longitude = info.Longitude
	return meta
}

// persistUploads uploads every staged photo concurrently and records them.
// If any upload fails for good, the objects that did upload are deleted and
// nothing is recorded. If recording fails, the photos recorded so far and
// the objects without a row are deleted.
func (s *Service) persistUploads(ctx context.Context, gate *domain.Gate, staged stagedUploads) ([]domain.Photo, error) {
	if len(staged) == 0 {
		return []domain.Photo{}, nil
	}

	folder := photoFolder(gate)
	keys := make([]string, len(staged))

	g, gctx := errgroup.WithContext(ctx)
	for i := range staged {
		i := i
		g.Go(func() error {
			key, err := s.uploadWithRetry(gctx, folder, staged[i].upload)
			if err != nil {
				return err
			}
			keys[i] = key
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.deleteObjects(ctx, keys)
		return nil, uploadError(err)
	}

	photos := make([]domain.Photo, 0, len(staged))
	for i, item := range staged {
		photo, err := s.store.CreatePhoto(ctx, domain.PhotoInput{
			JobID:       item.photo.JobID,
			GateID:      item.photo.GateID,
			StoragePath: keys[i],
			Metadata:    item.photo.Metadata,
			IsPPE:       item.photo.IsPPE,
			TakenBy:     item.photo.TakenBy,
		})
		if err != nil {
			s.discardPhotos(ctx, photos)
			s.deleteObjects(ctx, keys[i:])
			return nil, mapError(err)
		}
		photos = append(photos, *photo)
	}
	return photos, nil
}

// discardPhotos backs out photos recorded by persistUploads: rows first,
// then their objects. Objects stay when the rows cannot be removed so no
// row points at a missing object.
func (s *Service) discardPhotos(ctx context.Context, photos []domain.Photo) {
	if len(photos) == 0 {
		return
	}
	ids := make([]uuid.UUID, 0, len(photos))
	keys := make([]string, 0, len(photos))
	for _, p := range photos {
		ids = append(ids, p.ID)
		keys = append(keys, p.StoragePath)
	}
	if err := s.store.DeletePhotos(context.WithoutCancel(ctx), ids); err != nil {
		s.log.Error("failed to delete photo rows", "count", len(ids), "error", err)
		return
	}
	s.deleteObjects(ctx, keys)
}

// uploadWithRetry retries transient failures with a linearly growing delay.
func (s *Service) uploadWithRetry(ctx context.Context, folder string, up Upload) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		key, err := s.objects.UploadFile(ctx, s.photoBucket, folder, up.FileName, storage.NormalizeContentType(up.ContentType), bytes.NewReader(up.Data), int64(len(up.Data)))
		if err == nil {
			return key, nil
		}
		lastErr = err

		if !storage.Classify(err).Retryable() || attempt == s.maxAttempts {
			break
		}
		s.log.Warn("photo upload failed, retrying", "file", up.FileName, "attempt", attempt, "error", err)
		if err := s.sleep(ctx, s.retryDelay*time.Duration(attempt)); err != nil {
			return "", err
		}
	}
	return "", lastErr
}

// deleteObjects removes uploaded objects on a best-effort basis. It runs on
// a context that survives the caller's cancellation.
func (s *Service) deleteObjects(ctx context.Context, keys []string) {
	cleanup := context.WithoutCancel(ctx)
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.objects.DeleteObject(cleanup, s.photoBucket, key); err != nil {
			s.log.Error("failed to delete orphaned photo", "key", key, "error", err)
		}
	}
}

// uploadError maps an upload failure to a typed error with a message the
// technician can act on.
func uploadError(err error) error {
	kind := storage.Classify(err)
	wrapped := fmt.Errorf("%w: %w", domain.ErrUploadFailed, err)

	switch kind {
	case storage.FailurePermission:
		return apperr.Wrap(apperr.KindForbidden, kind.Message(), wrapped)
	case storage.FailureTooLarge, storage.FailureUnsupportedType:
		return apperr.Wrap(apperr.KindBadRequest, kind.Message(), wrapped)
	default:
		return apperr.Wrap(apperr.KindUnavailable, kind.Message(), wrapped)
	}
}

func photoFolder(gate *domain.Gate) string {
	return fmt.Sprintf("jobs/%s/gates/%s", gate.JobID, gate.ID)
}

// CapturePhotoInput is a photo taken outside a completion request, such as
// the room-by-room capture flow of the Photos gate.
type CapturePhotoInput struct {
	GateID  uuid.UUID
	ActorID uuid.UUID
	Upload  Upload
}

// CapturePhoto stores a photo against an open gate.
func (s *Service) CapturePhoto(ctx context.Context, in CapturePhotoInput) (*domain.Photo, error) {
	gate, job, err := s.loadForMutation(ctx, in.GateID, in.ActorID, false)
	if err != nil {
		return nil, err
	}

	staged, err := s.stage(job, gate, in.ActorID, []Upload{in.Upload})
	if err != nil {
		return nil, err
	}

	photos, err := s.persistUploads(ctx, gate, staged)
	if err != nil {
		return nil, err
	}
	return &photos[0], nil
}

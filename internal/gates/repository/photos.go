package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"fieldgate_backend/internal/gates/domain"

	"github.com/google/uuid"
)

const photoColumns = `id, job_id, gate_id, storage_path, metadata, is_ppe, taken_by, created_at`

func scanPhoto(row rowScanner) (*domain.Photo, error) {
	var p domain.Photo
	var metadata []byte
	if err := row.Scan(&p.ID, &p.JobID, &p.GateID, &p.StoragePath, &metadata, &p.IsPPE, &p.TakenBy, &p.CreatedAt); err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &p.Metadata); err != nil {
			return nil, fmt.Errorf("photo %s metadata: %w", p.ID, err)
		}
	}
	return &p, nil
}

// CreatePhoto records an uploaded photo. Photos are never updated.
func (r *Repository) CreatePhoto(ctx context.Context, input domain.PhotoInput) (*domain.Photo, error) {
	metadata, err := json.Marshal(input.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode photo metadata: %w", err)
	}

	query := `
		INSERT INTO photos (id, job_id, gate_id, storage_path, metadata, is_ppe, taken_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + photoColumns

	photo, err := scanPhoto(r.pool.QueryRow(ctx, query,
		uuid.New(), input.JobID, input.GateID, input.StoragePath, metadata, input.IsPPE, input.TakenBy, r.now().UTC(),
	))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to create photo: %w", err)
	}
	return photo, nil
}

// DeletePhotos removes photo rows. It only backs out photos recorded by a
// completion whose gate write did not go through.
func (r *Repository) DeletePhotos(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.pool.Exec(ctx, `DELETE FROM photos WHERE id = ANY($1::uuid[])`, ids); err != nil {
		return fmt.Errorf("failed to delete photos: %w", err)
	}
	return nil
}

// ListPhotos returns the photos of a job oldest first, optionally limited to
// one gate.
func (r *Repository) ListPhotos(ctx context.Context, jobID uuid.UUID, gateID *uuid.UUID) ([]domain.Photo, error) {
	query := `
		SELECT ` + photoColumns + `
		FROM photos
		WHERE job_id = $1
		  AND ($2::uuid IS NULL OR gate_id = $2)
		ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, jobID, gateID)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	defer rows.Close()

	photos := make([]domain.Photo, 0)
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate photos: %w", err)
	}
	return photos, nil
}

// GetPhoto loads a photo by id.
func (r *Repository) GetPhoto(ctx context.Context, id uuid.UUID) (*domain.Photo, error) {
	photo, err := scanPhoto(r.pool.QueryRow(ctx, `SELECT `+photoColumns+` FROM photos WHERE id = $1`, id))
	if err != nil {
		return nil, mapNoRows(err, domain.ErrPhotoNotFound, "failed to get photo")
	}
	return photo, nil
}

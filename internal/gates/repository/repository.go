// Package repository is the Postgres entity store for jobs, gates and
// photos. It implements ports.Store with raw SQL over pgx.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fieldgate_backend/internal/gates/domain"
	"fieldgate_backend/internal/gates/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides database operations for the gate workflow.
type Repository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// New creates a new gates repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, now: time.Now}
}

var _ ports.Store = (*Repository)(nil)

const (
	jobColumns  = `id, title, address, status, lead_tech_id, site_latitude, site_longitude, created_at, updated_at`
	gateColumns = `id, job_id, stage_name, status, completed_at, completed_by, requires_exception, exception_reason, metadata, created_at, updated_at`
)

// rowScanner is satisfied by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var j domain.Job
	var status string
	if err := row.Scan(&j.ID, &j.Title, &j.Address, &status, &j.LeadTechID, &j.SiteLatitude, &j.SiteLongitude, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, err
	}
	j.Status = domain.JobStatus(status)
	return &j, nil
}

func scanGate(row rowScanner) (*domain.Gate, error) {
	var g domain.Gate
	var stage, status string
	var metadata []byte
	if err := row.Scan(&g.ID, &g.JobID, &stage, &status, &g.CompletedAt, &g.CompletedBy, &g.RequiresException, &g.ExceptionReason, &metadata, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	g.Stage = domain.Stage(stage)
	g.Status = domain.GateStatus(status)

	decoded, err := domain.DecodeMetadata(g.Stage, metadata)
	if err != nil {
		return nil, fmt.Errorf("gate %s: %w", g.ID, err)
	}
	g.Metadata = decoded
	return &g, nil
}

// GetJob loads a job by id.
func (r *Repository) GetJob(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	job, err := scanJob(r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if err != nil {
		return nil, mapNoRows(err, domain.ErrJobNotFound, "failed to get job")
	}
	return job, nil
}

// GetGate loads a gate by id.
func (r *Repository) GetGate(ctx context.Context, id uuid.UUID) (*domain.Gate, error) {
	gate, err := scanGate(r.pool.QueryRow(ctx, `SELECT `+gateColumns+` FROM gates WHERE id = $1`, id))
	if err != nil {
		return nil, mapNoRows(err, domain.ErrGateNotFound, "failed to get gate")
	}
	return gate, nil
}

// ListGates returns the gates of a job in stage order.
func (r *Repository) ListGates(ctx context.Context, jobID uuid.UUID) ([]domain.Gate, error) {
	query := `
		SELECT ` + gateColumns + `
		FROM gates
		WHERE job_id = $1
		ORDER BY array_position($2::text[], stage_name), stage_name`

	rows, err := r.pool.Query(ctx, query, jobID, stageNames())
	if err != nil {
		return nil, fmt.Errorf("failed to list gates: %w", err)
	}
	defer rows.Close()

	gates := make([]domain.Gate, 0, 7)
	for rows.Next() {
		g, err := scanGate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan gate: %w", err)
		}
		gates = append(gates, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate gates: %w", err)
	}
	return gates, nil
}

// UpdateGate applies a patch. With OnlyIfOpen the row is only written while
// its status is not terminal; the check and the write are one statement so
// two concurrent completions cannot both succeed.
func (r *Repository) UpdateGate(ctx context.Context, id uuid.UUID, patch domain.GatePatch) (*domain.Gate, error) {
	var status *string
	if patch.Status != nil {
		s := string(*patch.Status)
		status = &s
	}

	var metadata []byte
	if patch.Metadata != nil {
		encoded, err := domain.EncodeMetadata(patch.Metadata)
		if err != nil {
			return nil, err
		}
		metadata = encoded
	}

	query := `
		UPDATE gates SET
			status = CASE
				WHEN $2::text IS NOT NULL THEN $2::text
				WHEN $8 AND status = 'pending' THEN 'in_progress'
				ELSE status
			END,
			completed_at = COALESCE($3, completed_at),
			completed_by = COALESCE($4, completed_by),
			requires_exception = COALESCE($5, requires_exception),
			exception_reason = COALESCE($6, exception_reason),
			metadata = COALESCE($7::jsonb, metadata),
			updated_at = $9
		WHERE id = $1
		  AND (NOT $10 OR status NOT IN ('complete', 'skipped'))
		RETURNING ` + gateColumns

	gate, err := scanGate(r.pool.QueryRow(ctx, query,
		id, status, patch.CompletedAt, patch.CompletedBy, patch.RequiresException,
		patch.ExceptionReason, metadata, patch.OpenIfPending, r.now().UTC(), patch.OnlyIfOpen,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.missingGateError(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update gate: %w", err)
	}
	return gate, nil
}

// missingGateError tells a lost race apart from a missing row.
func (r *Repository) missingGateError(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM gates WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check gate: %w", err)
	}
	if exists {
		return domain.ErrGateAlreadyResolved
	}
	return domain.ErrGateNotFound
}

// UpdateJob applies a patch to a job.
func (r *Repository) UpdateJob(ctx context.Context, id uuid.UUID, patch domain.JobPatch) (*domain.Job, error) {
	var status *string
	if patch.Status != nil {
		s := string(*patch.Status)
		status = &s
	}

	query := `
		UPDATE jobs SET
			status = COALESCE($2, status),
			lead_tech_id = COALESCE($3, lead_tech_id),
			updated_at = $4
		WHERE id = $1
		RETURNING ` + jobColumns

	job, err := scanJob(r.pool.QueryRow(ctx, query, id, status, patch.LeadTechID, r.now().UTC()))
	if err != nil {
		return nil, mapNoRows(err, domain.ErrJobNotFound, "failed to update job")
	}
	return job, nil
}

// CreateJobWithGates inserts a job and its seven pending gates in one
// transaction.
func (r *Repository) CreateJobWithGates(ctx context.Context, input domain.NewJob) (*domain.Job, []domain.Gate, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := r.now().UTC()
	job, err := scanJob(tx.QueryRow(ctx, `
		INSERT INTO jobs (id, title, address, status, lead_tech_id, site_latitude, site_longitude, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING `+jobColumns,
		uuid.New(), input.Title, input.Address, string(domain.JobStatusLead), input.LeadTechID,
		input.SiteLatitude, input.SiteLongitude, now,
	))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to insert job: %w", err)
	}

	batch := &pgx.Batch{}
	for _, stage := range domain.Stages() {
		batch.Queue(`
			INSERT INTO gates (id, job_id, stage_name, status, metadata, created_at, updated_at)
			VALUES ($1, $2, $3, 'pending', '{}'::jsonb, $4, $4)
			RETURNING `+gateColumns,
			uuid.New(), job.ID, string(stage), now,
		)
	}

	results := tx.SendBatch(ctx, batch)
	gates := make([]domain.Gate, 0, 7)
	for range domain.Stages() {
		g, err := scanGate(results.QueryRow())
		if err != nil {
			_ = results.Close()
			return nil, nil, fmt.Errorf("failed to insert gate: %w", err)
		}
		gates = append(gates, *g)
	}
	if err := results.Close(); err != nil {
		return nil, nil, fmt.Errorf("failed to insert gates: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit job: %w", err)
	}
	return job, gates, nil
}

// ListJobs returns jobs newest first.
func (r *Repository) ListJobs(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var status *string
	if filter.Status != nil {
		s := string(*filter.Status)
		status = &s
	}

	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE ($1::uuid IS NULL OR lead_tech_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, filter.LeadTechID, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]domain.Job, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate jobs: %w", err)
	}
	return jobs, nil
}

func stageNames() []string {
	stages := domain.Stages()
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = string(s)
	}
	return names
}

// mapNoRows turns pgx.ErrNoRows into the given domain error and wraps
// everything else with msg.
func mapNoRows(err, notFound error, msg string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// isForeignKeyViolation reports a Postgres foreign_key_violation.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

package exports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExceptionRecord is a gate that was closed by exception, with its job.
type ExceptionRecord struct {
	JobID      uuid.UUID
	JobTitle   string
	JobAddress string
	JobStatus  string
	LeadTechID uuid.UUID
	GateID     uuid.UUID
	Stage      string
	Reason     string
	LoggedBy   *uuid.UUID
	LoggedAt   *time.Time
}

// Repository reads exception history for exports.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListExceptions returns exception-flagged gates logged in [from, to),
// oldest first.
func (r *Repository) ListExceptions(ctx context.Context, from, to time.Time, limit int) ([]ExceptionRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT j.id, j.title, j.address, j.status, j.lead_tech_id,
			g.id, g.stage_name, coalesce(g.exception_reason, ''), g.completed_by, g.completed_at
		FROM gates g
		JOIN jobs j ON j.id = g.job_id
		WHERE g.requires_exception
			AND g.completed_at >= $1 AND g.completed_at < $2
		ORDER BY g.completed_at ASC, j.id, g.stage_name
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]ExceptionRecord, 0)
	for rows.Next() {
		var item ExceptionRecord
		if err := rows.Scan(
			&item.JobID,
			&item.JobTitle,
			&item.JobAddress,
			&item.JobStatus,
			&item.LeadTechID,
			&item.GateID,
			&item.Stage,
			&item.Reason,
			&item.LoggedBy,
			&item.LoggedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Package exports renders the gate exception audit as a spreadsheet.
package exports

import (
	apphttp "fieldgate_backend/internal/http"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the exports bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	repo    *Repository
}

// NewModule creates and initializes the exports module.
func NewModule(pool *pgxpool.Pool, threshold int) *Module {
	repo := NewRepository(pool)
	return &Module{
		handler: NewHandler(repo, threshold),
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "exports"
}

// Repository returns the exception reader for the CLI.
func (m *Module) Repository() *Repository {
	return m.repo
}

// RegisterRoutes mounts export routes on the admin group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Admin.GET("/exports/exceptions.xlsx", m.handler.ExportExceptions)
}

var _ apphttp.Module = (*Module)(nil)

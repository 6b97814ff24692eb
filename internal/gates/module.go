// Package gates provides the job gate workflow bounded context module.
// This file defines the module that wires the engine and registers its routes.
package gates

import (
	"fieldgate_backend/internal/adapters/storage"
	"fieldgate_backend/internal/events"
	"fieldgate_backend/internal/gates/consistency"
	"fieldgate_backend/internal/gates/handler"
	"fieldgate_backend/internal/gates/monitor"
	"fieldgate_backend/internal/gates/ports"
	"fieldgate_backend/internal/gates/repository"
	"fieldgate_backend/internal/gates/service"
	"fieldgate_backend/internal/gates/validation"
	apphttp "fieldgate_backend/internal/http"
	"fieldgate_backend/platform/config"
	"fieldgate_backend/platform/logger"
	"fieldgate_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config is what the module reads from application configuration.
type Config interface {
	config.GatePolicyConfig
	GetMinioBucketGatePhotos() string
	GetMinIOMaxFileSize() int64
}

// Module is the gates bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the gates module with all its dependencies.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, storageSvc storage.StorageService, val *validator.Validator, cfg Config, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := NewService(repo, storageSvc, eventBus, cfg, cfg.GetMinioBucketGatePhotos(), log)
	svc.SetURLSigner(storageSvc)

	return &Module{
		handler: handler.New(svc, val, cfg.GetMinIOMaxFileSize()),
		service: svc,
		repo:    repo,
	}
}

// NewService assembles the engine from configuration. The CLI uses it
// directly without the HTTP layer.
func NewService(store ports.Store, objects ports.ObjectStorage, eventBus events.Bus, cfg config.GatePolicyConfig, bucket string, log *logger.Logger) *service.Service {
	return service.New(
		store,
		objects,
		validation.NewRegistry(validation.Options{
			GeofenceRadiusMeters: cfg.GetGeofenceRadiusMeters(),
			PhoneRegion:          cfg.GetPhoneDefaultRegion(),
		}),
		consistency.NewChecker(),
		monitor.New(cfg.GetExceptionReviewThreshold()),
		eventBus,
		log,
		service.Options{
			PhotoBucket:       bucket,
			UploadMaxAttempts: cfg.GetUploadMaxAttempts(),
			UploadRetryDelay:  cfg.GetUploadRetryDelay(),
		},
	)
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "gates"
}

// Service returns the gate service for other modules.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the gate repository for read-side consumers such as exports.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts gate routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	var mutations []gin.HandlerFunc
	if ctx.MutationLimiter != nil {
		mutations = append(mutations, ctx.MutationLimiter.RateLimit())
	}
	m.handler.RegisterRoutes(ctx.Protected, mutations...)
	m.handler.RegisterAdminRoutes(ctx.Admin)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)

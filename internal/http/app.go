package http

import (
	"context"

	"fieldgate_backend/internal/events"
	"fieldgate_backend/platform/config"
	"fieldgate_backend/platform/logger"
)

// RouterConfig combines the config interfaces needed by the HTTP router.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker is a dependency the readiness probe pings.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthCheck names a probed dependency in the /api/health response.
type HealthCheck struct {
	Name    string
	Checker HealthChecker
}

// App is what the composition root hands to the router.
type App struct {
	Config RouterConfig
	Logger *logger.Logger
	// Health is probed in order; any failure turns the probe 503.
	Health   []HealthCheck
	EventBus events.Bus
	Modules  []Module
}

// Package http holds the contract between the router and the bounded
// context modules that mount routes on it.
package http

import (
	"fieldgate_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Module is a bounded context with HTTP routes.
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext carries the route groups modules mount on.
type RouterContext struct {
	// V1 is /api/v1 without authentication.
	V1 *gin.RouterGroup
	// Protected requires a valid access token; the actor id comes from it.
	Protected *gin.RouterGroup
	// Admin is /api/v1/admin and additionally requires the admin role.
	Admin *gin.RouterGroup
	// MutationLimiter throttles routes that write gate state or upload photos.
	// Nil disables throttling.
	MutationLimiter *httpkit.IPRateLimiter
}

// Package router contains API routing logic
package router

import (
	"time"

	"github.com/danielgtaylor/huma/v2"

	v1 "github.com/masumi-network/registry-service/internal/registry/api/handlers/v1"
	"github.com/masumi-network/registry-service/internal/registry/service"
)

// RegisterRoutes registers all API routes under /api/v1.
func RegisterRoutes(api huma.API, registry service.RegistryService, startedAt time.Time) {
	pathPrefix := "/api/v1"

	v1.RegisterHealthEndpoint(api, pathPrefix, startedAt)
	v1.RegisterPingEndpoint(api, pathPrefix)
	v1.RegisterEntriesEndpoints(api, pathPrefix, registry)
	v1.RegisterCapabilitiesEndpoints(api, pathPrefix, registry)
	v1.RegisterSourcesEndpoints(api, pathPrefix, registry)
}

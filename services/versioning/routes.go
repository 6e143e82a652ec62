// Copyright (C) 2025 StackCanvas (oss@stackcanvas.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package versioning

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all versioning routes with the router.
//
// Description:
//
//	Registers all /v1/versioning/* endpoints with the given Gin router
//	group. The router group should already have any required middleware
//	applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	POST /v1/versioning/:app_id/init - Initialize the version tree
//	GET  /v1/versioning/:app_id/tree - Get the full version tree
//	POST /v1/versioning/:app_id/versions - Commit a new version
//	GET  /v1/versioning/:app_id/versions/:version_id - Get one version
//	POST /v1/versioning/:app_id/versions/:version_id/revert - Revert to a version
//	POST /v1/versioning/:app_id/branches - Create a branch
//	POST /v1/versioning/:app_id/branches/:branch_id/switch - Switch branches
//	GET  /v1/versioning/:app_id/compare - Compare two versions
//
// Health Endpoints:
//
//	GET  /v1/versioning/health - Health check
//	GET  /v1/versioning/ready - Readiness check
//
// Example:
//
//	svc := versioning.NewService(versioning.DefaultServiceConfig(), store)
//	handlers := versioning.NewHandlers(svc)
//
//	v1 := router.Group("/v1")
//	versioning.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	vers := rg.Group("/versioning")
	{
		// Health checks
		vers.GET("/health", handlers.HandleHealth)
		vers.GET("/ready", handlers.HandleReady)

		app := vers.Group("/:app_id")
		{
			// Tree lifecycle
			app.POST("/init", handlers.HandleInit)
			app.GET("/tree", handlers.HandleTree)

			// Versions
			app.POST("/versions", handlers.HandleCreateVersion)
			app.GET("/versions/:version_id", handlers.HandleGetVersion)
			app.POST("/versions/:version_id/revert", handlers.HandleRevert)

			// Branches
			app.POST("/branches", handlers.HandleCreateBranch)
			app.POST("/branches/:branch_id/switch", handlers.HandleSwitchBranch)

			// Comparison
			app.GET("/compare", handlers.HandleCompare)
		}
	}
}

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
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stackcanvas/stackcanvas/pkg/validation"
)

// ServiceVersion is the versioning service version.
const ServiceVersion = "0.1.0"

// Handlers contains the HTTP handlers for the versioning service.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleInit handles POST /v1/versioning/:app_id/init.
//
// Description:
//
//	Creates the version tree for an app with a "main" branch and one
//	root version wrapping the submitted snapshot. Idempotent: an
//	already initialized app returns its existing tree unchanged.
//
// Response:
//
//	200 OK: TreeResponse
//	400 Bad Request: Validation error
//	500 Internal Server Error: Processing error
func (h *Handlers) HandleInit(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	appID, ok := appIDParam(c)
	if !ok {
		return
	}
	logger := slog.With("request_id", requestID, "handler", "HandleInit", "app_id", appID)

	var req InitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}
	if err := validateSnapshot(req.Code); err != nil {
		logger.Warn("Invalid snapshot", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_SNAPSHOT",
		})
		return
	}

	tree, err := h.svc.InitializeVersionSystem(c.Request.Context(), appID, req.Code)
	if err != nil {
		h.writeError(c, logger, err, "INIT_FAILED")
		return
	}

	c.JSON(http.StatusOK, TreeResponse{Tree: tree})
}

// HandleTree handles GET /v1/versioning/:app_id/tree.
//
// Response:
//
//	200 OK: TreeResponse
//	404 Not Found: App was never initialized
func (h *Handlers) HandleTree(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	appID, ok := appIDParam(c)
	if !ok {
		return
	}
	logger := slog.With("request_id", requestID, "handler", "HandleTree", "app_id", appID)

	tree, found, err := h.svc.GetVersionTree(c.Request.Context(), appID)
	if err != nil {
		h.writeError(c, logger, err, "TREE_FAILED")
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "app has no version tree",
			Code:  "NOT_FOUND",
		})
		return
	}

	c.JSON(http.StatusOK, TreeResponse{Tree: tree})
}

// HandleCreateVersion handles POST /v1/versioning/:app_id/versions.
//
// Response:
//
//	201 Created: AppVersion
//	400 Bad Request: Validation error or invalid parent
//	404 Not Found: App or branch absent
//	409 Conflict: Concurrent modification exhausted retries
func (h *Handlers) HandleCreateVersion(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	appID, ok := appIDParam(c)
	if !ok {
		return
	}
	logger := slog.With("request_id", requestID, "handler", "HandleCreateVersion", "app_id", appID)

	var req CreateVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}
	if err := req.Validate(); err != nil {
		logger.Warn("Request failed validation", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return
	}

	version, err := h.svc.CreateVersion(c.Request.Context(), appID, CommitRequest{
		BranchID:       req.BranchID,
		Code:           req.Code,
		Message:        req.Message,
		Description:    req.Description,
		AuthorID:       req.AuthorID,
		Tags:           req.Tags,
		ParentOverride: req.ParentVersionIDs,
	})
	if err != nil {
		h.writeError(c, logger, err, "CREATE_VERSION_FAILED")
		return
	}

	c.JSON(http.StatusCreated, version)
}

// HandleGetVersion handles GET /v1/versioning/:app_id/versions/:version_id.
func (h *Handlers) HandleGetVersion(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	appID, ok := appIDParam(c)
	if !ok {
		return
	}
	logger := slog.With("request_id", requestID, "handler", "HandleGetVersion", "app_id", appID)

	version, err := h.svc.GetVersion(c.Request.Context(), appID, c.Param("version_id"))
	if err != nil {
		h.writeError(c, logger, err, "GET_VERSION_FAILED")
		return
	}

	c.JSON(http.StatusOK, version)
}

// HandleRevert handles POST /v1/versioning/:app_id/versions/:version_id/revert.
//
// Description:
//
//	Commits a new version whose code equals the target version's code.
//	History is never rewritten; the target stays in place.
//
// Response:
//
//	201 Created: AppVersion
//	404 Not Found: App or target version absent
func (h *Handlers) HandleRevert(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	appID, ok := appIDParam(c)
	if !ok {
		return
	}
	logger := slog.With("request_id", requestID, "handler", "HandleRevert", "app_id", appID)

	// The body is optional; an empty body means the default message.
	var req RevertRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Warn("Invalid request body", "error", err)
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "Invalid request body",
				Code:  "INVALID_REQUEST",
			})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: err.Error(),
				Code:  "INVALID_REQUEST",
			})
			return
		}
	}

	version, err := h.svc.RevertToVersion(c.Request.Context(), appID, c.Param("version_id"), req.Message)
	if err != nil {
		h.writeError(c, logger, err, "REVERT_FAILED")
		return
	}

	c.JSON(http.StatusCreated, version)
}

// HandleCreateBranch handles POST /v1/versioning/:app_id/branches.
//
// Response:
//
//	201 Created: VersionBranch
//	409 Conflict: Branch name already taken
func (h *Handlers) HandleCreateBranch(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	appID, ok := appIDParam(c)
	if !ok {
		return
	}
	logger := slog.With("request_id", requestID, "handler", "HandleCreateBranch", "app_id", appID)

	var req CreateBranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return
	}
	if err := validation.ValidateBranchName(req.Name); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_BRANCH_NAME",
		})
		return
	}

	branch, err := h.svc.CreateBranch(c.Request.Context(), appID, BranchRequest{
		Name:          req.Name,
		Description:   req.Description,
		FromVersionID: req.FromVersionID,
		AuthorID:      req.AuthorID,
	})
	if err != nil {
		h.writeError(c, logger, err, "CREATE_BRANCH_FAILED")
		return
	}

	c.JSON(http.StatusCreated, branch)
}

// HandleSwitchBranch handles POST /v1/versioning/:app_id/branches/:branch_id/switch.
func (h *Handlers) HandleSwitchBranch(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	appID, ok := appIDParam(c)
	if !ok {
		return
	}
	logger := slog.With("request_id", requestID, "handler", "HandleSwitchBranch", "app_id", appID)

	if err := h.svc.SwitchBranch(c.Request.Context(), appID, c.Param("branch_id")); err != nil {
		h.writeError(c, logger, err, "SWITCH_BRANCH_FAILED")
		return
	}

	tree, found, err := h.svc.GetVersionTree(c.Request.Context(), appID)
	if err != nil || !found {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, TreeResponse{Tree: tree})
}

// HandleCompare handles GET /v1/versioning/:app_id/compare.
//
// Query Parameters:
//
//	version_a: First version id (required)
//	version_b: Second version id (required)
//
// Response:
//
//	200 OK: VersionComparison
//	400 Bad Request: Missing query parameter
//	404 Not Found: Either version absent
func (h *Handlers) HandleCompare(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	appID, ok := appIDParam(c)
	if !ok {
		return
	}
	logger := slog.With("request_id", requestID, "handler", "HandleCompare", "app_id", appID)

	versionA := c.Query("version_a")
	versionB := c.Query("version_b")
	if versionA == "" || versionB == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "version_a and version_b query parameters are required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	comparison, err := h.svc.CompareVersions(c.Request.Context(), appID, versionA, versionB)
	if err != nil {
		h.writeError(c, logger, err, "COMPARE_FAILED")
		return
	}

	c.JSON(http.StatusOK, comparison)
}

// HandleHealth handles GET /v1/versioning/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: "versioning",
		Version: ServiceVersion,
	})
}

// HandleReady handles GET /v1/versioning/ready.
func (h *Handlers) HandleReady(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ready",
		Service: "versioning",
		Version: ServiceVersion,
	})
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// writeError maps an engine error onto an HTTP status and error code.
func (h *Handlers) writeError(c *gin.Context, logger *slog.Logger, err error, fallbackCode string) {
	status := http.StatusInternalServerError
	code := fallbackCode

	switch {
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
		code = "NOT_FOUND"
	case errors.Is(err, ErrDuplicateName):
		status = http.StatusConflict
		code = "DUPLICATE_NAME"
	case errors.Is(err, ErrInvalidParent):
		status = http.StatusBadRequest
		code = "INVALID_PARENT"
	case errors.Is(err, ErrConcurrentModification):
		status = http.StatusConflict
		code = "CONCURRENT_MODIFICATION"
	case errors.Is(err, ErrSerialization):
		status = http.StatusBadRequest
		code = "INVALID_SNAPSHOT"
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "error", err)
	} else {
		logger.Warn("Request rejected", "error", err)
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

// appIDParam validates the :app_id path parameter. On failure it writes
// the 400 response and returns ok=false.
func appIDParam(c *gin.Context) (string, bool) {
	appID := c.Param("app_id")
	if err := validation.ValidateAppID(appID); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_APP_ID",
		})
		return "", false
	}
	return appID, true
}

// getOrCreateRequestID returns the inbound request id, minting one when
// the client did not send an X-Request-ID header.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}

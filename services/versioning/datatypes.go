// Copyright (C) 2025 StackCanvas (oss@stackcanvas.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file contains request and response types for the versioning HTTP
// endpoints. The engine-level types live in types.go.

package versioning

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Request Limits
// =============================================================================

const (
	// MaxMessageBytes is the maximum size of a commit message.
	MaxMessageBytes = 4 * 1024

	// MaxDescriptionBytes is the maximum size of a version or branch
	// description.
	MaxDescriptionBytes = 16 * 1024

	// MaxTagsPerRequest is the maximum number of tags on one version.
	MaxTagsPerRequest = 32

	// MaxPayloadsPerSnapshot is the maximum number of named payloads in
	// one snapshot. The byte size of the snapshot itself is enforced by
	// the diff engine's size guard, not here.
	MaxPayloadsPerSnapshot = 256
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// versioningValidate is the validator instance for versioning datatypes.
// Initialized in init() with custom validators.
var versioningValidate *validator.Validate

func init() {
	versioningValidate = validator.New()

	_ = versioningValidate.RegisterValidation("maxmsgbytes", validateMaxMessageBytes)
	_ = versioningValidate.RegisterValidation("maxdescbytes", validateMaxDescriptionBytes)
	_ = versioningValidate.RegisterValidation("maxtags", validateMaxTags)
}

// validateMaxMessageBytes checks byte length (not rune count) so large
// multi-byte payloads cannot slip past a character limit.
func validateMaxMessageBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxMessageBytes
}

func validateMaxDescriptionBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxDescriptionBytes
}

func validateMaxTags(fl validator.FieldLevel) bool {
	return fl.Field().Len() <= MaxTagsPerRequest
}

// validateSnapshot checks the request-level snapshot constraints that
// the validator tags cannot express on a map field. Payload content and
// name validity are checked again during canonicalization; this is the
// cheap early rejection.
func validateSnapshot(code Snapshot) error {
	if len(code) == 0 {
		return fmt.Errorf("snapshot must contain at least one payload")
	}
	if len(code) > MaxPayloadsPerSnapshot {
		return fmt.Errorf("snapshot has %d payloads, limit is %d", len(code), MaxPayloadsPerSnapshot)
	}
	return nil
}

// =============================================================================
// Request Types
// =============================================================================

// InitRequest is the body of POST /v1/versioning/:app_id/init.
type InitRequest struct {
	// Code is the initial snapshot, payload name to content.
	Code Snapshot `json:"code" binding:"required"`
}

// CreateVersionRequest is the body of POST /v1/versioning/:app_id/versions.
type CreateVersionRequest struct {
	// Code is the snapshot to record.
	Code Snapshot `json:"code" binding:"required"`

	// Message is the commit message.
	Message string `json:"message" validate:"required,maxmsgbytes"`

	// Description is an optional longer description.
	Description string `json:"description,omitempty" validate:"omitempty,maxdescbytes"`

	// BranchID selects the branch. Empty means the current branch.
	BranchID string `json:"branch_id,omitempty"`

	// AuthorID optionally identifies the author.
	AuthorID string `json:"author_id,omitempty"`

	// Tags are optional free-form labels.
	Tags []string `json:"tags,omitempty" validate:"omitempty,maxtags"`

	// ParentVersionIDs, when non-empty, overrides the default parent.
	// More than one entry records a merge commit.
	ParentVersionIDs []string `json:"parent_version_ids,omitempty"`
}

// Validate applies the request-level limits.
func (r *CreateVersionRequest) Validate() error {
	if err := versioningValidate.Struct(r); err != nil {
		return err
	}
	return validateSnapshot(r.Code)
}

// CreateBranchRequest is the body of POST /v1/versioning/:app_id/branches.
type CreateBranchRequest struct {
	// Name is the branch name, unique per app.
	Name string `json:"name" validate:"required,min=1,max=128"`

	// Description is optional.
	Description string `json:"description,omitempty" validate:"omitempty,maxdescbytes"`

	// FromVersionID is the fork point. Empty means the current head.
	FromVersionID string `json:"from_version_id,omitempty"`

	// AuthorID optionally identifies the creator.
	AuthorID string `json:"author_id,omitempty"`
}

// Validate applies the request-level limits.
func (r *CreateBranchRequest) Validate() error {
	return versioningValidate.Struct(r)
}

// RevertRequest is the body of POST /v1/versioning/:app_id/versions/:version_id/revert.
type RevertRequest struct {
	// Message overrides the default revert message.
	Message string `json:"message,omitempty" validate:"omitempty,maxmsgbytes"`
}

// Validate applies the request-level limits.
func (r *RevertRequest) Validate() error {
	return versioningValidate.Struct(r)
}

// =============================================================================
// Response Types
// =============================================================================

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// TreeResponse wraps a version tree for GET /v1/versioning/:app_id/tree.
type TreeResponse struct {
	Tree *VersionTree `json:"tree"`
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

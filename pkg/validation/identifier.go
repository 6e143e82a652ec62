// Copyright (C) 2025 StackCanvas (oss@stackcanvas.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided inputs that end up
// in database keys and log lines. Using these validators keeps hostile
// identifiers out of the key space (oversized keys, control characters,
// separator smuggling).
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// appIDPattern matches valid app identifiers.
// Allows: letters, digits, hyphens, underscores. No dots or colons, so
// an app id can never collide with a key-space separator.
// Max length: 64 characters.
var appIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_\-]{0,63}$`)

// branchNamePattern matches valid branch names.
// Allows: letters, digits, dots, hyphens, underscores, and forward
// slashes for grouped names like "feature/dark-mode".
// Max length: 128 characters.
var branchNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._/\-]{0,127}$`)

// ValidateAppID validates an app identifier before it is used as part
// of a database key.
//
// Valid app ids:
//   - 1-64 characters
//   - Letters, digits, hyphens, underscores
//   - Must start with a letter or digit
//
// Returns an error if the id is invalid.
//
// Example:
//
//	if err := validation.ValidateAppID(appID); err != nil {
//	    return nil, fmt.Errorf("invalid app id: %w", err)
//	}
//	// Safe to use in a database key
func ValidateAppID(appID string) error {
	if appID == "" {
		return fmt.Errorf("app id cannot be empty")
	}

	if !appIDPattern.MatchString(appID) {
		return fmt.Errorf("invalid app id format: %q (must be 1-64 alphanumeric chars, hyphens, or underscores)", appID)
	}

	return nil
}

// ValidateBranchName validates a branch name.
//
// Valid branch names:
//   - 1-128 characters
//   - Letters, digits, dots, hyphens, underscores, forward slashes
//   - Must start with a letter or digit
//   - No empty path segments ("a//b" is rejected)
//
// Returns an error if the name is invalid.
func ValidateBranchName(name string) error {
	if name == "" {
		return fmt.Errorf("branch name cannot be empty")
	}

	if !branchNamePattern.MatchString(name) {
		return fmt.Errorf("invalid branch name format: %q (must be 1-128 chars of letters, digits, dots, hyphens, underscores, or slashes)", name)
	}

	if strings.Contains(name, "//") || strings.HasSuffix(name, "/") {
		return fmt.Errorf("invalid branch name format: %q (empty path segment)", name)
	}

	return nil
}

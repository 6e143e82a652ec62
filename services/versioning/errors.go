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

	"github.com/stackcanvas/stackcanvas/services/versioning/diff"
)

// Sentinel errors for the versioning engine. Every failure a caller
// can act on matches one of these with errors.Is.
var (
	// ErrNotFound is returned when a referenced version, branch, or app
	// tree is absent.
	ErrNotFound = errors.New("not found")

	// ErrInvalidParent is returned when a supplied parent version does
	// not belong to the same app.
	ErrInvalidParent = errors.New("parent version does not belong to this app")

	// ErrDuplicateName is returned on a branch name collision within an app.
	ErrDuplicateName = errors.New("branch name already exists")

	// ErrConcurrentModification is returned when an optimistic write
	// lost the race. Callers should retry the whole operation, not just
	// the save.
	ErrConcurrentModification = errors.New("tree was modified concurrently")

	// ErrDiffTooLarge is the diff engine's size-guard error. It is the
	// one recoverable category: the caller still receives degraded
	// stats rather than a hard failure.
	ErrDiffTooLarge = diff.ErrTooLarge

	// ErrSerialization is returned when a snapshot cannot be
	// canonicalized for hashing or diffing.
	ErrSerialization = diff.ErrSerialization
)

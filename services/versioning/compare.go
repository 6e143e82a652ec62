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
	"fmt"

	"github.com/stackcanvas/stackcanvas/services/versioning/diff"
)

// Compare diffs two versions of the same tree.
//
// # Description
//
// Looks up both versions and diffs their snapshots. A tripped size
// guard is not a failure: the comparison comes back with Degraded set
// and coarse size-delta stats, per the engine's degraded-result
// contract.
//
// # Outputs
//
//   - *VersionComparison: The comparison, including a degraded one.
//   - error: ErrNotFound if either version is absent;
//     ErrSerialization if a stored snapshot cannot be canonicalized.
func Compare(tree *VersionTree, engine *diff.Engine, versionIDA, versionIDB string) (*VersionComparison, error) {
	versionA := tree.Version(versionIDA)
	if versionA == nil {
		return nil, fmt.Errorf("version %s: %w", versionIDA, ErrNotFound)
	}
	versionB := tree.Version(versionIDB)
	if versionB == nil {
		return nil, fmt.Errorf("version %s: %w", versionIDB, ErrNotFound)
	}

	result, err := engine.Compare(versionA.Code, versionB.Code)
	if err != nil && !errors.Is(err, diff.ErrTooLarge) {
		return nil, fmt.Errorf("diff %s..%s: %w", versionIDA, versionIDB, err)
	}

	return &VersionComparison{
		VersionA: *versionA,
		VersionB: *versionB,
		Diff: DiffResult{
			Unified:  result.Unified,
			Stats:    statsFromDiff(result.Stats),
			Degraded: result.Degraded,
		},
	}, nil
}

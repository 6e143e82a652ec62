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
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"
	"lukechampine.com/blake3"
)

// branchPalette is the fixed set of branch display colors. The color
// is a pure function of the branch name, so persisted trees render
// identically across reloads.
var branchPalette = []string{
	"#2563eb", // blue
	"#16a34a", // green
	"#d97706", // amber
	"#dc2626", // red
	"#7c3aed", // violet
	"#0891b2", // cyan
	"#db2777", // pink
	"#65a30d", // lime
	"#ea580c", // orange
	"#475569", // slate
}

// BranchColor maps a branch name into the fixed palette.
func BranchColor(name string) string {
	sum := blake3.Sum256([]byte(name))
	idx := binary.BigEndian.Uint32(sum[:4]) % uint32(len(branchPalette))
	return branchPalette[idx]
}

// BranchRequest describes one branch to create.
type BranchRequest struct {
	// Name is the branch name, unique per app.
	Name string

	// Description is optional.
	Description string

	// FromVersionID is the fork point. Empty means the current head.
	FromVersionID string

	// AuthorID optionally identifies the creator.
	AuthorID string
}

// CreateBranch adds a branch to the tree.
//
// # Description
//
// The new branch forks from FromVersionID, defaulting to the tree's
// current head. Creating a branch does not switch to it; the caller
// decides. The branch starts with no commits of its own, so its
// effective head is its base version and its first commit will get
// InternalVersion 1.
//
// # Outputs
//
//   - *VersionBranch: The created branch (points into the tree).
//   - error: ErrDuplicateName on a name collision; ErrNotFound if
//     FromVersionID is supplied but absent.
func CreateBranch(tree *VersionTree, req BranchRequest) (*VersionBranch, error) {
	if tree.BranchByName(req.Name) != nil {
		return nil, fmt.Errorf("branch %q: %w", req.Name, ErrDuplicateName)
	}

	baseID := req.FromVersionID
	if baseID == "" {
		baseID = tree.CurrentVersion
	} else if tree.Version(baseID) == nil {
		return nil, fmt.Errorf("fork version %s: %w", baseID, ErrNotFound)
	}

	branch := VersionBranch{
		ID:            uuid.NewString(),
		Name:          req.Name,
		Description:   req.Description,
		Color:         BranchColor(req.Name),
		BaseVersionID: baseID,
		IsActive:      false,
		CreatedAt:     time.Now().UnixMilli(),
	}
	tree.Branches = append(tree.Branches, branch)
	return &tree.Branches[len(tree.Branches)-1], nil
}

// SwitchBranch makes the given branch the single active branch.
//
// # Description
//
// Sets IsActive on the target, clears it everywhere else, and moves
// the tree's current version to the target's effective head: its own
// latest commit, or its base version while it has none.
//
// # Outputs
//
//   - error: ErrNotFound if the branch is absent.
func SwitchBranch(tree *VersionTree, branchID string) error {
	target := tree.Branch(branchID)
	if target == nil {
		return fmt.Errorf("branch %s: %w", branchID, ErrNotFound)
	}

	for i := range tree.Branches {
		tree.Branches[i].IsActive = tree.Branches[i].ID == branchID
	}
	tree.CurrentBranch = target.ID
	tree.CurrentVersion = tree.headVersionID(target)
	return nil
}

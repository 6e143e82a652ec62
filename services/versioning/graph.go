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
	"time"

	"github.com/google/uuid"

	"github.com/stackcanvas/stackcanvas/services/versioning/diff"
)

// CommitRequest describes one version to create.
type CommitRequest struct {
	// BranchID selects the branch to commit on. Empty means the tree's
	// current branch.
	BranchID string

	// Code is the snapshot to record.
	Code Snapshot

	// Message is the commit message.
	Message string

	// Description is an optional longer description.
	Description string

	// AuthorID optionally identifies the author.
	AuthorID string

	// Tags are optional free-form labels.
	Tags []string

	// ParentOverride, when non-empty, replaces the default parent (the
	// branch head) with an explicit parent list. More than one entry
	// records a merge commit. Every entry must exist in the app's
	// version set.
	ParentOverride []string
}

// CreateVersion appends a new version to the tree.
//
// # Description
//
// Resolves the parent as the branch's effective head unless the
// request carries an explicit parent override, computes change counts
// against the first parent with the given diff engine, and assigns the
// next per-branch sequence number. The branch's own sequence starts at
// 1 at its fork point; numbering is never reused.
//
// If the target branch is the active branch, the tree's current
// version advances to the new version.
//
// # Outputs
//
//   - *AppVersion: The created version (points into the tree).
//   - error: ErrNotFound if the branch is absent; ErrInvalidParent if
//     an override parent is not in this app's version set;
//     ErrSerialization if the snapshot cannot be canonicalized.
//
// A degraded diff (ErrDiffTooLarge) is not a failure: the version is
// created with the coarse stats the engine returned.
func CreateVersion(tree *VersionTree, engine *diff.Engine, req CommitRequest) (*AppVersion, error) {
	branchID := req.BranchID
	if branchID == "" {
		branchID = tree.CurrentBranch
	}
	branch := tree.Branch(branchID)
	if branch == nil {
		return nil, fmt.Errorf("branch %s: %w", branchID, ErrNotFound)
	}

	parents, err := resolveParents(tree, branch, req.ParentOverride)
	if err != nil {
		return nil, err
	}

	changes, err := changesAgainstParent(tree, engine, req.Code, parents)
	if err != nil {
		return nil, err
	}

	contentHash, err := diff.Fingerprint(req.Code)
	if err != nil {
		return nil, fmt.Errorf("fingerprint snapshot: %w", err)
	}

	internal := 1
	if head := tree.BranchHead(branch.ID); head != nil {
		internal = head.InternalVersion + 1
	}

	version := AppVersion{
		ID:              uuid.NewString(),
		AppID:           tree.AppID,
		BranchID:        branch.ID,
		InternalVersion: internal,
		VersionNumber:   fmt.Sprintf("%d.0.0", internal),
		Code:            req.Code,
		ContentHash:     contentHash,
		Metadata: VersionMetadata{
			Message:     req.Message,
			Description: req.Description,
			Timestamp:   time.Now().UnixMilli(),
			AuthorID:    req.AuthorID,
			Tags:        normalizeTags(req.Tags),
			Changes:     changes,
		},
		ParentVersionIDs: parents,
		MergeInfo:        MergeInfo{IsMergeCommit: len(parents) > 1},
	}

	tree.Versions = append(tree.Versions, version)
	if branch.ID == tree.CurrentBranch {
		tree.CurrentVersion = version.ID
	}
	return &tree.Versions[len(tree.Versions)-1], nil
}

// GetVersion returns the version with the given id.
func GetVersion(tree *VersionTree, versionID string) (*AppVersion, error) {
	if v := tree.Version(versionID); v != nil {
		return v, nil
	}
	return nil, fmt.Errorf("version %s: %w", versionID, ErrNotFound)
}

// resolveParents determines the parent list for a new commit.
func resolveParents(tree *VersionTree, branch *VersionBranch, override []string) ([]string, error) {
	if len(override) > 0 {
		for _, parentID := range override {
			if tree.Version(parentID) == nil {
				return nil, fmt.Errorf("parent %s: %w", parentID, ErrInvalidParent)
			}
		}
		parents := make([]string, len(override))
		copy(parents, override)
		return parents, nil
	}

	if headID := tree.headVersionID(branch); headID != "" {
		return []string{headID}, nil
	}
	// Root commit of the root branch.
	return nil, nil
}

// changesAgainstParent diffs the new snapshot against the first
// parent's snapshot. Root commits count zero changes. A tripped size
// guard degrades to the engine's coarse stats instead of failing.
func changesAgainstParent(tree *VersionTree, engine *diff.Engine, code Snapshot, parents []string) (ChangeStats, error) {
	if len(parents) == 0 {
		// Still canonicalize so an invalid snapshot fails up front.
		if _, err := diff.Canonicalize(code); err != nil {
			return ChangeStats{}, err
		}
		return ChangeStats{}, nil
	}

	parent := tree.Version(parents[0])
	if parent == nil {
		return ChangeStats{}, fmt.Errorf("parent %s: %w", parents[0], ErrInvalidParent)
	}

	result, err := engine.Compare(parent.Code, code)
	if err != nil && !errors.Is(err, diff.ErrTooLarge) {
		return ChangeStats{}, err
	}
	return statsFromDiff(result.Stats), nil
}

// normalizeTags deduplicates tags preserving first-seen order.
func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// Copyright (C) 2025 StackCanvas (oss@stackcanvas.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package versioning implements the embedded version-control engine
// for generated app code.
//
// # Description
//
// The engine records every generated snapshot as an immutable version
// in a per-app branch/version graph, supports branching and reverts,
// and computes deterministic diffs between any two versions. It is a
// library with a thin HTTP surface; the surrounding application (chat
// UI, LLM pipeline, sandbox runtime) stays outside it.
//
// All operations are expressed over a value-oriented VersionTree:
// stateless functions take a tree, validate, and mutate the caller's
// copy. The only shared mutable state lives behind the TreeStore
// compare-and-swap boundary.
//
// # Thread Safety
//
// Service is safe for concurrent use. Bare tree operations
// (CreateVersion, CreateBranch, SwitchBranch) mutate the tree they
// are given and must not share one tree across goroutines.
package versioning

import (
	"github.com/stackcanvas/stackcanvas/services/versioning/diff"
)

// Snapshot is one unit of generated application code. See diff.Snapshot.
type Snapshot = diff.Snapshot

// =============================================================================
// Change Stats
// =============================================================================

// ChangeStats summarizes the line-level changes a version introduced
// relative to its first parent.
type ChangeStats struct {
	Additions     int `json:"additions"`
	Deletions     int `json:"deletions"`
	Modifications int `json:"modifications"`
}

// IsZero returns true if no changes were counted.
func (s ChangeStats) IsZero() bool {
	return s.Additions == 0 && s.Deletions == 0 && s.Modifications == 0
}

// statsFromDiff converts engine stats into persisted change stats.
func statsFromDiff(s diff.Stats) ChangeStats {
	return ChangeStats{
		Additions:     s.Additions,
		Deletions:     s.Deletions,
		Modifications: s.Modifications,
	}
}

// =============================================================================
// Versions
// =============================================================================

// VersionMetadata is the author-supplied and derived metadata of a version.
type VersionMetadata struct {
	// Message is the commit message.
	Message string `json:"message"`

	// Description is an optional longer description.
	Description string `json:"description,omitempty"`

	// Timestamp is the creation time (Unix milliseconds UTC).
	Timestamp int64 `json:"timestamp"`

	// AuthorID identifies the author, when the caller supplies one.
	AuthorID string `json:"author_id,omitempty"`

	// Tags is a set of free-form labels.
	Tags []string `json:"tags,omitempty"`

	// Changes counts the lines this version changed relative to its
	// first parent. All zero for a root version.
	Changes ChangeStats `json:"changes"`
}

// MergeInfo marks versions with more than one parent.
//
// The engine records caller-supplied merge parents but never computes
// a merge itself; there is no conflict resolution.
type MergeInfo struct {
	IsMergeCommit bool `json:"is_merge_commit"`
}

// AppVersion is one immutable snapshot of an app's generated code.
//
// Once written, Code, Metadata, and ParentVersionIDs never change.
type AppVersion struct {
	// ID is the opaque unique version identifier.
	ID string `json:"id"`

	// AppID is the owning application.
	AppID string `json:"app_id"`

	// BranchID is the branch this version was committed on.
	BranchID string `json:"branch_id"`

	// InternalVersion is strictly increasing within a branch, starting
	// at 1 at the branch's fork point. Never reused.
	InternalVersion int `json:"internal_version"`

	// VersionNumber is the display string derived from InternalVersion
	// (e.g. "3.0.0"). Recomputed, never user-editable.
	VersionNumber string `json:"version_number"`

	// Code is the snapshot this version records.
	Code Snapshot `json:"code"`

	// ContentHash is the BLAKE3 fingerprint of the canonical snapshot.
	ContentHash string `json:"content_hash"`

	// Metadata carries message, author, tags, and change counts.
	Metadata VersionMetadata `json:"metadata"`

	// ParentVersionIDs is empty for a root version, has one entry for a
	// normal commit, and more than one for a merge commit.
	ParentVersionIDs []string `json:"parent_version_ids,omitempty"`

	// MergeInfo is derived from ParentVersionIDs.
	MergeInfo MergeInfo `json:"merge_info"`
}

// =============================================================================
// Branches
// =============================================================================

// VersionBranch is one branch of an app's version graph.
type VersionBranch struct {
	// ID is the opaque unique branch identifier.
	ID string `json:"id"`

	// Name is unique per app.
	Name string `json:"name"`

	// Description is optional.
	Description string `json:"description,omitempty"`

	// Color is a display color derived deterministically from Name.
	Color string `json:"color"`

	// BaseVersionID is the version the branch forked from; empty for
	// the root branch. Never changes once set.
	BaseVersionID string `json:"base_version_id,omitempty"`

	// IsActive is true for exactly one branch per app.
	IsActive bool `json:"is_active"`

	// CreatedAt is the creation time (Unix milliseconds UTC).
	CreatedAt int64 `json:"created_at"`
}

// =============================================================================
// Tree
// =============================================================================

// VersionTree is the full persisted version state of one app.
type VersionTree struct {
	// AppID is the owning application.
	AppID string `json:"app_id"`

	// Branches holds every branch of the app.
	Branches []VersionBranch `json:"branches"`

	// Versions holds every version of the app, append-only.
	Versions []AppVersion `json:"versions"`

	// CurrentBranch is the id of the active branch.
	CurrentBranch string `json:"current_branch"`

	// CurrentVersion is the id of the active branch's head.
	CurrentVersion string `json:"current_version"`

	// Revision increments on every successful save and guards the
	// store's compare-and-swap.
	Revision uint64 `json:"revision"`
}

// Initialized returns true once the tree has its root branch.
func (t *VersionTree) Initialized() bool {
	return len(t.Branches) > 0
}

// Branch returns the branch with the given id, or nil.
func (t *VersionTree) Branch(branchID string) *VersionBranch {
	for i := range t.Branches {
		if t.Branches[i].ID == branchID {
			return &t.Branches[i]
		}
	}
	return nil
}

// BranchByName returns the branch with the given name, or nil.
func (t *VersionTree) BranchByName(name string) *VersionBranch {
	for i := range t.Branches {
		if t.Branches[i].Name == name {
			return &t.Branches[i]
		}
	}
	return nil
}

// Version returns the version with the given id, or nil.
func (t *VersionTree) Version(versionID string) *AppVersion {
	for i := range t.Versions {
		if t.Versions[i].ID == versionID {
			return &t.Versions[i]
		}
	}
	return nil
}

// BranchHead returns the branch's own latest version (the one with
// the highest InternalVersion committed on it), or nil if the branch
// has no commits of its own yet.
func (t *VersionTree) BranchHead(branchID string) *AppVersion {
	var head *AppVersion
	for i := range t.Versions {
		v := &t.Versions[i]
		if v.BranchID != branchID {
			continue
		}
		if head == nil || v.InternalVersion > head.InternalVersion {
			head = v
		}
	}
	return head
}

// headVersionID resolves a branch's effective head: its own latest
// commit, or its base version while it has no commits yet.
func (t *VersionTree) headVersionID(branch *VersionBranch) string {
	if head := t.BranchHead(branch.ID); head != nil {
		return head.ID
	}
	return branch.BaseVersionID
}

// =============================================================================
// Comparison
// =============================================================================

// DiffResult is the rendered diff between two versions.
type DiffResult struct {
	// Unified is the unified-diff text; empty when the versions are
	// equal, a truncation marker when the diff was degraded.
	Unified string `json:"unified"`

	// Stats are the line-level change counts.
	Stats ChangeStats `json:"stats"`

	// Degraded is true when the diff size guard tripped and Stats carry
	// only a coarse size delta.
	Degraded bool `json:"degraded,omitempty"`
}

// VersionComparison is the transient result of comparing two versions.
// It is never persisted.
type VersionComparison struct {
	VersionA AppVersion `json:"version_a"`
	VersionB AppVersion `json:"version_b"`
	Diff     DiffResult `json:"diff"`
}

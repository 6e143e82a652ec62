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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/stackcanvas/stackcanvas/services/versioning/diff"
)

// TreeStore is the persistence boundary of the engine.
//
// # Description
//
// Implementations persist one VersionTree per app id and provide
// atomic read-modify-write: Save loads the current tree (or a fresh
// empty one), applies the mutator, and persists the result as a single
// atomic operation, failing with ErrConcurrentModification if another
// writer got in between. The tree's Revision counter increments on
// every successful save.
type TreeStore interface {
	// Load returns the tree for an app, or found=false if none exists.
	Load(ctx context.Context, appID string) (tree *VersionTree, found bool, err error)

	// Save atomically applies mutate to the app's tree and persists the
	// result. A mutator error aborts the save and is returned verbatim;
	// no partial write survives.
	Save(ctx context.Context, appID string, mutate func(*VersionTree) error) (*VersionTree, error)
}

// ServiceConfig configures the versioning service.
type ServiceConfig struct {
	// MaxSaveRetries is how many times a lost compare-and-swap race is
	// retried before surfacing ErrConcurrentModification.
	// Default: 3
	MaxSaveRetries int

	// Diff configures the diff engine.
	Diff diff.Options

	// Logger for engine operations. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxSaveRetries: 3,
		Diff:           diff.DefaultOptions(),
	}
}

// RootBranchName is the name of the branch created on initialization.
const RootBranchName = "main"

// Service is the version controller: the single surface the
// surrounding application calls.
//
// Thread Safety:
//
//	Service is safe for concurrent use. Every mutation runs as
//	load -> compute -> atomic compare-and-swap save, retried a bounded
//	number of times on lost races.
type Service struct {
	config ServiceConfig
	store  TreeStore
	engine *diff.Engine
	logger *slog.Logger
}

// NewService creates a versioning service on top of a tree store.
func NewService(config ServiceConfig, store TreeStore) *Service {
	if config.MaxSaveRetries <= 0 {
		config.MaxSaveRetries = DefaultServiceConfig().MaxSaveRetries
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		config: config,
		store:  store,
		engine: diff.NewEngine(config.Diff),
		logger: logger.With(slog.String("component", "versioning")),
	}
}

// errAlreadyInitialized aborts the init mutator when another writer
// initialized the tree between our read and our save, so the save
// never persists an unchanged tree.
var errAlreadyInitialized = errors.New("version tree already initialized")

// InitializeVersionSystem creates the version tree for an app.
//
// # Description
//
// A no-op when a tree already exists: the existing tree is returned
// unchanged, with no write and no revision bump. Otherwise creates the
// "main" branch with one root version wrapping the given snapshot
// (InternalVersion 1, no parents, zero change counts).
func (s *Service) InitializeVersionSystem(ctx context.Context, appID string, code Snapshot) (*VersionTree, error) {
	ctx, span := startOperationSpan(ctx, "InitializeVersionSystem", appID)
	defer span.End()
	start := time.Now()

	existing, found, err := s.store.Load(ctx, appID)
	if err != nil {
		recordOperationMetrics(ctx, "InitializeVersionSystem", time.Since(start), err)
		return nil, err
	}
	if found && existing.Initialized() {
		recordOperationMetrics(ctx, "InitializeVersionSystem", time.Since(start), nil)
		return existing, nil
	}

	tree, err := s.mutate(ctx, "InitializeVersionSystem", appID, func(tree *VersionTree) error {
		if tree.Initialized() {
			return errAlreadyInitialized
		}

		branch := VersionBranch{
			ID:        uuid.NewString(),
			Name:      RootBranchName,
			Color:     BranchColor(RootBranchName),
			IsActive:  true,
			CreatedAt: time.Now().UnixMilli(),
		}
		tree.Branches = append(tree.Branches, branch)
		tree.CurrentBranch = branch.ID

		_, err := CreateVersion(tree, s.engine, CommitRequest{
			BranchID: branch.ID,
			Code:     code,
			Message:  "Initial version",
		})
		return err
	})
	if errors.Is(err, errAlreadyInitialized) {
		// Lost the init race; the winner's tree is the result.
		tree, err = s.loadInitialized(ctx, appID)
	}
	recordOperationMetrics(ctx, "InitializeVersionSystem", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("version system ready",
		slog.String("app_id", appID),
		slog.Int("branches", len(tree.Branches)),
		slog.Int("versions", len(tree.Versions)),
	)
	return tree, nil
}

// CreateVersion commits a snapshot onto the current branch (or the
// branch named by the request).
func (s *Service) CreateVersion(ctx context.Context, appID string, req CommitRequest) (*AppVersion, error) {
	ctx, span := startOperationSpan(ctx, "CreateVersion", appID)
	defer span.End()
	start := time.Now()

	var created AppVersion
	_, err := s.mutateInitialized(ctx, "CreateVersion", appID, func(tree *VersionTree) error {
		version, err := CreateVersion(tree, s.engine, req)
		if err != nil {
			return err
		}
		created = *version
		return nil
	})
	recordOperationMetrics(ctx, "CreateVersion", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	recordCommit(ctx, created.MergeInfo.IsMergeCommit)
	s.logger.Info("version created",
		slog.String("app_id", appID),
		slog.String("version_id", created.ID),
		slog.String("branch_id", created.BranchID),
		slog.Int("internal_version", created.InternalVersion),
	)
	return &created, nil
}

// CreateBranch creates a branch without switching to it.
func (s *Service) CreateBranch(ctx context.Context, appID string, req BranchRequest) (*VersionBranch, error) {
	ctx, span := startOperationSpan(ctx, "CreateBranch", appID)
	defer span.End()
	start := time.Now()

	var created VersionBranch
	_, err := s.mutateInitialized(ctx, "CreateBranch", appID, func(tree *VersionTree) error {
		branch, err := CreateBranch(tree, req)
		if err != nil {
			return err
		}
		created = *branch
		return nil
	})
	recordOperationMetrics(ctx, "CreateBranch", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("branch created",
		slog.String("app_id", appID),
		slog.String("branch_id", created.ID),
		slog.String("name", created.Name),
	)
	return &created, nil
}

// SwitchBranch makes the given branch active and moves the current
// version to its head.
func (s *Service) SwitchBranch(ctx context.Context, appID, branchID string) error {
	ctx, span := startOperationSpan(ctx, "SwitchBranch", appID)
	defer span.End()
	start := time.Now()

	_, err := s.mutateInitialized(ctx, "SwitchBranch", appID, func(tree *VersionTree) error {
		return SwitchBranch(tree, branchID)
	})
	recordOperationMetrics(ctx, "SwitchBranch", time.Since(start), err)
	return err
}

// CompareVersions diffs two versions of an app.
func (s *Service) CompareVersions(ctx context.Context, appID, versionIDA, versionIDB string) (*VersionComparison, error) {
	ctx, span := startOperationSpan(ctx, "CompareVersions", appID)
	defer span.End()
	start := time.Now()

	tree, err := s.loadInitialized(ctx, appID)
	if err != nil {
		recordOperationMetrics(ctx, "CompareVersions", time.Since(start), err)
		return nil, err
	}
	comparison, err := Compare(tree, s.engine, versionIDA, versionIDB)
	recordOperationMetrics(ctx, "CompareVersions", time.Since(start), err)
	return comparison, err
}

// GetVersionTree returns the app's full tree, or found=false if the
// app was never initialized.
func (s *Service) GetVersionTree(ctx context.Context, appID string) (*VersionTree, bool, error) {
	return s.store.Load(ctx, appID)
}

// GetVersion returns one version by id.
func (s *Service) GetVersion(ctx context.Context, appID, versionID string) (*AppVersion, error) {
	tree, err := s.loadInitialized(ctx, appID)
	if err != nil {
		return nil, err
	}
	return GetVersion(tree, versionID)
}

// RevertToVersion commits a new version whose code equals the target
// version's code.
//
// # Description
//
// Reverting never rewrites history: the new version's single parent is
// the current head, and the target version is untouched. The default
// message names the target's display version.
func (s *Service) RevertToVersion(ctx context.Context, appID, versionID, message string) (*AppVersion, error) {
	ctx, span := startOperationSpan(ctx, "RevertToVersion", appID)
	defer span.End()
	start := time.Now()

	var created AppVersion
	_, err := s.mutateInitialized(ctx, "RevertToVersion", appID, func(tree *VersionTree) error {
		target, err := GetVersion(tree, versionID)
		if err != nil {
			return err
		}
		msg := message
		if msg == "" {
			msg = fmt.Sprintf("Revert to version %s", target.VersionNumber)
		}
		version, err := CreateVersion(tree, s.engine, CommitRequest{
			Code:    target.Code,
			Message: msg,
		})
		if err != nil {
			return err
		}
		created = *version
		return nil
	})
	recordOperationMetrics(ctx, "RevertToVersion", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	recordCommit(ctx, false)
	s.logger.Info("reverted to version",
		slog.String("app_id", appID),
		slog.String("target_version_id", versionID),
		slog.String("new_version_id", created.ID),
	)
	return &created, nil
}

// -----------------------------------------------------------------------------
// Internal helpers
// -----------------------------------------------------------------------------

// mutate runs one store save with bounded retries on lost races.
func (s *Service) mutate(ctx context.Context, operation, appID string, fn func(*VersionTree) error) (*VersionTree, error) {
	var lastErr error
	for attempt := 0; attempt < s.config.MaxSaveRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tree, err := s.store.Save(ctx, appID, fn)
		if err == nil {
			return tree, nil
		}
		if !errors.Is(err, ErrConcurrentModification) {
			return nil, err
		}
		lastErr = err
		recordCASRetry(ctx, operation)
		s.logger.Warn("save lost optimistic race, retrying",
			slog.String("app_id", appID),
			slog.String("operation", operation),
			slog.Int("attempt", attempt+1),
		)
	}
	return nil, fmt.Errorf("%s on app %s: %w", operation, appID, lastErr)
}

// mutateInitialized is mutate plus the initialized-tree precondition.
func (s *Service) mutateInitialized(ctx context.Context, operation, appID string, fn func(*VersionTree) error) (*VersionTree, error) {
	return s.mutate(ctx, operation, appID, func(tree *VersionTree) error {
		if !tree.Initialized() {
			return fmt.Errorf("app %s: %w", appID, ErrNotFound)
		}
		return fn(tree)
	})
}

// loadInitialized loads an app's tree, requiring it to exist.
func (s *Service) loadInitialized(ctx context.Context, appID string) (*VersionTree, error) {
	tree, found, err := s.store.Load(ctx, appID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("app %s: %w", appID, ErrNotFound)
	}
	return tree, nil
}

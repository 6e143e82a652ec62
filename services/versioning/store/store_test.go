// Copyright (C) 2025 StackCanvas (oss@stackcanvas.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackcanvas/stackcanvas/services/versioning"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db)
}

// TestLoadAbsent verifies loading an unknown app reports found=false.
func TestLoadAbsent(t *testing.T) {
	s := newTestStore(t)

	tree, found, err := s.Load(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, tree)
}

// TestSaveRoundTrip verifies a saved tree loads back identically.
func TestSaveRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saved, err := s.Save(ctx, "app-1", func(tree *versioning.VersionTree) error {
		tree.Branches = append(tree.Branches, versioning.VersionBranch{
			ID:       "b1",
			Name:     "main",
			IsActive: true,
		})
		tree.CurrentBranch = "b1"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "app-1", saved.AppID)
	assert.Equal(t, uint64(1), saved.Revision)

	loaded, found, err := s.Load(ctx, "app-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, saved, loaded)
}

// TestSaveIncrementsRevision verifies each save bumps the revision.
func TestSaveIncrementsRevision(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		tree, err := s.Save(ctx, "app-1", func(tree *versioning.VersionTree) error {
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, uint64(i), tree.Revision)
	}
}

// TestSaveMutatorErrorAborts verifies a mutator error leaves no write.
func TestSaveMutatorErrorAborts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	_, err := s.Save(ctx, "app-1", func(tree *versioning.VersionTree) error {
		tree.CurrentBranch = "should-not-persist"
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, found, err := s.Load(ctx, "app-1")
	require.NoError(t, err)
	assert.False(t, found)
}

// TestSaveIsolatedPerApp verifies apps do not see each other's trees.
func TestSaveIsolatedPerApp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, "app-a", func(tree *versioning.VersionTree) error {
		tree.CurrentBranch = "a"
		return nil
	})
	require.NoError(t, err)

	_, err = s.Save(ctx, "app-b", func(tree *versioning.VersionTree) error {
		tree.CurrentBranch = "b"
		return nil
	})
	require.NoError(t, err)

	treeA, found, err := s.Load(ctx, "app-a")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "a", treeA.CurrentBranch)

	treeB, found, err := s.Load(ctx, "app-b")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "b", treeB.CurrentBranch)
}

// TestDelete verifies deletion and that deleting twice is fine.
func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, "app-1", func(tree *versioning.VersionTree) error {
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "app-1"))
	require.NoError(t, s.Delete(ctx, "app-1"))

	_, found, err := s.Load(ctx, "app-1")
	require.NoError(t, err)
	assert.False(t, found)
}

// TestSaveCancelledContext verifies a cancelled context short-circuits.
func TestSaveCancelledContext(t *testing.T) {
	s := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Save(ctx, "app-1", func(tree *versioning.VersionTree) error {
		t.Fatal("mutator should not run")
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
}

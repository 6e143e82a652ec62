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
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/stackcanvas/stackcanvas/services/versioning"
)

// treeKeyPrefix namespaces version tree keys inside the shared database.
const treeKeyPrefix = "vtree:"

var (
	saveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "versioning_store_save_duration_seconds",
		Help:    "Duration of version tree save transactions",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	saveConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "versioning_store_save_conflicts_total",
		Help: "Save transactions aborted by a concurrent writer",
	})

	treeSizeBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "versioning_store_tree_size_bytes",
		Help:    "Serialized size of persisted version trees",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
	})
)

// Store persists one version tree per app in BadgerDB.
//
// Thread Safety:
//
//	Safe for concurrent use. Save relies on Badger's transaction
//	conflict detection: two writers racing on the same app cause one
//	transaction to abort, surfaced as ErrConcurrentModification so the
//	caller can retry against fresh state.
type Store struct {
	db *DB
}

// NewStore creates a store on top of an open database.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// treeKey returns the database key for an app's tree.
func treeKey(appID string) []byte {
	return []byte(treeKeyPrefix + appID)
}

// Load returns the tree for an app, or found=false if none exists.
func (s *Store) Load(ctx context.Context, appID string) (*versioning.VersionTree, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var tree versioning.VersionTree
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(treeKey(appID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &tree)
		})
	})
	if err != nil {
		return nil, false, fmt.Errorf("load tree for app %s: %w", appID, err)
	}
	if !found {
		return nil, false, nil
	}
	return &tree, true, nil
}

// Save atomically applies mutate to the app's tree and persists it.
//
// # Description
//
// Runs one Update transaction: read the current tree (or start a fresh
// one for an uninitialized app), apply the mutator, bump the revision
// counter, and write the result back. A mutator error aborts the
// transaction and is returned verbatim. A transaction conflict with a
// concurrent writer maps to versioning.ErrConcurrentModification.
func (s *Store) Save(ctx context.Context, appID string, mutate func(*versioning.VersionTree) error) (*versioning.VersionTree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	var tree versioning.VersionTree
	err := s.db.Update(func(txn *badger.Txn) error {
		tree = versioning.VersionTree{AppID: appID}

		item, err := txn.Get(treeKey(appID))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			// Fresh tree.
		case err != nil:
			return err
		default:
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &tree)
			}); err != nil {
				return err
			}
		}

		if err := mutate(&tree); err != nil {
			return err
		}
		tree.Revision++

		payload, err := json.Marshal(&tree)
		if err != nil {
			return fmt.Errorf("marshal tree: %w", err)
		}
		treeSizeBytes.Observe(float64(len(payload)))
		return txn.Set(treeKey(appID), payload)
	})
	if err != nil {
		if errors.Is(err, badger.ErrConflict) {
			saveConflicts.Inc()
			saveDuration.WithLabelValues("conflict").Observe(time.Since(start).Seconds())
			return nil, fmt.Errorf("save tree for app %s: %w", appID, versioning.ErrConcurrentModification)
		}
		saveDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return nil, err
	}

	saveDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	return &tree, nil
}

// Delete removes an app's tree. Missing trees are not an error.
func (s *Store) Delete(ctx context.Context, appID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(treeKey(appID))
	})
}

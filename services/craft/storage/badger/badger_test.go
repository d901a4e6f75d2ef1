// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenInMemory(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	assert.True(t, db.InMemory())
	assert.Empty(t, db.Path())

	err = db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("node/STEAM"), []byte(`{"id":"STEAM"}`))
	})
	require.NoError(t, err)

	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("node/STEAM"))
		require.NoError(t, err)
		return item.Value(func(val []byte) error {
			assert.Equal(t, `{"id":"STEAM"}`, string(val))
			return nil
		})
	})
	require.NoError(t, err)
}

func TestOpenDB_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.GCInterval = time.Hour

	db, err := OpenDB(cfg)
	require.NoError(t, err)
	require.NoError(t, db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("meta/initialized"), []byte("1"))
	}))
	require.NoError(t, db.Close())

	db2, err := OpenDB(cfg)
	require.NoError(t, err)
	defer db2.Close()

	assert.Equal(t, dir, db2.Path())
	require.NoError(t, db2.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte("meta/initialized"))
		return err
	}))
}

func TestOpenDB_RequiresPath(t *testing.T) {
	_, err := OpenDB(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")
}

func TestOpenDB_RejectsBadRatio(t *testing.T) {
	cfg := InMemoryConfig()
	cfg.GCDiscardRatio = 2
	_, err := OpenDB(cfg)
	assert.Error(t, err)
}

func TestDB_WithTxn(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		err := db.WithTxn(ctx, func(txn *badger.Txn) error {
			return txn.Set([]byte("a"), []byte("1"))
		})
		require.NoError(t, err)

		err = db.WithReadTxn(ctx, func(txn *badger.Txn) error {
			_, err := txn.Get([]byte("a"))
			return err
		})
		assert.NoError(t, err)
	})

	t.Run("discards on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := db.WithTxn(ctx, func(txn *badger.Txn) error {
			if err := txn.Set([]byte("b"), []byte("1")); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		err = db.WithReadTxn(ctx, func(txn *badger.Txn) error {
			_, err := txn.Get([]byte("b"))
			return err
		})
		assert.ErrorIs(t, err, badger.ErrKeyNotFound)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := db.WithTxn(cctx, func(txn *badger.Txn) error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})
}

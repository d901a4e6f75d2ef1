// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"

	craftdb "github.com/AleutianAI/wordcraft/services/craft/storage/badger"
)

var (
	nodePrefix     = []byte("node/")
	initializedKey = []byte("meta/initialized")
)

func nodeKey(id string) []byte {
	return append(append([]byte{}, nodePrefix...), id...)
}

// BadgerBackend stores one record per node in BadgerDB.
//
// Each Commit is a single read-write transaction, so a crash mid-commit
// leaves the previous collection intact.
type BadgerBackend struct {
	db *craftdb.DB
}

// NewBadgerBackend wraps an open database. The backend closes db on Close.
func NewBadgerBackend(db *craftdb.DB) *BadgerBackend {
	return &BadgerBackend{db: db}
}

// OpenBadgerBackend opens the database described by cfg.
func OpenBadgerBackend(cfg craftdb.Config) (*BadgerBackend, error) {
	db, err := craftdb.OpenDB(cfg)
	if err != nil {
		return nil, err
	}
	return NewBadgerBackend(db), nil
}

// Load implements Backend.
func (b *BadgerBackend) Load(ctx context.Context) ([]Entry, bool, error) {
	var (
		entries     []Entry
		initialized bool
	)
	err := b.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		_, err := txn.Get(initializedKey)
		switch {
		case err == nil:
			initialized = true
		case errors.Is(err, badger.ErrKeyNotFound):
		default:
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = nodePrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var e Entry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", item.Key(), err)
			}
			if e.Node.ID == "" || !bytes.Equal(item.Key(), nodeKey(e.Node.ID)) {
				return fmt.Errorf("record %s does not match its key", item.Key())
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	slices.SortStableFunc(entries, func(a, b Entry) int {
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		}
		return 0
	})
	return entries, initialized, nil
}

// Commit implements Backend.
func (b *BadgerBackend) Commit(ctx context.Context, cs ChangeSet) error {
	return b.db.WithTxn(ctx, func(txn *badger.Txn) error {
		if cs.Reset {
			if err := deletePrefix(txn, nodePrefix); err != nil {
				return err
			}
		}
		for _, id := range cs.Delete {
			if err := txn.Delete(nodeKey(id)); err != nil {
				return fmt.Errorf("delete %s: %w", id, err)
			}
		}
		for _, e := range cs.Put {
			val, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("encode %s: %w", e.Node.ID, err)
			}
			if err := txn.Set(nodeKey(e.Node.ID), val); err != nil {
				return fmt.Errorf("write %s: %w", e.Node.ID, err)
			}
		}
		return txn.Set(initializedKey, []byte("1"))
	})
}

// Close implements Backend.
func (b *BadgerBackend) Close() error {
	return b.db.Close()
}

func deletePrefix(txn *badger.Txn, prefix []byte) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)

	var keys [][]byte
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()

	for _, k := range keys {
		if err := txn.Delete(k); err != nil {
			return fmt.Errorf("delete %s: %w", k, err)
		}
	}
	return nil
}

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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/AleutianAI/wordcraft/services/craft/graph"
)

// Document is the JSON file layout: {"objects": [node, ...]}.
type Document struct {
	Objects []graph.Node `json:"objects"`
}

// FileBackend keeps the collection in a single JSON document.
//
// Every Commit writes the complete document to a temporary file in the
// same directory, syncs it, and renames it over the target, so readers and
// crashes only ever see a complete old or new document.
type FileBackend struct {
	path string
	perm fs.FileMode
}

// NewFileBackend returns a backend for the document at path. The parent
// directory is created on first commit.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path, perm: 0o640}
}

// Path returns the document path.
func (f *FileBackend) Path() string {
	return f.path
}

// Load implements Backend. A missing file is an uninitialized medium.
func (f *FileBackend) Load(ctx context.Context) ([]Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	doc, err := ReadDocument(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	entries := make([]Entry, 0, len(doc.Objects))
	for i, n := range doc.Objects {
		entries = append(entries, Entry{Seq: uint64(i) + 1, Node: n})
	}
	return entries, true, nil
}

// Commit implements Backend.
func (f *FileBackend) Commit(ctx context.Context, cs ChangeSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc := Document{Objects: make([]graph.Node, 0, len(cs.Collection))}
	for _, e := range cs.Collection {
		doc.Objects = append(doc.Objects, e.Node)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return writeFileAtomic(f.path, data, f.perm)
}

// Close implements Backend.
func (f *FileBackend) Close() error {
	return nil
}

// ReadDocument parses the JSON document at path.
func ReadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("parse %s: %w", path, err)
	}
	for i := range doc.Objects {
		if doc.Objects[i].ParentPairs == nil {
			doc.Objects[i].ParentPairs = []graph.Pair{}
		}
		if doc.Objects[i].Icons == nil {
			doc.Objects[i].Icons = []string{}
		}
	}
	return doc, nil
}

func writeFileAtomic(path string, data []byte, perm fs.FileMode) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	// The rename is only durable once the directory entry is flushed.
	if serr := syncDir(dir); serr != nil {
		return fmt.Errorf("sync directory %s: %w", dir, serr)
	}
	return nil
}

// syncDir flushes the directory entries of dir. Replaced in tests.
var syncDir = func(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	if err := d.Sync(); err != nil {
		d.Close()
		return err
	}
	return d.Close()
}

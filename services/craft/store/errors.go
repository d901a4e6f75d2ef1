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

import "errors"

var (
	// ErrStorageUnavailable indicates the storage medium could not be read or
	// a change could not be committed. The in-memory collection is unchanged.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrSeedProtected indicates an attempt to delete one of the four seed
	// roots or to give one of them a parent pair.
	ErrSeedProtected = errors.New("seed root is protected")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("store closed")
)

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package generate

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidParent indicates a combine request names an id that is not
	// in the collection.
	ErrInvalidParent = errors.New("invalid parent")

	// ErrExternalCallFailed indicates the text generator was unreachable,
	// returned an error, or did not answer within the timeout.
	ErrExternalCallFailed = errors.New("external generation call failed")

	// ErrExtractionFailed indicates the generator's text held no usable
	// phrase or icon. The concrete error is an *ExtractionError.
	ErrExtractionFailed = errors.New("failed to extract candidate from generated text")
)

// ExtractionError carries the raw generated text that could not be parsed.
type ExtractionError struct {
	Raw     string
	Missing []string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s: missing %s", ErrExtractionFailed, strings.Join(e.Missing, " and "))
}

func (e *ExtractionError) Is(target error) bool {
	return target == ErrExtractionFailed
}

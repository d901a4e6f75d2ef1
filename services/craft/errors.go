// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package craft

import (
	"errors"
	"net/http"

	"github.com/AleutianAI/wordcraft/services/craft/generate"
	"github.com/AleutianAI/wordcraft/services/craft/graph"
	"github.com/AleutianAI/wordcraft/services/craft/lifecycle"
	"github.com/AleutianAI/wordcraft/services/craft/store"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeInvalidVote         = "INVALID_VOTE"
	CodeInvalidParent       = "INVALID_PARENT"
	CodeNotFound            = "NOT_FOUND"
	CodeDiscarded           = "DISCARDED"
	CodeSeedProtected       = "SEED_PROTECTED"
	CodeStorageUnavailable  = "STORAGE_UNAVAILABLE"
	CodeExtractionFailed    = "EXTRACTION_FAILED"
	CodeExternalCallFailed  = "EXTERNAL_CALL_FAILED"
	CodeExternalCallTimeout = "EXTERNAL_CALL_TIMEOUT"
	CodeInternal            = "INTERNAL_ERROR"
)

// errorStatus maps a domain error to an HTTP status and code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, lifecycle.ErrInvalidVote):
		return http.StatusBadRequest, CodeInvalidVote
	case errors.Is(err, generate.ErrInvalidParent):
		return http.StatusBadRequest, CodeInvalidParent
	case errors.Is(err, graph.ErrInvalidPair), errors.Is(err, graph.ErrInvalidID):
		return http.StatusBadRequest, CodeInvalidRequest
	case errors.Is(err, graph.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, store.ErrSeedProtected):
		return http.StatusConflict, CodeSeedProtected
	case errors.Is(err, store.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, CodeStorageUnavailable
	case errors.Is(err, generate.ErrExtractionFailed):
		return http.StatusInternalServerError, CodeExtractionFailed
	case generate.IsTimeout(err):
		return http.StatusGatewayTimeout, CodeExternalCallTimeout
	case errors.Is(err, generate.ErrExternalCallFailed):
		return http.StatusBadGateway, CodeExternalCallFailed
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// errorResponse builds the body for err. Storage and internal failures
// get a generic message.
func errorResponse(err error) (int, ErrorResponse) {
	status, code := errorStatus(err)
	resp := ErrorResponse{Error: err.Error(), Code: code}

	switch code {
	case CodeStorageUnavailable:
		resp.Error = "storage unavailable"
	case CodeInternal:
		resp.Error = "internal server error"
	case CodeExtractionFailed:
		resp.Error = "failed to parse generator response"
		var ee *generate.ExtractionError
		if errors.As(err, &ee) {
			resp.Raw = ee.Raw
		}
	}
	return status, resp
}

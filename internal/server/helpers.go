// Package server provides the HTTP API service for inkwell.
package server

import (
	"net/http"
	"strconv"
	"strings"
)

// MaxPaginationLimit is the maximum allowed limit for pagination queries.
// This protects against resource exhaustion from excessively large requests.
const MaxPaginationLimit = 200

// DefaultPaginationLimit is used when the client does not send a limit.
const DefaultPaginationLimit = 20

// ParseLimitParam parses the "limit" query parameter from an HTTP request.
// Returns defaultLimit if the parameter is missing or invalid; the result
// is capped at MaxPaginationLimit.
func ParseLimitParam(r *http.Request, defaultLimit int) int {
	limit := defaultLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > MaxPaginationLimit {
		return MaxPaginationLimit
	}
	return limit
}

// ParseOffsetParam parses the "offset" query parameter from an HTTP request.
// Returns 0 if the parameter is missing or invalid.
func ParseOffsetParam(r *http.Request) int {
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return 0
}

// PaginationParams holds pagination parameters.
type PaginationParams struct {
	Limit  int
	Offset int
}

// ParsePaginationParams parses both limit and offset from an HTTP request.
func ParsePaginationParams(r *http.Request) PaginationParams {
	return PaginationParams{
		Limit:  ParseLimitParam(r, DefaultPaginationLimit),
		Offset: ParseOffsetParam(r),
	}
}

// ParseIncludeParam splits the "include" query parameter into a set of
// relation names, e.g. ?include=author,tags.
func ParseIncludeParam(r *http.Request) map[string]bool {
	raw := r.URL.Query().Get("include")
	if raw == "" {
		return nil
	}
	includes := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			includes[part] = true
		}
	}
	return includes
}

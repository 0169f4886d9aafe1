// Package server provides the HTTP API service for inkwell.
package server

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLimitParam(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"missing uses default", "/", DefaultPaginationLimit},
		{"valid value", "/?limit=50", 50},
		{"zero rejected", "/?limit=0", DefaultPaginationLimit},
		{"negative rejected", "/?limit=-5", DefaultPaginationLimit},
		{"garbage rejected", "/?limit=abc", DefaultPaginationLimit},
		{"capped at maximum", "/?limit=5000", MaxPaginationLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.target, nil)
			assert.Equal(t, tt.want, ParseLimitParam(r, DefaultPaginationLimit))
		})
	}
}

func TestParseOffsetParam(t *testing.T) {
	r := httptest.NewRequest("GET", "/?offset=30", nil)
	assert.Equal(t, 30, ParseOffsetParam(r))

	r = httptest.NewRequest("GET", "/?offset=-1", nil)
	assert.Equal(t, 0, ParseOffsetParam(r))

	r = httptest.NewRequest("GET", "/", nil)
	assert.Equal(t, 0, ParseOffsetParam(r))
}

func TestParsePaginationParams(t *testing.T) {
	r := httptest.NewRequest("GET", "/?limit=15&offset=45", nil)
	page := ParsePaginationParams(r)
	assert.Equal(t, 15, page.Limit)
	assert.Equal(t, 45, page.Offset)
}

func TestParseIncludeParam(t *testing.T) {
	r := httptest.NewRequest("GET", "/?include=author,%20tags,,comments", nil)
	includes := ParseIncludeParam(r)
	assert.True(t, includes["author"])
	assert.True(t, includes["tags"])
	assert.True(t, includes["comments"])
	assert.False(t, includes["category"])

	r = httptest.NewRequest("GET", "/", nil)
	assert.Nil(t, ParseIncludeParam(r))
}

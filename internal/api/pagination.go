package api

import (
	"net/http"
	"strconv"
)

// Alert feeds grow fast during an incident storm, so every list endpoint is
// paginated. per_page is capped to keep one response from dragging the whole
// alert table over the wire.
const (
	defaultPerPage = 50
	maxPerPage     = 200
)

// PaginationParams is the page window requested by a list call.
type PaginationParams struct {
	Page    int
	PerPage int
}

// ParsePagination reads page and per_page from the query string. Missing or
// unusable values fall back to the first page of 50.
func ParsePagination(r *http.Request) PaginationParams {
	q := r.URL.Query()
	return PaginationParams{
		Page:    positiveIntOr(q.Get("page"), 1, 0),
		PerPage: positiveIntOr(q.Get("per_page"), defaultPerPage, maxPerPage),
	}
}

// positiveIntOr parses raw as a positive integer, clamped to limit when
// limit > 0.
func positiveIntOr(raw string, fallback, limit int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	if limit > 0 && n > limit {
		return limit
	}
	return n
}

// Offset is the row offset of the requested page.
func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Meta assembles the pagination envelope for a list response.
func (p PaginationParams) Meta(total int64) PaginationMeta {
	pages := 0
	if p.PerPage > 0 {
		pages = int((total + int64(p.PerPage) - 1) / int64(p.PerPage))
	}
	return PaginationMeta{
		Page:       p.Page,
		PerPage:    p.PerPage,
		Total:      total,
		TotalPages: pages,
	}
}

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		wantPage    int
		wantPerPage int
	}{
		{"defaults", "/api/alerts", 1, 50},
		{"explicit window", "/api/alerts?page=3&per_page=25", 3, 25},
		{"per_page capped", "/api/alerts?per_page=5000", 1, 200},
		{"zero page falls back", "/api/groups?page=0", 1, 50},
		{"negative per_page falls back", "/api/groups?per_page=-5", 1, 50},
		{"garbage values fall back", "/api/rca?page=first&per_page=many", 1, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ParsePagination(httptest.NewRequest(http.MethodGet, tt.url, nil))
			if p.Page != tt.wantPage || p.PerPage != tt.wantPerPage {
				t.Errorf("got page=%d per_page=%d, want page=%d per_page=%d",
					p.Page, p.PerPage, tt.wantPage, tt.wantPerPage)
			}
		})
	}
}

func TestPaginationOffset(t *testing.T) {
	tests := []struct {
		page    int
		perPage int
		want    int
	}{
		{1, 50, 0},
		{2, 50, 50},
		{4, 25, 75},
	}
	for _, tt := range tests {
		p := PaginationParams{Page: tt.page, PerPage: tt.perPage}
		if got := p.Offset(); got != tt.want {
			t.Errorf("Offset(page=%d, per_page=%d) = %d, want %d", tt.page, tt.perPage, got, tt.want)
		}
	}
}

func TestPaginationMeta(t *testing.T) {
	tests := []struct {
		name      string
		perPage   int
		total     int64
		wantPages int
	}{
		{"exact pages", 50, 100, 2},
		{"partial last page", 50, 101, 3},
		{"quiet system", 50, 0, 0},
		{"single alert", 50, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PaginationParams{Page: 2, PerPage: tt.perPage}
			meta := p.Meta(tt.total)
			if meta.TotalPages != tt.wantPages {
				t.Errorf("TotalPages = %d, want %d", meta.TotalPages, tt.wantPages)
			}
			if meta.Page != 2 || meta.PerPage != tt.perPage || meta.Total != tt.total {
				t.Errorf("meta = %+v, echo of the request window expected", meta)
			}
		})
	}
}

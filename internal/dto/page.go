package dto

import "time"

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
	MaxPage        = 1_000_000
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ListParams keys a server-paginated fetch.
type ListParams struct {
	Page      int
	PerPage   int
	SortField string
	SortOrder SortOrder
	Approved  *bool
	From      *time.Time
	To        *time.Time
	Query     string
}

// Normalize clamps paging to sane bounds and defaults the sort order.
func (p ListParams) Normalize() ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	if p.SortOrder != SortAsc {
		p.SortOrder = SortDesc
	}
	return p
}

// Offset is the row offset of a normalized page.
func (p ListParams) Offset() uint64 {
	if p.Page < 1 || p.PerPage < 1 {
		return 0
	}
	return uint64(p.Page-1) * uint64(p.PerPage)
}

type Page[T any] struct {
	Items   []T   `json:"items"`
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	PerPage int   `json:"perPage"`
}

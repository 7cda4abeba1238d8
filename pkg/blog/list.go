package blog

import "strings"

// Listing defaults and bounds.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Sort keys accepted by ListOptions.SortBy.
const (
	SortCreatedAt = "createdAt"
	SortUpdatedAt = "updatedAt"
	SortTitle     = "title"
	SortViewCount = "viewCount"
)

// ListOptions selects a page of the published listing.
type ListOptions struct {
	Page      int
	Limit     int
	Search    string
	Category  string
	SortBy    string
	SortOrder string
}

// Normalize applies defaults and clamps out-of-range values.
func (o ListOptions) Normalize() ListOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	switch {
	case o.Limit == 0:
		o.Limit = DefaultLimit
	case o.Limit < 1:
		o.Limit = 1
	case o.Limit > MaxLimit:
		o.Limit = MaxLimit
	}
	o.Search = strings.TrimSpace(o.Search)
	o.Category = strings.TrimSpace(o.Category)
	switch o.SortBy {
	case SortCreatedAt, SortUpdatedAt, SortTitle, SortViewCount:
	default:
		o.SortBy = SortCreatedAt
	}
	if o.SortOrder != "asc" {
		o.SortOrder = "desc"
	}
	return o
}

// Offset is the number of matches skipped before this page.
func (o ListOptions) Offset() int {
	return (o.Page - 1) * o.Limit
}

// Pagination describes where a page sits in the full listing.
type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalCount  int  `json:"totalCount"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

// NewPagination computes pagination for a normalized page.
func NewPagination(o ListOptions, total int) Pagination {
	pages := 0
	if o.Limit > 0 {
		pages = (total + o.Limit - 1) / o.Limit
	}
	return Pagination{
		CurrentPage: o.Page,
		TotalPages:  pages,
		TotalCount:  total,
		HasNextPage: o.Page < pages,
		HasPrevPage: o.Page > 1,
	}
}

// Page is one page of posts.
type Page struct {
	Blogs      []Blog     `json:"blogs"`
	Pagination Pagination `json:"pagination"`
}

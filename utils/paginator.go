package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultPageSize is the number of posts shown per page.
const DefaultPageSize = 10

// Page is one slice of an ordered result set plus navigation metadata.
// Number is 1-based.
type Page[T any] struct {
	Items      []T
	Number     int
	PageSize   int
	Total      int
	TotalPages int
	HasNext    bool
	HasPrev    bool
}

// PaginationMeta is the JSON shape of a page's navigation data.
type PaginationMeta struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// Meta returns the page's navigation data.
func (p Page[T]) Meta() PaginationMeta {
	return PaginationMeta{
		Page:       p.Number,
		PageSize:   p.PageSize,
		Total:      p.Total,
		TotalPages: p.TotalPages,
		HasNext:    p.HasNext,
		HasPrev:    p.HasPrev,
	}
}

// Paginate cuts page pageIndex out of items.
//
// An index past the last page is clamped to the last page and an index
// below 1 becomes 1; neither is an error. An empty input still has one
// (empty) page. The returned Items never alias items.
func Paginate[T any](items []T, pageIndex, pageSize int) (Page[T], error) {
	if pageSize <= 0 {
		return Page[T]{}, fmt.Errorf("%w: page size must be positive, got %d", ErrInvalidArgument, pageSize)
	}

	total := len(items)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}
	if pageIndex < 1 {
		pageIndex = 1
	}
	if pageIndex > totalPages {
		pageIndex = totalPages
	}

	start := (pageIndex - 1) * pageSize
	end := min(start+pageSize, total)
	out := make([]T, end-start)
	copy(out, items[start:end])

	return Page[T]{
		Items:      out,
		Number:     pageIndex,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    pageIndex < totalPages,
		HasPrev:    pageIndex > 1,
	}, nil
}

// MapPage converts the items of a page keeping its metadata.
func MapPage[T, U any](p Page[T], fn func(T) U) Page[U] {
	items := make([]U, len(p.Items))
	for i, it := range p.Items {
		items[i] = fn(it)
	}
	return Page[U]{
		Items:      items,
		Number:     p.Number,
		PageSize:   p.PageSize,
		Total:      p.Total,
		TotalPages: p.TotalPages,
		HasNext:    p.HasNext,
		HasPrev:    p.HasPrev,
	}
}

// ParsePageNumber reads a ?page= value. Missing or malformed values mean page 1;
// out of range values are left for Paginate to clamp.
func ParsePageNumber(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

package pagination

import (
	"fmt"
	"strings"

	pkgerrors "github.com/stocktrail/stocktrail-backend/pkg/errors"
)

const (
	// DefaultSize is the standard page size when one is not provided.
	DefaultSize = 20
	// MaxSize caps how many rows any page query can request.
	MaxSize = 1000

	SortAsc  = "asc"
	SortDesc = "desc"
)

// Request holds offset pagination inputs from controllers or services.
type Request struct {
	Page    int
	Size    int
	SortBy  string
	SortDir string
}

// Normalize fills in defaults for zero-value fields.
func (r Request) Normalize() Request {
	if r.Size == 0 {
		r.Size = DefaultSize
	}
	if r.SortDir == "" {
		r.SortDir = SortDesc
	}
	return r
}

// Validate checks the request bounds and resolves SortBy against the allowed
// column map (API field name -> database column). An unrecognized sort field
// or out-of-range page/size is a validation error; an unrecognized direction
// silently falls back to descending.
func (r Request) Validate(allowed map[string]string) (Request, error) {
	r = r.Normalize()

	if r.Page < 0 {
		return r, pkgerrors.New(pkgerrors.CodeValidation, "page must not be negative")
	}
	if r.Size <= 0 {
		return r, pkgerrors.New(pkgerrors.CodeValidation, "size must be positive")
	}
	if r.Size > MaxSize {
		return r, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("size must not exceed %d", MaxSize))
	}

	if r.SortBy != "" {
		column, ok := allowed[r.SortBy]
		if !ok {
			return r, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported sort field %q", r.SortBy))
		}
		r.SortBy = column
	}

	if strings.EqualFold(r.SortDir, SortAsc) {
		r.SortDir = SortAsc
	} else {
		r.SortDir = SortDesc
	}

	return r, nil
}

// Offset returns the row offset for the requested page.
func (r Request) Offset() int {
	return r.Page * r.Size
}

// OrderClause renders the ORDER BY fragment, falling back to the provided
// default column when no sort field was requested.
func (r Request) OrderClause(defaultColumn string) string {
	column := r.SortBy
	if column == "" {
		column = defaultColumn
	}
	return fmt.Sprintf("%s %s", column, r.SortDir)
}

// Page is a single page of results plus the totals needed by clients.
type Page[T any] struct {
	Items         []T   `json:"items"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
}

// NewPage assembles a Page from a result slice and the total row count.
func NewPage[T any](items []T, req Request, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := 0
	if req.Size > 0 {
		totalPages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	return Page[T]{
		Items:         items,
		Page:          req.Page,
		Size:          req.Size,
		TotalElements: total,
		TotalPages:    totalPages,
	}
}

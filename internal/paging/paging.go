// Package paging runs a composed predicate against a store and assembles a
// page of results together with the total match count.
package paging

import (
	"context"
	"fmt"
	"math"

	"github.com/iliyamo/weather-todo/internal/query"
	apperrors "github.com/iliyamo/weather-todo/pkg/errors"
)

// Defaults applied by the HTTP layer when parameters are absent.
const (
	DefaultPage = 1
	DefaultSize = 10
	MaxSize     = 100
)

// Request is a 1-based page number and a page size.
type Request struct {
	Page int
	Size int
}

// Validate rejects non-positive page numbers and sizes.
func (r Request) Validate() error {
	if r.Page < 1 {
		return fmt.Errorf("%w: page must be >= 1, got %d", apperrors.ErrInvalidPageRequest, r.Page)
	}
	if r.Size < 1 {
		return fmt.Errorf("%w: size must be >= 1, got %d", apperrors.ErrInvalidPageRequest, r.Size)
	}
	return nil
}

// Offset converts the 1-based page number into a row offset.  ok is false
// when the request is invalid or the offset does not fit in an int; such a
// page lies past the end of any store.
func (r Request) Offset() (offset int, ok bool) {
	if r.Page < 1 || r.Size < 1 {
		return 0, false
	}
	if r.Page-1 > math.MaxInt/r.Size {
		return 0, false
	}
	return (r.Page - 1) * r.Size, true
}

// Page is one slice of results.  Total is counted independently of Items.
type Page[T any] struct {
	Items []T
	Total int64
	Page  int
	Size  int
}

// TotalPages is the number of pages needed for Total at this Size.
func (p Page[T]) TotalPages() int {
	if p.Size <= 0 {
		return 0
	}
	return int((p.Total + int64(p.Size) - 1) / int64(p.Size))
}

// Reader runs the two page queries.  Results are ordered newest
// modification first.
type Reader[T any] interface {
	QueryPage(ctx context.Context, pred query.Predicate, offset, limit int) ([]T, error)
	CountMatching(ctx context.Context, pred query.Predicate) (int64, error)
}

// Snapshotter runs fn against a Reader that sees one consistent snapshot for
// the whole call.
type Snapshotter[T any] interface {
	WithSnapshot(ctx context.Context, fn func(Reader[T]) error) error
}

// Fetch returns the requested page.  Both queries must succeed; a failed
// count never yields a partial page.  A page past the end is an empty slice
// with the real total.
func Fetch[T any](ctx context.Context, src Snapshotter[T], pred query.Predicate, req Request) (Page[T], error) {
	if err := req.Validate(); err != nil {
		return Page[T]{}, err
	}
	if !pred.Scoped() {
		return Page[T]{}, query.ErrUnscoped
	}

	var (
		items []T
		total int64
	)
	offset, inRange := req.Offset()
	err := src.WithSnapshot(ctx, func(r Reader[T]) error {
		var err error
		if inRange {
			if items, err = r.QueryPage(ctx, pred, offset, req.Size); err != nil {
				return fmt.Errorf("query page: %w", err)
			}
		}
		if total, err = r.CountMatching(ctx, pred); err != nil {
			return fmt.Errorf("count matching: %w", err)
		}
		return nil
	})
	if err != nil {
		return Page[T]{}, err
	}
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Total: total, Page: req.Page, Size: req.Size}, nil
}

// Map converts the items of a page, keeping its metadata.
func Map[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := make([]U, len(p.Items))
	for i, it := range p.Items {
		out[i] = fn(it)
	}
	return Page[U]{Items: out, Total: p.Total, Page: p.Page, Size: p.Size}
}

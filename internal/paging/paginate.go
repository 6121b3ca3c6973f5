package paging

import "context"

// Source is the offset-mode data source. Slice must honour a deterministic order so that
// consecutive pages neither repeat nor skip rows while the collection is unchanged.
type Source[T any] interface {
	Count(ctx context.Context) (int, error)
	Slice(ctx context.Context, offset, limit int) ([]T, error)
}

// CursorSource is the cursor-mode data source: rows strictly after the watermark, ascending.
type CursorSource[T any] interface {
	SliceAfter(ctx context.Context, after *int64, limit int) ([]T, error)
}

// SourceFuncs adapts a pair of closures to Source.
type SourceFuncs[T any] struct {
	CountFn func(ctx context.Context) (int, error)
	SliceFn func(ctx context.Context, offset, limit int) ([]T, error)
}

func (s SourceFuncs[T]) Count(ctx context.Context) (int, error) { return s.CountFn(ctx) }
func (s SourceFuncs[T]) Slice(ctx context.Context, offset, limit int) ([]T, error) {
	return s.SliceFn(ctx, offset, limit)
}

// CursorSourceFunc adapts a closure to CursorSource.
type CursorSourceFunc[T any] func(ctx context.Context, after *int64, limit int) ([]T, error)

func (f CursorSourceFunc[T]) SliceAfter(ctx context.Context, after *int64, limit int) ([]T, error) {
	return f(ctx, after, limit)
}

// Page is one offset window with its items.
type Page[T any] struct {
	Items      []T    `json:"items"`
	Pagination Window `json:"pagination"`
	Links      Links  `json:"links"`
}

// Paginate counts, computes the window, slices and attaches links.
//
// The count and the slice are two independent reads; under concurrent writes the total
// may disagree with the returned items. Errors from src are returned unchanged.
func Paginate[T any](ctx context.Context, req Request, src Source[T], route *Route) (Page[T], error) {
	total, err := src.Count(ctx)
	if err != nil {
		return Page[T]{}, err
	}
	w := Compute(total, req.Page, req.PerPage)

	items := make([]T, 0)
	if !w.Empty() {
		got, err := src.Slice(ctx, w.Offset, w.PerPage)
		if err != nil {
			return Page[T]{}, err
		}
		if len(got) > w.PerPage {
			got = got[:w.PerPage]
		}
		if got != nil {
			items = got
		}
	}
	return Page[T]{Items: items, Pagination: w, Links: BuildLinks(route, w)}, nil
}

// PaginateCursor fetches PerPage+1 rows after the watermark and trims them.
func PaginateCursor[T any](ctx context.Context, req CursorRequest, src CursorSource[T], key func(T) int64, route *Route) (CursorPage[T], error) {
	n := req.PerPage
	if n < 1 {
		n = 1
	}
	items, err := src.SliceAfter(ctx, req.After, n+1)
	if err != nil {
		return CursorPage[T]{}, err
	}
	p := TrimCursor(items, n, key)
	p.Links = BuildCursorLinks(route, p)
	return p, nil
}

// PaginateSlice windows a result set that is already in memory, such as ranked search hits.
// total may exceed len(items) when the caller only materialised a prefix; pass -1 to use len(items).
func PaginateSlice[T any](items []T, req Request, total int, route *Route) Page[T] {
	if total < 0 {
		total = len(items)
	}
	w := Compute(total, req.Page, req.PerPage)
	start := min(max(w.Offset, 0), len(items))
	end := start + min(max(w.PerPage, 0), len(items)-start)
	out := make([]T, end-start)
	copy(out, items[start:end])
	return Page[T]{Items: out, Pagination: w, Links: BuildLinks(route, w)}
}

// MapPage projects the items of p, keeping its metadata.
func MapPage[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := make([]U, len(p.Items))
	for i, it := range p.Items {
		out[i] = fn(it)
	}
	return Page[U]{Items: out, Pagination: p.Pagination, Links: p.Links}
}

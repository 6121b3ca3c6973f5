// Package paging turns raw page/per_page/cursor inputs into bounded result windows.
//
// Two modes are supported. Offset mode converts a page number into an offset and
// reports page counts from a total; cursor mode resumes after an opaque watermark
// on a monotonic id and never needs a total. Everything here is request scoped and
// holds no shared state; the only I/O happens in the assembler, through the Source
// interfaces supplied by the caller.
package paging

import (
	"net/url"
	"strconv"
	"strings"
)

// Query parameter names shared by every paginated endpoint.
const (
	ParamPage    = "page"
	ParamPerPage = "per_page"
	ParamCursor  = "cursor"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Policy decides what happens to out-of-range input.
type Policy int

const (
	// Clamp floors page to 1 and bounds per_page into [1, max]. Non-numeric values fall back to defaults.
	Clamp Policy = iota
	// Strict rejects anything that is not an integer in range with ErrInvalidParameter.
	Strict
)

func (p Policy) String() string {
	if p == Strict {
		return "strict"
	}
	return "clamp"
}

// ParsePolicy maps a config string onto a Policy. Unknown values are reported as an error.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "clamp":
		return Clamp, nil
	case "strict":
		return Strict, nil
	default:
		return Clamp, invalid("policy", "must be clamp or strict")
	}
}

// Limits bounds the page size for one call site.
type Limits struct {
	DefaultPerPage int
	MaxPerPage     int
}

// DefaultLimits mirrors the defaults used by the list endpoints.
func DefaultLimits() Limits {
	return Limits{DefaultPerPage: DefaultPerPage, MaxPerPage: MaxPerPage}
}

func (l Limits) normalized() Limits {
	if l.MaxPerPage < 1 {
		l.MaxPerPage = MaxPerPage
	}
	if l.DefaultPerPage < 1 {
		l.DefaultPerPage = DefaultPerPage
	}
	if l.DefaultPerPage > l.MaxPerPage {
		l.DefaultPerPage = l.MaxPerPage
	}
	return l
}

// Request is a validated offset window request.
type Request struct {
	Page    int
	PerPage int
}

// CursorRequest is a validated cursor window request. After is nil on the first page.
type CursorRequest struct {
	After   *int64
	PerPage int
}

// Normalize is the lenient entry point: page is floored to 1 and per_page is clamped into [1, max].
func Normalize(page, perPage int, limits Limits) Request {
	limits = limits.normalized()
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}
	if perPage > limits.MaxPerPage {
		perPage = limits.MaxPerPage
	}
	return Request{Page: page, PerPage: perPage}
}

// Validate is the strict entry point. Nothing is coerced; any out-of-range value is an error.
func Validate(page, perPage, maxPerPage int) (Request, error) {
	if page < 1 {
		return Request{}, invalid(ParamPage, "must be greater than 0")
	}
	if perPage < 1 {
		return Request{}, invalid(ParamPerPage, "must be greater than 0")
	}
	if maxPerPage > 0 && perPage > maxPerPage {
		return Request{}, invalid(ParamPerPage, "cannot exceed "+strconv.Itoa(maxPerPage))
	}
	return Request{Page: page, PerPage: perPage}, nil
}

// ParseQuery reads page and per_page from query parameters.
// Absent values take their defaults under both policies.
func ParseQuery(q url.Values, limits Limits, policy Policy) (Request, error) {
	limits = limits.normalized()
	page, err := intParam(q, ParamPage, 1, policy)
	if err != nil {
		return Request{}, err
	}
	perPage, err := intParam(q, ParamPerPage, limits.DefaultPerPage, policy)
	if err != nil {
		return Request{}, err
	}
	if policy == Strict {
		return Validate(page, perPage, limits.MaxPerPage)
	}
	return Normalize(page, perPage, limits), nil
}

// ParseCursorQuery reads cursor and per_page. A malformed cursor is rejected under both
// policies: there is no sensible value to clamp an opaque token to.
func ParseCursorQuery(q url.Values, limits Limits, policy Policy) (CursorRequest, error) {
	limits = limits.normalized()
	perPage, err := intParam(q, ParamPerPage, limits.DefaultPerPage, policy)
	if err != nil {
		return CursorRequest{}, err
	}
	if policy == Strict {
		if _, err := Validate(1, perPage, limits.MaxPerPage); err != nil {
			return CursorRequest{}, err
		}
	} else {
		perPage = Normalize(1, perPage, limits).PerPage
	}

	out := CursorRequest{PerPage: perPage}
	if raw := strings.TrimSpace(q.Get(ParamCursor)); raw != "" {
		after, err := DecodeCursor(raw)
		if err != nil {
			return CursorRequest{}, err
		}
		out.After = &after
	}
	return out, nil
}

func intParam(q url.Values, name string, def int, policy Policy) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		if policy == Strict {
			return 0, invalid(name, "must be an integer")
		}
		return def, nil
	}
	return n, nil
}

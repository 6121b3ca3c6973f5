package paging

import (
	"net/url"
	"strconv"
	"strings"
)

// Route identifies the endpoint being paginated. The caller builds it explicitly from the
// current request; nothing here reaches for ambient request state.
type Route struct {
	// BaseURL is the absolute or relative URL without a query string, e.g. "https://host/api/v1/entries".
	BaseURL string
	// Query holds the request's parameters. It is never mutated.
	Query url.Values
}

// NewRoute splits a request URL into base and query. Scheme and host are kept when present.
func NewRoute(u *url.URL) *Route {
	if u == nil {
		return nil
	}
	base := *u
	base.RawQuery = ""
	base.Fragment = ""
	return &Route{BaseURL: base.String(), Query: u.Query()}
}

// Links maps relation names to URLs. Empty relations are omitted from JSON.
type Links struct {
	Self  string `json:"self,omitempty"`
	First string `json:"first,omitempty"`
	Last  string `json:"last,omitempty"`
	Prev  string `json:"prev,omitempty"`
	Next  string `json:"next,omitempty"`
}

// IsZero reports whether no relation was built.
func (l Links) IsZero() bool { return l == Links{} }

// Header renders the links as an RFC 8288 Link header value, in a fixed relation order.
func (l Links) Header() string {
	var parts []string
	add := func(rel, href string) {
		if href != "" {
			parts = append(parts, "<"+href+`>; rel="`+rel+`"`)
		}
	}
	add("self", l.Self)
	add("first", l.First)
	add("prev", l.Prev)
	add("next", l.Next)
	add("last", l.Last)
	return strings.Join(parts, ", ")
}

// BuildLinks derives self/first/last/prev/next for an offset window by overriding only
// the page parameter. A nil route yields zero Links instead of failing.
// last always exists; on an empty collection it equals first.
func BuildLinks(route *Route, w Window) Links {
	if route == nil {
		return Links{}
	}
	last := w.Pages
	if last < 1 {
		last = 1
	}
	out := Links{
		Self:  route.with(ParamPage, strconv.Itoa(w.Page)),
		First: route.with(ParamPage, "1"),
		Last:  route.with(ParamPage, strconv.Itoa(last)),
	}
	if w.PrevNum != nil {
		out.Prev = route.with(ParamPage, strconv.Itoa(*w.PrevNum))
	}
	if w.NextNum != nil {
		out.Next = route.with(ParamPage, strconv.Itoa(*w.NextNum))
	}
	return out
}

// BuildCursorLinks builds self, first (no cursor) and next for a cursor window.
// Cursor mode has no last or prev relation.
func BuildCursorLinks[T any](route *Route, p CursorPage[T]) Links {
	if route == nil {
		return Links{}
	}
	out := Links{
		Self:  route.with(ParamCursor, route.Query.Get(ParamCursor)),
		First: route.with(ParamCursor, ""),
	}
	if p.NextCursor != nil {
		out.Next = route.with(ParamCursor, *p.NextCursor)
	}
	return out
}

// with re-encodes the route query with key set to value; an empty value removes the key.
// url.Values.Encode sorts keys, so the same inputs always produce the same URL.
func (r *Route) with(key, value string) string {
	q := make(url.Values, len(r.Query)+1)
	for k, vs := range r.Query {
		q[k] = append([]string(nil), vs...)
	}
	if value == "" {
		q.Del(key)
	} else {
		q.Set(key, value)
	}
	enc := q.Encode()
	if enc == "" {
		return r.BaseURL
	}
	return r.BaseURL + "?" + enc
}

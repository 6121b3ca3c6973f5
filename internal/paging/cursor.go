package paging

import (
	"encoding/base64"
	"strconv"
	"strings"
)

const cursorPrefix = "id:"

// EncodeCursor wraps an id watermark into an opaque, URL-safe token.
func EncodeCursor(after int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(cursorPrefix + strconv.FormatInt(after, 10)))
}

// DecodeCursor reverses EncodeCursor. Any token it did not produce is an ErrInvalidParameter.
func DecodeCursor(token string) (int64, error) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(token, "="))
	if err != nil {
		return 0, invalid(ParamCursor, "is malformed")
	}
	s := string(b)
	if !strings.HasPrefix(s, cursorPrefix) {
		return 0, invalid(ParamCursor, "is malformed")
	}
	v, err := strconv.ParseInt(strings.TrimPrefix(s, cursorPrefix), 10, 64)
	if err != nil || v < 0 {
		return 0, invalid(ParamCursor, "is malformed")
	}
	return v, nil
}

// CursorPage is one window of a cursor-paginated listing. There is no total on purpose.
type CursorPage[T any] struct {
	Items      []T     `json:"items"`
	PerPage    int     `json:"per_page"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
	NextAfter  *int64  `json:"-"`
	Links      Links   `json:"links"`
}

// TrimCursor applies the N+1 rule to items fetched with limit n+1 after the current watermark:
// the extra row only proves there is more and is dropped, and the next watermark is the
// key of the last retained item.
func TrimCursor[T any](items []T, n int, key func(T) int64) CursorPage[T] {
	if n < 1 {
		n = 1
	}
	out := CursorPage[T]{PerPage: n}
	if len(items) > n {
		out.HasMore = true
		items = items[:n]
	}
	if items == nil {
		items = make([]T, 0)
	}
	out.Items = items
	if out.HasMore && len(items) > 0 {
		after := key(items[len(items)-1])
		token := EncodeCursor(after)
		out.NextAfter = &after
		out.NextCursor = &token
	}
	return out
}

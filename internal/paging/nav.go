package paging

// Span controls how many page numbers Nav shows around the edges and the current page.
type Span struct {
	LeftEdge     int
	LeftCurrent  int
	RightCurrent int
	RightEdge    int
}

// DefaultSpan shows 2 pages at each edge, 2 before and 3 after the current page.
var DefaultSpan = Span{LeftEdge: 2, LeftCurrent: 2, RightCurrent: 3, RightEdge: 2}

// Gap is the placeholder Nav emits where page numbers are elided.
const Gap = 0

// Nav lists page numbers for a pager widget, using Gap for elided runs.
// For 20 pages on page 10 with DefaultSpan it yields 1 2 0 8 9 10 11 12 13 0 19 20.
func Nav(w Window, s Span) []int {
	last := w.Pages
	if last < 1 {
		return nil
	}
	// a page past the end renders like the page just after last
	page := min(max(w.Page, 1), last+1)
	var out []int
	for n := 1; n <= min(s.LeftEdge, last); n++ {
		out = append(out, n)
	}
	if s.LeftEdge+1 < page-s.LeftCurrent {
		out = append(out, Gap)
	}
	for n := max(s.LeftEdge+1, page-s.LeftCurrent); n <= min(last, page+s.RightCurrent); n++ {
		out = append(out, n)
	}
	if page+s.RightCurrent < last-s.RightEdge {
		out = append(out, Gap)
	}
	for n := max(page+s.RightCurrent+1, last-s.RightEdge+1); n <= last; n++ {
		out = append(out, n)
	}
	return out
}

package paging

// Window is the navigation metadata of one offset page.
type Window struct {
	Page    int  `json:"page"`
	PerPage int  `json:"per_page"`
	Total   int  `json:"total"`
	Pages   int  `json:"pages"`
	HasPrev bool `json:"has_prev"`
	HasNext bool `json:"has_next"`
	PrevNum *int `json:"prev_num"`
	NextNum *int `json:"next_num"`
	Offset  int  `json:"-"`
}

// PageCount is ceil(total/perPage); zero when perPage is not positive.
func PageCount(total, perPage int) int {
	if perPage <= 0 || total <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}

// Compute derives the window for an already validated page and per_page.
// Past the last page Offset saturates at total, so a huge page number can never
// wrap the multiplication around into a valid-looking window.
func Compute(total, page, perPage int) Window {
	if total < 0 {
		total = 0
	}
	w := Window{
		Page:    page,
		PerPage: perPage,
		Total:   total,
		Pages:   PageCount(total, perPage),
		Offset:  total,
	}
	if page >= 1 && page <= w.Pages {
		// page <= ceil(total/perPage) keeps the product below total
		w.Offset = (page - 1) * perPage
	}
	w.HasPrev = page > 1
	w.HasNext = page < w.Pages
	if w.HasPrev {
		prev := page - 1
		w.PrevNum = &prev
	}
	if w.HasNext {
		next := page + 1
		w.NextNum = &next
	}
	return w
}

// Empty reports whether the window starts at or past the end of the collection.
func (w Window) Empty() bool { return w.Offset >= w.Total }

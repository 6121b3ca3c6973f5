package repository

// Page represents a simple limit/offset window for listing operations.
// I keep it intentionally small; window arithmetic lives in the paging package.
type Page struct {
	Limit  int
	Offset int
}

// Sanitize applies storage-side defaults so a zero Page never means "everything".
func (p Page) Sanitize(defaultLimit int) Page {
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

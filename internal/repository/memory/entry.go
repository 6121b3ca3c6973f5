package memory

import (
	"context"
	"sort"

	"github.com/maxviazov/knowledge-hub/internal/model"
	"github.com/maxviazov/knowledge-hub/internal/repository"
)

type entryRepository struct{ db *DB }

func (r *entryRepository) slugTaken(slug string, exceptID int64) bool {
	for id, e := range r.db.state.entries {
		if id != exceptID && e.Slug == slug {
			return true
		}
	}
	return false
}

func (r *entryRepository) Create(_ context.Context, e model.Entry) (model.Entry, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.state.users[e.AuthorID]; !ok {
		return model.Entry{}, repository.ErrConflict
	}
	if r.slugTaken(e.Slug, 0) {
		return model.Entry{}, repository.ErrAlreadyExists
	}
	now := r.db.now()
	e.ID = r.db.nextID()
	e.CreatedAt, e.UpdatedAt = now, now
	e.ViewCount = 0
	e.Tags = append([]string{}, e.Tags...)
	e.Author, e.Categories = "", nil
	r.db.state.entries[e.ID] = e
	return r.db.hydrate(e), nil
}

func (r *entryRepository) GetByID(_ context.Context, id int64) (model.Entry, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	e, ok := r.db.state.entries[id]
	if !ok {
		return model.Entry{}, repository.ErrNotFound
	}
	return r.db.hydrate(e), nil
}

func (r *entryRepository) Update(_ context.Context, e model.Entry) (model.Entry, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cur, ok := r.db.state.entries[e.ID]
	if !ok {
		return model.Entry{}, repository.ErrNotFound
	}
	if r.slugTaken(e.Slug, e.ID) {
		return model.Entry{}, repository.ErrAlreadyExists
	}
	cur.Title, cur.Slug, cur.Summary, cur.Content = e.Title, e.Slug, e.Summary, e.Content
	cur.Status, cur.Priority, cur.IsPublic, cur.Featured = e.Status, e.Priority, e.IsPublic, e.Featured
	cur.Tags = append([]string{}, e.Tags...)
	cur.WordCount, cur.ReadingTime, cur.PublishedAt = e.WordCount, e.ReadingTime, e.PublishedAt
	cur.UpdatedAt = r.db.now()
	r.db.state.entries[e.ID] = cur
	return r.db.hydrate(cur), nil
}

func (r *entryRepository) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.state.entries[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.state.entries, id)
	delete(r.db.state.entryCats, id)
	return nil
}

func (r *entryRepository) SlugExists(_ context.Context, slug string) (bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return r.slugTaken(slug, 0), nil
}

func (r *entryRepository) SetCategories(_ context.Context, entryID int64, slugs []string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.state.entries[entryID]; !ok {
		return repository.ErrConflict
	}
	want := make(map[string]struct{}, len(slugs))
	for _, s := range slugs {
		want[s] = struct{}{}
	}
	set := map[int64]struct{}{}
	for id, c := range r.db.state.categories {
		if _, ok := want[c.Slug]; ok {
			set[id] = struct{}{}
		}
	}
	r.db.state.entryCats[entryID] = set
	return nil
}

func (r *entryRepository) IncrementViews(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if e, ok := r.db.state.entries[id]; ok {
		e.ViewCount++
		r.db.state.entries[id] = e
	}
	return nil
}

func (r *entryRepository) filtered(f model.EntryFilter) []model.Entry {
	out := make([]model.Entry, 0)
	for _, e := range r.db.state.entries {
		if r.db.matches(e, f) {
			out = append(out, e)
		}
	}
	return out
}

func (r *entryRepository) Count(_ context.Context, f model.EntryFilter) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return len(r.filtered(f)), nil
}

func (r *entryRepository) List(_ context.Context, f model.EntryFilter, p repository.Page) ([]model.Entry, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	all := r.filtered(f)
	lessFn := less(f.Sort)
	sort.Slice(all, func(i, j int) bool { return lessFn(all[i], all[j]) })
	page := window(all, p)
	out := make([]model.Entry, len(page))
	for i, e := range page {
		out[i] = r.db.hydrate(e)
	}
	return out, nil
}

func (r *entryRepository) ListAfter(_ context.Context, f model.EntryFilter, after *int64, limit int) ([]model.Entry, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	all := r.filtered(f)
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	if after != nil {
		i := sort.Search(len(all), func(i int) bool { return all[i].ID > *after })
		all = all[i:]
	}
	page := window(all, repository.Page{Limit: limit})
	out := make([]model.Entry, len(page))
	for i, e := range page {
		out[i] = r.db.hydrate(e)
	}
	return out, nil
}

var _ repository.EntryRepository = (*entryRepository)(nil)

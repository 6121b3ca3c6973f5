// Package memory is an in-process storage backend used for local runs and tests.
// It honours the same filter, ordering and error contracts as the Postgres backend.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/maxviazov/knowledge-hub/internal/model"
	"github.com/maxviazov/knowledge-hub/internal/repository"
)

const defaultPageLimit = 50

// DB holds every table behind one RWMutex.
type DB struct {
	mu    sync.RWMutex
	state state
	now   func() time.Time
	// txMu serialises WithinTx so a snapshot is never restored over another tx's writes.
	txMu sync.Mutex
}

type state struct {
	users      map[int64]model.User
	categories map[int64]model.Category
	entries    map[int64]model.Entry
	// entryCats maps entry id to category ids.
	entryCats map[int64]map[int64]struct{}
	seq       int64
}

func newState() state {
	return state{
		users:      map[int64]model.User{},
		categories: map[int64]model.Category{},
		entries:    map[int64]model.Entry{},
		entryCats:  map[int64]map[int64]struct{}{},
	}
}

func (s state) clone() state {
	c := newState()
	c.seq = s.seq
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.entries {
		v.Tags = append([]string(nil), v.Tags...)
		c.entries[k] = v
	}
	for k, set := range s.entryCats {
		cp := make(map[int64]struct{}, len(set))
		for id := range set {
			cp[id] = struct{}{}
		}
		c.entryCats[k] = cp
	}
	return c
}

// New returns an empty database.
func New() *DB {
	return &DB{state: newState(), now: func() time.Time { return time.Now().UTC() }}
}

func (db *DB) nextID() int64 {
	db.state.seq++
	return db.state.seq
}

func (db *DB) Entries() repository.EntryRepository       { return &entryRepository{db: db} }
func (db *DB) Categories() repository.CategoryRepository { return &categoryRepository{db: db} }
func (db *DB) Users() repository.UserRepository          { return &userRepository{db: db} }
func (db *DB) TxManager() repository.TxManager           { return &txManager{db: db} }
func (db *DB) Pinger() repository.Pinger                 { return pinger{} }

type txKey struct{}

type txManager struct{ db *DB }

// WithinTx snapshots the state and restores it when fn fails.
// Nested calls join the outer transaction.
func (m *txManager) WithinTx(ctx context.Context, fn repository.TxFunc) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	m.db.txMu.Lock()
	defer m.db.txMu.Unlock()

	m.db.mu.RLock()
	snapshot := m.db.state.clone()
	m.db.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		m.db.mu.Lock()
		m.db.state = snapshot
		m.db.mu.Unlock()
		return err
	}
	return nil
}

type pinger struct{}

func (pinger) Ping(ctx context.Context) error { return ctx.Err() }

// matches applies an EntryFilter the same way the SQL WHERE builder does.
func (db *DB) matches(e model.Entry, f model.EntryFilter) bool {
	if !f.Visibility.All && !e.IsPublic {
		if f.Visibility.OwnerID == 0 || e.AuthorID != f.Visibility.OwnerID {
			return false
		}
	}
	if f.Category != "" {
		found := false
		for cid := range db.state.entryCats[e.ID] {
			if db.state.categories[cid].Slug == f.Category {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		hay := strings.ToLower(e.Title + "\x00" + e.Content + "\x00" + strings.Join(e.Tags, " "))
		if !strings.Contains(hay, q) {
			return false
		}
	}
	if f.AuthorID != nil && e.AuthorID != *f.AuthorID {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.From != nil && e.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && e.CreatedAt.After(*f.To) {
		return false
	}
	return true
}

// less mirrors the SQL ORDER BY for each sort, ending on id.
func less(sortKey string) func(a, b model.Entry) bool {
	switch model.NormalizeSort(sortKey) {
	case model.SortCreatedAsc:
		return func(a, b model.Entry) bool {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		}
	case model.SortTitleAsc:
		return func(a, b model.Entry) bool {
			if a.Title != b.Title {
				return a.Title < b.Title
			}
			return a.ID < b.ID
		}
	case model.SortTitleDesc:
		return func(a, b model.Entry) bool {
			if a.Title != b.Title {
				return a.Title > b.Title
			}
			return a.ID > b.ID
		}
	case model.SortViewsDesc:
		return func(a, b model.Entry) bool {
			if a.ViewCount != b.ViewCount {
				return a.ViewCount > b.ViewCount
			}
			return a.ID > b.ID
		}
	default:
		return func(a, b model.Entry) bool {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.ID > b.ID
		}
	}
}

// hydrate fills the derived read-time fields.
func (db *DB) hydrate(e model.Entry) model.Entry {
	e.Author = db.state.users[e.AuthorID].Username
	cats := make([]string, 0, len(db.state.entryCats[e.ID]))
	for cid := range db.state.entryCats[e.ID] {
		cats = append(cats, db.state.categories[cid].Slug)
	}
	sort.Strings(cats)
	e.Categories = cats
	e.Tags = append([]string{}, e.Tags...)
	return e
}

func window[T any](items []T, p repository.Page) []T {
	p = p.Sanitize(defaultPageLimit)
	if p.Offset >= len(items) {
		return []T{}
	}
	end := p.Offset + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[p.Offset:end]
}

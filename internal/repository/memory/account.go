package memory

import (
	"context"
	"sort"

	"github.com/maxviazov/knowledge-hub/internal/model"
	"github.com/maxviazov/knowledge-hub/internal/repository"
)

type categoryRepository struct{ db *DB }

func (r *categoryRepository) withCount(c model.Category) model.Category {
	n := 0
	for _, set := range r.db.state.entryCats {
		if _, ok := set[c.ID]; ok {
			n++
		}
	}
	c.EntryCount = n
	return c
}

func (r *categoryRepository) Create(_ context.Context, c model.Category) (model.Category, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, cur := range r.db.state.categories {
		if cur.Name == c.Name || cur.Slug == c.Slug {
			return model.Category{}, repository.ErrAlreadyExists
		}
	}
	now := r.db.now()
	c.ID = r.db.nextID()
	c.CreatedAt, c.UpdatedAt, c.EntryCount = now, now, 0
	r.db.state.categories[c.ID] = c
	return c, nil
}

func (r *categoryRepository) GetBySlug(_ context.Context, slug string) (model.Category, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, c := range r.db.state.categories {
		if c.Slug == slug {
			return r.withCount(c), nil
		}
	}
	return model.Category{}, repository.ErrNotFound
}

func (r *categoryRepository) List(_ context.Context) ([]model.Category, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := make([]model.Category, 0, len(r.db.state.categories))
	for _, c := range r.db.state.categories {
		out = append(out, r.withCount(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *categoryRepository) Count(_ context.Context) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return len(r.db.state.categories), nil
}

type userRepository struct{ db *DB }

func (r *userRepository) Create(_ context.Context, u model.User) (model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, cur := range r.db.state.users {
		if cur.Username == u.Username || cur.Email == u.Email {
			return model.User{}, repository.ErrAlreadyExists
		}
	}
	now := r.db.now()
	u.ID = r.db.nextID()
	u.CreatedAt, u.UpdatedAt = now, now
	r.db.state.users[u.ID] = u
	return u, nil
}

func (r *userRepository) GetByID(_ context.Context, id int64) (model.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	u, ok := r.db.state.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (r *userRepository) GetByUsername(_ context.Context, username string) (model.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, u := range r.db.state.users {
		if u.Username == username {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (r *userRepository) update(id int64, fn func(*model.User)) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.state.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&u)
	r.db.state.users[id] = u
	return nil
}

func (r *userRepository) SetAdmin(_ context.Context, id int64, admin bool) error {
	return r.update(id, func(u *model.User) {
		u.IsAdmin = admin
		u.UpdatedAt = r.db.now()
	})
}

func (r *userRepository) TouchLogin(_ context.Context, id int64) error {
	return r.update(id, func(u *model.User) {
		now := r.db.now()
		u.LastLogin = &now
	})
}

func (r *userRepository) Count(_ context.Context) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return len(r.db.state.users), nil
}

func (r *userRepository) List(_ context.Context, p repository.Page) ([]model.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	all := make([]model.User, 0, len(r.db.state.users))
	for _, u := range r.db.state.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return append([]model.User{}, window(all, p)...), nil
}

var (
	_ repository.CategoryRepository = (*categoryRepository)(nil)
	_ repository.UserRepository     = (*userRepository)(nil)
)

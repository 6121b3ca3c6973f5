package repository

import (
	"context"

	"github.com/maxviazov/knowledge-hub/internal/model"
)

// Pinger represents a minimal readiness probe capability.
// I use it to decouple health checks from storage implementation details.
type Pinger interface {
	Ping(ctx context.Context) error
}

// TxFunc is the unit of work executed within a transaction boundary.
// I pass context through so nested calls can honor cancellations and deadlines.
type TxFunc func(ctx context.Context) error

// TxManager abstracts transactional execution for repositories that support it.
// I prefer a single entry point to keep transaction boundaries explicit and testable.
type TxManager interface {
	WithinTx(ctx context.Context, fn TxFunc) error
}

// EntryRepository declares persistence operations for knowledge entries.
// Listing is split into Count and List so the paging layer can drive both reads;
// List and ListAfter must return rows in a deterministic order (id is the final tie-break).
type EntryRepository interface {
	Create(ctx context.Context, e model.Entry) (model.Entry, error)
	GetByID(ctx context.Context, id int64) (model.Entry, error)
	Update(ctx context.Context, e model.Entry) (model.Entry, error)
	Delete(ctx context.Context, id int64) error
	SlugExists(ctx context.Context, slug string) (bool, error)
	// SetCategories replaces the entry's categories with the given category slugs.
	SetCategories(ctx context.Context, entryID int64, slugs []string) error
	IncrementViews(ctx context.Context, id int64) error
	Count(ctx context.Context, f model.EntryFilter) (int, error)
	List(ctx context.Context, f model.EntryFilter, p Page) ([]model.Entry, error)
	// ListAfter returns up to limit entries with id > *after (or from the start when after is nil),
	// ordered by id ascending. f.Sort is ignored.
	ListAfter(ctx context.Context, f model.EntryFilter, after *int64, limit int) ([]model.Entry, error)
}

// CategoryRepository declares persistence operations for categories.
type CategoryRepository interface {
	Create(ctx context.Context, c model.Category) (model.Category, error)
	GetBySlug(ctx context.Context, slug string) (model.Category, error)
	// List returns all categories ordered by name with their entry counts.
	List(ctx context.Context) ([]model.Category, error)
	Count(ctx context.Context) (int, error)
}

// UserRepository declares persistence operations for accounts.
type UserRepository interface {
	Create(ctx context.Context, u model.User) (model.User, error)
	GetByID(ctx context.Context, id int64) (model.User, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
	SetAdmin(ctx context.Context, id int64, admin bool) error
	TouchLogin(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
	List(ctx context.Context, p Page) ([]model.User, error)
}

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maxviazov/knowledge-hub/internal/model"
	"github.com/maxviazov/knowledge-hub/internal/repository"
)

type entryRepository struct{ pool *pgxpool.Pool }

func NewEntryRepository(pool *pgxpool.Pool) repository.EntryRepository {
	return &entryRepository{pool: pool}
}

// entryColumns selects one entry row with its author name and sorted category slugs.
const entryColumns = `
	e.id, e.title, e.slug, e.summary, e.content, e.status, e.priority, e.is_public, e.featured,
	e.author_id, COALESCE(u.username, ''),
	COALESCE(ARRAY(
		SELECT c.slug FROM entry_categories ec JOIN categories c ON c.id = ec.category_id
		WHERE ec.entry_id = e.id ORDER BY c.slug
	), '{}'),
	e.tags, e.word_count, e.reading_time, e.view_count, e.published_at, e.created_at, e.updated_at`

const entryFrom = ` FROM entries e LEFT JOIN users u ON u.id = e.author_id`

func scanEntry(row pgx.Row) (model.Entry, error) {
	var e model.Entry
	err := row.Scan(
		&e.ID, &e.Title, &e.Slug, &e.Summary, &e.Content, &e.Status, &e.Priority, &e.IsPublic, &e.Featured,
		&e.AuthorID, &e.Author, &e.Categories,
		&e.Tags, &e.WordCount, &e.ReadingTime, &e.ViewCount, &e.PublishedAt, &e.CreatedAt, &e.UpdatedAt,
	)
	if e.Tags == nil {
		e.Tags = []string{}
	}
	return e, err
}

func (r *entryRepository) Create(ctx context.Context, e model.Entry) (model.Entry, error) {
	if err := ensurePool(r.pool); err != nil {
		return model.Entry{}, err
	}
	exec := getQ(ctx, r.pool)
	var id int64
	err := exec.QueryRow(ctx,
		`INSERT INTO entries (title, slug, summary, content, status, priority, is_public, featured,
		                      author_id, tags, word_count, reading_time, published_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING id`,
		e.Title, e.Slug, e.Summary, e.Content, e.Status, e.Priority, e.IsPublic, e.Featured,
		e.AuthorID, nonNil(e.Tags), e.WordCount, e.ReadingTime, e.PublishedAt,
	).Scan(&id)
	if err != nil {
		return model.Entry{}, repository.MapPgError(err)
	}
	return r.GetByID(ctx, id)
}

func (r *entryRepository) GetByID(ctx context.Context, id int64) (model.Entry, error) {
	if err := ensurePool(r.pool); err != nil {
		return model.Entry{}, err
	}
	exec := getQ(ctx, r.pool)
	e, err := scanEntry(exec.QueryRow(ctx, `SELECT `+entryColumns+entryFrom+` WHERE e.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Entry{}, repository.ErrNotFound
		}
		return model.Entry{}, repository.MapPgError(err)
	}
	return e, nil
}

func (r *entryRepository) Update(ctx context.Context, e model.Entry) (model.Entry, error) {
	if err := ensurePool(r.pool); err != nil {
		return model.Entry{}, err
	}
	exec := getQ(ctx, r.pool)
	tag, err := exec.Exec(ctx,
		`UPDATE entries SET title = $2, slug = $3, summary = $4, content = $5, status = $6, priority = $7,
		        is_public = $8, featured = $9, tags = $10, word_count = $11, reading_time = $12,
		        published_at = $13, updated_at = now()
		 WHERE id = $1`,
		e.ID, e.Title, e.Slug, e.Summary, e.Content, e.Status, e.Priority,
		e.IsPublic, e.Featured, nonNil(e.Tags), e.WordCount, e.ReadingTime, e.PublishedAt,
	)
	if err != nil {
		return model.Entry{}, repository.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return model.Entry{}, repository.ErrNotFound
	}
	return r.GetByID(ctx, e.ID)
}

func (r *entryRepository) Delete(ctx context.Context, id int64) error {
	if err := ensurePool(r.pool); err != nil {
		return err
	}
	tag, err := getQ(ctx, r.pool).Exec(ctx, `DELETE FROM entries WHERE id = $1`, id)
	if err != nil {
		return repository.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *entryRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	if err := ensurePool(r.pool); err != nil {
		return false, err
	}
	var exists bool
	err := getQ(ctx, r.pool).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM entries WHERE slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return false, repository.MapPgError(err)
	}
	return exists, nil
}

// SetCategories replaces the association rows. Unknown slugs are ignored; the service
// checks them before calling.
func (r *entryRepository) SetCategories(ctx context.Context, entryID int64, slugs []string) error {
	if err := ensurePool(r.pool); err != nil {
		return err
	}
	exec := getQ(ctx, r.pool)
	if _, err := exec.Exec(ctx, `DELETE FROM entry_categories WHERE entry_id = $1`, entryID); err != nil {
		return repository.MapPgError(err)
	}
	if len(slugs) == 0 {
		return nil
	}
	_, err := exec.Exec(ctx,
		`INSERT INTO entry_categories (entry_id, category_id)
		 SELECT $1, id FROM categories WHERE slug = ANY($2)`,
		entryID, slugs,
	)
	return repository.MapPgError(err)
}

func (r *entryRepository) IncrementViews(ctx context.Context, id int64) error {
	if err := ensurePool(r.pool); err != nil {
		return err
	}
	_, err := getQ(ctx, r.pool).Exec(ctx, `UPDATE entries SET view_count = view_count + 1 WHERE id = $1`, id)
	return repository.MapPgError(err)
}

func (r *entryRepository) Count(ctx context.Context, f model.EntryFilter) (int, error) {
	if err := ensurePool(r.pool); err != nil {
		return 0, err
	}
	w := entryWhere(f)
	var n int
	if err := getQ(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM entries e`+w.sql(), w.args...).Scan(&n); err != nil {
		return 0, repository.MapPgError(err)
	}
	return n, nil
}

func (r *entryRepository) List(ctx context.Context, f model.EntryFilter, p repository.Page) ([]model.Entry, error) {
	if err := ensurePool(r.pool); err != nil {
		return nil, err
	}
	limit, offset := sanitizeLimitOffset(p.Limit, p.Offset)
	w := entryWhere(f)
	query := `SELECT ` + entryColumns + entryFrom + w.sql() + entryOrder(f.Sort) +
		` LIMIT ` + w.arg(limit) + ` OFFSET ` + w.arg(offset)
	return r.query(ctx, query, w.args, limit)
}

func (r *entryRepository) ListAfter(ctx context.Context, f model.EntryFilter, after *int64, limit int) ([]model.Entry, error) {
	if err := ensurePool(r.pool); err != nil {
		return nil, err
	}
	limit, _ = sanitizeLimitOffset(limit, 0)
	w := entryWhere(f)
	if after != nil {
		w.add("e.id > " + w.arg(*after))
	}
	query := `SELECT ` + entryColumns + entryFrom + w.sql() + ` ORDER BY e.id ASC LIMIT ` + w.arg(limit)
	return r.query(ctx, query, w.args, limit)
}

func (r *entryRepository) query(ctx context.Context, sql string, args []any, capHint int) ([]model.Entry, error) {
	rows, err := getQ(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, repository.MapPgError(err)
	}
	defer rows.Close()
	out := make([]model.Entry, 0, capHint)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, repository.MapPgError(err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, repository.MapPgError(err)
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var _ repository.EntryRepository = (*entryRepository)(nil)

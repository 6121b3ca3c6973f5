package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maxviazov/knowledge-hub/internal/model"
	"github.com/maxviazov/knowledge-hub/internal/repository"
)

type categoryRepository struct{ pool *pgxpool.Pool }

func NewCategoryRepository(pool *pgxpool.Pool) repository.CategoryRepository {
	return &categoryRepository{pool: pool}
}

const categoryColumns = `c.id, c.name, c.slug, c.description, c.color,
	(SELECT COUNT(*) FROM entry_categories ec WHERE ec.category_id = c.id), c.created_at, c.updated_at`

func scanCategory(row pgx.Row) (model.Category, error) {
	var c model.Category
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.Color, &c.EntryCount, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *categoryRepository) Create(ctx context.Context, c model.Category) (model.Category, error) {
	if err := ensurePool(r.pool); err != nil {
		return model.Category{}, err
	}
	row := getQ(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO categories (name, slug, description, color) VALUES ($1, $2, $3, $4)
		 RETURNING id, name, slug, description, color, 0, created_at, updated_at`,
		c.Name, c.Slug, c.Description, c.Color,
	)
	out, err := scanCategory(row)
	if err != nil {
		return model.Category{}, repository.MapPgError(err)
	}
	return out, nil
}

func (r *categoryRepository) GetBySlug(ctx context.Context, slug string) (model.Category, error) {
	if err := ensurePool(r.pool); err != nil {
		return model.Category{}, err
	}
	out, err := scanCategory(getQ(ctx, r.pool).QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories c WHERE c.slug = $1`, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Category{}, repository.ErrNotFound
		}
		return model.Category{}, repository.MapPgError(err)
	}
	return out, nil
}

func (r *categoryRepository) List(ctx context.Context) ([]model.Category, error) {
	if err := ensurePool(r.pool); err != nil {
		return nil, err
	}
	rows, err := getQ(ctx, r.pool).Query(ctx, `SELECT `+categoryColumns+` FROM categories c ORDER BY c.name, c.id`)
	if err != nil {
		return nil, repository.MapPgError(err)
	}
	defer rows.Close()
	out := make([]model.Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, repository.MapPgError(err)
		}
		out = append(out, c)
	}
	return out, repository.MapPgError(rows.Err())
}

func (r *categoryRepository) Count(ctx context.Context) (int, error) {
	if err := ensurePool(r.pool); err != nil {
		return 0, err
	}
	var n int
	if err := getQ(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM categories`).Scan(&n); err != nil {
		return 0, repository.MapPgError(err)
	}
	return n, nil
}

var _ repository.CategoryRepository = (*categoryRepository)(nil)

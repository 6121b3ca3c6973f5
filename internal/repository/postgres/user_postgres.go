package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maxviazov/knowledge-hub/internal/model"
	"github.com/maxviazov/knowledge-hub/internal/repository"
)

type userRepository struct{ pool *pgxpool.Pool }

func NewUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, username, email, password_hash, is_admin, is_active, last_login, created_at, updated_at`

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.IsActive, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *userRepository) Create(ctx context.Context, u model.User) (model.User, error) {
	if err := ensurePool(r.pool); err != nil {
		return model.User{}, err
	}
	out, err := scanUser(getQ(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash, is_admin, is_active)
		 VALUES ($1, $2, $3, $4, $5) RETURNING `+userColumns,
		u.Username, u.Email, u.PasswordHash, u.IsAdmin, u.IsActive,
	))
	if err != nil {
		return model.User{}, repository.MapPgError(err)
	}
	return out, nil
}

func (r *userRepository) get(ctx context.Context, where string, arg any) (model.User, error) {
	if err := ensurePool(r.pool); err != nil {
		return model.User{}, err
	}
	out, err := scanUser(getQ(ctx, r.pool).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, repository.ErrNotFound
		}
		return model.User{}, repository.MapPgError(err)
	}
	return out, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (model.User, error) {
	return r.get(ctx, "id = $1", id)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (model.User, error) {
	return r.get(ctx, "username = $1", username)
}

func (r *userRepository) SetAdmin(ctx context.Context, id int64, admin bool) error {
	return r.exec(ctx, `UPDATE users SET is_admin = $2, updated_at = now() WHERE id = $1`, id, admin)
}

func (r *userRepository) TouchLogin(ctx context.Context, id int64) error {
	return r.exec(ctx, `UPDATE users SET last_login = now() WHERE id = $1`, id)
}

func (r *userRepository) exec(ctx context.Context, sql string, args ...any) error {
	if err := ensurePool(r.pool); err != nil {
		return err
	}
	tag, err := getQ(ctx, r.pool).Exec(ctx, sql, args...)
	if err != nil {
		return repository.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *userRepository) Count(ctx context.Context) (int, error) {
	if err := ensurePool(r.pool); err != nil {
		return 0, err
	}
	var n int
	if err := getQ(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, repository.MapPgError(err)
	}
	return n, nil
}

func (r *userRepository) List(ctx context.Context, p repository.Page) ([]model.User, error) {
	if err := ensurePool(r.pool); err != nil {
		return nil, err
	}
	limit, offset := sanitizeLimitOffset(p.Limit, p.Offset)
	rows, err := getQ(ctx, r.pool).Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, repository.MapPgError(err)
	}
	defer rows.Close()
	out := make([]model.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, repository.MapPgError(err)
		}
		out = append(out, u)
	}
	return out, repository.MapPgError(rows.Err())
}

var _ repository.UserRepository = (*userRepository)(nil)

package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/tixhub/internal/domain"
)

type UserRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *UserRepo) With(db DB) *UserRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *UserRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const userColumns = `id, username, email, password_hash, roles`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Roles); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a user.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - u: user to insert; PasswordHash must already be hashed.
//
// Returns:
//   - int64: the created user ID.
//   - error: repository.ErrConflict if the username or email is taken.
func (r *UserRepo) Create(ctx context.Context, u domain.User) (int64, error) {
	const op = "postgres.UserRepo.Create"

	roles := u.Roles
	if len(roles) == 0 {
		roles = []string{domain.RoleUser}
	}

	var id int64
	if err := r.handle().QueryRow(ctx,
		`INSERT INTO users(username, email, password_hash, roles)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		u.Username, u.Email, u.PasswordHash, roles,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	const op = "postgres.UserRepo.GetByID"

	u, err := scanUser(r.handle().QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return u, nil
}

// GetByLogin looks a user up by username or email.
func (r *UserRepo) GetByLogin(ctx context.Context, login string) (*domain.User, error) {
	const op = "postgres.UserRepo.GetByLogin"

	u, err := scanUser(r.handle().QueryRow(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE username = $1 OR lower(email) = lower($1)
		 ORDER BY id
		 LIMIT 1`,
		login,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return u, nil
}

func (r *UserRepo) ListByRole(ctx context.Context, role string, limit, offset int) ([]domain.User, error) {
	const op = "postgres.UserRepo.ListByRole"

	rows, err := r.handle().Query(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE $1 = ANY(roles)
		 ORDER BY username
		 LIMIT $2 OFFSET $3`,
		role, limit, offset,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	out := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/tixhub/internal/domain"
)

type VenueRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *VenueRepo) With(db DB) *VenueRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *VenueRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Create inserts a venue and returns its ID.
//
// Returns:
//   - int64: the created venue ID.
//   - error: repository.ErrConflict if a venue with the same name exists.
func (r *VenueRepo) Create(ctx context.Context, v domain.Venue) (int64, error) {
	const op = "postgres.VenueRepo.Create"

	var id int64
	if err := r.handle().QueryRow(ctx,
		`INSERT INTO venues(name, seats, location)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		v.Name, v.Seats, v.Location,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

// Get retrieves a venue by its ID.
//
// Returns:
//   - error: repository.ErrNotFound if the venue does not exist.
func (r *VenueRepo) Get(ctx context.Context, id int64) (*domain.Venue, error) {
	const op = "postgres.VenueRepo.Get"

	var v domain.Venue
	if err := r.handle().QueryRow(ctx,
		`SELECT id, name, seats, location FROM venues WHERE id = $1`,
		id,
	).Scan(&v.ID, &v.Name, &v.Seats, &v.Location); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &v, nil
}

func (r *VenueRepo) List(ctx context.Context, limit, offset int) ([]domain.Venue, error) {
	const op = "postgres.VenueRepo.List"

	rows, err := r.handle().Query(ctx,
		`SELECT id, name, seats, location
		 FROM venues
		 ORDER BY name
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	out := []domain.Venue{}
	for rows.Next() {
		var v domain.Venue
		if err := rows.Scan(&v.ID, &v.Name, &v.Seats, &v.Location); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

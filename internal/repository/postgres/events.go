package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/tixhub/internal/domain"
	"github.com/kirinyoku/tixhub/internal/repository"
)

type EventRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *EventRepo) With(db DB) *EventRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *EventRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const selectEventSQL = `
SELECT e.id, e.title, e.type, e.price, e.venue_id,
       COALESCE(e.billing_event_id, ''), COALESCE(e.billing_price_id, ''),
       v.id, v.name, v.seats, v.location
FROM events e
JOIN venues v ON v.id = e.venue_id`

func scanEvent(row pgx.Row) (*domain.Event, error) {
	var e domain.Event
	var v domain.Venue

	if err := row.Scan(
		&e.ID, &e.Title, &e.Type, &e.Price, &e.VenueID,
		&e.Billing.EventID, &e.Billing.PriceID,
		&v.ID, &v.Name, &v.Seats, &v.Location,
	); err != nil {
		return nil, err
	}

	e.Venue = &v
	e.Schedules = []domain.Schedule{}

	return &e, nil
}

// Create inserts an event together with its schedules.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - e: event to insert; ID and schedule IDs are ignored.
//
// Returns:
//   - int64: the created event ID.
//   - error: repository.ErrForeignKey if the venue does not exist.
func (r *EventRepo) Create(ctx context.Context, e domain.Event) (int64, error) {
	const op = "postgres.EventRepo.Create"

	db := r.handle()

	var id int64
	if err := db.QueryRow(ctx,
		`INSERT INTO events(title, type, price, venue_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		e.Title, e.Type, e.Price, e.VenueID,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	if len(e.Schedules) == 0 {
		return id, nil
	}

	batch := &pgx.Batch{}
	for _, s := range e.Schedules {
		batch.Queue(
			`INSERT INTO schedules(event_id, date, times) VALUES ($1, $2, $3)`,
			id, s.Date, s.Times,
		)
	}
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

// Get retrieves an event by its ID with its venue and schedules.
//
// Returns:
//   - *domain.Event: the event when found.
//   - error: repository.ErrNotFound if the event is not found.
func (r *EventRepo) Get(ctx context.Context, id int64) (*domain.Event, error) {
	const op = "postgres.EventRepo.Get"

	e, err := r.load(ctx, id, false)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return e, nil
}

// GetForUpdate is Get with the event row locked until the surrounding
// transaction ends. Only meaningful on a repo bound to a transaction.
func (r *EventRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Event, error) {
	const op = "postgres.EventRepo.GetForUpdate"

	e, err := r.load(ctx, id, true)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return e, nil
}

func (r *EventRepo) load(ctx context.Context, id int64, forUpdate bool) (*domain.Event, error) {
	db := r.handle()

	q := selectEventSQL + ` WHERE e.id = $1`
	if forUpdate {
		q += ` FOR UPDATE OF e`
	}

	e, err := scanEvent(db.QueryRow(ctx, q, id))
	if err != nil {
		return nil, err
	}

	schedules, err := r.schedules(ctx, db, []int64{id})
	if err != nil {
		return nil, err
	}
	e.Schedules = append(e.Schedules, schedules[id]...)

	return e, nil
}

// List lists events ordered by ID with their venues and schedules.
func (r *EventRepo) List(ctx context.Context, limit, offset int) ([]domain.Event, error) {
	const op = "postgres.EventRepo.List"

	db := r.handle()

	rows, err := db.Query(ctx,
		selectEventSQL+` ORDER BY e.id LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	out := []domain.Event{}
	var ids []int64
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, *e)
		ids = append(ids, e.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	if len(ids) == 0 {
		return out, nil
	}

	schedules, err := r.schedules(ctx, db, ids)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	for i := range out {
		out[i].Schedules = append(out[i].Schedules, schedules[out[i].ID]...)
	}

	return out, nil
}

func (r *EventRepo) schedules(ctx context.Context, db DB, eventIDs []int64) (map[int64][]domain.Schedule, error) {
	rows, err := db.Query(ctx,
		`SELECT id, event_id, date, times
		 FROM schedules
		 WHERE event_id = ANY($1)
		 ORDER BY event_id, date, id`,
		eventIDs,
	)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	out := make(map[int64][]domain.Schedule, len(eventIDs))
	for rows.Next() {
		var s domain.Schedule
		if err := rows.Scan(&s.ID, &s.EventID, &s.Date, &s.Times); err != nil {
			return nil, err
		}
		out[s.EventID] = append(out[s.EventID], s)
	}

	return out, rows.Err()
}

// Update overwrites the editable event fields. Schedules and billing
// identifiers are left alone.
//
// Returns:
//   - error: repository.ErrNotFound if the event does not exist.
//   - error: repository.ErrForeignKey if the venue does not exist.
func (r *EventRepo) Update(ctx context.Context, e domain.Event) error {
	const op = "postgres.EventRepo.Update"

	tag, err := r.handle().Exec(ctx,
		`UPDATE events
		 SET title = $2, type = $3, price = $4, venue_id = $5
		 WHERE id = $1`,
		e.ID, e.Title, e.Type, e.Price, e.VenueID,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}

// SaveBilling stores the billing provider identifiers of an event.
func (r *EventRepo) SaveBilling(ctx context.Context, id int64, ref domain.BillingRef) error {
	const op = "postgres.EventRepo.SaveBilling"

	tag, err := r.handle().Exec(ctx,
		`UPDATE events
		 SET billing_event_id = NULLIF($2, ''), billing_price_id = NULLIF($3, '')
		 WHERE id = $1`,
		id, ref.EventID, ref.PriceID,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}

// Delete removes an event and its schedules. Tickets are kept with their
// event reference cleared.
//
// Returns:
//   - error: repository.ErrNotFound if the event does not exist.
func (r *EventRepo) Delete(ctx context.Context, id int64) error {
	const op = "postgres.EventRepo.Delete"

	tag, err := r.handle().Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}

package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/tixhub/internal/domain"
	"github.com/kirinyoku/tixhub/internal/repository"
)

type TicketRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *TicketRepo) With(db DB) *TicketRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *TicketRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const ticketColumns = `id, reference, status, price, day, hour, COALESCE(event_id, 0), user_id, hold_expires_at`

func scanTicket(row pgx.Row) (domain.Ticket, error) {
	var t domain.Ticket
	var status int16

	err := row.Scan(
		&t.ID, &t.Reference, &status, &t.Price, &t.Date, &t.Time,
		&t.EventID, &t.UserID, &t.HoldExpiresAt,
	)
	t.Status = domain.TicketStatus(status)

	return t, err
}

func collectTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	defer rows.Close()

	out := []domain.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}

	return out, rows.Err()
}

// FindOne returns the first ticket matching the criteria.
//
// Returns:
//   - error: repository.ErrNotFound if no ticket matches.
func (r *TicketRepo) FindOne(ctx context.Context, c domain.TicketCriteria) (*domain.Ticket, error) {
	const op = "postgres.TicketRepo.FindOne"

	var (
		where []string
		args  []any
	)
	if c.EventID != 0 {
		args = append(args, c.EventID)
		where = append(where, fmt.Sprintf("event_id = $%d", len(args)))
	}
	if c.Status != nil {
		args = append(args, int16(*c.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if c.UserID != nil {
		args = append(args, *c.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}

	q := `SELECT ` + ticketColumns + ` FROM tickets`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY id LIMIT 1`

	t, err := scanTicket(r.handle().QueryRow(ctx, q, args...))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &t, nil
}

// InsertBatch inserts tickets in one round trip. Rows whose reference is
// already taken are skipped rather than failing the batch.
//
// Returns:
//   - []int: indexes into tickets of rows skipped on a reference collision.
//   - error: any other insert failure.
func (r *TicketRepo) InsertBatch(ctx context.Context, tickets []domain.Ticket) ([]int, error) {
	const op = "postgres.TicketRepo.InsertBatch"

	if len(tickets) == 0 {
		return nil, nil
	}

	batch := &pgx.Batch{}
	for _, t := range tickets {
		batch.Queue(
			`INSERT INTO tickets(reference, status, price, day, hour, event_id)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT ON CONSTRAINT tickets_reference_key DO NOTHING`,
			t.Reference, int16(t.Status), t.Price, t.Date, t.Time, t.EventID,
		)
	}

	br := r.handle().SendBatch(ctx, batch)

	var collided []int
	for i := range tickets {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return nil, wrapDBErr(op, err)
		}
		if tag.RowsAffected() == 0 {
			collided = append(collided, i)
		}
	}

	if err := br.Close(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return collided, nil
}

func (r *TicketRepo) CountByEvent(ctx context.Context, eventID int64) (int64, error) {
	const op = "postgres.TicketRepo.CountByEvent"

	var n int64
	if err := r.handle().QueryRow(ctx,
		`SELECT count(*) FROM tickets WHERE event_id = $1`, eventID,
	).Scan(&n); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return n, nil
}

// CountsBySlot counts the tickets of an event by status for every
// (date, time) slot.
func (r *TicketRepo) CountsBySlot(ctx context.Context, eventID int64) ([]domain.SlotCounts, error) {
	const op = "postgres.TicketRepo.CountsBySlot"

	rows, err := r.handle().Query(ctx,
		`SELECT day, hour,
		        COUNT(*) FILTER (WHERE status = -1),
		        COUNT(*) FILTER (WHERE status = 0),
		        COUNT(*) FILTER (WHERE status = 1),
		        COUNT(*) FILTER (WHERE status = 2)
		 FROM tickets
		 WHERE event_id = $1
		 GROUP BY day, hour
		 ORDER BY day, hour`,
		eventID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	out := []domain.SlotCounts{}
	for rows.Next() {
		var c domain.SlotCounts
		if err := rows.Scan(&c.Date, &c.Time, &c.Available, &c.Pending, &c.Paid, &c.Cancelled); err != nil {
			return nil, wrapDBErr(op, err)
		}
		c.Total = c.Available + c.Pending + c.Paid + c.Cancelled
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// Reserve moves quantity Create tickets of one slot to Pending for a user.
// Rows locked by concurrent reservations are skipped.
//
// Returns:
//   - []domain.Ticket: the reserved tickets.
//   - error: repository.ErrNotEnough if fewer than quantity tickets are free;
//     the caller must roll back the partial reservation.
func (r *TicketRepo) Reserve(
	ctx context.Context,
	eventID, userID int64,
	date time.Time,
	hour string,
	quantity int,
	expires time.Time,
) ([]domain.Ticket, error) {
	const op = "postgres.TicketRepo.Reserve"

	rows, err := r.handle().Query(ctx,
		`WITH picked AS (
		     SELECT id FROM tickets
		     WHERE event_id = $1 AND day = $2 AND hour = $3 AND status = -1
		     ORDER BY id
		     LIMIT $4
		     FOR UPDATE SKIP LOCKED
		 )
		 UPDATE tickets t
		 SET status = 0, user_id = $5, hold_expires_at = $6
		 FROM picked
		 WHERE t.id = picked.id
		 RETURNING t.id, t.reference, t.status, t.price, t.day, t.hour,
		           COALESCE(t.event_id, 0), t.user_id, t.hold_expires_at`,
		eventID, date, hour, quantity, userID, expires,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := collectTickets(rows)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	if len(out) < quantity {
		return nil, wrapDBErr(op, repository.ErrNotEnough)
	}

	return out, nil
}

// Confirm marks a user's unexpired Pending tickets as Paid.
//
// Returns:
//   - int64: number of tickets confirmed.
func (r *TicketRepo) Confirm(ctx context.Context, userID int64, references []string) (int64, error) {
	const op = "postgres.TicketRepo.Confirm"

	tag, err := r.handle().Exec(ctx,
		`UPDATE tickets
		 SET status = 1, hold_expires_at = NULL
		 WHERE user_id = $1
		   AND reference = ANY($2)
		   AND status = 0
		   AND hold_expires_at > now()`,
		userID, references,
	)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return tag.RowsAffected(), nil
}

// Cancel releases a user's Pending tickets back to Create and marks the
// user's Paid tickets Cancelled.
//
// Returns:
//   - int64: number of tickets released or cancelled.
func (r *TicketRepo) Cancel(ctx context.Context, userID int64, references []string) (int64, error) {
	const op = "postgres.TicketRepo.Cancel"

	db := r.handle()

	released, err := db.Exec(ctx,
		`UPDATE tickets
		 SET status = -1, user_id = NULL, hold_expires_at = NULL
		 WHERE user_id = $1 AND reference = ANY($2) AND status = 0`,
		userID, references,
	)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	cancelled, err := db.Exec(ctx,
		`UPDATE tickets
		 SET status = 2
		 WHERE user_id = $1 AND reference = ANY($2) AND status = 1`,
		userID, references,
	)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return released.RowsAffected() + cancelled.RowsAffected(), nil
}

// ExpireHolds returns Pending tickets whose hold has expired to Create.
//
// Returns:
//   - []int64: distinct event IDs that had tickets released.
func (r *TicketRepo) ExpireHolds(ctx context.Context) ([]int64, error) {
	const op = "postgres.TicketRepo.ExpireHolds"

	rows, err := r.handle().Query(ctx,
		`WITH released AS (
		     UPDATE tickets
		     SET status = -1, user_id = NULL, hold_expires_at = NULL
		     WHERE status = 0 AND hold_expires_at <= now()
		     RETURNING event_id
		 )
		 SELECT DISTINCT event_id FROM released WHERE event_id IS NOT NULL`,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// EventIDsByReferences returns the distinct events owning the given tickets.
func (r *TicketRepo) EventIDsByReferences(ctx context.Context, references []string) ([]int64, error) {
	const op = "postgres.TicketRepo.EventIDsByReferences"

	rows, err := r.handle().Query(ctx,
		`SELECT DISTINCT event_id FROM tickets
		 WHERE reference = ANY($1) AND event_id IS NOT NULL`,
		references,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *TicketRepo) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Ticket, error) {
	const op = "postgres.TicketRepo.ListByUser"

	rows, err := r.handle().Query(ctx,
		`SELECT `+ticketColumns+`
		 FROM tickets
		 WHERE user_id = $1
		 ORDER BY day, hour, id
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := collectTickets(rows)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/tixhub/internal/domain"
)

// GenerationRepo is the persistence port of the ticket generator. Bound to a
// transaction it reads the event row-locked so generation for one event
// serializes with any concurrent generation or update.
type GenerationRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *GenerationRepo) With(db DB) *GenerationRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *GenerationRepo) events() *EventRepo {
	return (&EventRepo{pool: r.pool}).With(r.db)
}

func (r *GenerationRepo) tickets() *TicketRepo {
	return (&TicketRepo{pool: r.pool}).With(r.db)
}

func (r *GenerationRepo) FindEvent(ctx context.Context, id int64) (*domain.Event, error) {
	return r.events().GetForUpdate(ctx, id)
}

func (r *GenerationRepo) FindOneTicket(ctx context.Context, c domain.TicketCriteria) (*domain.Ticket, error) {
	return r.tickets().FindOne(ctx, c)
}

func (r *GenerationRepo) SaveBilling(ctx context.Context, eventID int64, ref domain.BillingRef) error {
	return r.events().SaveBilling(ctx, eventID, ref)
}

func (r *GenerationRepo) InsertTickets(ctx context.Context, tickets []domain.Ticket) ([]int, error) {
	return r.tickets().InsertBatch(ctx, tickets)
}

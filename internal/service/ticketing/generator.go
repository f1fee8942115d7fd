// Package ticketing keeps an event's billing representation and its sellable
// tickets consistent with the event's configuration.
//
// The generator is invoked explicitly by the code path that creates, updates
// or removes an event, inside that path's unit of work. Billing side effects
// are undone through rollback hooks so that either the billing identifiers
// and every generated ticket are committed, or none are.
package ticketing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kirinyoku/tixhub/internal/billing"
	"github.com/kirinyoku/tixhub/internal/domain"
	"github.com/kirinyoku/tixhub/internal/metrics"
	"github.com/kirinyoku/tixhub/internal/repository"
)

const (
	defaultReferenceRetries = 5
	insertChunkSize         = 1000
)

// Store is the persistence the generator depends on. It is expected to be
// bound to the caller's transaction.
type Store interface {
	// FindEvent loads the event with its venue and schedules and locks it
	// until the transaction ends.
	FindEvent(ctx context.Context, id int64) (*domain.Event, error)
	FindOneTicket(ctx context.Context, c domain.TicketCriteria) (*domain.Ticket, error)
	SaveBilling(ctx context.Context, eventID int64, ref domain.BillingRef) error
	// InsertTickets inserts the batch and returns the indexes of rows skipped
	// because their reference already exists.
	InsertTickets(ctx context.Context, tickets []domain.Ticket) ([]int, error)
}

// Hooks registers callbacks on the caller's unit of work.
type Hooks interface {
	AfterCommit(fn func(ctx context.Context))
	OnRollback(fn func(ctx context.Context))
}

// Result summarizes one generator run.
type Result struct {
	EventID int64
	Billing domain.BillingRef
	Tickets int
}

type Option func(*Generator)

// WithReferenceFunc replaces the ticket reference source.
func WithReferenceFunc(f func() string) Option {
	return func(g *Generator) { g.newRef = f }
}

// WithReferenceRetries bounds how many times colliding references are
// regenerated before giving up.
func WithReferenceRetries(n int) Option {
	return func(g *Generator) { g.refRetries = n }
}

type Generator struct {
	billing    billing.Provider
	log        *slog.Logger
	newRef     func() string
	refRetries int
}

func New(provider billing.Provider, log *slog.Logger, opts ...Option) *Generator {
	g := &Generator{
		billing:    provider,
		log:        log,
		newRef:     NewReference,
		refRetries: defaultReferenceRetries,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// OnCreated synchronizes a newly created event with the billing provider and
// materializes one ticket per venue seat for every scheduled date and time.
//
// Parameters:
//   - ctx: request-scoped context.
//   - store: generator persistence bound to the creating transaction.
//   - hooks: unit of work hooks of that transaction.
//   - eventID: the event to generate for.
//
// Returns:
//   - *Result: billing identifiers and number of tickets generated.
//   - error: ErrEventNotFound, ErrAlreadyGenerated, ErrNoVenue or
//     ErrInvalidEvent for unusable events; *BillingError if the billing
//     provider fails; *PersistenceError if storing fails.
func (g *Generator) OnCreated(ctx context.Context, store Store, hooks Hooks, eventID int64) (*Result, error) {
	const op = "ticketing.Generator.OnCreated"

	ev, err := g.loadEvent(ctx, store, eventID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if ev.Venue == nil || ev.Venue.Seats <= 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNoVenue)
	}

	_, err = store.FindOneTicket(ctx, domain.TicketCriteria{EventID: ev.ID})
	switch {
	case err == nil:
		return nil, fmt.Errorf("%s: %w", op, ErrAlreadyGenerated)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("%s: %w", op, &PersistenceError{Op: "find ticket", Err: err})
	}

	ref, err := g.createBilling(ctx, ev)
	if err != nil {
		metrics.TrackGenerationFailure("billing")
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hooks.OnRollback(func(ctx context.Context) {
		g.compensate(ctx, ev.ID, ref)
	})

	if err := store.SaveBilling(ctx, ev.ID, ref); err != nil {
		metrics.TrackGenerationFailure("persistence")
		return nil, fmt.Errorf("%s: %w", op, &PersistenceError{Op: "save billing", Err: err})
	}

	tickets := g.buildTickets(ev)
	if err := g.insertTickets(ctx, store, tickets); err != nil {
		metrics.TrackGenerationFailure("persistence")
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hooks.AfterCommit(func(ctx context.Context) {
		metrics.TrackTicketsGenerated(len(tickets))
		g.log.InfoContext(ctx, "tickets generated",
			slog.Int64("event_id", ev.ID),
			slog.Int("tickets", len(tickets)),
			slog.String("billing_event_id", ref.EventID),
			slog.String("billing_price_id", ref.PriceID),
		)
	})

	return &Result{EventID: ev.ID, Billing: ref, Tickets: len(tickets)}, nil
}

// OnUpdated pushes the event's title, type and price to the billing provider.
// Existing tickets are left untouched: their price is the price at creation.
// An event that was never synchronized is synchronized as on creation, but
// no tickets are generated.
//
// Parameters:
//   - ctx: request-scoped context.
//   - store: generator persistence bound to the updating transaction.
//   - hooks: unit of work hooks of that transaction.
//   - eventID: the updated event.
//   - before: the event as it was before the update, used to restore the
//     billing provider on rollback; may be nil.
//
// Returns:
//   - *Result: the billing identifiers now stored on the event.
//   - error: ErrEventNotFound, ErrInvalidEvent, *BillingError or
//     *PersistenceError.
func (g *Generator) OnUpdated(
	ctx context.Context,
	store Store,
	hooks Hooks,
	eventID int64,
	before *domain.Event,
) (*Result, error) {
	const op = "ticketing.Generator.OnUpdated"

	ev, err := g.loadEvent(ctx, store, eventID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if ev.Billing.EventID == "" {
		ref, err := g.createBilling(ctx, ev)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		hooks.OnRollback(func(ctx context.Context) {
			g.compensate(ctx, ev.ID, ref)
		})

		if err := store.SaveBilling(ctx, ev.ID, ref); err != nil {
			return nil, fmt.Errorf("%s: %w", op, &PersistenceError{Op: "save billing", Err: err})
		}

		return &Result{EventID: ev.ID, Billing: ref}, nil
	}

	old := ev.Billing
	ref := ev.Billing

	ref.EventID, err = g.billing.UpdateEvent(ctx, old.EventID, ev.Title, ev.Type)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, &BillingError{Op: "update event", Err: err})
	}

	if before != nil {
		hooks.OnRollback(func(ctx context.Context) {
			g.restoreEvent(ctx, ev.ID, ref.EventID, before)
		})
	}

	switch {
	case old.PriceID == "":
		ref.PriceID, err = g.billing.CreatePrice(ctx, ref.EventID, ev.Price)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, &BillingError{Op: "create price", Err: err})
		}
		hooks.OnRollback(func(ctx context.Context) {
			g.deletePrice(ctx, ev.ID, ref.PriceID)
		})

	case before == nil || !before.Price.Equal(ev.Price):
		ref.PriceID, err = g.billing.UpdatePrice(ctx, old.PriceID, ref.EventID, ev.Price)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, &BillingError{Op: "update price", Err: err})
		}
		if before != nil {
			hooks.OnRollback(func(ctx context.Context) {
				g.restorePrice(ctx, ev.ID, ref, old.PriceID, before)
			})
		}
	}

	if ref != old {
		if err := store.SaveBilling(ctx, ev.ID, ref); err != nil {
			return nil, fmt.Errorf("%s: %w", op, &PersistenceError{Op: "save billing", Err: err})
		}
	}

	return &Result{EventID: ev.ID, Billing: ref}, nil
}

// OnRemoved is called after an event is deleted. Billing resources and
// generated tickets are intentionally kept; tickets lose their event link.
func (g *Generator) OnRemoved(ctx context.Context, eventID int64) {
	g.log.DebugContext(ctx, "event removed; billing resources and tickets kept",
		slog.Int64("event_id", eventID),
	)
}

func (g *Generator) loadEvent(ctx context.Context, store Store, eventID int64) (*domain.Event, error) {
	ev, err := store.FindEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, &PersistenceError{Op: "find event", Err: err}
	}

	if ev.Title == "" || ev.Price.IsNegative() {
		return nil, ErrInvalidEvent
	}

	return ev, nil
}

// createBilling creates the billing event and its price. When the price
// cannot be created the billing event is deleted again; if that fails too
// the leftover is reported and attached to the returned error.
func (g *Generator) createBilling(ctx context.Context, ev *domain.Event) (domain.BillingRef, error) {
	var ref domain.BillingRef

	billingEventID, err := g.billing.CreateEvent(ctx, ev.Title, ev.Type)
	if err != nil {
		return ref, &BillingError{Op: "create event", Err: err}
	}

	priceID, err := g.billing.CreatePrice(ctx, billingEventID, ev.Price)
	if err != nil {
		berr := &BillingError{Op: "create price", Err: err}

		if derr := g.billing.DeleteEvent(context.WithoutCancel(ctx), billingEventID); derr != nil {
			berr.Inconsistency = &InconsistencyError{
				EventID:    ev.ID,
				Resource:   "event",
				ResourceID: billingEventID,
				Err:        derr,
			}
			g.report(ctx, berr.Inconsistency)
		}

		return ref, berr
	}

	ref.EventID = billingEventID
	ref.PriceID = priceID

	return ref, nil
}

// compensate removes billing resources created by a transaction that was
// rolled back.
func (g *Generator) compensate(ctx context.Context, eventID int64, ref domain.BillingRef) {
	g.deletePrice(ctx, eventID, ref.PriceID)

	if err := g.billing.DeleteEvent(ctx, ref.EventID); err != nil && !errors.Is(err, billing.ErrNotFound) {
		g.report(ctx, &InconsistencyError{EventID: eventID, Resource: "event", ResourceID: ref.EventID, Err: err})
	}
}

func (g *Generator) deletePrice(ctx context.Context, eventID int64, priceID string) {
	if err := g.billing.DeletePrice(ctx, priceID); err != nil && !errors.Is(err, billing.ErrNotFound) {
		g.report(ctx, &InconsistencyError{EventID: eventID, Resource: "price", ResourceID: priceID, Err: err})
	}
}

func (g *Generator) restoreEvent(ctx context.Context, eventID int64, billingEventID string, before *domain.Event) {
	if _, err := g.billing.UpdateEvent(ctx, billingEventID, before.Title, before.Type); err != nil {
		g.report(ctx, &InconsistencyError{EventID: eventID, Resource: "event", ResourceID: billingEventID, Err: err})
	}
}

// restorePrice puts the previous amount back. If the provider hands out a new
// price ID the rolled back row still stores storedID, which is reported.
func (g *Generator) restorePrice(ctx context.Context, eventID int64, ref domain.BillingRef, storedID string, before *domain.Event) {
	restoredID, err := g.billing.UpdatePrice(ctx, ref.PriceID, ref.EventID, before.Price)
	if err != nil {
		g.report(ctx, &InconsistencyError{EventID: eventID, Resource: "price", ResourceID: ref.PriceID, Err: err})
		return
	}

	if restoredID != storedID {
		g.report(ctx, &InconsistencyError{
			EventID:    eventID,
			Resource:   "price",
			ResourceID: storedID,
			Err:        fmt.Errorf("stored price replaced by %q", restoredID),
		})
	}
}

func (g *Generator) report(ctx context.Context, ie *InconsistencyError) {
	metrics.TrackBillingInconsistency(ie.Resource)
	g.log.ErrorContext(ctx, "billing inconsistency",
		slog.Int64("event_id", ie.EventID),
		slog.String("resource", ie.Resource),
		slog.String("resource_id", ie.ResourceID),
		slog.String("err", ie.Err.Error()),
	)
}

// buildTickets expands schedules × times × seats into Create tickets priced
// at the event's current price.
func (g *Generator) buildTickets(ev *domain.Event) []domain.Ticket {
	out := make([]domain.Ticket, 0, ev.SlotCount()*ev.Venue.Seats)

	for _, s := range ev.Schedules {
		for _, t := range s.Times {
			for range ev.Venue.Seats {
				out = append(out, domain.Ticket{
					Reference: g.newRef(),
					Status:    domain.TicketCreate,
					Price:     ev.Price,
					Date:      s.Date,
					Time:      t,
					EventID:   ev.ID,
				})
			}
		}
	}

	return out
}

func (g *Generator) insertTickets(ctx context.Context, store Store, tickets []domain.Ticket) error {
	for start := 0; start < len(tickets); start += insertChunkSize {
		end := min(start+insertChunkSize, len(tickets))
		if err := g.insertChunk(ctx, store, tickets[start:end]); err != nil {
			return err
		}
	}

	return nil
}

// insertChunk inserts tickets, regenerating the references of rows that
// collided with existing ones until all rows are stored.
func (g *Generator) insertChunk(ctx context.Context, store Store, tickets []domain.Ticket) error {
	pending := tickets

	for attempt := 0; ; attempt++ {
		collided, err := store.InsertTickets(ctx, pending)
		if err != nil {
			return &PersistenceError{Op: "insert tickets", Err: err}
		}

		if len(collided) == 0 {
			return nil
		}

		if attempt >= g.refRetries {
			return &PersistenceError{Op: "insert tickets", Err: ErrReferenceExhausted}
		}

		g.log.WarnContext(ctx, "ticket reference collision",
			slog.Int("rows", len(collided)),
			slog.Int("attempt", attempt+1),
		)

		retry := make([]domain.Ticket, 0, len(collided))
		for _, i := range collided {
			t := pending[i]
			t.Reference = g.newRef()
			retry = append(retry, t)
		}
		pending = retry
	}
}

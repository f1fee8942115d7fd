package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/kirinyoku/tixhub/internal/broker"
	"github.com/kirinyoku/tixhub/internal/domain"
	"github.com/kirinyoku/tixhub/internal/repository"
	postgresrepo "github.com/kirinyoku/tixhub/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/tixhub/internal/repository/redis"
	"github.com/kirinyoku/tixhub/internal/service/ticketing"
	"github.com/kirinyoku/tixhub/internal/uow"
)

type Service struct {
	store     *postgresrepo.Store
	cache     *redisrepo.Cache
	pubsub    *redisrepo.EventsPubSub
	publisher broker.Publisher
	generator *ticketing.Generator
	uow       *uow.UoW
	log       *slog.Logger
}

func New(
	store *postgresrepo.Store,
	cache *redisrepo.Cache,
	pubsub *redisrepo.EventsPubSub,
	publisher broker.Publisher,
	generator *ticketing.Generator,
	log *slog.Logger,
) *Service {
	return &Service{
		store:     store,
		cache:     cache,
		pubsub:    pubsub,
		publisher: publisher,
		generator: generator,
		uow:       uow.NewUoW(store),
		log:       log,
	}
}

// EventInput carries the editable fields of an event. Schedules are only
// read on creation.
type EventInput struct {
	Title     string
	Type      string
	Price     decimal.Decimal
	VenueID   int64
	Schedules []domain.Schedule
}

// CreatedEvent is an event together with the outcome of its ticket
// generation.
type CreatedEvent struct {
	Event   *domain.Event
	Tickets int
}

// CreateVenue creates a venue record and returns its ID.
//
// Parameters:
//   - ctx: request-scoped context.
//   - v: venue to create; ID is ignored.
//
// Returns:
//   - int64: the created venue ID on success.
//   - error: admin.ErrVenueConflict if a venue with the same name already exists.
func (s *Service) CreateVenue(ctx context.Context, v domain.Venue) (int64, error) {
	const op = "service.admin.CreateVenue"

	id, err := s.store.Venues().Create(ctx, v)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return 0, fmt.Errorf("%s: %w", op, ErrVenueConflict)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// CreateEvent creates an event with its schedules and, in the same
// transaction, synchronizes it with the billing provider and generates its
// tickets. Nothing is persisted if any step fails.
//
// Parameters:
//   - ctx: request-scoped context.
//   - in: event fields and schedules.
//
// Returns:
//   - *CreatedEvent: the stored event and the number of tickets generated.
//   - error: admin.ErrVenueNotFound if the venue does not exist; ticketing
//     errors (*ticketing.BillingError, *ticketing.PersistenceError,
//     ticketing.ErrInvalidEvent) if generation fails.
func (s *Service) CreateEvent(ctx context.Context, in EventInput) (*CreatedEvent, error) {
	const op = "service.admin.CreateEvent"

	var (
		eventID int64
		res     *ticketing.Result
	)

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, hooks *uow.Hooks) error {
		var err error

		eventID, err = s.store.Events().With(tx).Create(ctx, domain.Event{
			Title:     in.Title,
			Type:      in.Type,
			Price:     in.Price,
			VenueID:   in.VenueID,
			Schedules: in.Schedules,
		})
		if err != nil {
			if errors.Is(err, repository.ErrForeignKey) {
				return fmt.Errorf("%s: %w", op, ErrVenueNotFound)
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		res, err = s.generator.OnCreated(ctx, s.store.Generation().With(tx), hooks, eventID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		hooks.AfterCommit(func(ctx context.Context) {
			s.eventChanged(ctx, redisrepo.ChangeEventCreated, eventID)

			if err := s.publisher.PublishTicketsGenerated(ctx, broker.TicketsGenerated{
				EventID:        eventID,
				Tickets:        res.Tickets,
				BillingEventID: res.Billing.EventID,
				BillingPriceID: res.Billing.PriceID,
			}); err != nil {
				s.log.WarnContext(ctx, "publish tickets generated", slog.Int64("event_id", eventID), slog.String("err", err.Error()))
			}
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	ev, err := s.store.Events().Get(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &CreatedEvent{Event: ev, Tickets: res.Tickets}, nil
}

// UpdateEvent changes title, type, price and venue of an event and pushes
// the change to the billing provider. Already generated tickets keep their
// price.
//
// Returns:
//   - error: admin.ErrEventNotFound, admin.ErrVenueNotFound or a ticketing
//     error if the billing provider cannot be updated.
func (s *Service) UpdateEvent(ctx context.Context, id int64, in EventInput) (*domain.Event, error) {
	const op = "service.admin.UpdateEvent"

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, hooks *uow.Hooks) error {
		events := s.store.Events().With(tx)

		before, err := events.GetForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s: %w", op, ErrEventNotFound)
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		if err := events.Update(ctx, domain.Event{
			ID:      id,
			Title:   in.Title,
			Type:    in.Type,
			Price:   in.Price,
			VenueID: in.VenueID,
		}); err != nil {
			if errors.Is(err, repository.ErrForeignKey) {
				return fmt.Errorf("%s: %w", op, ErrVenueNotFound)
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		if _, err := s.generator.OnUpdated(ctx, s.store.Generation().With(tx), hooks, id, before); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		hooks.AfterCommit(func(ctx context.Context) {
			s.eventChanged(ctx, redisrepo.ChangeEventUpdated, id)
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	ev, err := s.store.Events().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return ev, nil
}

// DeleteEvent deletes an event and its schedules. Its tickets and billing
// resources are kept.
//
// Returns:
//   - error: admin.ErrEventNotFound if the event does not exist.
func (s *Service) DeleteEvent(ctx context.Context, id int64) error {
	const op = "service.admin.DeleteEvent"

	return s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, hooks *uow.Hooks) error {
		if err := s.store.Events().With(tx).Delete(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s: %w", op, ErrEventNotFound)
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		hooks.AfterCommit(func(ctx context.Context) {
			s.generator.OnRemoved(ctx, id)
			s.eventChanged(ctx, redisrepo.ChangeEventRemoved, id)
		})

		return nil
	})
}

func (s *Service) eventChanged(ctx context.Context, kind string, eventID int64) {
	if err := s.cache.InvalidateEvent(ctx, eventID); err != nil {
		s.log.WarnContext(ctx, "invalidate event cache", slog.Int64("event_id", eventID), slog.String("err", err.Error()))
	}
	if err := s.pubsub.PublishEventChanged(ctx, kind, eventID); err != nil {
		s.log.WarnContext(ctx, "publish event change", slog.Int64("event_id", eventID), slog.String("err", err.Error()))
	}
}

package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/kirinyoku/tixhub/internal/broker"
	"github.com/kirinyoku/tixhub/internal/domain"
	"github.com/kirinyoku/tixhub/internal/metrics"
	"github.com/kirinyoku/tixhub/internal/repository"
	postgresrepo "github.com/kirinyoku/tixhub/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/tixhub/internal/repository/redis"
	"github.com/kirinyoku/tixhub/internal/uow"
)

type Config struct {
	HoldTTL           time.Duration
	MaxPerReservation int
}

type Service struct {
	store     *postgresrepo.Store
	cache     *redisrepo.Cache
	pubsub    *redisrepo.EventsPubSub
	publisher broker.Publisher
	uow       *uow.UoW
	cfg       Config
	log       *slog.Logger
}

func New(
	store *postgresrepo.Store,
	cache *redisrepo.Cache,
	pubsub *redisrepo.EventsPubSub,
	publisher broker.Publisher,
	cfg Config,
	log *slog.Logger,
) *Service {
	if cfg.HoldTTL <= 0 {
		cfg.HoldTTL = 10 * time.Minute
	}

	if cfg.MaxPerReservation <= 0 {
		cfg.MaxPerReservation = 10
	}

	return &Service{
		store:     store,
		cache:     cache,
		pubsub:    pubsub,
		publisher: publisher,
		uow:       uow.NewUoW(store),
		cfg:       cfg,
		log:       log,
	}
}

// Reserve holds quantity available tickets of one event slot for a user.
// Held tickets are Pending until confirmed, cancelled or expired.
//
// Parameters:
//   - ctx: request-scoped context.
//   - userID: ID of the user reserving.
//   - eventID: ID of the event.
//   - date, hour: the schedule slot.
//   - quantity: number of tickets, at most Config.MaxPerReservation.
//
// Returns:
//   - []domain.Ticket: the held tickets.
//   - error: checkout.ErrInvalidQuantity, checkout.ErrEventNotFound or
//     checkout.NotEnoughTicketsError.
func (s *Service) Reserve(
	ctx context.Context,
	userID, eventID int64,
	date time.Time,
	hour string,
	quantity int,
) ([]domain.Ticket, error) {
	const op = "service.checkout.Reserve"

	if quantity <= 0 || quantity > s.cfg.MaxPerReservation {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidQuantity)
	}

	var held []domain.Ticket

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, hooks *uow.Hooks) error {
		if _, err := s.store.Events().With(tx).Get(ctx, eventID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s: %w", op, ErrEventNotFound)
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		expires := time.Now().Add(s.cfg.HoldTTL)

		tickets, err := s.store.Tickets().
			With(tx).
			Reserve(ctx, eventID, userID, date, hour, quantity, expires)
		if err != nil {
			if errors.Is(err, repository.ErrNotEnough) {
				return fmt.Errorf("%s: %w", op, NotEnoughTicketsError{Requested: quantity, Time: hour})
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		held = tickets

		hooks.AfterCommit(func(ctx context.Context) {
			s.availabilityChanged(ctx, eventID)
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return held, nil
}

// Confirm marks held tickets as paid. Either every reference is confirmed
// or none is.
//
// Returns:
//   - int64: number of tickets confirmed.
//   - error: checkout.ErrHoldNotFound if any ticket is not held by the user
//     or its hold expired.
func (s *Service) Confirm(ctx context.Context, userID int64, references []string) (int64, error) {
	const op = "service.checkout.Confirm"

	refs := uniqueRefs(references)
	if len(refs) == 0 {
		return 0, fmt.Errorf("%s: %w", op, ErrNoReferences)
	}

	var n int64

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, hooks *uow.Hooks) error {
		tickets := s.store.Tickets().With(tx)

		var err error
		n, err = tickets.Confirm(ctx, userID, refs)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if n != int64(len(refs)) {
			return fmt.Errorf("%s: %w", op, ErrHoldNotFound)
		}

		eventIDs, err := tickets.EventIDsByReferences(ctx, refs)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		hooks.AfterCommit(func(ctx context.Context) {
			s.availabilityChanged(ctx, eventIDs...)

			if err := s.publisher.PublishTicketsConfirmed(ctx, broker.TicketsConfirmed{
				UserID:     userID,
				References: refs,
			}); err != nil {
				s.log.WarnContext(ctx, "publish tickets confirmed", slog.Int64("user_id", userID), slog.String("err", err.Error()))
			}
		})

		return nil
	})
	if err != nil {
		return 0, err
	}

	return n, nil
}

// Cancel releases the user's held tickets and cancels the user's paid ones.
//
// Returns:
//   - int64: number of tickets released or cancelled.
//   - error: checkout.ErrNothingToCancel if none of the references qualify.
func (s *Service) Cancel(ctx context.Context, userID int64, references []string) (int64, error) {
	const op = "service.checkout.Cancel"

	refs := uniqueRefs(references)
	if len(refs) == 0 {
		return 0, fmt.Errorf("%s: %w", op, ErrNoReferences)
	}

	var n int64

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, hooks *uow.Hooks) error {
		tickets := s.store.Tickets().With(tx)

		var err error
		n, err = tickets.Cancel(ctx, userID, refs)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if n == 0 {
			return fmt.Errorf("%s: %w", op, ErrNothingToCancel)
		}

		eventIDs, err := tickets.EventIDsByReferences(ctx, refs)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		hooks.AfterCommit(func(ctx context.Context) {
			s.availabilityChanged(ctx, eventIDs...)
		})

		return nil
	})
	if err != nil {
		return 0, err
	}

	return n, nil
}

func (s *Service) ListMine(ctx context.Context, userID int64, limit, offset int) ([]domain.Ticket, error) {
	const op = "service.checkout.ListMine"

	if limit <= 0 || limit > 100 {
		limit = 100
	}

	tickets, err := s.store.Tickets().ListByUser(ctx, userID, limit, max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return tickets, nil
}

// ExpireHolds returns tickets with an expired hold to sale.
//
// Returns:
//   - int: number of events that had tickets released.
func (s *Service) ExpireHolds(ctx context.Context) (int, error) {
	const op = "service.checkout.ExpireHolds"

	eventIDs, err := s.store.Tickets().ExpireHolds(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if len(eventIDs) > 0 {
		metrics.TrackHoldsExpired()
		s.availabilityChanged(ctx, eventIDs...)
	}

	return len(eventIDs), nil
}

// RunSweeper calls ExpireHolds every interval until ctx is done.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := s.ExpireHolds(ctx)
			if err != nil {
				s.log.ErrorContext(ctx, "expire holds", slog.String("err", err.Error()))
				continue
			}
			if n > 0 {
				s.log.InfoContext(ctx, "expired holds released", slog.Int("events", n))
			}
		}
	}
}

func (s *Service) availabilityChanged(ctx context.Context, eventIDs ...int64) {
	if err := s.cache.InvalidateAvailability(ctx, eventIDs...); err != nil {
		s.log.WarnContext(ctx, "invalidate availability", slog.String("err", err.Error()))
	}
	for _, id := range eventIDs {
		if err := s.pubsub.PublishEventChanged(ctx, redisrepo.ChangeAvailability, id); err != nil {
			s.log.WarnContext(ctx, "publish availability change", slog.Int64("event_id", id), slog.String("err", err.Error()))
		}
	}
}

func uniqueRefs(refs []string) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		if r != "" && !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	return out
}

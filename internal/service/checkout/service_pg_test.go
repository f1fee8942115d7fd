package checkout_test

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/tixhub/internal/broker"
	"github.com/kirinyoku/tixhub/internal/domain"
	"github.com/kirinyoku/tixhub/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/tixhub/internal/repository/redis"
	"github.com/kirinyoku/tixhub/internal/service/checkout"
	"github.com/kirinyoku/tixhub/internal/testutil"
)

var day = time.Date(2030, 3, 8, 0, 0, 0, 0, time.UTC)

type fixture struct {
	store   *postgres.Store
	svc     *checkout.Service
	eventID int64
	userID  int64
}

// newFixture seeds one event with seats tickets at 20:00 and one user.
// Cache and pubsub calls after commit fail against the mock and are only
// logged.
func newFixture(t *testing.T, seats int) *fixture {
	t.Helper()
	ctx := context.Background()

	store := postgres.NewStore(testutil.Pool(t))
	rdb, _ := redismock.NewClientMock()

	svc := checkout.New(
		store,
		redisrepo.NewCache(rdb),
		redisrepo.NewEventsPubSub(rdb),
		broker.Nop{},
		checkout.Config{HoldTTL: time.Hour},
		slog.New(slog.DiscardHandler),
	)

	venueID, err := store.Venues().Create(ctx, domain.Venue{Name: "Club", Seats: seats})
	require.NoError(t, err)

	eventID, err := store.Events().Create(ctx, domain.Event{
		Title:     "Jazz",
		Type:      "concert",
		Price:     decimal.RequireFromString("30.00"),
		VenueID:   venueID,
		Schedules: []domain.Schedule{{Date: day, Times: []string{"20:00"}}},
	})
	require.NoError(t, err)

	tickets := make([]domain.Ticket, seats)
	for i := range tickets {
		tickets[i] = domain.Ticket{
			Reference: fmt.Sprintf("JZ%04d", i),
			Status:    domain.TicketCreate,
			Price:     decimal.RequireFromString("30.00"),
			Date:      day,
			Time:      "20:00",
			EventID:   eventID,
		}
	}
	collided, err := store.Tickets().InsertBatch(ctx, tickets)
	require.NoError(t, err)
	require.Empty(t, collided)

	userID, err := store.Users().Create(ctx, domain.User{Username: "dana", Email: "dana@example.com", PasswordHash: "x"})
	require.NoError(t, err)

	return &fixture{store: store, svc: svc, eventID: eventID, userID: userID}
}

func (f *fixture) available(t *testing.T) int64 {
	t.Helper()

	counts, err := f.store.Tickets().CountsBySlot(context.Background(), f.eventID)
	require.NoError(t, err)
	require.Len(t, counts, 1)

	return counts[0].Available
}

func TestReserve_NotEnoughRollsBackPartialHold(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	_, err := f.svc.Reserve(ctx, f.userID, f.eventID, day, "20:00", 3)

	var notEnough checkout.NotEnoughTicketsError
	require.ErrorAs(t, err, &notEnough)
	assert.Equal(t, 3, notEnough.Requested)
	assert.Equal(t, "20:00", notEnough.Time)

	assert.EqualValues(t, 2, f.available(t))

	mine, err := f.svc.ListMine(ctx, f.userID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestReserve_UnknownEventAndQuantity(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	_, err := f.svc.Reserve(ctx, f.userID, f.eventID+100, day, "20:00", 1)
	assert.ErrorIs(t, err, checkout.ErrEventNotFound)

	_, err = f.svc.Reserve(ctx, f.userID, f.eventID, day, "20:00", 0)
	assert.ErrorIs(t, err, checkout.ErrInvalidQuantity)
}

func TestConfirm_AllOrNone(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	held, err := f.svc.Reserve(ctx, f.userID, f.eventID, day, "20:00", 2)
	require.NoError(t, err)
	require.Len(t, held, 2)
	assert.EqualValues(t, 1, f.available(t))

	refs := []string{held[0].Reference, held[1].Reference}

	_, err = f.svc.Confirm(ctx, f.userID, append(refs, "NOPE0000"))
	require.ErrorIs(t, err, checkout.ErrHoldNotFound)

	mine, err := f.svc.ListMine(ctx, f.userID, 10, 0)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	for _, tk := range mine {
		assert.Equal(t, domain.TicketPending, tk.Status, tk.Reference)
	}

	n, err := f.svc.Confirm(ctx, f.userID, append(refs, refs[0]))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	mine, err = f.svc.ListMine(ctx, f.userID, 10, 0)
	require.NoError(t, err)
	for _, tk := range mine {
		assert.Equal(t, domain.TicketPaid, tk.Status, tk.Reference)
	}
}

func TestCancel_NothingToCancel(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	_, err := f.svc.Cancel(ctx, f.userID, []string{"JZ0000"})
	assert.ErrorIs(t, err, checkout.ErrNothingToCancel)

	_, err = f.svc.Cancel(ctx, f.userID, []string{""})
	assert.ErrorIs(t, err, checkout.ErrNoReferences)
}

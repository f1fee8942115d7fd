package ticketing_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/tixhub/internal/billing"
	"github.com/kirinyoku/tixhub/internal/domain"
	"github.com/kirinyoku/tixhub/internal/repository/postgres"
	"github.com/kirinyoku/tixhub/internal/service/ticketing"
	"github.com/kirinyoku/tixhub/internal/testutil"
	"github.com/kirinyoku/tixhub/internal/uow"
)

func createEvent(t *testing.T, store *postgres.Store, tx postgres.DB, seats int) int64 {
	t.Helper()
	ctx := context.Background()

	venueID, err := store.Venues().With(tx).Create(ctx, domain.Venue{Name: "Arena", Seats: seats})
	require.NoError(t, err)

	id, err := store.Events().With(tx).Create(ctx, domain.Event{
		Title:   "Opera night",
		Type:    "opera",
		Price:   decimal.RequireFromString("40.00"),
		VenueID: venueID,
		Schedules: []domain.Schedule{
			{Date: time.Date(2030, 1, 10, 0, 0, 0, 0, time.UTC), Times: []string{"19:00", "21:30"}},
			{Date: time.Date(2030, 1, 11, 0, 0, 0, 0, time.UTC), Times: []string{"19:00"}},
		},
	})
	require.NoError(t, err)

	return id
}

func TestGenerator_OnCreatedCommitsTicketsAndBilling(t *testing.T) {
	store := postgres.NewStore(testutil.Pool(t))
	provider := billing.NewMemory()
	gen := ticketing.New(provider, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	var (
		eventID int64
		res     *ticketing.Result
	)
	err := uow.NewUoW(store).Do(ctx, func(ctx context.Context, tx postgres.DB, hooks *uow.Hooks) error {
		eventID = createEvent(t, store, tx, 4)

		var err error
		res, err = gen.OnCreated(ctx, store.Generation().With(tx), hooks, eventID)
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, 12, res.Tickets)

	n, err := store.Tickets().CountByEvent(ctx, eventID)
	require.NoError(t, err)
	assert.EqualValues(t, 12, n)

	ev, err := store.Events().Get(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, res.Billing, ev.Billing)

	price, ok := provider.Price(ev.Billing.PriceID)
	require.True(t, ok)
	assert.True(t, price.Amount.Equal(decimal.RequireFromString("40.00")))

	counts, err := store.Tickets().CountsBySlot(ctx, eventID)
	require.NoError(t, err)
	require.Len(t, counts, 3)
	for _, c := range counts {
		assert.EqualValues(t, 4, c.Available)
	}

	err = uow.NewUoW(store).Do(ctx, func(ctx context.Context, tx postgres.DB, hooks *uow.Hooks) error {
		_, err := gen.OnCreated(ctx, store.Generation().With(tx), hooks, eventID)
		return err
	})
	assert.ErrorIs(t, err, ticketing.ErrAlreadyGenerated)
}

func TestGenerator_RollbackRemovesBillingAndTickets(t *testing.T) {
	store := postgres.NewStore(testutil.Pool(t))
	provider := billing.NewMemory()
	gen := ticketing.New(provider, slog.New(slog.DiscardHandler))
	ctx := context.Background()
	failure := errors.New("later step failed")

	var res *ticketing.Result
	err := uow.NewUoW(store).Do(ctx, func(ctx context.Context, tx postgres.DB, hooks *uow.Hooks) error {
		eventID := createEvent(t, store, tx, 2)

		var err error
		res, err = gen.OnCreated(ctx, store.Generation().With(tx), hooks, eventID)
		if err != nil {
			return err
		}
		return failure
	})
	require.ErrorIs(t, err, failure)
	require.NotNil(t, res)

	_, ok := provider.Event(res.Billing.EventID)
	assert.False(t, ok)
	_, ok = provider.Price(res.Billing.PriceID)
	assert.False(t, ok)

	n, err := store.Tickets().CountByEvent(ctx, res.EventID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGenerator_OnUpdatedReplacesPrice(t *testing.T) {
	store := postgres.NewStore(testutil.Pool(t))
	provider := billing.NewMemory()
	gen := ticketing.New(provider, slog.New(slog.DiscardHandler))
	ctx := context.Background()
	u := uow.NewUoW(store)

	var eventID int64
	require.NoError(t, u.Do(ctx, func(ctx context.Context, tx postgres.DB, hooks *uow.Hooks) error {
		eventID = createEvent(t, store, tx, 1)
		_, err := gen.OnCreated(ctx, store.Generation().With(tx), hooks, eventID)
		return err
	}))

	before, err := store.Events().Get(ctx, eventID)
	require.NoError(t, err)

	var res *ticketing.Result
	require.NoError(t, u.Do(ctx, func(ctx context.Context, tx postgres.DB, hooks *uow.Hooks) error {
		updated := *before
		updated.Title = "Opera gala"
		updated.Price = decimal.RequireFromString("55.00")
		if err := store.Events().With(tx).Update(ctx, updated); err != nil {
			return err
		}

		var err error
		res, err = gen.OnUpdated(ctx, store.Generation().With(tx), hooks, eventID, before)
		return err
	}))

	bev, ok := provider.Event(res.Billing.EventID)
	require.True(t, ok)
	assert.Equal(t, "Opera gala", bev.Title)

	price, ok := provider.Price(res.Billing.PriceID)
	require.True(t, ok)
	assert.True(t, price.Amount.Equal(decimal.RequireFromString("55.00")))

	status := domain.TicketCreate
	tk, err := store.Tickets().FindOne(ctx, domain.TicketCriteria{EventID: eventID, Status: &status})
	require.NoError(t, err)
	assert.True(t, tk.Price.Equal(decimal.RequireFromString("40.00")))
}

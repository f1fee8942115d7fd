package admin_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/tixhub/internal/billing"
	"github.com/kirinyoku/tixhub/internal/broker"
	"github.com/kirinyoku/tixhub/internal/domain"
	"github.com/kirinyoku/tixhub/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/tixhub/internal/repository/redis"
	"github.com/kirinyoku/tixhub/internal/service/admin"
	"github.com/kirinyoku/tixhub/internal/service/ticketing"
	"github.com/kirinyoku/tixhub/internal/testutil"
)

func newService(t *testing.T) (*admin.Service, *postgres.Store, *billing.Memory) {
	t.Helper()

	store := postgres.NewStore(testutil.Pool(t))
	provider := billing.NewMemory()
	logger := slog.New(slog.DiscardHandler)
	rdb, _ := redismock.NewClientMock()

	svc := admin.New(
		store,
		redisrepo.NewCache(rdb),
		redisrepo.NewEventsPubSub(rdb),
		broker.Nop{},
		ticketing.New(provider, logger),
		logger,
	)

	return svc, store, provider
}

func input(venueID int64, price string) admin.EventInput {
	return admin.EventInput{
		Title:   "Ballet",
		Type:    "dance",
		Price:   decimal.RequireFromString(price),
		VenueID: venueID,
		Schedules: []domain.Schedule{
			{Date: time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC), Times: []string{"15:00", "20:00"}},
		},
	}
}

func TestCreateVenue_Conflict(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateVenue(ctx, domain.Venue{Name: "Bolshoi", Seats: 3})
	require.NoError(t, err)

	_, err = svc.CreateVenue(ctx, domain.Venue{Name: "Bolshoi", Seats: 5})
	assert.ErrorIs(t, err, admin.ErrVenueConflict)
}

func TestCreateEvent_GeneratesTickets(t *testing.T) {
	svc, store, provider := newService(t)
	ctx := context.Background()

	venueID, err := svc.CreateVenue(ctx, domain.Venue{Name: "Bolshoi", Seats: 3})
	require.NoError(t, err)

	created, err := svc.CreateEvent(ctx, input(venueID, "70.00"))
	require.NoError(t, err)
	assert.Equal(t, 6, created.Tickets)
	assert.Equal(t, "Ballet", created.Event.Title)
	assert.False(t, created.Event.Billing.IsZero())

	n, err := store.Tickets().CountByEvent(ctx, created.Event.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 6, n)

	bev, ok := provider.Event(created.Event.Billing.EventID)
	require.True(t, ok)
	assert.True(t, bev.Active)
}

func TestCreateEvent_UnknownVenue(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateEvent(ctx, input(404, "70.00"))
	require.ErrorIs(t, err, admin.ErrVenueNotFound)

	events, err := store.Events().List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestUpdateAndDeleteEvent(t *testing.T) {
	svc, store, provider := newService(t)
	ctx := context.Background()

	venueID, err := svc.CreateVenue(ctx, domain.Venue{Name: "Bolshoi", Seats: 1})
	require.NoError(t, err)
	created, err := svc.CreateEvent(ctx, input(venueID, "70.00"))
	require.NoError(t, err)
	id := created.Event.ID

	in := input(venueID, "90.00")
	in.Title = "Ballet gala"
	updated, err := svc.UpdateEvent(ctx, id, in)
	require.NoError(t, err)
	assert.Equal(t, "Ballet gala", updated.Title)
	assert.True(t, updated.Price.Equal(decimal.RequireFromString("90.00")))

	price, ok := provider.Price(updated.Billing.PriceID)
	require.True(t, ok)
	assert.True(t, price.Amount.Equal(decimal.RequireFromString("90.00")))

	_, err = svc.UpdateEvent(ctx, id+100, in)
	assert.ErrorIs(t, err, admin.ErrEventNotFound)

	require.NoError(t, svc.DeleteEvent(ctx, id))
	assert.ErrorIs(t, svc.DeleteEvent(ctx, id), admin.ErrEventNotFound)

	n, err := store.Tickets().CountByEvent(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, n, "tickets are detached from the deleted event")

	bev, ok := provider.Event(updated.Billing.EventID)
	require.True(t, ok, "billing resources are kept")
	assert.Equal(t, "Ballet gala", bev.Title)
}

package ticketing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/tixhub/internal/billing"
	"github.com/kirinyoku/tixhub/internal/domain"
	"github.com/kirinyoku/tixhub/internal/repository"
)

type fakeStore struct {
	events    map[int64]*domain.Event
	tickets   []domain.Ticket
	refs      map[string]bool
	saved     map[int64]domain.BillingRef
	insertErr error
	inserts   int
}

func newFakeStore(events ...*domain.Event) *fakeStore {
	s := &fakeStore{
		events: map[int64]*domain.Event{},
		refs:   map[string]bool{},
		saved:  map[int64]domain.BillingRef{},
	}
	for _, e := range events {
		s.events[e.ID] = e
	}
	return s
}

func (s *fakeStore) FindEvent(_ context.Context, id int64) (*domain.Event, error) {
	e, ok := s.events[id]
	if !ok {
		return nil, fmt.Errorf("fake.FindEvent: %w", repository.ErrNotFound)
	}
	cp := *e
	if ref, ok := s.saved[id]; ok {
		cp.Billing = ref
	}
	return &cp, nil
}

func (s *fakeStore) FindOneTicket(_ context.Context, c domain.TicketCriteria) (*domain.Ticket, error) {
	for _, t := range s.tickets {
		if t.EventID == c.EventID {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("fake.FindOneTicket: %w", repository.ErrNotFound)
}

func (s *fakeStore) SaveBilling(_ context.Context, id int64, ref domain.BillingRef) error {
	s.saved[id] = ref
	return nil
}

func (s *fakeStore) InsertTickets(_ context.Context, tickets []domain.Ticket) ([]int, error) {
	s.inserts++
	if s.insertErr != nil {
		return nil, s.insertErr
	}

	var collided []int
	for i, t := range tickets {
		if s.refs[t.Reference] {
			collided = append(collided, i)
			continue
		}
		s.refs[t.Reference] = true
		s.tickets = append(s.tickets, t)
	}
	return collided, nil
}

type fakeHooks struct {
	after    []func(context.Context)
	rollback []func(context.Context)
}

func (h *fakeHooks) AfterCommit(fn func(context.Context)) { h.after = append(h.after, fn) }
func (h *fakeHooks) OnRollback(fn func(context.Context))  { h.rollback = append(h.rollback, fn) }

func (h *fakeHooks) rollBack() {
	for i := len(h.rollback) - 1; i >= 0; i-- {
		h.rollback[i](context.Background())
	}
}

type fakeBilling struct {
	*billing.Memory

	calls           []string
	createPriceErr  error
	deleteEventErr  error
	updateEventErr  error
	replacePriceIDs bool
}

func newFakeBilling() *fakeBilling {
	return &fakeBilling{Memory: billing.NewMemory()}
}

func (f *fakeBilling) CreateEvent(ctx context.Context, title, eventType string) (string, error) {
	f.calls = append(f.calls, "CreateEvent")
	return f.Memory.CreateEvent(ctx, title, eventType)
}

func (f *fakeBilling) UpdateEvent(ctx context.Context, id, title, eventType string) (string, error) {
	f.calls = append(f.calls, "UpdateEvent")
	if f.updateEventErr != nil {
		return "", f.updateEventErr
	}
	return f.Memory.UpdateEvent(ctx, id, title, eventType)
}

func (f *fakeBilling) DeleteEvent(ctx context.Context, id string) error {
	f.calls = append(f.calls, "DeleteEvent")
	if f.deleteEventErr != nil {
		return f.deleteEventErr
	}
	return f.Memory.DeleteEvent(ctx, id)
}

func (f *fakeBilling) CreatePrice(ctx context.Context, eventID string, amount decimal.Decimal) (string, error) {
	f.calls = append(f.calls, "CreatePrice")
	if f.createPriceErr != nil {
		return "", f.createPriceErr
	}
	return f.Memory.CreatePrice(ctx, eventID, amount)
}

func (f *fakeBilling) UpdatePrice(ctx context.Context, priceID, eventID string, amount decimal.Decimal) (string, error) {
	f.calls = append(f.calls, "UpdatePrice")
	if f.replacePriceIDs {
		id, err := f.Memory.CreatePrice(ctx, eventID, amount)
		if err != nil {
			return "", err
		}
		return id, f.Memory.DeletePrice(ctx, priceID)
	}
	return f.Memory.UpdatePrice(ctx, priceID, eventID, amount)
}

func (f *fakeBilling) DeletePrice(ctx context.Context, id string) error {
	f.calls = append(f.calls, "DeletePrice")
	return f.Memory.DeletePrice(ctx, id)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func date(s string) time.Time {
	d, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func testEvent(seats int, schedules ...domain.Schedule) *domain.Event {
	return &domain.Event{
		ID:        42,
		Title:     "Hamlet",
		Type:      "theatre",
		Price:     decimal.RequireFromString("19.99"),
		VenueID:   7,
		Venue:     &domain.Venue{ID: 7, Name: "Globe", Seats: seats},
		Schedules: schedules,
	}
}

func TestOnCreated_ExampleVenueTwoShows(t *testing.T) {
	ev := testEvent(100, domain.Schedule{Date: date("2026-05-01"), Times: []string{"14:00", "20:00"}})
	store := newFakeStore(ev)
	provider := newFakeBilling()
	hooks := &fakeHooks{}

	res, err := New(provider, discardLogger()).OnCreated(context.Background(), store, hooks, ev.ID)

	require.NoError(t, err)
	assert.Equal(t, 200, res.Tickets)
	require.Len(t, store.tickets, 200)

	byTime := map[string]int{}
	for _, tk := range store.tickets {
		byTime[tk.Time]++
		assert.Equal(t, domain.TicketCreate, tk.Status)
		assert.True(t, ev.Price.Equal(tk.Price))
		assert.True(t, date("2026-05-01").Equal(tk.Date))
		assert.Equal(t, ev.ID, tk.EventID)
	}
	assert.Equal(t, map[string]int{"14:00": 100, "20:00": 100}, byTime)

	assert.Equal(t, res.Billing, store.saved[ev.ID])
	assert.NotEmpty(t, res.Billing.EventID)
	assert.NotEmpty(t, res.Billing.PriceID)

	p, ok := provider.Price(res.Billing.PriceID)
	require.True(t, ok)
	assert.Equal(t, res.Billing.EventID, p.EventID)
	assert.True(t, ev.Price.Equal(p.Amount))
}

func TestOnCreated_CountIsSeatsTimesSlots(t *testing.T) {
	ev := testEvent(3,
		domain.Schedule{Date: date("2026-05-01"), Times: []string{"10:00", "18:00"}},
		domain.Schedule{Date: date("2026-05-02"), Times: []string{"18:00"}},
	)
	store := newFakeStore(ev)

	res, err := New(newFakeBilling(), discardLogger()).OnCreated(context.Background(), store, &fakeHooks{}, ev.ID)

	require.NoError(t, err)
	assert.Equal(t, 9, res.Tickets)
	assert.Len(t, store.tickets, 9)
}

func TestOnCreated_ReferencesUnique(t *testing.T) {
	ev := testEvent(250, domain.Schedule{Date: date("2026-05-01"), Times: []string{"14:00", "20:00"}})
	store := newFakeStore(ev)

	_, err := New(newFakeBilling(), discardLogger()).OnCreated(context.Background(), store, &fakeHooks{}, ev.ID)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, tk := range store.tickets {
		assert.False(t, seen[tk.Reference], "duplicate reference %s", tk.Reference)
		seen[tk.Reference] = true
	}
	assert.Len(t, seen, 500)
}

func TestOnCreated_InsertsInChunks(t *testing.T) {
	ev := testEvent(1200, domain.Schedule{Date: date("2026-05-01"), Times: []string{"20:00"}})
	store := newFakeStore(ev)

	_, err := New(newFakeBilling(), discardLogger()).OnCreated(context.Background(), store, &fakeHooks{}, ev.ID)

	require.NoError(t, err)
	assert.Equal(t, 2, store.inserts)
	assert.Len(t, store.tickets, 1200)
}

func TestOnCreated_NoSchedulesStillSyncsBilling(t *testing.T) {
	ev := testEvent(50)
	store := newFakeStore(ev)
	provider := newFakeBilling()

	res, err := New(provider, discardLogger()).OnCreated(context.Background(), store, &fakeHooks{}, ev.ID)

	require.NoError(t, err)
	assert.Zero(t, res.Tickets)
	assert.Empty(t, store.tickets)
	assert.Equal(t, []string{"CreateEvent", "CreatePrice"}, provider.calls)
	assert.False(t, store.saved[ev.ID].IsZero())
}

func TestOnCreated_AlreadyGenerated(t *testing.T) {
	ev := testEvent(2, domain.Schedule{Date: date("2026-05-01"), Times: []string{"20:00"}})
	store := newFakeStore(ev)
	store.tickets = []domain.Ticket{{Reference: "X", EventID: ev.ID}}
	provider := newFakeBilling()

	_, err := New(provider, discardLogger()).OnCreated(context.Background(), store, &fakeHooks{}, ev.ID)

	require.ErrorIs(t, err, ErrAlreadyGenerated)
	assert.Empty(t, provider.calls)
	assert.Len(t, store.tickets, 1)
}

func TestOnCreated_EventNotFound(t *testing.T) {
	_, err := New(newFakeBilling(), discardLogger()).OnCreated(context.Background(), newFakeStore(), &fakeHooks{}, 404)

	require.ErrorIs(t, err, ErrEventNotFound)
}

func TestOnCreated_RejectsUnusableEvents(t *testing.T) {
	noVenue := testEvent(0)
	noVenue.Venue = nil

	negative := testEvent(1)
	negative.Price = decimal.NewFromInt(-5)

	untitled := testEvent(1)
	untitled.Title = ""

	tests := []struct {
		name string
		ev   *domain.Event
		want error
	}{
		{"no venue", noVenue, ErrNoVenue},
		{"negative price", negative, ErrInvalidEvent},
		{"empty title", untitled, ErrInvalidEvent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newFakeBilling()
			_, err := New(provider, discardLogger()).OnCreated(context.Background(), newFakeStore(tt.ev), &fakeHooks{}, tt.ev.ID)

			require.ErrorIs(t, err, tt.want)
			assert.Empty(t, provider.calls)
		})
	}
}

func TestOnCreated_PriceFailureDeletesBillingEvent(t *testing.T) {
	ev := testEvent(2, domain.Schedule{Date: date("2026-05-01"), Times: []string{"20:00"}})
	store := newFakeStore(ev)
	provider := newFakeBilling()
	provider.createPriceErr = errors.New("card network down")

	_, err := New(provider, discardLogger()).OnCreated(context.Background(), store, &fakeHooks{}, ev.ID)

	var berr *BillingError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, "create price", berr.Op)
	assert.Nil(t, berr.Inconsistency)
	assert.Equal(t, []string{"CreateEvent", "CreatePrice", "DeleteEvent"}, provider.calls)
	assert.Empty(t, store.saved)
	assert.Empty(t, store.tickets)
}

func TestOnCreated_OrphanedBillingEventIsReported(t *testing.T) {
	ev := testEvent(2, domain.Schedule{Date: date("2026-05-01"), Times: []string{"20:00"}})
	provider := newFakeBilling()
	provider.createPriceErr = errors.New("invalid amount")
	provider.deleteEventErr = errors.New("timeout")

	_, err := New(provider, discardLogger()).OnCreated(context.Background(), newFakeStore(ev), &fakeHooks{}, ev.ID)

	var berr *BillingError
	require.ErrorAs(t, err, &berr)
	require.NotNil(t, berr.Inconsistency)
	assert.Equal(t, "event", berr.Inconsistency.Resource)
	assert.Equal(t, "evt_1", berr.Inconsistency.ResourceID)
}

func TestOnCreated_RollbackCompensatesBilling(t *testing.T) {
	ev := testEvent(2, domain.Schedule{Date: date("2026-05-01"), Times: []string{"20:00"}})
	store := newFakeStore(ev)
	store.insertErr = errors.New("disk full")
	provider := newFakeBilling()
	hooks := &fakeHooks{}

	_, err := New(provider, discardLogger()).OnCreated(context.Background(), store, hooks, ev.ID)

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Empty(t, hooks.after)

	hooks.rollBack()

	_, ok := provider.Event("evt_1")
	assert.False(t, ok)
	_, ok = provider.Price("price_2")
	assert.False(t, ok)
	assert.Equal(t, []string{"CreateEvent", "CreatePrice", "DeletePrice", "DeleteEvent"}, provider.calls)
}

func TestOnCreated_RetriesReferenceCollisions(t *testing.T) {
	ev := testEvent(3, domain.Schedule{Date: date("2026-05-01"), Times: []string{"20:00"}})
	store := newFakeStore(ev)
	store.refs["TAKEN"] = true

	refs := []string{"TAKEN", "A", "A", "B", "C"}
	next := func() string {
		r := refs[0]
		refs = refs[1:]
		return r
	}

	res, err := New(newFakeBilling(), discardLogger(), WithReferenceFunc(next)).
		OnCreated(context.Background(), store, &fakeHooks{}, ev.ID)

	require.NoError(t, err)
	assert.Equal(t, 3, res.Tickets)
	assert.Equal(t, 2, store.inserts)

	var got []string
	for _, tk := range store.tickets {
		got = append(got, tk.Reference)
	}
	assert.ElementsMatch(t, []string{"A", "B", "C"}, got)
}

func TestOnCreated_ReferenceRetriesAreBounded(t *testing.T) {
	ev := testEvent(2, domain.Schedule{Date: date("2026-05-01"), Times: []string{"20:00"}})
	store := newFakeStore(ev)

	_, err := New(newFakeBilling(), discardLogger(),
		WithReferenceFunc(func() string { return "SAME" }),
		WithReferenceRetries(2),
	).OnCreated(context.Background(), store, &fakeHooks{}, ev.ID)

	require.ErrorIs(t, err, ErrReferenceExhausted)
	assert.Equal(t, 3, store.inserts)
}

func TestOnUpdated_PriceChangeLeavesTicketsUntouched(t *testing.T) {
	ev := testEvent(2, domain.Schedule{Date: date("2026-05-01"), Times: []string{"20:00"}})
	store := newFakeStore(ev)
	provider := newFakeBilling()
	gen := New(provider, discardLogger())

	created, err := gen.OnCreated(context.Background(), store, &fakeHooks{}, ev.ID)
	require.NoError(t, err)

	before := *ev
	ev.Price = decimal.RequireFromString("49.00")
	ev.Title = "Hamlet (revival)"

	res, err := gen.OnUpdated(context.Background(), store, &fakeHooks{}, ev.ID, &before)
	require.NoError(t, err)
	assert.Equal(t, created.Billing, res.Billing)

	for _, tk := range store.tickets {
		assert.True(t, decimal.RequireFromString("19.99").Equal(tk.Price))
	}
	assert.Len(t, store.tickets, 2)

	be, _ := provider.Event(res.Billing.EventID)
	assert.Equal(t, "Hamlet (revival)", be.Title)
	p, _ := provider.Price(res.Billing.PriceID)
	assert.True(t, decimal.RequireFromString("49.00").Equal(p.Amount))
}

func TestOnUpdated_StoresReplacementPriceID(t *testing.T) {
	ev := testEvent(1)
	store := newFakeStore(ev)
	provider := newFakeBilling()
	provider.replacePriceIDs = true
	gen := New(provider, discardLogger())

	created, err := gen.OnCreated(context.Background(), store, &fakeHooks{}, ev.ID)
	require.NoError(t, err)

	before := *ev
	ev.Price = decimal.NewFromInt(30)

	res, err := gen.OnUpdated(context.Background(), store, &fakeHooks{}, ev.ID, &before)
	require.NoError(t, err)
	assert.NotEqual(t, created.Billing.PriceID, res.Billing.PriceID)
	assert.Equal(t, res.Billing, store.saved[ev.ID])
}

func TestOnUpdated_UnchangedPriceSkipsPriceCall(t *testing.T) {
	ev := testEvent(1)
	store := newFakeStore(ev)
	provider := newFakeBilling()
	gen := New(provider, discardLogger())

	_, err := gen.OnCreated(context.Background(), store, &fakeHooks{}, ev.ID)
	require.NoError(t, err)
	provider.calls = nil

	before := *ev
	ev.Type = "opera"

	_, err = gen.OnUpdated(context.Background(), store, &fakeHooks{}, ev.ID, &before)
	require.NoError(t, err)
	assert.Equal(t, []string{"UpdateEvent"}, provider.calls)
}

func TestOnUpdated_UnsyncedEventIsSynchronizedWithoutTickets(t *testing.T) {
	ev := testEvent(5, domain.Schedule{Date: date("2026-05-01"), Times: []string{"20:00"}})
	store := newFakeStore(ev)
	provider := newFakeBilling()

	res, err := New(provider, discardLogger()).OnUpdated(context.Background(), store, &fakeHooks{}, ev.ID, nil)

	require.NoError(t, err)
	assert.False(t, res.Billing.IsZero())
	assert.Equal(t, res.Billing, store.saved[ev.ID])
	assert.Empty(t, store.tickets)
	assert.Equal(t, []string{"CreateEvent", "CreatePrice"}, provider.calls)
}

func TestOnUpdated_BillingFailureAborts(t *testing.T) {
	ev := testEvent(1)
	store := newFakeStore(ev)
	provider := newFakeBilling()
	gen := New(provider, discardLogger())

	_, err := gen.OnCreated(context.Background(), store, &fakeHooks{}, ev.ID)
	require.NoError(t, err)

	provider.updateEventErr = errors.New("rate limited")
	before := *ev
	ev.Title = "Othello"

	_, err = gen.OnUpdated(context.Background(), store, &fakeHooks{}, ev.ID, &before)

	var berr *BillingError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, "update event", berr.Op)
}

func TestOnUpdated_RollbackRestoresBilling(t *testing.T) {
	ev := testEvent(1)
	store := newFakeStore(ev)
	provider := newFakeBilling()
	gen := New(provider, discardLogger())

	created, err := gen.OnCreated(context.Background(), store, &fakeHooks{}, ev.ID)
	require.NoError(t, err)

	before := *ev
	ev.Title = "Othello"
	ev.Price = decimal.NewFromInt(99)

	hooks := &fakeHooks{}
	_, err = gen.OnUpdated(context.Background(), store, hooks, ev.ID, &before)
	require.NoError(t, err)

	hooks.rollBack()

	be, _ := provider.Event(created.Billing.EventID)
	assert.Equal(t, "Hamlet", be.Title)
	p, _ := provider.Price(created.Billing.PriceID)
	assert.True(t, before.Price.Equal(p.Amount))
}

func TestOnRemoved_TouchesNothing(t *testing.T) {
	provider := newFakeBilling()

	New(provider, discardLogger()).OnRemoved(context.Background(), 42)

	assert.Empty(t, provider.calls)
}

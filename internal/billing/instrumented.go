package billing

import (
	"context"
	"time"

	"github.com/kirinyoku/tixhub/internal/metrics"
	"github.com/shopspring/decimal"
)

// Instrumented records call latency and outcome of the wrapped Provider.
type Instrumented struct {
	next Provider
}

func NewInstrumented(next Provider) *Instrumented {
	return &Instrumented{next: next}
}

func (i *Instrumented) CreateEvent(ctx context.Context, title, eventType string) (_ string, err error) {
	defer track("create_event", time.Now(), &err)
	return i.next.CreateEvent(ctx, title, eventType)
}

func (i *Instrumented) UpdateEvent(ctx context.Context, id, title, eventType string) (_ string, err error) {
	defer track("update_event", time.Now(), &err)
	return i.next.UpdateEvent(ctx, id, title, eventType)
}

func (i *Instrumented) DeleteEvent(ctx context.Context, id string) (err error) {
	defer track("delete_event", time.Now(), &err)
	return i.next.DeleteEvent(ctx, id)
}

func (i *Instrumented) CreatePrice(ctx context.Context, eventID string, amount decimal.Decimal) (_ string, err error) {
	defer track("create_price", time.Now(), &err)
	return i.next.CreatePrice(ctx, eventID, amount)
}

func (i *Instrumented) UpdatePrice(ctx context.Context, priceID, eventID string, amount decimal.Decimal) (_ string, err error) {
	defer track("update_price", time.Now(), &err)
	return i.next.UpdatePrice(ctx, priceID, eventID, amount)
}

func (i *Instrumented) DeletePrice(ctx context.Context, id string) (err error) {
	defer track("delete_price", time.Now(), &err)
	return i.next.DeletePrice(ctx, id)
}

func track(operation string, start time.Time, err *error) {
	metrics.TrackBillingCall(operation, time.Since(start), *err)
}

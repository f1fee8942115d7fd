// Package billing synchronizes events and their prices with an external
// billing provider.
package billing

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound      = errors.New("billing resource not found")
	ErrInvalidAmount = errors.New("invalid amount")
)

// Provider is the billing provider port. A billing event is the purchasable
// product behind an Event; a price belongs to exactly one billing event.
type Provider interface {
	CreateEvent(ctx context.Context, title, eventType string) (string, error)
	UpdateEvent(ctx context.Context, id, title, eventType string) (string, error)
	DeleteEvent(ctx context.Context, id string) error

	CreatePrice(ctx context.Context, eventID string, amount decimal.Decimal) (string, error)
	// UpdatePrice changes the amount of a price and returns the ID that now
	// carries it, which may differ from priceID.
	UpdatePrice(ctx context.Context, priceID, eventID string, amount decimal.Decimal) (string, error)
	DeletePrice(ctx context.Context, id string) error
}

// MinorUnits converts amount to the smallest currency unit (cents).
func MinorUnits(amount decimal.Decimal) (int64, error) {
	if amount.IsNegative() {
		return 0, ErrInvalidAmount
	}
	return amount.Shift(2).Round(0).IntPart(), nil
}

package billing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

const eventTypeMetadataKey = "type"

type StripeConfig struct {
	SecretKey string
	Currency  string
	// APIURL overrides the Stripe API base URL; empty means the public API.
	APIURL string
}

// Stripe maps billing events to Stripe products and prices to Stripe prices.
type Stripe struct {
	api      *client.API
	currency string
}

func NewStripe(cfg StripeConfig) *Stripe {
	bcfg := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(2),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	}
	if cfg.APIURL != "" {
		bcfg.URL = stripe.String(cfg.APIURL)
	}

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, bcfg)

	currency := strings.ToLower(cfg.Currency)
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	return &Stripe{
		api: client.New(cfg.SecretKey, &stripe.Backends{
			API:     backend,
			Connect: backend,
			Uploads: backend,
		}),
		currency: currency,
	}
}

func (s *Stripe) CreateEvent(ctx context.Context, title, eventType string) (string, error) {
	const op = "billing.Stripe.CreateEvent"

	params := &stripe.ProductParams{Name: stripe.String(title)}
	params.Context = ctx
	params.AddMetadata(eventTypeMetadataKey, eventType)

	p, err := s.api.Products.New(params)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, translateStripeErr(err))
	}

	return p.ID, nil
}

func (s *Stripe) UpdateEvent(ctx context.Context, id, title, eventType string) (string, error) {
	const op = "billing.Stripe.UpdateEvent"

	params := &stripe.ProductParams{Name: stripe.String(title)}
	params.Context = ctx
	params.AddMetadata(eventTypeMetadataKey, eventType)

	p, err := s.api.Products.Update(id, params)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, translateStripeErr(err))
	}

	return p.ID, nil
}

// DeleteEvent deletes the product. Products that still own prices cannot be
// deleted on Stripe, so they are archived instead.
func (s *Stripe) DeleteEvent(ctx context.Context, id string) error {
	const op = "billing.Stripe.DeleteEvent"

	params := &stripe.ProductParams{}
	params.Context = ctx

	_, err := s.api.Products.Del(id, params)
	if err == nil {
		return nil
	}

	var serr *stripe.Error
	if !errors.As(err, &serr) || serr.HTTPStatusCode != http.StatusBadRequest {
		return fmt.Errorf("%s: %w", op, translateStripeErr(err))
	}

	archive := &stripe.ProductParams{Active: stripe.Bool(false)}
	archive.Context = ctx
	if _, err := s.api.Products.Update(id, archive); err != nil {
		return fmt.Errorf("%s: archive: %w", op, translateStripeErr(err))
	}

	return nil
}

func (s *Stripe) CreatePrice(ctx context.Context, eventID string, amount decimal.Decimal) (string, error) {
	const op = "billing.Stripe.CreatePrice"

	cents, err := MinorUnits(amount)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	params := &stripe.PriceParams{
		Product:    stripe.String(eventID),
		Currency:   stripe.String(s.currency),
		UnitAmount: stripe.Int64(cents),
	}
	params.Context = ctx

	p, err := s.api.Prices.New(params)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, translateStripeErr(err))
	}

	return p.ID, nil
}

// UpdatePrice replaces the price. Stripe price amounts are immutable, so a
// new price is created on the same product and the old one is deactivated.
func (s *Stripe) UpdatePrice(ctx context.Context, priceID, eventID string, amount decimal.Decimal) (string, error) {
	const op = "billing.Stripe.UpdatePrice"

	newID, err := s.CreatePrice(ctx, eventID, amount)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if priceID != "" && priceID != newID {
		if err := s.DeletePrice(ctx, priceID); err != nil && !errors.Is(err, ErrNotFound) {
			return "", fmt.Errorf("%s: %w", op, err)
		}
	}

	return newID, nil
}

// DeletePrice deactivates the price; Stripe prices cannot be deleted.
func (s *Stripe) DeletePrice(ctx context.Context, id string) error {
	const op = "billing.Stripe.DeletePrice"

	params := &stripe.PriceParams{Active: stripe.Bool(false)}
	params.Context = ctx

	if _, err := s.api.Prices.Update(id, params); err != nil {
		return fmt.Errorf("%s: %w", op, translateStripeErr(err))
	}

	return nil
}

func translateStripeErr(err error) error {
	var serr *stripe.Error
	if errors.As(err, &serr) && serr.Code == stripe.ErrorCodeResourceMissing {
		return fmt.Errorf("%w: %s", ErrNotFound, serr.Msg)
	}
	return err
}

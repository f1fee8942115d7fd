package service

import (
	"log/slog"

	"github.com/kirinyoku/tixhub/internal/billing"
	"github.com/kirinyoku/tixhub/internal/broker"
	postgres "github.com/kirinyoku/tixhub/internal/repository/postgres"
	redis "github.com/kirinyoku/tixhub/internal/repository/redis"
	"github.com/kirinyoku/tixhub/internal/service/admin"
	"github.com/kirinyoku/tixhub/internal/service/auth"
	"github.com/kirinyoku/tixhub/internal/service/checkout"
	"github.com/kirinyoku/tixhub/internal/service/query"
	"github.com/kirinyoku/tixhub/internal/service/ticketing"
)

type Services struct {
	Auth     *auth.Service
	Query    *query.Service
	Admin    *admin.Service
	Checkout *checkout.Service
}

type Config struct {
	Auth     auth.Config
	Query    query.Config
	Checkout checkout.Config
}

type Deps struct {
	Store     *postgres.Store
	Cache     *redis.Cache
	PubSub    *redis.EventsPubSub
	Refresh   *redis.RefreshTokenStore
	Billing   billing.Provider
	Publisher broker.Publisher
	Logger    *slog.Logger
}

func NewServices(d Deps, cfg Config) *Services {
	generator := ticketing.New(d.Billing, d.Logger.With(slog.String("component", "ticketing")))

	return &Services{
		Auth:     auth.New(d.Store.Users(), d.Refresh, cfg.Auth),
		Query:    query.New(d.Store, d.Cache, cfg.Query),
		Admin:    admin.New(d.Store, d.Cache, d.PubSub, d.Publisher, generator, d.Logger),
		Checkout: checkout.New(d.Store, d.Cache, d.PubSub, d.Publisher, cfg.Checkout, d.Logger),
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/kirinyoku/tixhub/internal/billing"
	"github.com/kirinyoku/tixhub/internal/broker"
	"github.com/kirinyoku/tixhub/internal/config"
	"github.com/kirinyoku/tixhub/internal/postgres"
	"github.com/kirinyoku/tixhub/internal/redis"
	postgresrepo "github.com/kirinyoku/tixhub/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/tixhub/internal/repository/redis"
	"github.com/kirinyoku/tixhub/internal/service"
	"github.com/kirinyoku/tixhub/internal/service/auth"
	"github.com/kirinyoku/tixhub/internal/service/checkout"
	"github.com/kirinyoku/tixhub/internal/service/query"
	httpgin "github.com/kirinyoku/tixhub/internal/transport/http/gin"
	"github.com/kirinyoku/tixhub/migrations"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	services   *service.Services
	pubsub     *redisrepo.EventsPubSub
	publisher  broker.Publisher
	pool       *pgxpool.Pool
	rdb        *goredis.Client
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx := context.Background()

	// Initialize dependencies
	pgxPool, err := postgres.New(ctx, postgres.Config{
		DSN:      cfg.Postgres.DSN(),
		MaxConns: cfg.Postgres.MaxConns,
		AppName:  "tixhub",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	if err := migrations.Apply(ctx, pgxPool); err != nil {
		pgxPool.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	rdb, err := redis.New(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		pgxPool.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	publisher, err := newPublisher(cfg.Broker, logger)
	if err != nil {
		pgxPool.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to initialize broker: %w", err)
	}

	// Initialize repositories
	store := postgresrepo.NewStore(pgxPool)
	cache := redisrepo.NewCache(rdb)
	pubsub := redisrepo.NewEventsPubSub(rdb)
	refresh := redisrepo.NewRefreshTokenStore(rdb)
	loginLimiter := redisrepo.NewSlidingWindowLimiter(
		rdb,
		redisrepo.KeyRateLimit("http"),
		cfg.Auth.LoginRateLimit,
		cfg.Auth.LoginRateWindow,
	)
	idempotencyStore := redisrepo.NewIdempotencyStore(rdb, 2*time.Hour)

	// Initialize services
	services := service.NewServices(service.Deps{
		Store:     store,
		Cache:     cache,
		PubSub:    pubsub,
		Refresh:   refresh,
		Billing:   newBilling(cfg.Billing, logger),
		Publisher: publisher,
		Logger:    logger,
	}, service.Config{
		Auth: auth.Config{
			Secret:     []byte(cfg.Auth.JWTSecret),
			AccessTTL:  cfg.Auth.AccessTokenTTL,
			RefreshTTL: cfg.Auth.RefreshTokenTTL,
			BcryptCost: cfg.Auth.BcryptCost,
		},
		Query: query.Config{},
		Checkout: checkout.Config{
			HoldTTL:           cfg.Checkout.HoldTTL,
			MaxPerReservation: cfg.Checkout.MaxPerReservation,
		},
	})

	// Initialize Gin router
	router := httpgin.NewRouter(services, httpgin.Options{
		Idempotency:    idempotencyStore,
		LoginLimiter:   loginLimiter,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, logger)

	return &App{
		cfg:    cfg,
		logger: logger,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		services:  services,
		pubsub:    pubsub,
		publisher: publisher,
		pool:      pgxPool,
		rdb:       rdb,
	}, nil
}

// newBilling uses Stripe when a secret key is configured and the in-memory
// provider otherwise.
func newBilling(cfg config.BillingConfig, logger *slog.Logger) billing.Provider {
	if cfg.StripeSecretKey == "" {
		logger.Warn("STRIPE_SECRET_KEY is empty, billing runs in memory")
		return billing.NewInstrumented(billing.NewMemory())
	}

	return billing.NewInstrumented(billing.NewStripe(billing.StripeConfig{
		SecretKey: cfg.StripeSecretKey,
		Currency:  cfg.Currency,
		APIURL:    cfg.StripeAPIURL,
	}))
}

func newPublisher(cfg config.BrokerConfig, logger *slog.Logger) (broker.Publisher, error) {
	if cfg.URL == "" {
		logger.Info("AMQP_URL is empty, ticket notifications are disabled")
		return broker.Nop{}, nil
	}

	return broker.Dial(cfg.URL)
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defer a.close()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Release expired holds
	g.Go(func() error {
		return a.services.Checkout.RunSweeper(gCtx, a.cfg.Checkout.SweepInterval)
	})

	// Event change feed
	g.Go(func() error {
		err := a.pubsub.Subscribe(gCtx, func(ctx context.Context, change redisrepo.EventChange) {
			a.logger.DebugContext(ctx, "event changed",
				slog.String("type", change.Type),
				slog.Int64("event_id", change.EventID),
			)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("event change subscription: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}

func (a *App) close() {
	if err := a.publisher.Close(); err != nil {
		a.logger.Warn("close broker", slog.String("err", err.Error()))
	}
	if err := a.rdb.Close(); err != nil {
		a.logger.Warn("close redis", slog.String("err", err.Error()))
	}
	a.pool.Close()
}

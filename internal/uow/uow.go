package uow

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/kirinyoku/tixhub/internal/repository/postgres"
)

// AfterCommit is a function that runs after a successful transaction commit.
type AfterCommit func(ctx context.Context)

// OnRollback is a function that runs after the transaction was rolled back.
// It undoes side effects performed outside the database.
type OnRollback func(ctx context.Context)

// TxRunner runs fn inside a database transaction.
type TxRunner interface {
	RunTx(ctx context.Context, opts *pgx.TxOptions, fn func(ctx context.Context, tx postgres.DB) error) error
}

// Hooks collects the callbacks registered while a unit of work runs.
type Hooks struct {
	after    []AfterCommit
	rollback []OnRollback
}

func (h *Hooks) AfterCommit(fn func(ctx context.Context)) {
	h.after = append(h.after, fn)
}

func (h *Hooks) OnRollback(fn func(ctx context.Context)) {
	h.rollback = append(h.rollback, fn)
}

// maxAttempts bounds how often a transaction aborted by a serialization
// failure or deadlock is run again.
const maxAttempts = 3

// UoW represents a unit of work.
type UoW struct {
	store TxRunner
}

func NewUoW(store TxRunner) *UoW {
	return &UoW{store: store}
}

// Do runs fn inside the transaction. After a successful commit,
// it executes all after-commit hooks.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, tx postgres.DB, hooks *Hooks) error,
) error {
	return u.DoWithOpts(ctx, nil, fn)
}

// DoWithOpts runs fn inside the transaction with the given options. After a
// successful commit it executes all after-commit hooks in registration order;
// if fn or the commit fails it executes the rollback hooks in reverse order.
// Rollback hooks run with a context detached from ctx cancellation.
//
// A transaction that fails with a retryable Postgres error is run again, with
// fresh hooks, up to maxAttempts times.
func (u *UoW) DoWithOpts(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx postgres.DB, hooks *Hooks) error,
) error {
	for attempt := 1; ; attempt++ {
		var hooks Hooks

		err := u.store.RunTx(ctx, opts, func(ctx context.Context, tx postgres.DB) error {
			return fn(ctx, tx, &hooks)
		})
		if err != nil {
			rctx := context.WithoutCancel(ctx)
			for i := len(hooks.rollback) - 1; i >= 0; i-- {
				hooks.rollback[i](rctx)
			}

			if attempt < maxAttempts && postgres.IsRetryable(err) && ctx.Err() == nil {
				continue
			}
			return err
		}

		for _, h := range hooks.after {
			h(ctx)
		}

		return nil
	}
}

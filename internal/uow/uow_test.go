package uow

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/tixhub/internal/repository/postgres"
)

type fakeRunner struct {
	commitErr error
}

func (f fakeRunner) RunTx(ctx context.Context, _ *pgx.TxOptions, fn func(ctx context.Context, tx postgres.DB) error) error {
	if err := fn(ctx, nil); err != nil {
		return err
	}
	return f.commitErr
}

func TestDo_RunsAfterCommitHooksInOrder(t *testing.T) {
	var calls []string

	err := NewUoW(fakeRunner{}).Do(context.Background(), func(ctx context.Context, _ postgres.DB, h *Hooks) error {
		h.AfterCommit(func(context.Context) { calls = append(calls, "a") })
		h.AfterCommit(func(context.Context) { calls = append(calls, "b") })
		h.OnRollback(func(context.Context) { calls = append(calls, "rollback") })
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, calls)
}

func TestDo_RunsRollbackHooksInReverseOnError(t *testing.T) {
	boom := errors.New("boom")
	var calls []string

	err := NewUoW(fakeRunner{}).Do(context.Background(), func(ctx context.Context, _ postgres.DB, h *Hooks) error {
		h.OnRollback(func(context.Context) { calls = append(calls, "first") })
		h.OnRollback(func(context.Context) { calls = append(calls, "second") })
		h.AfterCommit(func(context.Context) { calls = append(calls, "after") })
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"second", "first"}, calls)
}

func TestDo_RunsRollbackHooksWhenCommitFails(t *testing.T) {
	commitErr := errors.New("commit: serialization failure")
	rolledBack := false

	err := NewUoW(fakeRunner{commitErr: commitErr}).Do(context.Background(), func(ctx context.Context, _ postgres.DB, h *Hooks) error {
		h.OnRollback(func(context.Context) { rolledBack = true })
		return nil
	})

	require.ErrorIs(t, err, commitErr)
	assert.True(t, rolledBack)
}

func TestDo_RollbackHookContextSurvivesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var hookErr error

	_ = NewUoW(fakeRunner{}).Do(ctx, func(ctx context.Context, _ postgres.DB, h *Hooks) error {
		h.OnRollback(func(ctx context.Context) { hookErr = ctx.Err() })
		cancel()
		return context.Canceled
	})

	assert.NoError(t, hookErr)
}

type flakyRunner struct {
	failures int
	calls    int
}

func (f *flakyRunner) RunTx(ctx context.Context, _ *pgx.TxOptions, fn func(ctx context.Context, tx postgres.DB) error) error {
	f.calls++
	if err := fn(ctx, nil); err != nil {
		return err
	}
	if f.calls <= f.failures {
		return &pgconn.PgError{Code: "40001"}
	}
	return nil
}

func TestDo_RetriesSerializationFailures(t *testing.T) {
	runner := &flakyRunner{failures: 2}
	var rollbacks, commits int

	err := NewUoW(runner).Do(context.Background(), func(ctx context.Context, _ postgres.DB, h *Hooks) error {
		h.OnRollback(func(context.Context) { rollbacks++ })
		h.AfterCommit(func(context.Context) { commits++ })
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, runner.calls)
	assert.Equal(t, 2, rollbacks)
	assert.Equal(t, 1, commits)
}

func TestDo_GivesUpAfterMaxAttempts(t *testing.T) {
	runner := &flakyRunner{failures: 10}

	err := NewUoW(runner).Do(context.Background(), func(ctx context.Context, _ postgres.DB, h *Hooks) error {
		return nil
	})

	assert.True(t, postgres.IsRetryable(err))
	assert.Equal(t, maxAttempts, runner.calls)
}

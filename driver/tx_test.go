package driver

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap/zaptest"
)

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
	commitErr  error
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return f.commitErr
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rolledBack = true
	return nil
}

type fakePool struct {
	PostgresPool
	tx   *fakeTx
	opts pgx.TxOptions
}

func (f *fakePool) BeginTx(_ context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	f.opts = opts
	return f.tx, nil
}

func TestExecuteTransaction(t *testing.T) {
	t.Run("commits", func(t *testing.T) {
		pool := &fakePool{tx: &fakeTx{}}
		tm := NewTransactionManager(pool, zaptest.NewLogger(t))

		if err := tm.ExecuteTransaction(context.Background(), func(pgx.Tx) error { return nil }); err != nil {
			t.Fatal(err)
		}
		if !pool.tx.committed || pool.tx.rolledBack {
			t.Errorf("expected commit only, got %+v", pool.tx)
		}
		if pool.opts.IsoLevel != pgx.RepeatableRead {
			t.Errorf("expected repeatable read, got %s", pool.opts.IsoLevel)
		}
	})

	t.Run("rolls back on error", func(t *testing.T) {
		pool := &fakePool{tx: &fakeTx{}}
		tm := NewTransactionManager(pool, zaptest.NewLogger(t))
		want := errors.New("not open")

		err := tm.ExecuteTransaction(context.Background(), func(pgx.Tx) error { return want })
		if !errors.Is(err, want) {
			t.Fatalf("expected %v, got %v", want, err)
		}
		if pool.tx.committed || !pool.tx.rolledBack {
			t.Errorf("expected rollback only, got %+v", pool.tx)
		}
	})

	t.Run("commit error is returned", func(t *testing.T) {
		pool := &fakePool{tx: &fakeTx{commitErr: errors.New("serialization failure")}}
		tm := NewTransactionManager(pool, zaptest.NewLogger(t))

		if err := tm.ExecuteTransaction(context.Background(), func(pgx.Tx) error { return nil }); err == nil {
			t.Fatal("expected commit error")
		}
	})

	t.Run("rolls back on panic", func(t *testing.T) {
		pool := &fakePool{tx: &fakeTx{}}
		tm := NewTransactionManager(pool, zaptest.NewLogger(t))

		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
			if !pool.tx.rolledBack {
				t.Error("expected rollback")
			}
		}()
		_ = tm.ExecuteTransaction(context.Background(), func(pgx.Tx) error { panic("boom") })
	})
}

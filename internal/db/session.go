// Package db provides GORM-based database operations for inkwell.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// WithTransaction runs fn inside a transaction scoped to ctx. The
// transaction commits when fn returns nil and rolls back when it
// returns an error or panics; a panic is re-raised after rollback.
// The connection returns to the pool in every case.
func (s *Store) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := s.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("begin transaction: %w", tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			if err := tx.Rollback().Error; err != nil && err != gorm.ErrInvalidTransaction {
				log.Error().Err(err).Msg("Rollback after panic failed")
			}
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil && rbErr != gorm.ErrInvalidTransaction {
			log.Error().Err(rbErr).Msg("Rollback failed")
		}
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// TransactionWithTimeout wraps a transaction function with timeout handling.
// The transaction is rolled back if the context deadline passes.
func (s *Store) TransactionWithTimeout(ctx context.Context, timeout time.Duration, fn func(tx *gorm.DB) error) error {
	timeoutCtx, cancel := s.WithTimeout(ctx, timeout, "transaction")
	defer cancel()

	return s.WithTransaction(timeoutCtx, func(tx *gorm.DB) error {
		select {
		case <-timeoutCtx.Done():
			return timeoutCtx.Err()
		default:
		}
		return fn(tx)
	})
}

// Read returns a context-bound session for queries outside any
// transaction. Each call hands out an independent session sharing the
// underlying pool.
func (s *Store) Read(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx).Session(&gorm.Session{})
}

// RunConcurrent fans fn out over n goroutines, each with its own
// context-bound session drawn from the shared pool. The first error
// cancels the remaining work.
func (s *Store) RunConcurrent(ctx context.Context, n int, fn func(ctx context.Context, db *gorm.DB, worker int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		worker := i
		g.Go(func() error {
			return fn(gctx, s.Read(gctx), worker)
		})
	}
	return g.Wait()
}

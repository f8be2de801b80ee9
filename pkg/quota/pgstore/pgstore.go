// Package pgstore provides a PostgreSQL-backed quota.UsageStore.
//
// Admission runs in a transaction that locks the counter row with
// SELECT ... FOR UPDATE, so calls on the same key serialize on the row while
// other keys proceed in parallel.
package pgstore

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/accessgate/pkg/pg"
	"github.com/dmitrymomot/accessgate/pkg/quota"
)

// Migrations holds the goose migrations for the usage_counters table.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations that goose should read.
const MigrationsDir = "migrations"

// Store is a PostgreSQL-backed UsageStore.
type Store struct {
	pool *pgxpool.Pool
}

var _ quota.UsageStore = (*Store)(nil)

// New creates a Store on a connected pool. Apply Migrations before use.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const (
	insertCounterQuery = `INSERT INTO usage_counters (user_id, api_name, count, window_start)
		VALUES ($1, $2, 0, $3)
		ON CONFLICT (user_id, api_name) DO NOTHING`

	lockCounterQuery = `SELECT count, window_start FROM usage_counters
		WHERE user_id = $1 AND api_name = $2
		FOR UPDATE`

	updateCounterQuery = `UPDATE usage_counters SET count = $3, window_start = $4
		WHERE user_id = $1 AND api_name = $2`

	selectCounterQuery = `SELECT count, window_start FROM usage_counters
		WHERE user_id = $1 AND api_name = $2`

	deleteCounterQuery = `DELETE FROM usage_counters WHERE user_id = $1 AND api_name = $2`
)

// ConsumeIfUnderLimit atomically applies the admission rule to the counter row.
func (s *Store) ConsumeIfUnderLimit(ctx context.Context, userID, apiName string, limit int64, window time.Duration, now time.Time) (bool, quota.UsageCounter, error) {
	if userID == "" || apiName == "" {
		return false, quota.UsageCounter{}, quota.ErrInvalidKey
	}
	// timestamptz keeps microseconds
	now = now.UTC().Truncate(time.Microsecond)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, quota.UsageCounter{}, fmt.Errorf("pgstore: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, insertCounterQuery, userID, apiName, now); err != nil {
		return false, quota.UsageCounter{}, fmt.Errorf("pgstore: create counter: %w", err)
	}

	current := quota.UsageCounter{UserID: userID, APIName: apiName}
	if err := tx.QueryRow(ctx, lockCounterQuery, userID, apiName).Scan(&current.Count, &current.WindowStart); err != nil {
		return false, quota.UsageCounter{}, fmt.Errorf("pgstore: lock counter: %w", err)
	}

	next, allowed, changed := quota.Admit(current, limit, window, now)
	if changed {
		if _, err := tx.Exec(ctx, updateCounterQuery, userID, apiName, next.Count, next.WindowStart); err != nil {
			return false, quota.UsageCounter{}, fmt.Errorf("pgstore: update counter: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, quota.UsageCounter{}, fmt.Errorf("pgstore: commit: %w", err)
	}

	next.WindowStart = next.WindowStart.UTC()
	return allowed, next, nil
}

// Get returns the stored counter.
func (s *Store) Get(ctx context.Context, userID, apiName string) (quota.UsageCounter, error) {
	c := quota.UsageCounter{UserID: userID, APIName: apiName}
	err := s.pool.QueryRow(ctx, selectCounterQuery, userID, apiName).Scan(&c.Count, &c.WindowStart)
	if pg.IsNotFoundError(err) {
		return quota.UsageCounter{}, quota.ErrCounterNotFound
	}
	if err != nil {
		return quota.UsageCounter{}, fmt.Errorf("pgstore: get: %w", err)
	}
	c.WindowStart = c.WindowStart.UTC()
	return c, nil
}

// Reset deletes the counter row.
func (s *Store) Reset(ctx context.Context, userID, apiName string) error {
	tag, err := s.pool.Exec(ctx, deleteCounterQuery, userID, apiName)
	if err != nil {
		return fmt.Errorf("pgstore: reset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return quota.ErrCounterNotFound
	}
	return nil
}

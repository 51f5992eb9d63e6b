package repository

import (
	"context"
	"database/sql"
)

// CounterRepo hands out monotonically increasing sequence numbers from
// the `counters` table, keyed by name. It backs referral code
// generation, where two concurrent registrations must never receive
// the same code.
type CounterRepo struct{ DB *sql.DB }

func NewCounterRepo(db *sql.DB) *CounterRepo { return &CounterRepo{DB: db} }

// Next atomically increments the named counter and returns the new
// value. The LAST_INSERT_ID trick makes the upsert-and-read a single
// round trip with no race between increment and select.
func (r *CounterRepo) Next(ctx context.Context, key string) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO counters (name, count) VALUES (?, LAST_INSERT_ID(1))
		 ON DUPLICATE KEY UPDATE count = LAST_INSERT_ID(count + 1)`, key)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

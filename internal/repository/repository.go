// Package repository implements the Postgres store for user rows. All
// access goes through parameterized statements on a shared pgx pool;
// there are no transactions because every resolver issues exactly one
// statement.
package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository executes user-table statements against Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// New opens a connection pool against databaseURL and verifies it with
// a ping, so an unreachable store fails at boot rather than on the
// first query. Pool bounds come from configuration: the pool only has
// to cover GraphQL operations in flight, one connection each.
func New(ctx context.Context, databaseURL string, maxConns, minConns int32) (*Repository, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MaxConns = maxConns
	poolCfg.MinConns = minConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Repository{pool: pool}, nil
}

// Ping checks database connectivity, for readiness probes.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close releases the connection pool.
func (r *Repository) Close() {
	r.pool.Close()
}

// Pool exposes the raw pool for the test harness (schema resets and
// advisory locks in testutil). Serving code never touches it; queries
// belong on Repository methods.
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore backs the Queries contract with a pgx connection pool.
type PostgresStore struct {
	db      *pgxpool.Pool
	queries *pgQueries
}

// NewPostgresStore creates a store wrapper around a pgx connection pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		db:      db,
		queries: &pgQueries{db: db},
	}
}

// Queries returns the non-transactional query set.
func (s *PostgresStore) Queries() Queries {
	return s.queries
}

// RunInTx executes fn within a database transaction.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(q Queries) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgQueries{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

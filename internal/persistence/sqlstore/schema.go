package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// EnsureSchema creates the tables and indexes the store needs when they are missing.
// Existing tables are left untouched.
func EnsureSchema(ctx context.Context, pool *ConnectionPool) error {
	return pool.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		for _, statement := range pool.dialect.schema() {
			if _, err := tx.ExecContext(ctx, statement); err != nil {
				return fmt.Errorf("failed to apply %s schema: %w", pool.dialect.name(), pool.dialect.mapError(err))
			}
		}
		return nil
	})
}

package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/example/room-reservations/internal/persistence"
)

// dialect isolates everything that differs between SQLite and PostgreSQL.
type dialect interface {
	name() string
	driverName() string
	prepareDSN(dsn string, opts Options) string
	schema() []string

	// Column expressions that render stored values in canonical text form.
	dateExpr(column string) string
	timeExpr(column string) string
	timestampExpr(column string) string

	// lockRoomDay serializes the enclosing transaction with every other
	// transaction holding the lock for the same room and date.
	lockRoomDay(ctx context.Context, tx *sqlx.Tx, roomID int64, date string) error

	// deferRoomDayWrite reports whether a room-day unit may read outside the
	// write transaction and open it at the first insert. Only safe when the
	// schema rejects overlapping inserts on its own.
	deferRoomDayWrite() bool

	mapError(err error) error
}

func dialectFor(driver string) (dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		return sqliteDialect{}, nil
	case "postgres", "postgresql":
		return postgresDialect{}, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}
}

// overlapMessage is raised by the schema triggers that reject overlapping reservations.
const overlapMessage = "reservation overlaps an existing reservation"

// mapCommonError handles failures that look the same on every driver.
func mapCommonError(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, context.DeadlineExceeded):
		return true, fmt.Errorf("%w: %w", persistence.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return true, err
	case errors.Is(err, sql.ErrNoRows):
		return true, persistence.ErrNotFound
	}
	return false, nil
}

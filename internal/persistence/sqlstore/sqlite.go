package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/example/room-reservations/internal/persistence"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

const defaultBusyTimeoutMillis = 5000

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS employees (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rooms (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE CHECK (length(trim(name)) > 0),
		capacity INTEGER NOT NULL DEFAULT 0 CHECK (capacity >= 0),
		description TEXT,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		room_id INTEGER NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
		employee_id INTEGER NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
		date TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		title TEXT,
		created_at TEXT NOT NULL,
		CHECK (start_time < end_time)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_room_date ON reservations(room_id, date)`,
	`CREATE TRIGGER IF NOT EXISTS reservations_no_overlap
		BEFORE INSERT ON reservations
		WHEN EXISTS (
			SELECT 1 FROM reservations
			WHERE room_id = NEW.room_id AND date = NEW.date
				AND start_time < NEW.end_time AND end_time > NEW.start_time
		)
		BEGIN
			SELECT RAISE(ABORT, '` + overlapMessage + `');
		END`,
}

// sqliteDialect lets the overlap trigger make check and insert one atomic
// statement. Room-day units read outside any transaction and only take the
// database write lock (BEGIN IMMEDIATE) at their first insert, so units for
// other rooms and dates wait on SQLite's single writer for the insert alone.
type sqliteDialect struct{}

func (sqliteDialect) name() string       { return "sqlite" }
func (sqliteDialect) driverName() string { return "sqlite" }
func (sqliteDialect) schema() []string   { return sqliteSchema }

func (sqliteDialect) prepareDSN(dsn string, opts Options) string {
	busy := defaultBusyTimeoutMillis
	if opts.BusyTimeout > 0 {
		busy = int(opts.BusyTimeout.Milliseconds())
	}

	params := []string{"_pragma=foreign_keys(1)"}
	if !strings.Contains(dsn, "busy_timeout") {
		params = append(params, fmt.Sprintf("_pragma=busy_timeout(%d)", busy))
	}
	if !strings.Contains(dsn, "journal_mode") && !isMemoryDSN(dsn) {
		params = append(params, "_pragma=journal_mode(WAL)")
	}
	if !strings.Contains(dsn, "_txlock") {
		params = append(params, "_txlock=immediate")
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

func isMemoryDSN(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

func (sqliteDialect) dateExpr(column string) string      { return column }
func (sqliteDialect) timeExpr(column string) string      { return column }
func (sqliteDialect) timestampExpr(column string) string { return column }

func (sqliteDialect) lockRoomDay(context.Context, *sqlx.Tx, int64, string) error {
	// The immediate transaction already holds the database write lock.
	return nil
}

func (sqliteDialect) deferRoomDayWrite() bool { return true }

func (sqliteDialect) mapError(err error) error {
	if handled, mapped := mapCommonError(err); handled {
		return mapped
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		switch code {
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%w: %v", persistence.ErrForeignKeyViolation, err)
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %v", persistence.ErrDuplicate, err)
		case sqlite3.SQLITE_CONSTRAINT_CHECK, sqlite3.SQLITE_CONSTRAINT_NOTNULL:
			return fmt.Errorf("%w: %v", persistence.ErrConstraintViolation, err)
		}
		switch code & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: %v", persistence.ErrTimeout, err)
		case sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_IOERR:
			return fmt.Errorf("%w: %v", persistence.ErrUnavailable, err)
		case sqlite3.SQLITE_CONSTRAINT:
			return mapSQLiteMessage(err)
		}
	}

	return mapSQLiteMessage(err)
}

// mapSQLiteMessage falls back to the message text for errors that lost their code.
func mapSQLiteMessage(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, overlapMessage):
		return fmt.Errorf("%w: %v", persistence.ErrOverlap, err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %v", persistence.ErrForeignKeyViolation, err)
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", persistence.ErrDuplicate, err)
	case strings.Contains(msg, "CHECK constraint failed"), strings.Contains(msg, "NOT NULL constraint failed"):
		return fmt.Errorf("%w: %v", persistence.ErrConstraintViolation, err)
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "SQLITE_BUSY"):
		return fmt.Errorf("%w: %v", persistence.ErrTimeout, err)
	}
	return err
}

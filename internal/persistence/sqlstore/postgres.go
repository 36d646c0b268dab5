package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/example/room-reservations/internal/persistence"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS employees (
		id BIGSERIAL PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS rooms (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE CHECK (length(trim(name)) > 0),
		capacity INTEGER NOT NULL DEFAULT 0 CHECK (capacity >= 0),
		description TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id BIGSERIAL PRIMARY KEY,
		room_id BIGINT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
		employee_id BIGINT NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
		date DATE NOT NULL,
		start_time TIME NOT NULL,
		end_time TIME NOT NULL,
		title TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (start_time < end_time)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_room_date ON reservations(room_id, date)`,
	`CREATE OR REPLACE FUNCTION reservations_reject_overlap() RETURNS trigger AS $$
	BEGIN
		IF EXISTS (
			SELECT 1 FROM reservations
			WHERE room_id = NEW.room_id AND date = NEW.date
				AND start_time < NEW.end_time AND end_time > NEW.start_time
		) THEN
			RAISE EXCEPTION '` + overlapMessage + `' USING ERRCODE = 'exclusion_violation';
		END IF;
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS reservations_no_overlap ON reservations`,
	`CREATE TRIGGER reservations_no_overlap BEFORE INSERT ON reservations
		FOR EACH ROW EXECUTE FUNCTION reservations_reject_overlap()`,
}

// postgresDialect serializes room days with transaction-scoped advisory
// locks, so only units for the same room and date wait on each other.
type postgresDialect struct{}

func (postgresDialect) name() string       { return "postgres" }
func (postgresDialect) driverName() string { return "postgres" }
func (postgresDialect) schema() []string   { return postgresSchema }

func (postgresDialect) prepareDSN(dsn string, _ Options) string { return dsn }

func (postgresDialect) dateExpr(column string) string {
	return fmt.Sprintf("to_char(%s, 'YYYY-MM-DD')", column)
}

func (postgresDialect) timeExpr(column string) string {
	return fmt.Sprintf("to_char(%s, 'HH24:MI:SS')", column)
}

func (postgresDialect) timestampExpr(column string) string {
	return fmt.Sprintf(`to_char(%s AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"')`, column)
}

func (d postgresDialect) lockRoomDay(ctx context.Context, tx *sqlx.Tx, roomID int64, date string) error {
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", roomDayLockKey(roomID, date)); err != nil {
		return fmt.Errorf("failed to lock room %d on %s: %w", roomID, date, d.mapError(err))
	}
	return nil
}

// roomDayLockKey folds a room and date into the 64-bit advisory lock space.
func roomDayLockKey(roomID int64, date string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strconv.FormatInt(roomID, 10)))
	_, _ = h.Write([]byte{'/'})
	_, _ = h.Write([]byte(date))
	return int64(h.Sum64())
}

// The advisory lock is taken before the read, so the trigger never fires for
// units that went through the guard.
func (postgresDialect) deferRoomDayWrite() bool { return false }

func (postgresDialect) mapError(err error) error {
	if handled, mapped := mapCommonError(err); handled {
		return mapped
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch pqErr.Code {
	case "23503":
		return fmt.Errorf("%w: %v", persistence.ErrForeignKeyViolation, err)
	case "23505":
		return fmt.Errorf("%w: %v", persistence.ErrDuplicate, err)
	case "23P01":
		return fmt.Errorf("%w: %v", persistence.ErrOverlap, err)
	case "23514", "23502", "22007", "22008":
		return fmt.Errorf("%w: %v", persistence.ErrConstraintViolation, err)
	case "57014", "55P03", "40P01":
		return fmt.Errorf("%w: %v", persistence.ErrTimeout, err)
	}
	if pqErr.Code.Class() == "08" {
		return fmt.Errorf("%w: %v", persistence.ErrUnavailable, err)
	}
	return err
}

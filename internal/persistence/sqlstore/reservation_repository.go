package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/example/room-reservations/internal/persistence"
)

// ReservationRepository implements persistence.ReservationRepository on top of sqlx.
type ReservationRepository struct {
	pool *ConnectionPool
}

// NewReservationRepository creates a reservation repository bound to the pool.
func NewReservationRepository(pool *ConnectionPool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

func (r *ReservationRepository) columns() string {
	d := r.pool.dialect
	return strings.Join([]string{
		"id",
		"room_id",
		"employee_id",
		d.dateExpr("date") + " AS date",
		d.timeExpr("start_time") + " AS start_time",
		d.timeExpr("end_time") + " AS end_time",
		"title",
		d.timestampExpr("created_at") + " AS created_at",
	}, ", ")
}

const reservationOrder = " ORDER BY date ASC, start_time ASC, id ASC"

// ListReservations returns reservations matching the filter in chronological order.
func (r *ReservationRepository) ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.Reservation, error) {
	return r.list(ctx, r.pool.db, filter)
}

func (r *ReservationRepository) list(ctx context.Context, q sqlx.QueryerContext, filter persistence.ReservationFilter) ([]persistence.Reservation, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.RoomID > 0 {
		conditions = append(conditions, "room_id = ?")
		args = append(args, filter.RoomID)
	}
	if filter.Date != "" {
		conditions = append(conditions, "date = ?")
		args = append(args, filter.Date)
	}

	query := "SELECT " + r.columns() + " FROM reservations"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += reservationOrder

	var rows []reservationRow
	if err := sqlx.SelectContext(ctx, q, &rows, r.pool.rebind(query), args...); err != nil {
		return nil, r.pool.dialect.mapError(err)
	}
	return reservationModels(rows)
}

// GetReservation retrieves a reservation by identifier.
func (r *ReservationRepository) GetReservation(ctx context.Context, id int64) (persistence.Reservation, error) {
	if id <= 0 {
		return persistence.Reservation{}, persistence.ErrNotFound
	}

	var row reservationRow
	query := r.pool.rebind("SELECT " + r.columns() + " FROM reservations WHERE id = ?")
	if err := sqlx.GetContext(ctx, r.pool.db, &row, query, id); err != nil {
		return persistence.Reservation{}, r.pool.dialect.mapError(err)
	}
	return row.model()
}

// WithRoomDay runs fn as one unit for the room and date. Dialects that lock
// the room day open the transaction and take the lock before fn runs; the
// others open it at the first insert. Any error returned by fn rolls back.
func (r *ReservationRepository) WithRoomDay(ctx context.Context, roomID int64, date string, fn func(ctx context.Context, day persistence.RoomDay) error) error {
	day := &roomDay{repo: r, roomID: roomID, date: date}
	committed := false
	defer func() {
		if day.tx != nil && !committed {
			_ = day.tx.Rollback()
		}
	}()

	if !r.pool.dialect.deferRoomDayWrite() {
		if err := day.begin(ctx); err != nil {
			return err
		}
	}

	if err := fn(ctx, day); err != nil {
		return err
	}
	if day.tx == nil {
		return nil
	}
	committed = true
	if err := day.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", r.pool.dialect.mapError(err))
	}
	return nil
}

// roomDay reads through the pool until its transaction is open.
type roomDay struct {
	repo   *ReservationRepository
	tx     *sqlx.Tx
	roomID int64
	date   string
}

func (d *roomDay) begin(ctx context.Context) error {
	if d.tx != nil {
		return nil
	}
	pool := d.repo.pool
	tx, err := pool.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", pool.dialect.mapError(err))
	}
	if err := pool.dialect.lockRoomDay(ctx, tx, d.roomID, d.date); err != nil {
		_ = tx.Rollback()
		return err
	}
	d.tx = tx
	return nil
}

func (d *roomDay) Reservations(ctx context.Context) ([]persistence.Reservation, error) {
	var q sqlx.QueryerContext = d.repo.pool.db
	if d.tx != nil {
		q = d.tx
	}
	return d.repo.list(ctx, q, persistence.ReservationFilter{RoomID: d.roomID, Date: d.date})
}

func (d *roomDay) Insert(ctx context.Context, reservation persistence.Reservation) (persistence.Reservation, error) {
	if reservation.RoomID != d.roomID || reservation.Date != d.date {
		return persistence.Reservation{}, persistence.ErrConstraintViolation
	}
	if err := d.begin(ctx); err != nil {
		return persistence.Reservation{}, err
	}

	reservation.CreatedAt = now()
	query := d.repo.pool.rebind(`
		INSERT INTO reservations (room_id, employee_id, date, start_time, end_time, title, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := d.tx.QueryRowxContext(ctx, query,
		reservation.RoomID,
		reservation.EmployeeID,
		reservation.Date,
		reservation.StartTime,
		reservation.EndTime,
		nullString(reservation.Title),
		formatTimestamp(reservation.CreatedAt),
	).Scan(&reservation.ID)
	if err != nil {
		return persistence.Reservation{}, d.repo.pool.dialect.mapError(err)
	}

	return reservation, nil
}

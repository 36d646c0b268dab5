package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/example/room-reservations/internal/persistence"
)

// RoomRepository implements persistence.RoomRepository on top of sqlx.
type RoomRepository struct {
	pool *ConnectionPool
}

// NewRoomRepository creates a room repository bound to the pool.
func NewRoomRepository(pool *ConnectionPool) *RoomRepository {
	return &RoomRepository{pool: pool}
}

func (r *RoomRepository) columns() string {
	d := r.pool.dialect
	return "id, name, capacity, description, " + d.timestampExpr("created_at") + " AS created_at"
}

// CreateRoom inserts a room and returns it with the generated identifier.
func (r *RoomRepository) CreateRoom(ctx context.Context, room persistence.Room) (persistence.Room, error) {
	if strings.TrimSpace(room.Name) == "" || room.Capacity < 0 {
		return persistence.Room{}, persistence.ErrConstraintViolation
	}

	room.CreatedAt = now()
	query := r.pool.rebind(`
		INSERT INTO rooms (name, capacity, description, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`)

	err := r.pool.db.QueryRowxContext(ctx, query,
		room.Name,
		room.Capacity,
		nullString(room.Description),
		formatTimestamp(room.CreatedAt),
	).Scan(&room.ID)
	if err != nil {
		return persistence.Room{}, r.pool.dialect.mapError(err)
	}

	return room, nil
}

// GetRoom retrieves a room by identifier.
func (r *RoomRepository) GetRoom(ctx context.Context, id int64) (persistence.Room, error) {
	if id <= 0 {
		return persistence.Room{}, persistence.ErrNotFound
	}

	var row roomRow
	query := r.pool.rebind("SELECT " + r.columns() + " FROM rooms WHERE id = ?")
	if err := sqlx.GetContext(ctx, r.pool.db, &row, query, id); err != nil {
		return persistence.Room{}, r.pool.dialect.mapError(err)
	}
	return row.model()
}

// ListRooms returns all rooms ordered by name then identifier.
func (r *RoomRepository) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	var rows []roomRow
	query := "SELECT " + r.columns() + " FROM rooms ORDER BY name ASC, id ASC"
	if err := sqlx.SelectContext(ctx, r.pool.db, &rows, query); err != nil {
		return nil, r.pool.dialect.mapError(err)
	}

	rooms := make([]persistence.Room, 0, len(rows))
	for _, row := range rows {
		room, err := row.model()
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

// DeleteRoom removes a room. Its reservations go with it through the foreign key cascade.
func (r *RoomRepository) DeleteRoom(ctx context.Context, id int64) error {
	if id <= 0 {
		return persistence.ErrNotFound
	}

	result, err := r.pool.db.ExecContext(ctx, r.pool.rebind("DELETE FROM rooms WHERE id = ?"), id)
	if err != nil {
		return r.pool.dialect.mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// Package sqlstore persists rooms, employees and reservations in SQLite or
// PostgreSQL through sqlx.
package sqlstore

import (
	"context"

	"github.com/example/room-reservations/internal/persistence"
)

// Store bundles the SQL repositories behind the persistence.Store interface.
type Store struct {
	*EmployeeRepository
	*RoomRepository
	*ReservationRepository

	pool *ConnectionPool
}

var _ persistence.Store = (*Store)(nil)

// Open connects to the database described by opts and makes sure the schema exists.
func Open(ctx context.Context, opts Options) (*Store, error) {
	pool, err := NewConnectionPool(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		_ = pool.Close()
		return nil, err
	}
	return New(pool), nil
}

// New wraps an already opened pool.
func New(pool *ConnectionPool) *Store {
	return &Store{
		EmployeeRepository:    NewEmployeeRepository(pool),
		RoomRepository:        NewRoomRepository(pool),
		ReservationRepository: NewReservationRepository(pool),
		pool:                  pool,
	}
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases every pooled connection.
func (s *Store) Close() error {
	return s.pool.Close()
}

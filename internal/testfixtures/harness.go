package testfixtures

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/room-reservations/internal/persistence"
	"github.com/example/room-reservations/internal/persistence/memory"
	"github.com/example/room-reservations/internal/persistence/sqlstore"
)

// Harness bundles a store with the seed helpers integration tests need.
type Harness struct {
	Name  string
	Store persistence.Store

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *Harness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens a SQLite store in a temporary file with the schema
// applied. The store is closed automatically when the test ends.
func NewSQLiteHarness(tb testing.TB) *Harness {
	tb.Helper()

	store, err := sqlstore.Open(context.Background(), sqlstore.Options{
		Driver:       "sqlite",
		DSN:          filepath.Join(tb.TempDir(), "reservations.db"),
		MaxOpenConns: 8,
		BusyTimeout:  10 * time.Second,
	})
	if err != nil {
		tb.Fatalf("failed to open sqlite store: %v", err)
	}

	harness := &Harness{
		Name:    "sqlite",
		Store:   store,
		cleanup: func() { _ = store.Close() },
	}
	tb.Cleanup(harness.Close)
	return harness
}

// NewMemoryHarness returns an in-memory store stamped by clock. A nil clock uses wall time.
func NewMemoryHarness(tb testing.TB, clock *Clock) *Harness {
	tb.Helper()

	var opts []memory.Option
	if clock != nil {
		opts = append(opts, memory.WithClock(clock.Now))
	}
	store := memory.Open(opts...)
	harness := &Harness{
		Name:    "memory",
		Store:   store,
		cleanup: func() { _ = store.Close() },
	}
	tb.Cleanup(harness.Close)
	return harness
}

// AllHarnesses returns one constructor per store backend so a test can run
// the same scenario against each of them.
func AllHarnesses() []func(testing.TB) *Harness {
	return []func(testing.TB) *Harness{
		NewSQLiteHarness,
		func(tb testing.TB) *Harness { return NewMemoryHarness(tb, nil) },
	}
}

// SeedRoom stores a room built from the fixture.
func (h *Harness) SeedRoom(tb testing.TB, opts ...RoomOption) persistence.Room {
	tb.Helper()
	room, err := h.Store.CreateRoom(context.Background(), NewRoomFixture(opts...).Persistence())
	if err != nil {
		tb.Fatalf("seed room: %v", err)
	}
	return room
}

// SeedEmployee stores an employee built from the fixture.
func (h *Harness) SeedEmployee(tb testing.TB, opts ...EmployeeOption) persistence.Employee {
	tb.Helper()
	employee, err := h.Store.CreateEmployee(context.Background(), NewEmployeeFixture(opts...).Persistence())
	if err != nil {
		tb.Fatalf("seed employee: %v", err)
	}
	return employee
}

// SeedReservation stores a reservation directly, bypassing conflict detection.
func (h *Harness) SeedReservation(tb testing.TB, fixture ReservationFixture) persistence.Reservation {
	tb.Helper()
	var stored persistence.Reservation
	err := h.Store.WithRoomDay(context.Background(), fixture.RoomID, fixture.Date, func(ctx context.Context, day persistence.RoomDay) error {
		var err error
		stored, err = day.Insert(ctx, persistence.Reservation{
			RoomID:     fixture.RoomID,
			EmployeeID: fixture.EmployeeID,
			Date:       fixture.Date,
			StartTime:  canonicalClock(fixture.StartTime),
			EndTime:    canonicalClock(fixture.EndTime),
			Title:      fixture.Title,
		})
		return err
	})
	if err != nil {
		tb.Fatalf("seed reservation: %v", err)
	}
	return stored
}

// CountReservations returns the number of reservations for one room and date.
func (h *Harness) CountReservations(tb testing.TB, roomID int64, date string) int {
	tb.Helper()
	list, err := h.Store.ListReservations(context.Background(), persistence.ReservationFilter{RoomID: roomID, Date: date})
	if err != nil {
		tb.Fatalf("list reservations: %v", err)
	}
	return len(list)
}

func canonicalClock(value string) string {
	if len(value) == len("15:04") {
		return value + ":00"
	}
	return value
}

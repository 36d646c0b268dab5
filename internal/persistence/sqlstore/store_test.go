package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"

	"github.com/example/room-reservations/internal/persistence"
)

func setupStoreTest(t *testing.T) *Store {
	t.Helper()

	store, err := Open(context.Background(), Options{
		Driver:       "sqlite",
		DSN:          filepath.Join(t.TempDir(), "reservations.db"),
		MaxOpenConns: 8,
		BusyTimeout:  10 * time.Second,
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedRoomAndEmployee(t *testing.T, store *Store) (persistence.Room, persistence.Employee) {
	t.Helper()
	ctx := context.Background()

	room, err := store.CreateRoom(ctx, persistence.Room{Name: "Sala Andes", Capacity: 8})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	employee, err := store.CreateEmployee(ctx, persistence.Employee{
		FirstName: "Ana",
		LastName:  "Pérez",
		Email:     "ana@example.com",
	})
	if err != nil {
		t.Fatalf("CreateEmployee failed: %v", err)
	}
	return room, employee
}

func insertReservation(ctx context.Context, store *Store, r persistence.Reservation) (persistence.Reservation, error) {
	var created persistence.Reservation
	err := store.WithRoomDay(ctx, r.RoomID, r.Date, func(ctx context.Context, day persistence.RoomDay) error {
		var err error
		created, err = day.Insert(ctx, r)
		return err
	})
	return created, err
}

func TestRoomRepository(t *testing.T) {
	t.Parallel()
	store := setupStoreTest(t)
	ctx := context.Background()

	description := "Planta 2"
	created, err := store.CreateRoom(ctx, persistence.Room{Name: "Sala Norte", Capacity: 4, Description: &description})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if created.ID == 0 {
		t.Fatalf("expected generated id")
	}

	got, err := store.GetRoom(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if got.Name != "Sala Norte" || got.Capacity != 4 || got.Description == nil || *got.Description != "Planta 2" {
		t.Fatalf("unexpected room %#v", got)
	}
	if !got.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("expected created_at %s, got %s", created.CreatedAt, got.CreatedAt)
	}

	if _, err := store.CreateRoom(ctx, persistence.Room{Name: "Sala Norte"}); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for repeated name, got %v", err)
	}
	if _, err := store.CreateRoom(ctx, persistence.Room{Name: "Sala Sur", Capacity: -1}); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation for negative capacity, got %v", err)
	}

	if _, err := store.CreateRoom(ctx, persistence.Room{Name: "Auditorio"}); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	rooms, err := store.ListRooms(ctx)
	if err != nil {
		t.Fatalf("ListRooms failed: %v", err)
	}
	if len(rooms) != 2 || rooms[0].Name != "Auditorio" || rooms[1].Name != "Sala Norte" {
		t.Fatalf("expected rooms ordered by name, got %#v", rooms)
	}
	if rooms[0].Description != nil {
		t.Fatalf("expected nil description, got %q", *rooms[0].Description)
	}

	if err := store.DeleteRoom(ctx, created.ID); err != nil {
		t.Fatalf("DeleteRoom failed: %v", err)
	}
	if _, err := store.GetRoom(ctx, created.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteRoom(ctx, created.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestEmployeeRepository(t *testing.T) {
	t.Parallel()
	store := setupStoreTest(t)
	ctx := context.Background()

	created, err := store.CreateEmployee(ctx, persistence.Employee{FirstName: "Luis", LastName: "Gómez", Email: "luis@example.com"})
	if err != nil {
		t.Fatalf("CreateEmployee failed: %v", err)
	}

	if _, err := store.CreateEmployee(ctx, persistence.Employee{FirstName: "Otro", LastName: "Luis", Email: "luis@example.com"}); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for repeated email, got %v", err)
	}

	created.FirstName = "Luis Alberto"
	updated, err := store.UpdateEmployee(ctx, created)
	if err != nil {
		t.Fatalf("UpdateEmployee failed: %v", err)
	}
	if updated.FirstName != "Luis Alberto" || !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("unexpected updated employee %#v", updated)
	}

	if _, err := store.UpdateEmployee(ctx, persistence.Employee{ID: 999, FirstName: "X", LastName: "Y", Email: "x@example.com"}); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating unknown employee, got %v", err)
	}

	employees, err := store.ListEmployees(ctx)
	if err != nil {
		t.Fatalf("ListEmployees failed: %v", err)
	}
	if len(employees) != 1 || employees[0].ID != created.ID {
		t.Fatalf("unexpected employees %#v", employees)
	}

	if err := store.DeleteEmployee(ctx, created.ID); err != nil {
		t.Fatalf("DeleteEmployee failed: %v", err)
	}
	if _, err := store.GetEmployee(ctx, created.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestReservationRepository_WithRoomDay(t *testing.T) {
	t.Parallel()

	t.Run("inserts and lists in chronological order", func(t *testing.T) {
		t.Parallel()
		store := setupStoreTest(t)
		room, employee := seedRoomAndEmployee(t, store)
		ctx := context.Background()

		title := "Planificación"
		later, err := insertReservation(ctx, store, persistence.Reservation{
			RoomID: room.ID, EmployeeID: employee.ID, Date: "2025-01-10",
			StartTime: "11:00:00", EndTime: "12:00:00", Title: &title,
		})
		if err != nil {
			t.Fatalf("insert failed: %v", err)
		}
		earlier, err := insertReservation(ctx, store, persistence.Reservation{
			RoomID: room.ID, EmployeeID: employee.ID, Date: "2025-01-10",
			StartTime: "09:00:00", EndTime: "10:00:00",
		})
		if err != nil {
			t.Fatalf("insert failed: %v", err)
		}

		all, err := store.ListReservations(ctx, persistence.ReservationFilter{RoomID: room.ID, Date: "2025-01-10"})
		if err != nil {
			t.Fatalf("ListReservations failed: %v", err)
		}
		if len(all) != 2 || all[0].ID != earlier.ID || all[1].ID != later.ID {
			t.Fatalf("expected chronological order, got %#v", all)
		}
		if all[1].Title == nil || *all[1].Title != title || all[0].Title != nil {
			t.Fatalf("unexpected titles %#v", all)
		}

		got, err := store.GetReservation(ctx, later.ID)
		if err != nil {
			t.Fatalf("GetReservation failed: %v", err)
		}
		if got.StartTime != "11:00:00" || got.EndTime != "12:00:00" || got.Date != "2025-01-10" {
			t.Fatalf("unexpected reservation %#v", got)
		}

		other, err := store.ListReservations(ctx, persistence.ReservationFilter{Date: "2025-01-11"})
		if err != nil {
			t.Fatalf("ListReservations failed: %v", err)
		}
		if len(other) != 0 {
			t.Fatalf("expected no reservations on another date, got %#v", other)
		}
	})

	t.Run("callback error rolls back", func(t *testing.T) {
		t.Parallel()
		store := setupStoreTest(t)
		room, employee := seedRoomAndEmployee(t, store)
		ctx := context.Background()
		boom := errors.New("boom")

		err := store.WithRoomDay(ctx, room.ID, "2025-01-10", func(ctx context.Context, day persistence.RoomDay) error {
			if _, err := day.Insert(ctx, persistence.Reservation{
				RoomID: room.ID, EmployeeID: employee.ID, Date: "2025-01-10",
				StartTime: "09:00:00", EndTime: "10:00:00",
			}); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected callback error, got %v", err)
		}

		all, err := store.ListReservations(ctx, persistence.ReservationFilter{})
		if err != nil {
			t.Fatalf("ListReservations failed: %v", err)
		}
		if len(all) != 0 {
			t.Fatalf("expected rollback to discard insert, got %#v", all)
		}
	})

	t.Run("store constraints", func(t *testing.T) {
		t.Parallel()
		store := setupStoreTest(t)
		room, employee := seedRoomAndEmployee(t, store)
		ctx := context.Background()

		_, err := insertReservation(ctx, store, persistence.Reservation{
			RoomID: room.ID, EmployeeID: employee.ID + 100, Date: "2025-01-10",
			StartTime: "09:00:00", EndTime: "10:00:00",
		})
		if !errors.Is(err, persistence.ErrForeignKeyViolation) {
			t.Fatalf("expected ErrForeignKeyViolation for unknown employee, got %v", err)
		}

		_, err = insertReservation(ctx, store, persistence.Reservation{
			RoomID: room.ID, EmployeeID: employee.ID, Date: "2025-01-10",
			StartTime: "10:00:00", EndTime: "09:00:00",
		})
		if !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Fatalf("expected ErrConstraintViolation for reversed times, got %v", err)
		}

		err = store.WithRoomDay(ctx, room.ID, "2025-01-10", func(ctx context.Context, day persistence.RoomDay) error {
			_, err := day.Insert(ctx, persistence.Reservation{
				RoomID: room.ID, EmployeeID: employee.ID, Date: "2025-01-11",
				StartTime: "09:00:00", EndTime: "10:00:00",
			})
			return err
		})
		if !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Fatalf("expected insert outside the locked day to be rejected, got %v", err)
		}
	})

	t.Run("deleting room or employee cascades", func(t *testing.T) {
		t.Parallel()
		store := setupStoreTest(t)
		room, employee := seedRoomAndEmployee(t, store)
		ctx := context.Background()

		reservation, err := insertReservation(ctx, store, persistence.Reservation{
			RoomID: room.ID, EmployeeID: employee.ID, Date: "2025-01-10",
			StartTime: "09:00:00", EndTime: "10:00:00",
		})
		if err != nil {
			t.Fatalf("insert failed: %v", err)
		}

		if err := store.DeleteEmployee(ctx, employee.ID); err != nil {
			t.Fatalf("DeleteEmployee failed: %v", err)
		}
		if _, err := store.GetReservation(ctx, reservation.ID); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected reservation removed with employee, got %v", err)
		}
	})
}

func TestReservationRepository_ConcurrentRoomDay(t *testing.T) {
	t.Parallel()
	store := setupStoreTest(t)
	room, employee := seedRoomAndEmployee(t, store)
	ctx := context.Background()

	errTaken := errors.New("slot taken")
	const workers = 8

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		rejected  int
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			err := store.WithRoomDay(ctx, room.ID, "2025-01-10", func(ctx context.Context, day persistence.RoomDay) error {
				existing, err := day.Reservations(ctx)
				if err != nil {
					return err
				}
				for _, r := range existing {
					if r.StartTime < "10:30:00" && r.EndTime > "09:30:00" {
						return errTaken
					}
				}
				_, err = day.Insert(ctx, persistence.Reservation{
					RoomID:     room.ID,
					EmployeeID: employee.ID,
					Date:       "2025-01-10",
					StartTime:  fmt.Sprintf("09:%02d:00", 30+i),
					EndTime:    "10:30:00",
				})
				return err
			})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, errTaken), errors.Is(err, persistence.ErrOverlap):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	if successes != 1 || rejected != workers-1 {
		t.Fatalf("expected exactly one success, got %d successes and %d rejections", successes, rejected)
	}

	all, err := store.ListReservations(ctx, persistence.ReservationFilter{RoomID: room.ID})
	if err != nil {
		t.Fatalf("ListReservations failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected one stored reservation, got %d", len(all))
	}
}

func TestReservationRepository_OverlapTrigger(t *testing.T) {
	t.Parallel()
	store := setupStoreTest(t)
	room, employee := seedRoomAndEmployee(t, store)
	ctx := context.Background()

	other, err := store.CreateRoom(ctx, persistence.Room{Name: "Sala Sur"})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	reservationAt := func(roomID int64, start, end string) persistence.Reservation {
		return persistence.Reservation{RoomID: roomID, EmployeeID: employee.ID, Date: "2025-01-10", StartTime: start, EndTime: end}
	}

	err = store.WithRoomDay(ctx, room.ID, "2025-01-10", func(ctx context.Context, day persistence.RoomDay) error {
		existing, err := day.Reservations(ctx)
		if err != nil {
			return err
		}
		if len(existing) != 0 {
			t.Errorf("expected an empty room day, got %#v", existing)
		}

		// A unit that has only read holds no write lock, so other writers proceed.
		otherCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if _, err := insertReservation(otherCtx, store, reservationAt(other.ID, "09:00:00", "10:00:00")); err != nil {
			t.Errorf("insert for another room blocked behind a reader: %v", err)
		}
		if _, err := insertReservation(ctx, store, reservationAt(room.ID, "09:00:00", "10:00:00")); err != nil {
			t.Errorf("competing insert failed: %v", err)
		}

		_, err = day.Insert(ctx, reservationAt(room.ID, "09:30:00", "10:30:00"))
		return err
	})
	if !errors.Is(err, persistence.ErrOverlap) {
		t.Fatalf("expected ErrOverlap for a stale check, got %v", err)
	}

	if _, err := insertReservation(ctx, store, reservationAt(room.ID, "10:00:00", "11:00:00")); err != nil {
		t.Fatalf("expected touching reservation to be stored, got %v", err)
	}
	all, err := store.ListReservations(ctx, persistence.ReservationFilter{RoomID: room.ID})
	if err != nil {
		t.Fatalf("ListReservations failed: %v", err)
	}
	if len(all) != 2 || all[0].StartTime != "09:00:00" || all[1].StartTime != "10:00:00" {
		t.Fatalf("expected the competing and touching reservations only, got %#v", all)
	}
}

func TestStore_PingAndReopen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "reservations.db")
	ctx := context.Background()

	first, err := Open(ctx, Options{Driver: "sqlite", DSN: path})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := first.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if _, err := first.CreateRoom(ctx, persistence.Room{Name: "Sala Persistente"}); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second, err := Open(ctx, Options{Driver: "sqlite", DSN: path})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer second.Close()

	rooms, err := second.ListRooms(ctx)
	if err != nil {
		t.Fatalf("ListRooms failed: %v", err)
	}
	if len(rooms) != 1 || rooms[0].Name != "Sala Persistente" {
		t.Fatalf("expected schema creation to keep existing rows, got %#v", rooms)
	}
}

func TestDialectFor(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"", "sqlite", "SQLite3"} {
		d, err := dialectFor(name)
		if err != nil || d.name() != "sqlite" {
			t.Fatalf("dialectFor(%q) = %v, %v", name, d, err)
		}
	}
	if d, err := dialectFor("postgres"); err != nil || d.name() != "postgres" {
		t.Fatalf("dialectFor(postgres) = %v, %v", d, err)
	}
	if _, err := dialectFor("oracle"); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
	if _, err := NewConnectionPool(context.Background(), Options{Driver: "postgres"}); err == nil {
		t.Fatalf("expected missing DSN error")
	}
}

func TestSQLiteDialect_PrepareDSN(t *testing.T) {
	t.Parallel()

	dsn := sqliteDialect{}.prepareDSN("data/app.db", Options{BusyTimeout: 2 * time.Second})
	for _, want := range []string{
		"data/app.db?",
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(2000)",
		"_pragma=journal_mode(WAL)",
		"_txlock=immediate",
	} {
		if !strings.Contains(dsn, want) {
			t.Fatalf("expected %q in %q", want, dsn)
		}
	}

	memory := sqliteDialect{}.prepareDSN("file::memory:?cache=shared", Options{})
	if strings.Contains(memory, "journal_mode") || !strings.Contains(memory, "?cache=shared&") {
		t.Fatalf("unexpected memory DSN %q", memory)
	}
}

func TestRoomDayLockKey(t *testing.T) {
	t.Parallel()

	a := roomDayLockKey(1, "2025-01-10")
	if a != roomDayLockKey(1, "2025-01-10") {
		t.Fatalf("expected stable lock key")
	}
	if a == roomDayLockKey(1, "2025-01-11") || a == roomDayLockKey(2, "2025-01-10") {
		t.Fatalf("expected distinct keys for distinct room days")
	}
	if roomDayLockKey(1, "1-2025-01-10") == roomDayLockKey(11, "2025-01-10") {
		t.Fatalf("expected separator to keep room and date apart")
	}
}

func TestPostgresDialect_MapError(t *testing.T) {
	t.Parallel()
	d := postgresDialect{}

	tests := []struct {
		code pq.ErrorCode
		want error
	}{
		{code: "23503", want: persistence.ErrForeignKeyViolation},
		{code: "23505", want: persistence.ErrDuplicate},
		{code: "23P01", want: persistence.ErrOverlap},
		{code: "23514", want: persistence.ErrConstraintViolation},
		{code: "57014", want: persistence.ErrTimeout},
		{code: "08006", want: persistence.ErrUnavailable},
	}
	for _, tt := range tests {
		if err := d.mapError(&pq.Error{Code: tt.code}); !errors.Is(err, tt.want) {
			t.Fatalf("code %s: expected %v, got %v", tt.code, tt.want, err)
		}
	}

	deadline := fmt.Errorf("query: %w", context.DeadlineExceeded)
	if err := d.mapError(deadline); !errors.Is(err, persistence.ErrTimeout) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline to map to ErrTimeout, got %v", err)
	}
	if got := d.dateExpr("date"); got != "to_char(date, 'YYYY-MM-DD')" {
		t.Fatalf("unexpected date expression %q", got)
	}
}

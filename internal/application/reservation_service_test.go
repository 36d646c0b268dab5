package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/room-reservations/internal/booking"
	"github.com/example/room-reservations/internal/persistence"
)

// reservationRepoStub keeps reservations in a slice and serializes WithRoomDay globally.
type reservationRepoStub struct {
	mu           sync.Mutex
	reservations []Reservation
	nextID       int64

	roomDayCalls int
	insertErr    error
	listErr      error
	getErr       error
	blockUntil   <-chan struct{}
	lastQuery    ReservationQuery
	// racer is committed by another writer between the read and the insert.
	racer *Reservation
}

type ledgerStub struct {
	repo   *reservationRepoStub
	roomID int64
	date   booking.Date
	staged []Reservation
}

func (l *ledgerStub) Reservations(ctx context.Context) ([]Reservation, error) {
	var out []Reservation
	for _, r := range l.repo.reservations {
		if r.RoomID == l.roomID && r.Date == l.date {
			out = append(out, r)
		}
	}
	return append(out, l.staged...), nil
}

func (l *ledgerStub) Insert(ctx context.Context, reservation Reservation) (Reservation, error) {
	if l.repo.insertErr != nil {
		return Reservation{}, l.repo.insertErr
	}
	if racer := l.repo.racer; racer != nil {
		l.repo.racer = nil
		l.repo.reservations = append(l.repo.reservations, *racer)
		if racer.Slot.Overlaps(reservation.Slot) {
			return Reservation{}, fmt.Errorf("%w: reservation %d", persistence.ErrOverlap, racer.ID)
		}
	}
	l.repo.nextID++
	reservation.ID = l.repo.nextID
	reservation.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.staged = append(l.staged, reservation)
	return reservation, nil
}

func (r *reservationRepoStub) WithRoomDay(ctx context.Context, roomID int64, date booking.Date, fn func(ctx context.Context, day RoomDayLedger) error) error {
	if r.blockUntil != nil {
		select {
		case <-r.blockUntil:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.roomDayCalls++

	ledger := &ledgerStub{repo: r, roomID: roomID, date: date}
	if err := fn(ctx, ledger); err != nil {
		return err
	}
	r.reservations = append(r.reservations, ledger.staged...)
	return nil
}

func (r *reservationRepoStub) ListReservations(ctx context.Context, query ReservationQuery) ([]Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastQuery = query
	if r.listErr != nil {
		return nil, r.listErr
	}
	return append([]Reservation(nil), r.reservations...), nil
}

func (r *reservationRepoStub) GetReservation(ctx context.Context, id int64) (Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return Reservation{}, r.getErr
	}
	for _, reservation := range r.reservations {
		if reservation.ID == id {
			return reservation, nil
		}
	}
	return Reservation{}, persistence.ErrNotFound
}

func newTestReservationService(repo ReservationRepository) *ReservationService {
	return NewReservationServiceWithLogger(repo, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func reservationInput(start, end string) ReservationInput {
	return ReservationInput{RoomID: 1, EmployeeID: 1, Date: "2025-01-10", StartTime: start, EndTime: end}
}

func TestReservationService_RequestReservation_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		input      ReservationInput
		wantFields []string
		missing    bool
	}{
		{
			name:       "all fields missing",
			input:      ReservationInput{},
			wantFields: []string{"room_id", "employee_id", "date", "start_time", "end_time"},
			missing:    true,
		},
		{
			name:       "blank times count as missing",
			input:      ReservationInput{RoomID: 1, EmployeeID: 1, Date: "2025-01-10", StartTime: "  ", EndTime: ""},
			wantFields: []string{"start_time", "end_time"},
			missing:    true,
		},
		{
			name:       "malformed date and time",
			input:      ReservationInput{RoomID: 1, EmployeeID: 1, Date: "10/01/2025", StartTime: "9am", EndTime: "10:00"},
			wantFields: []string{"date", "start_time"},
		},
		{
			name:       "start after end",
			input:      reservationInput("11:00", "10:30"),
			wantFields: []string{"end_time"},
		},
		{
			name:       "zero length",
			input:      reservationInput("10:00", "10:00:00"),
			wantFields: []string{"end_time"},
		},
		{
			name:       "negative identifiers",
			input:      ReservationInput{RoomID: -1, EmployeeID: 1, Date: "2025-01-10", StartTime: "09:00", EndTime: "10:00"},
			wantFields: []string{"room_id"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := &reservationRepoStub{}
			svc := newTestReservationService(repo)

			_, err := svc.RequestReservation(context.Background(), tt.input)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			for _, field := range tt.wantFields {
				if _, ok := vErr.FieldErrors[field]; !ok {
					t.Fatalf("expected field %q in %#v", field, vErr.FieldErrors)
				}
			}
			if vErr.MissingRequired() != tt.missing {
				t.Fatalf("MissingRequired() = %v, want %v", vErr.MissingRequired(), tt.missing)
			}
			if repo.roomDayCalls != 0 {
				t.Fatalf("expected no store call for invalid input")
			}
		})
	}
}

func TestReservationService_RequestReservation(t *testing.T) {
	t.Parallel()

	t.Run("creates reservation with normalized fields", func(t *testing.T) {
		t.Parallel()
		repo := &reservationRepoStub{}
		svc := newTestReservationService(repo)

		title := "  Revisión semanal  "
		input := reservationInput("09:00", "10:00")
		input.Title = &title

		got, err := svc.RequestReservation(context.Background(), input)
		if err != nil {
			t.Fatalf("RequestReservation failed: %v", err)
		}
		if got.ID != 1 || got.Slot.String() != "09:00:00-10:00:00" || got.Date.String() != "2025-01-10" {
			t.Fatalf("unexpected reservation %#v", got)
		}
		if got.Title == nil || *got.Title != "Revisión semanal" {
			t.Fatalf("expected trimmed title, got %v", got.Title)
		}
	})

	t.Run("empty title becomes nil", func(t *testing.T) {
		t.Parallel()
		svc := newTestReservationService(&reservationRepoStub{})

		blank := "   "
		input := reservationInput("09:00", "10:00")
		input.Title = &blank
		got, err := svc.RequestReservation(context.Background(), input)
		if err != nil {
			t.Fatalf("RequestReservation failed: %v", err)
		}
		if got.Title != nil {
			t.Fatalf("expected nil title, got %q", *got.Title)
		}
	})

	t.Run("long titles are free text", func(t *testing.T) {
		t.Parallel()
		repo := &reservationRepoStub{}
		svc := newTestReservationService(repo)

		for i, length := range []int{255, 1000} {
			title := strings.Repeat("x", length)
			input := reservationInput(fmt.Sprintf("%02d:00", 8+i), fmt.Sprintf("%02d:00", 9+i))
			input.Title = &title
			got, err := svc.RequestReservation(context.Background(), input)
			if err != nil {
				t.Fatalf("RequestReservation with %d-character title failed: %v", length, err)
			}
			if got.Title == nil || len(*got.Title) != length {
				t.Fatalf("expected title of length %d, got %v", length, got.Title)
			}
		}
		if repo.roomDayCalls != 2 {
			t.Fatalf("expected 2 store calls, got %d", repo.roomDayCalls)
		}
	})

	t.Run("overlap is rejected and store unchanged", func(t *testing.T) {
		t.Parallel()
		repo := &reservationRepoStub{}
		svc := newTestReservationService(repo)
		ctx := context.Background()

		first, err := svc.RequestReservation(ctx, reservationInput("09:00", "10:00"))
		if err != nil {
			t.Fatalf("first reservation failed: %v", err)
		}

		_, err = svc.RequestReservation(ctx, reservationInput("09:30", "10:30"))
		var cErr *ConflictError
		if !errors.As(err, &cErr) {
			t.Fatalf("expected ConflictError, got %v", err)
		}
		if ids := cErr.ReservationIDs(); len(ids) != 1 || ids[0] != first.ID {
			t.Fatalf("expected conflict with %d, got %v", first.ID, ids)
		}
		if len(repo.reservations) != 1 {
			t.Fatalf("expected store unchanged, got %d reservations", len(repo.reservations))
		}
	})

	t.Run("back-to-back reservations succeed", func(t *testing.T) {
		t.Parallel()
		repo := &reservationRepoStub{}
		svc := newTestReservationService(repo)
		ctx := context.Background()

		if _, err := svc.RequestReservation(ctx, reservationInput("09:00", "10:00")); err != nil {
			t.Fatalf("first reservation failed: %v", err)
		}
		if _, err := svc.RequestReservation(ctx, reservationInput("10:00", "11:00")); err != nil {
			t.Fatalf("adjacent reservation failed: %v", err)
		}
		other := reservationInput("09:00", "10:00")
		other.RoomID = 2
		if _, err := svc.RequestReservation(ctx, other); err != nil {
			t.Fatalf("same slot in another room failed: %v", err)
		}
		nextDay := reservationInput("09:00", "10:00")
		nextDay.Date = "2025-01-11"
		if _, err := svc.RequestReservation(ctx, nextDay); err != nil {
			t.Fatalf("same slot on another date failed: %v", err)
		}
		if len(repo.reservations) != 4 {
			t.Fatalf("expected 4 reservations, got %d", len(repo.reservations))
		}
	})

	t.Run("unknown references surface as ReferenceError", func(t *testing.T) {
		t.Parallel()
		repo := &reservationRepoStub{insertErr: persistence.ErrForeignKeyViolation}
		svc := newTestReservationService(repo)

		_, err := svc.RequestReservation(context.Background(), reservationInput("09:00", "10:00"))
		if !errors.Is(err, ErrInvalidReference) {
			t.Fatalf("expected ErrInvalidReference, got %v", err)
		}
		if len(repo.reservations) != 0 {
			t.Fatalf("expected store unchanged")
		}
	})

	t.Run("overlap committed after the read is a conflict", func(t *testing.T) {
		t.Parallel()
		date, _ := booking.ParseDate("2025-01-10")
		slot, _ := booking.NewSlot(9*3600+30*60, 10*3600+30*60)
		repo := &reservationRepoStub{racer: &Reservation{ID: 77, RoomID: 1, EmployeeID: 2, Date: date, Slot: slot}}
		svc := newTestReservationService(repo)

		_, err := svc.RequestReservation(context.Background(), reservationInput("09:00", "10:00"))
		var cErr *ConflictError
		if !errors.As(err, &cErr) {
			t.Fatalf("expected ConflictError, got %v", err)
		}
		if ids := cErr.ReservationIDs(); len(ids) != 1 || ids[0] != 77 {
			t.Fatalf("expected conflict with reservation 77, got %v", ids)
		}
		if len(repo.reservations) != 1 {
			t.Fatalf("expected only the competing reservation, got %#v", repo.reservations)
		}
	})

	t.Run("store failures surface as StoreError", func(t *testing.T) {
		t.Parallel()
		repo := &reservationRepoStub{insertErr: persistence.ErrUnavailable}
		svc := newTestReservationService(repo)

		_, err := svc.RequestReservation(context.Background(), reservationInput("09:00", "10:00"))
		var sErr *StoreError
		if !errors.As(err, &sErr) || sErr.Timeout() {
			t.Fatalf("expected non-timeout StoreError, got %v", err)
		}
	})

	t.Run("slow store times out", func(t *testing.T) {
		t.Parallel()
		never := make(chan struct{})
		repo := &reservationRepoStub{blockUntil: never}
		svc := NewReservationServiceWithLogger(repo, 20*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))

		_, err := svc.RequestReservation(context.Background(), reservationInput("09:00", "10:00"))
		if !errors.Is(err, ErrStoreTimeout) {
			t.Fatalf("expected ErrStoreTimeout, got %v", err)
		}
		if ErrorKind(err) != "timeout" {
			t.Fatalf("expected timeout kind, got %q", ErrorKind(err))
		}
	})
}

func TestReservationService_ConcurrentOverlaps(t *testing.T) {
	t.Parallel()
	repo := &reservationRepoStub{}
	svc := newTestReservationService(repo)

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RequestReservation(context.Background(), reservationInput("09:00", "10:00"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 || conflicts != workers-1 {
		t.Fatalf("expected 1 success and %d conflicts, got %d and %d", workers-1, successes, conflicts)
	}
}

func TestReservationService_ListAndGet(t *testing.T) {
	t.Parallel()
	repo := &reservationRepoStub{}
	svc := newTestReservationService(repo)
	ctx := context.Background()

	created, err := svc.RequestReservation(ctx, reservationInput("09:00", "10:00"))
	if err != nil {
		t.Fatalf("RequestReservation failed: %v", err)
	}

	list, err := svc.ListReservations(ctx, ListReservationsParams{RoomID: 1, Date: "2025-01-10"})
	if err != nil {
		t.Fatalf("ListReservations failed: %v", err)
	}
	if len(list) != 1 || repo.lastQuery.RoomID != 1 || repo.lastQuery.Date.String() != "2025-01-10" {
		t.Fatalf("unexpected list %#v with query %#v", list, repo.lastQuery)
	}

	if _, err := svc.ListReservations(ctx, ListReservationsParams{Date: "mañana"}); !errorsAsValidation(err) {
		t.Fatalf("expected ValidationError for malformed date filter, got %v", err)
	}

	repo.listErr = persistence.ErrTimeout
	if _, err := svc.ListReservations(ctx, ListReservationsParams{}); !errors.Is(err, ErrStoreTimeout) {
		t.Fatalf("expected ErrStoreTimeout, got %v", err)
	}

	got, err := svc.GetReservation(ctx, created.ID)
	if err != nil || got.ID != created.ID {
		t.Fatalf("GetReservation = %#v, %v", got, err)
	}
	if _, err := svc.GetReservation(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.GetReservation(ctx, 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for zero id, got %v", err)
	}
}

func errorsAsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

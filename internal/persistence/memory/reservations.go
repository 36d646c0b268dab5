package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/example/room-reservations/internal/persistence"
)

// --- ReservationRepository implementation ---

// ListReservations returns reservations matching the filter ordered by date, start time and ID.
func (s *Storage) ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listLocked(filter), nil
}

func (s *Storage) listLocked(filter persistence.ReservationFilter) []persistence.Reservation {
	reservations := make([]persistence.Reservation, 0)
	for _, reservation := range s.reservations {
		if matchesReservationFilter(reservation, filter) {
			reservations = append(reservations, cloneReservation(reservation))
		}
	}
	sortReservations(reservations)
	return reservations
}

// GetReservation retrieves a reservation by ID.
func (s *Storage) GetReservation(ctx context.Context, id int64) (persistence.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reservation, ok := s.reservations[id]
	if !ok {
		return persistence.Reservation{}, persistence.ErrNotFound
	}
	return cloneReservation(reservation), nil
}

// WithRoomDay holds the lock for the room and date while fn runs. Inserts are
// staged and only become visible to other callers when fn returns nil.
func (s *Storage) WithRoomDay(ctx context.Context, roomID int64, date string, fn func(ctx context.Context, day persistence.RoomDay) error) error {
	release, err := s.locks.acquire(ctx, roomDayKey{roomID: roomID, date: date})
	if err != nil {
		return err
	}
	defer release()

	day := &roomDay{storage: s, roomID: roomID, date: date}
	if err := fn(ctx, day); err != nil {
		return err
	}
	return s.commit(ctx, day.staged)
}

func (s *Storage) commit(ctx context.Context, staged []persistence.Reservation) error {
	if len(staged) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return contextError(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A room or employee may have been deleted while the unit was running.
	for _, reservation := range staged {
		if err := s.checkReferencesLocked(reservation); err != nil {
			return err
		}
	}
	for _, reservation := range staged {
		s.reservations[reservation.ID] = reservation
	}
	return nil
}

func (s *Storage) checkReferencesLocked(reservation persistence.Reservation) error {
	if _, ok := s.rooms[reservation.RoomID]; !ok {
		return fmt.Errorf("%w: room %d", persistence.ErrForeignKeyViolation, reservation.RoomID)
	}
	if _, ok := s.employees[reservation.EmployeeID]; !ok {
		return fmt.Errorf("%w: employee %d", persistence.ErrForeignKeyViolation, reservation.EmployeeID)
	}
	return nil
}

// roomDay is the uncommitted view of one room and date.
type roomDay struct {
	storage *Storage
	roomID  int64
	date    string
	staged  []persistence.Reservation
}

func (d *roomDay) Reservations(ctx context.Context) ([]persistence.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, contextError(err)
	}

	d.storage.mu.RLock()
	reservations := d.storage.listLocked(persistence.ReservationFilter{RoomID: d.roomID, Date: d.date})
	d.storage.mu.RUnlock()

	for _, reservation := range d.staged {
		reservations = append(reservations, cloneReservation(reservation))
	}
	sortReservations(reservations)
	return reservations, nil
}

func (d *roomDay) Insert(ctx context.Context, reservation persistence.Reservation) (persistence.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return persistence.Reservation{}, contextError(err)
	}
	if reservation.RoomID != d.roomID || reservation.Date != d.date {
		return persistence.Reservation{}, persistence.ErrConstraintViolation
	}
	if reservation.StartTime >= reservation.EndTime {
		return persistence.Reservation{}, fmt.Errorf("%w: start_time must be before end_time", persistence.ErrConstraintViolation)
	}

	d.storage.mu.Lock()
	defer d.storage.mu.Unlock()

	if err := d.storage.checkReferencesLocked(reservation); err != nil {
		return persistence.Reservation{}, err
	}
	existing := append(d.storage.listLocked(persistence.ReservationFilter{RoomID: d.roomID, Date: d.date}), d.staged...)
	for _, other := range existing {
		if reservation.StartTime < other.EndTime && reservation.EndTime > other.StartTime {
			return persistence.Reservation{}, fmt.Errorf("%w: reservation %d", persistence.ErrOverlap, other.ID)
		}
	}

	reservation.ID = d.storage.nextIDLocked("reservations")
	reservation.CreatedAt = d.storage.now()
	reservation.Title = cloneString(reservation.Title)
	d.staged = append(d.staged, reservation)
	return cloneReservation(reservation), nil
}

func matchesReservationFilter(reservation persistence.Reservation, filter persistence.ReservationFilter) bool {
	if filter.RoomID > 0 && reservation.RoomID != filter.RoomID {
		return false
	}
	if filter.Date != "" && reservation.Date != filter.Date {
		return false
	}
	return true
}

func sortReservations(reservations []persistence.Reservation) {
	sort.Slice(reservations, func(i, j int) bool {
		a, b := reservations[i], reservations[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.ID < b.ID
	})
}

func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", persistence.ErrTimeout, err)
	}
	return err
}

type roomDayKey struct {
	roomID int64
	date   string
}

// dayLocks hands out one mutex per room and date. Entries are reference
// counted and dropped once nobody holds or waits for them.
type dayLocks struct {
	mu      sync.Mutex
	entries map[roomDayKey]*dayLock
}

type dayLock struct {
	sem  chan struct{}
	refs int
}

func newDayLocks() *dayLocks {
	return &dayLocks{entries: make(map[roomDayKey]*dayLock)}
}

func (l *dayLocks) acquire(ctx context.Context, key roomDayKey) (func(), error) {
	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &dayLock{sem: make(chan struct{}, 1)}
		l.entries[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		l.drop(key, entry)
		return nil, contextError(ctx.Err())
	}

	return func() {
		<-entry.sem
		l.drop(key, entry)
	}, nil
}

func (l *dayLocks) drop(key roomDayKey, entry *dayLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, key)
	}
}

func (l *dayLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Package memory provides an in-process persistence.Store used for tests and
// for running the service without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/room-reservations/internal/persistence"
)

// Storage keeps every record in maps guarded by a single RWMutex.
// Reservation units additionally hold a per-(room, date) lock.
type Storage struct {
	mu           sync.RWMutex
	employees    map[int64]persistence.Employee
	rooms        map[int64]persistence.Room
	reservations map[int64]persistence.Reservation
	lastID       map[string]int64

	locks *dayLocks
	now   func() time.Time
}

var _ persistence.Store = (*Storage)(nil)

// Option configures a Storage.
type Option func(*Storage)

// WithClock overrides the time source used for created_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Storage) {
		if now != nil {
			s.now = now
		}
	}
}

// Open returns an empty Storage.
func Open(opts ...Option) *Storage {
	s := &Storage{
		employees:    make(map[int64]persistence.Employee),
		rooms:        make(map[int64]persistence.Room),
		reservations: make(map[int64]persistence.Reservation),
		lastID:       make(map[string]int64),
		locks:        newDayLocks(),
		now: func() time.Time {
			return time.Now().UTC().Truncate(time.Second)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close is a no-op for the in-memory implementation.
func (s *Storage) Close() error {
	return nil
}

// Ping always succeeds unless the context is already done.
func (s *Storage) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Storage) nextIDLocked(table string) int64 {
	s.lastID[table]++
	return s.lastID[table]
}

// --- EmployeeRepository implementation ---

// CreateEmployee stores a new employee.
func (s *Storage) CreateEmployee(ctx context.Context, employee persistence.Employee) (persistence.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(employee.Email) == "" {
		return persistence.Employee{}, persistence.ErrConstraintViolation
	}
	if err := s.ensureUniqueEmailLocked(0, employee.Email); err != nil {
		return persistence.Employee{}, err
	}

	employee.ID = s.nextIDLocked("employees")
	employee.CreatedAt = s.now()
	s.employees[employee.ID] = employee
	return employee, nil
}

// UpdateEmployee replaces the mutable fields of an existing employee.
func (s *Storage) UpdateEmployee(ctx context.Context, employee persistence.Employee) (persistence.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.employees[employee.ID]
	if !ok {
		return persistence.Employee{}, persistence.ErrNotFound
	}
	if strings.TrimSpace(employee.Email) == "" {
		return persistence.Employee{}, persistence.ErrConstraintViolation
	}
	if err := s.ensureUniqueEmailLocked(employee.ID, employee.Email); err != nil {
		return persistence.Employee{}, err
	}

	existing.FirstName = employee.FirstName
	existing.LastName = employee.LastName
	existing.Email = employee.Email
	s.employees[existing.ID] = existing
	return existing, nil
}

// GetEmployee retrieves an employee by ID.
func (s *Storage) GetEmployee(ctx context.Context, id int64) (persistence.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	employee, ok := s.employees[id]
	if !ok {
		return persistence.Employee{}, persistence.ErrNotFound
	}
	return employee, nil
}

// ListEmployees returns employees ordered by last name, first name and ID.
func (s *Storage) ListEmployees(ctx context.Context) ([]persistence.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	employees := make([]persistence.Employee, 0, len(s.employees))
	for _, employee := range s.employees {
		employees = append(employees, employee)
	}

	sort.Slice(employees, func(i, j int) bool {
		a, b := employees[i], employees[j]
		if a.LastName != b.LastName {
			return a.LastName < b.LastName
		}
		if a.FirstName != b.FirstName {
			return a.FirstName < b.FirstName
		}
		return a.ID < b.ID
	})
	return employees, nil
}

// DeleteEmployee removes an employee and cascades to their reservations.
func (s *Storage) DeleteEmployee(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.employees[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.employees, id)

	for reservationID, reservation := range s.reservations {
		if reservation.EmployeeID == id {
			delete(s.reservations, reservationID)
		}
	}
	return nil
}

func (s *Storage) ensureUniqueEmailLocked(id int64, email string) error {
	for existingID, employee := range s.employees {
		if existingID == id {
			continue
		}
		if employee.Email == email {
			return fmt.Errorf("%w: email %s already exists", persistence.ErrDuplicate, email)
		}
	}
	return nil
}

// --- RoomRepository implementation ---

// CreateRoom stores a new meeting room.
func (s *Storage) CreateRoom(ctx context.Context, room persistence.Room) (persistence.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(room.Name) == "" || room.Capacity < 0 {
		return persistence.Room{}, persistence.ErrConstraintViolation
	}
	for _, existing := range s.rooms {
		if existing.Name == room.Name {
			return persistence.Room{}, fmt.Errorf("%w: room %s already exists", persistence.ErrDuplicate, room.Name)
		}
	}

	room.ID = s.nextIDLocked("rooms")
	room.CreatedAt = s.now()
	room.Description = cloneString(room.Description)
	s.rooms[room.ID] = room
	return cloneRoom(room), nil
}

// GetRoom retrieves a room by ID.
func (s *Storage) GetRoom(ctx context.Context, id int64) (persistence.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[id]
	if !ok {
		return persistence.Room{}, persistence.ErrNotFound
	}
	return cloneRoom(room), nil
}

// ListRooms returns rooms ordered by name then ID.
func (s *Storage) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]persistence.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		rooms = append(rooms, cloneRoom(room))
	}

	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].Name == rooms[j].Name {
			return rooms[i].ID < rooms[j].ID
		}
		return rooms[i].Name < rooms[j].Name
	})
	return rooms, nil
}

// DeleteRoom removes a room and cascades to its reservations.
func (s *Storage) DeleteRoom(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.rooms, id)

	for reservationID, reservation := range s.reservations {
		if reservation.RoomID == id {
			delete(s.reservations, reservationID)
		}
	}
	return nil
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

func cloneRoom(room persistence.Room) persistence.Room {
	room.Description = cloneString(room.Description)
	return room
}

func cloneReservation(reservation persistence.Reservation) persistence.Reservation {
	reservation.Title = cloneString(reservation.Title)
	return reservation
}

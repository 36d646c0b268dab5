package persistence

import "context"

// EmployeeRepository exposes CRUD operations for employees.
type EmployeeRepository interface {
	CreateEmployee(ctx context.Context, employee Employee) (Employee, error)
	UpdateEmployee(ctx context.Context, employee Employee) (Employee, error)
	GetEmployee(ctx context.Context, id int64) (Employee, error)
	ListEmployees(ctx context.Context) ([]Employee, error)
	DeleteEmployee(ctx context.Context, id int64) error
}

// RoomRepository exposes CRUD operations for rooms.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) (Room, error)
	GetRoom(ctx context.Context, id int64) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	DeleteRoom(ctx context.Context, id int64) error
}

// ReservationFilter narrows reservation listings. Zero values match everything.
type ReservationFilter struct {
	RoomID int64
	Date   string
}

// RoomDay is the view of one room on one date handed to a WithRoomDay callback.
type RoomDay interface {
	// Reservations lists the committed reservations for the locked room and date.
	Reservations(ctx context.Context) ([]Reservation, error)
	// Insert records a reservation for the locked room and date and returns it with its id.
	Insert(ctx context.Context, reservation Reservation) (Reservation, error)
}

// ReservationRepository stores reservations.
type ReservationRepository interface {
	ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
	GetReservation(ctx context.Context, id int64) (Reservation, error)
	// WithRoomDay runs fn as one atomic unit that is serialized with every other
	// unit for the same room and date. Returning an error discards all writes.
	WithRoomDay(ctx context.Context, roomID int64, date string, fn func(ctx context.Context, day RoomDay) error) error
}

// Store is the full persistence surface used by the service.
type Store interface {
	EmployeeRepository
	RoomRepository
	ReservationRepository
	Ping(ctx context.Context) error
	Close() error
}

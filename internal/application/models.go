package application

import (
	"time"

	"github.com/example/room-reservations/internal/booking"
)

// Employee is a person reservations are booked for.
type Employee struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string
	CreatedAt time.Time
}

// EmployeeInput captures caller provided employee fields.
type EmployeeInput struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=254"`
}

// UpdateEmployeeParams wraps the data required to update an existing employee.
type UpdateEmployeeParams struct {
	EmployeeID int64
	Input      EmployeeInput
}

// Room represents a bookable meeting room.
type Room struct {
	ID          int64
	Name        string
	Capacity    int
	Description *string
	CreatedAt   time.Time
}

// RoomInput captures caller provided room fields.
type RoomInput struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Capacity    int     `json:"capacity" validate:"gte=0"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

// Reservation is a committed booking of a room on one date.
type Reservation struct {
	ID         int64
	RoomID     int64
	EmployeeID int64
	Date       booking.Date
	Slot       booking.Slot
	Title      *string
	CreatedAt  time.Time
}

// ReservationInput captures the raw fields of a reservation request.
// Dates use YYYY-MM-DD and times HH:MM or HH:MM:SS.
type ReservationInput struct {
	RoomID     int64   `json:"room_id" validate:"required,gt=0"`
	EmployeeID int64   `json:"employee_id" validate:"required,gt=0"`
	Date       string  `json:"date" validate:"required"`
	StartTime  string  `json:"start_time" validate:"required"`
	EndTime    string  `json:"end_time" validate:"required"`
	Title      *string `json:"title"`
}

// ListReservationsParams narrows a reservation listing. Empty values match everything.
type ListReservationsParams struct {
	RoomID int64
	Date   string
}

// ReservationQuery is the parsed form of ListReservationsParams handed to the repository.
type ReservationQuery struct {
	RoomID int64
	Date   booking.Date
}

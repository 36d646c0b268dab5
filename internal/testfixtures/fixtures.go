package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/room-reservations/internal/application"
	"github.com/example/room-reservations/internal/persistence"
)

var (
	employeeCounter uint64
	roomCounter     uint64
)

var referenceTime = time.Date(2025, time.January, 9, 15, 4, 5, 0, time.UTC)

// ReferenceDate is the calendar day most fixtures book against.
const ReferenceDate = "2025-01-10"

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Employee fixtures -----------------------------

// EmployeeFixture is a deterministic employee. Every fixture gets a unique email.
type EmployeeFixture struct {
	FirstName string
	LastName  string
	Email     string
}

// EmployeeOption configures the generated employee fixture.
type EmployeeOption func(*EmployeeFixture)

// NewEmployeeFixture returns an employee fixture with optional overrides.
func NewEmployeeFixture(opts ...EmployeeOption) EmployeeFixture {
	idx := atomic.AddUint64(&employeeCounter, 1)
	fixture := EmployeeFixture{
		FirstName: fmt.Sprintf("Empleado%03d", idx),
		LastName:  "Prueba",
		Email:     fmt.Sprintf("empleado-%03d@example.com", idx),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEmployeeEmail overrides the generated email address.
func WithEmployeeEmail(email string) EmployeeOption {
	return func(f *EmployeeFixture) {
		f.Email = email
	}
}

// WithEmployeeName overrides the generated first and last name.
func WithEmployeeName(first, last string) EmployeeOption {
	return func(f *EmployeeFixture) {
		f.FirstName = first
		f.LastName = last
	}
}

// Input returns the fixture as an application.EmployeeInput.
func (f EmployeeFixture) Input() application.EmployeeInput {
	return application.EmployeeInput{FirstName: f.FirstName, LastName: f.LastName, Email: f.Email}
}

// Persistence returns the fixture as a persistence.Employee without an id.
func (f EmployeeFixture) Persistence() persistence.Employee {
	return persistence.Employee{FirstName: f.FirstName, LastName: f.LastName, Email: f.Email}
}

// ----------------------------- Room fixtures -----------------------------

// RoomFixture is a deterministic meeting room. Every fixture gets a unique name.
type RoomFixture struct {
	Name        string
	Capacity    int
	Description *string
}

// RoomOption configures the generated room fixture.
type RoomOption func(*RoomFixture)

// NewRoomFixture returns a room fixture with optional overrides.
func NewRoomFixture(opts ...RoomOption) RoomFixture {
	idx := atomic.AddUint64(&roomCounter, 1)
	fixture := RoomFixture{
		Name:     fmt.Sprintf("Sala %03d", idx),
		Capacity: int(4 + idx%4),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRoomName overrides the generated room name.
func WithRoomName(name string) RoomOption {
	return func(f *RoomFixture) {
		f.Name = name
	}
}

// WithRoomCapacity overrides the generated capacity.
func WithRoomCapacity(capacity int) RoomOption {
	return func(f *RoomFixture) {
		f.Capacity = capacity
	}
}

// WithRoomDescription sets the optional description.
func WithRoomDescription(description string) RoomOption {
	return func(f *RoomFixture) {
		f.Description = &description
	}
}

// Input returns the fixture as an application.RoomInput.
func (f RoomFixture) Input() application.RoomInput {
	return application.RoomInput{Name: f.Name, Capacity: f.Capacity, Description: f.Description}
}

// Persistence returns the fixture as a persistence.Room without an id.
func (f RoomFixture) Persistence() persistence.Room {
	return persistence.Room{Name: f.Name, Capacity: f.Capacity, Description: f.Description}
}

// ----------------------------- Reservation fixtures -----------------------------

// ReservationFixture describes a reservation request for a seeded room and employee.
type ReservationFixture struct {
	RoomID     int64
	EmployeeID int64
	Date       string
	StartTime  string
	EndTime    string
	Title      *string
}

// ReservationOption configures the generated reservation fixture.
type ReservationOption func(*ReservationFixture)

// NewReservationFixture returns a 09:00-10:00 booking on ReferenceDate.
func NewReservationFixture(roomID, employeeID int64, opts ...ReservationOption) ReservationFixture {
	fixture := ReservationFixture{
		RoomID:     roomID,
		EmployeeID: employeeID,
		Date:       ReferenceDate,
		StartTime:  "09:00",
		EndTime:    "10:00",
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSlot overrides the start and end times.
func WithSlot(start, end string) ReservationOption {
	return func(f *ReservationFixture) {
		f.StartTime = start
		f.EndTime = end
	}
}

// WithDate overrides the reservation date.
func WithDate(date string) ReservationOption {
	return func(f *ReservationFixture) {
		f.Date = date
	}
}

// WithTitle sets the optional title.
func WithTitle(title string) ReservationOption {
	return func(f *ReservationFixture) {
		f.Title = &title
	}
}

// Input returns the fixture as an application.ReservationInput.
func (f ReservationFixture) Input() application.ReservationInput {
	return application.ReservationInput{
		RoomID:     f.RoomID,
		EmployeeID: f.EmployeeID,
		Date:       f.Date,
		StartTime:  f.StartTime,
		EndTime:    f.EndTime,
		Title:      f.Title,
	}
}

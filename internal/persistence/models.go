package persistence

import "time"

// Employee is the person a reservation is booked for.
type Employee struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string
	CreatedAt time.Time
}

// Room represents a bookable meeting room.
type Room struct {
	ID          int64
	Name        string
	Capacity    int
	Description *string
	CreatedAt   time.Time
}

// Reservation is a committed booking of a room for one employee.
// Date is stored as YYYY-MM-DD and times as HH:MM:SS.
type Reservation struct {
	ID         int64
	RoomID     int64
	EmployeeID int64
	Date       string
	StartTime  string
	EndTime    string
	Title      *string
	CreatedAt  time.Time
}

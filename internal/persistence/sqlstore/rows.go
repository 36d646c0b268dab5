package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/room-reservations/internal/persistence"
)

// Row types mirror the selected columns; dates and times always arrive as text.

type employeeRow struct {
	ID        int64  `db:"id"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
	Email     string `db:"email"`
	CreatedAt string `db:"created_at"`
}

func (row employeeRow) model() (persistence.Employee, error) {
	createdAt, err := parseTimestamp(row.CreatedAt)
	if err != nil {
		return persistence.Employee{}, err
	}
	return persistence.Employee{
		ID:        row.ID,
		FirstName: row.FirstName,
		LastName:  row.LastName,
		Email:     row.Email,
		CreatedAt: createdAt,
	}, nil
}

type roomRow struct {
	ID          int64          `db:"id"`
	Name        string         `db:"name"`
	Capacity    int            `db:"capacity"`
	Description sql.NullString `db:"description"`
	CreatedAt   string         `db:"created_at"`
}

func (row roomRow) model() (persistence.Room, error) {
	createdAt, err := parseTimestamp(row.CreatedAt)
	if err != nil {
		return persistence.Room{}, err
	}
	return persistence.Room{
		ID:          row.ID,
		Name:        row.Name,
		Capacity:    row.Capacity,
		Description: nullableString(row.Description),
		CreatedAt:   createdAt,
	}, nil
}

type reservationRow struct {
	ID         int64          `db:"id"`
	RoomID     int64          `db:"room_id"`
	EmployeeID int64          `db:"employee_id"`
	Date       string         `db:"date"`
	StartTime  string         `db:"start_time"`
	EndTime    string         `db:"end_time"`
	Title      sql.NullString `db:"title"`
	CreatedAt  string         `db:"created_at"`
}

func (row reservationRow) model() (persistence.Reservation, error) {
	createdAt, err := parseTimestamp(row.CreatedAt)
	if err != nil {
		return persistence.Reservation{}, err
	}
	return persistence.Reservation{
		ID:         row.ID,
		RoomID:     row.RoomID,
		EmployeeID: row.EmployeeID,
		Date:       row.Date,
		StartTime:  row.StartTime,
		EndTime:    row.EndTime,
		Title:      nullableString(row.Title),
		CreatedAt:  createdAt,
	}, nil
}

func reservationModels(rows []reservationRow) ([]persistence.Reservation, error) {
	reservations := make([]persistence.Reservation, 0, len(rows))
	for _, row := range rows {
		reservation, err := row.model()
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, reservation)
	}
	return reservations, nil
}

func parseTimestamp(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse created_at %q: %w", value, err)
	}
	return t.UTC(), nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func nullableString(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

// now truncates to whole seconds, the precision created_at is stored with.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

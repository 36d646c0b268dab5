// Package adapter bridges the persistence layer and the application services.
// Persistence keeps dates and times as canonical text; the services work on
// parsed booking values.
package adapter

import (
	"context"
	"fmt"

	"github.com/example/room-reservations/internal/application"
	"github.com/example/room-reservations/internal/booking"
	"github.com/example/room-reservations/internal/persistence"
)

// EmployeeRepository adapts a persistence.EmployeeRepository to application.EmployeeRepository.
type EmployeeRepository struct {
	repo persistence.EmployeeRepository
}

// NewEmployeeRepository wraps repo.
func NewEmployeeRepository(repo persistence.EmployeeRepository) *EmployeeRepository {
	return &EmployeeRepository{repo: repo}
}

func (a *EmployeeRepository) CreateEmployee(ctx context.Context, employee application.Employee) (application.Employee, error) {
	stored, err := a.repo.CreateEmployee(ctx, toPersistenceEmployee(employee))
	if err != nil {
		return application.Employee{}, err
	}
	return toApplicationEmployee(stored), nil
}

func (a *EmployeeRepository) GetEmployee(ctx context.Context, id int64) (application.Employee, error) {
	stored, err := a.repo.GetEmployee(ctx, id)
	if err != nil {
		return application.Employee{}, err
	}
	return toApplicationEmployee(stored), nil
}

func (a *EmployeeRepository) UpdateEmployee(ctx context.Context, employee application.Employee) (application.Employee, error) {
	stored, err := a.repo.UpdateEmployee(ctx, toPersistenceEmployee(employee))
	if err != nil {
		return application.Employee{}, err
	}
	return toApplicationEmployee(stored), nil
}

func (a *EmployeeRepository) DeleteEmployee(ctx context.Context, id int64) error {
	return a.repo.DeleteEmployee(ctx, id)
}

func (a *EmployeeRepository) ListEmployees(ctx context.Context) ([]application.Employee, error) {
	models, err := a.repo.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	employees := make([]application.Employee, 0, len(models))
	for _, model := range models {
		employees = append(employees, toApplicationEmployee(model))
	}
	return employees, nil
}

// RoomRepository adapts a persistence.RoomRepository to application.RoomRepository.
type RoomRepository struct {
	repo persistence.RoomRepository
}

// NewRoomRepository wraps repo.
func NewRoomRepository(repo persistence.RoomRepository) *RoomRepository {
	return &RoomRepository{repo: repo}
}

func (a *RoomRepository) CreateRoom(ctx context.Context, room application.Room) (application.Room, error) {
	stored, err := a.repo.CreateRoom(ctx, toPersistenceRoom(room))
	if err != nil {
		return application.Room{}, err
	}
	return toApplicationRoom(stored), nil
}

func (a *RoomRepository) GetRoom(ctx context.Context, id int64) (application.Room, error) {
	stored, err := a.repo.GetRoom(ctx, id)
	if err != nil {
		return application.Room{}, err
	}
	return toApplicationRoom(stored), nil
}

func (a *RoomRepository) DeleteRoom(ctx context.Context, id int64) error {
	return a.repo.DeleteRoom(ctx, id)
}

func (a *RoomRepository) ListRooms(ctx context.Context) ([]application.Room, error) {
	models, err := a.repo.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	rooms := make([]application.Room, 0, len(models))
	for _, model := range models {
		rooms = append(rooms, toApplicationRoom(model))
	}
	return rooms, nil
}

// ReservationRepository adapts a persistence.ReservationRepository to application.ReservationRepository.
type ReservationRepository struct {
	repo persistence.ReservationRepository
}

// NewReservationRepository wraps repo.
func NewReservationRepository(repo persistence.ReservationRepository) *ReservationRepository {
	return &ReservationRepository{repo: repo}
}

func (a *ReservationRepository) ListReservations(ctx context.Context, query application.ReservationQuery) ([]application.Reservation, error) {
	filter := persistence.ReservationFilter{RoomID: query.RoomID}
	if !query.Date.IsZero() {
		filter.Date = query.Date.String()
	}
	models, err := a.repo.ListReservations(ctx, filter)
	if err != nil {
		return nil, err
	}
	return toApplicationReservations(models)
}

func (a *ReservationRepository) GetReservation(ctx context.Context, id int64) (application.Reservation, error) {
	stored, err := a.repo.GetReservation(ctx, id)
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(stored)
}

func (a *ReservationRepository) WithRoomDay(ctx context.Context, roomID int64, date booking.Date, fn func(ctx context.Context, day application.RoomDayLedger) error) error {
	return a.repo.WithRoomDay(ctx, roomID, date.String(), func(ctx context.Context, day persistence.RoomDay) error {
		return fn(ctx, roomDayLedger{day: day})
	})
}

type roomDayLedger struct {
	day persistence.RoomDay
}

func (l roomDayLedger) Reservations(ctx context.Context) ([]application.Reservation, error) {
	models, err := l.day.Reservations(ctx)
	if err != nil {
		return nil, err
	}
	return toApplicationReservations(models)
}

func (l roomDayLedger) Insert(ctx context.Context, reservation application.Reservation) (application.Reservation, error) {
	stored, err := l.day.Insert(ctx, toPersistenceReservation(reservation))
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(stored)
}

func toPersistenceEmployee(employee application.Employee) persistence.Employee {
	return persistence.Employee{
		ID:        employee.ID,
		FirstName: employee.FirstName,
		LastName:  employee.LastName,
		Email:     employee.Email,
		CreatedAt: employee.CreatedAt,
	}
}

func toApplicationEmployee(model persistence.Employee) application.Employee {
	return application.Employee{
		ID:        model.ID,
		FirstName: model.FirstName,
		LastName:  model.LastName,
		Email:     model.Email,
		CreatedAt: model.CreatedAt,
	}
}

func toPersistenceRoom(room application.Room) persistence.Room {
	return persistence.Room{
		ID:          room.ID,
		Name:        room.Name,
		Capacity:    room.Capacity,
		Description: room.Description,
		CreatedAt:   room.CreatedAt,
	}
}

func toApplicationRoom(model persistence.Room) application.Room {
	return application.Room{
		ID:          model.ID,
		Name:        model.Name,
		Capacity:    model.Capacity,
		Description: model.Description,
		CreatedAt:   model.CreatedAt,
	}
}

func toPersistenceReservation(reservation application.Reservation) persistence.Reservation {
	return persistence.Reservation{
		ID:         reservation.ID,
		RoomID:     reservation.RoomID,
		EmployeeID: reservation.EmployeeID,
		Date:       reservation.Date.String(),
		StartTime:  reservation.Slot.Start.String(),
		EndTime:    reservation.Slot.End.String(),
		Title:      reservation.Title,
		CreatedAt:  reservation.CreatedAt,
	}
}

// toApplicationReservation parses the stored text columns. A row that does not
// parse means the store holds data this service never wrote.
func toApplicationReservation(model persistence.Reservation) (application.Reservation, error) {
	date, err := booking.ParseDate(model.Date)
	if err != nil {
		return application.Reservation{}, fmt.Errorf("reservation %d: %w", model.ID, err)
	}
	start, err := booking.ParseClockTime(model.StartTime)
	if err != nil {
		return application.Reservation{}, fmt.Errorf("reservation %d: %w", model.ID, err)
	}
	end, err := booking.ParseClockTime(model.EndTime)
	if err != nil {
		return application.Reservation{}, fmt.Errorf("reservation %d: %w", model.ID, err)
	}
	slot, err := booking.NewSlot(start, end)
	if err != nil {
		return application.Reservation{}, fmt.Errorf("reservation %d: %w", model.ID, err)
	}
	return application.Reservation{
		ID:         model.ID,
		RoomID:     model.RoomID,
		EmployeeID: model.EmployeeID,
		Date:       date,
		Slot:       slot,
		Title:      model.Title,
		CreatedAt:  model.CreatedAt,
	}, nil
}

func toApplicationReservations(models []persistence.Reservation) ([]application.Reservation, error) {
	if len(models) == 0 {
		return nil, nil
	}
	out := make([]application.Reservation, 0, len(models))
	for _, model := range models {
		reservation, err := toApplicationReservation(model)
		if err != nil {
			return nil, err
		}
		out = append(out, reservation)
	}
	return out, nil
}

var (
	_ application.EmployeeRepository    = (*EmployeeRepository)(nil)
	_ application.RoomRepository        = (*RoomRepository)(nil)
	_ application.ReservationRepository = (*ReservationRepository)(nil)
)

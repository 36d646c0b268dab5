package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/room-reservations/internal/booking"
	"github.com/example/room-reservations/internal/persistence"
)

// RoomDayLedger is the locked view of one room on one date handed to WithRoomDay callbacks.
type RoomDayLedger interface {
	Reservations(ctx context.Context) ([]Reservation, error)
	Insert(ctx context.Context, reservation Reservation) (Reservation, error)
}

// ReservationRepository captures the persistence operations needed by the reservation service.
type ReservationRepository interface {
	ListReservations(ctx context.Context, query ReservationQuery) ([]Reservation, error)
	GetReservation(ctx context.Context, id int64) (Reservation, error)
	// WithRoomDay runs fn atomically, serialized with every other call for the same room and date.
	WithRoomDay(ctx context.Context, roomID int64, date booking.Date, fn func(ctx context.Context, day RoomDayLedger) error) error
}

// ReservationService guards reservation creation against double booking.
type ReservationService struct {
	reservations ReservationRepository
	storeTimeout time.Duration
	logger       *slog.Logger
}

// NewReservationService constructs a reservation service with the provided dependencies.
func NewReservationService(reservations ReservationRepository, storeTimeout time.Duration) *ReservationService {
	return NewReservationServiceWithLogger(reservations, storeTimeout, nil)
}

// NewReservationServiceWithLogger constructs a reservation service with a specified logger.
func NewReservationServiceWithLogger(reservations ReservationRepository, storeTimeout time.Duration, logger *slog.Logger) *ReservationService {
	return &ReservationService{reservations: reservations, storeTimeout: storeTimeout, logger: defaultLogger(logger)}
}

func (s *ReservationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReservationService", operation, attrs...)
}

// RequestReservation validates the request, checks the room day for overlaps and
// records the reservation. The check and the insert run as one unit under the
// store's room-day lock, so two overlapping requests can never both succeed.
func (s *ReservationService) RequestReservation(ctx context.Context, input ReservationInput) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}

	logger := s.loggerWith(ctx, "RequestReservation",
		"room_id", input.RoomID,
		"employee_id", input.EmployeeID,
		"date", strings.TrimSpace(input.Date),
	)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "reservation rejected", err)
			return
		}
		logger.With("reservation_id", reservation.ID, "slot", reservation.Slot.String()).InfoContext(ctx, "reservation created")
	}()

	candidate, vErr := parseReservationInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}

	storeCtx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	err = s.reservations.WithRoomDay(storeCtx, candidate.RoomID, candidate.Date, func(ctx context.Context, day RoomDayLedger) error {
		existing, err := day.Reservations(ctx)
		if err != nil {
			return err
		}
		if cErr := conflictWith(candidate, existing); cErr != nil {
			return cErr
		}

		created, err := day.Insert(ctx, candidate)
		if errors.Is(err, persistence.ErrOverlap) {
			// Another unit committed an overlapping reservation after the read.
			existing, readErr := day.Reservations(ctx)
			if readErr != nil {
				return readErr
			}
			if cErr := conflictWith(candidate, existing); cErr != nil {
				return cErr
			}
			return &ConflictError{RoomID: candidate.RoomID, Date: candidate.Date, Requested: candidate.Slot}
		}
		if err != nil {
			return err
		}
		reservation = created
		return nil
	})
	if err != nil {
		reservation = Reservation{}
		err = storeFailure(storeCtx, "RequestReservation", err)
		return
	}

	return
}

func conflictWith(candidate Reservation, existing []Reservation) *ConflictError {
	conflicts := booking.DetectConflicts(bookingReservations(existing), candidate.Slot)
	if len(conflicts) == 0 {
		return nil
	}
	return &ConflictError{
		RoomID:    candidate.RoomID,
		Date:      candidate.Date,
		Requested: candidate.Slot,
		Conflicts: conflicts,
	}
}

// ListReservations returns reservations, optionally narrowed to a room and date,
// ordered by date, start time and ID.
func (s *ReservationService) ListReservations(ctx context.Context, params ListReservationsParams) (reservations []Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListReservations", "room_id", params.RoomID, "date", params.Date)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "failed to list reservations", err)
			return
		}
		logger.With("result_count", len(reservations)).DebugContext(ctx, "reservations listed")
	}()

	query, vErr := parseListParams(params)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	storeCtx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	reservations, err = s.reservations.ListReservations(storeCtx, query)
	if err != nil {
		reservations = nil
		err = storeFailure(storeCtx, "ListReservations", err)
		return
	}
	return
}

// GetReservation returns a single reservation by identifier.
func (s *ReservationService) GetReservation(ctx context.Context, id int64) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if id <= 0 {
		return Reservation{}, ErrNotFound
	}
	if s.reservations == nil {
		return Reservation{}, ErrNotFound
	}

	storeCtx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	reservation, err = s.reservations.GetReservation(storeCtx, id)
	if err != nil {
		err = storeFailure(storeCtx, "GetReservation", err)
		if !errors.Is(err, ErrNotFound) {
			s.loggerWith(ctx, "GetReservation", "reservation_id", id).
				ErrorContext(ctx, "failed to get reservation", "error", err, "error_kind", ErrorKind(err))
		}
		return Reservation{}, err
	}
	return reservation, nil
}

// parseReservationInput checks required fields first, then formats, then ordering.
func parseReservationInput(input ReservationInput) (Reservation, *ValidationError) {
	input.Date = strings.TrimSpace(input.Date)
	input.StartTime = strings.TrimSpace(input.StartTime)
	input.EndTime = strings.TrimSpace(input.EndTime)
	input.Title = trimOptional(input.Title)

	vErr := validateStruct(input)
	if vErr.HasErrors() {
		return Reservation{}, vErr
	}

	date, err := booking.ParseDate(input.Date)
	if err != nil {
		vErr.add("date", "debe tener el formato YYYY-MM-DD")
	}
	start, err := booking.ParseClockTime(input.StartTime)
	if err != nil {
		vErr.add("start_time", "debe tener el formato HH:MM o HH:MM:SS")
	}
	end, err := booking.ParseClockTime(input.EndTime)
	if err != nil {
		vErr.add("end_time", "debe tener el formato HH:MM o HH:MM:SS")
	}
	if vErr.HasErrors() {
		return Reservation{}, vErr
	}

	slot, err := booking.NewSlot(start, end)
	if err != nil {
		vErr.add("end_time", "debe ser posterior a start_time")
		return Reservation{}, vErr
	}

	return Reservation{
		RoomID:     input.RoomID,
		EmployeeID: input.EmployeeID,
		Date:       date,
		Slot:       slot,
		Title:      input.Title,
	}, vErr
}

func parseListParams(params ListReservationsParams) (ReservationQuery, *ValidationError) {
	vErr := &ValidationError{}
	query := ReservationQuery{RoomID: params.RoomID}

	if params.RoomID < 0 {
		vErr.add("room_id", "debe ser mayor que 0")
	}
	if value := strings.TrimSpace(params.Date); value != "" {
		date, err := booking.ParseDate(value)
		if err != nil {
			vErr.add("date", "debe tener el formato YYYY-MM-DD")
		}
		query.Date = date
	}
	return query, vErr
}

func bookingReservations(reservations []Reservation) []booking.Reservation {
	out := make([]booking.Reservation, 0, len(reservations))
	for _, r := range reservations {
		out = append(out, booking.Reservation{ID: r.ID, Slot: r.Slot})
	}
	return out
}

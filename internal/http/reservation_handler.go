package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/room-reservations/internal/application"
)

type reservationService interface {
	RequestReservation(ctx context.Context, input application.ReservationInput) (application.Reservation, error)
	ListReservations(ctx context.Context, params application.ListReservationsParams) ([]application.Reservation, error)
	GetReservation(ctx context.Context, id int64) (application.Reservation, error)
}

// ReservationHandler exposes the reservation guard over HTTP.
type ReservationHandler struct {
	service   reservationService
	responder responder
	logger    *slog.Logger
}

func NewReservationHandler(service reservationService, logger *slog.Logger) *ReservationHandler {
	base := defaultLogger(logger)
	return &ReservationHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ReservationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ReservationHandler", operation, attrs...)
}

// Create handles POST /reservations.
func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req reservationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logBadRequest(r.Context(), h.log(r.Context(), "Create"), "failed to decode reservation request", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "room_id", req.RoomID, "date", strings.TrimSpace(req.Date))

	reservation, err := h.service.RequestReservation(r.Context(), req.toInput())
	if err != nil {
		logFailure(r.Context(), logger, "reservation request rejected", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("reservation_id", reservation.ID).InfoContext(r.Context(), "reservation created")
	dto := toReservationDTO(reservation)
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, createReservationResponse{
		ID:          reservation.ID,
		Message:     "Reserva creada correctamente",
		Reservation: dto,
	})
}

// List handles GET /reservations with optional room_id and date filters.
func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	params := application.ListReservationsParams{Date: strings.TrimSpace(query.Get("date"))}
	if raw := strings.TrimSpace(query.Get("room_id")); raw != "" {
		roomID, err := parseID(raw)
		if err != nil {
			logBadRequest(r.Context(), h.log(r.Context(), "List"), "invalid room_id filter", err)
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidQueryParam)
			return
		}
		params.RoomID = roomID
	}

	logger := h.log(r.Context(), "List", "room_id", params.RoomID, "date", params.Date)
	reservations, err := h.service.ListReservations(r.Context(), params)
	if err != nil {
		logFailure(r.Context(), logger, "reservation list failed", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(reservations)).DebugContext(r.Context(), "reservations listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toReservationDTOs(reservations))
}

// Get handles GET /reservations/{id}.
func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := ResourceIDFromContext(r.Context())
	if !ok {
		logBadRequest(r.Context(), h.log(r.Context(), "Get"), "missing reservation id", nil)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}

	reservation, err := h.service.GetReservation(r.Context(), id)
	if err != nil {
		logFailure(r.Context(), h.log(r.Context(), "Get", "reservation_id", id), "reservation lookup failed", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationResponse{Reservation: toReservationDTO(reservation)})
}

type reservationRequest struct {
	RoomID     int64   `json:"room_id"`
	EmployeeID int64   `json:"employee_id"`
	Date       string  `json:"date"`
	StartTime  string  `json:"start_time"`
	EndTime    string  `json:"end_time"`
	Title      *string `json:"title"`
}

func (r reservationRequest) toInput() application.ReservationInput {
	return application.ReservationInput{
		RoomID:     r.RoomID,
		EmployeeID: r.EmployeeID,
		Date:       r.Date,
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		Title:      r.Title,
	}
}

type createReservationResponse struct {
	ID          int64          `json:"id"`
	Message     string         `json:"message"`
	Reservation reservationDTO `json:"reservation"`
}

type reservationResponse struct {
	Reservation reservationDTO `json:"reservation"`
}

type reservationDTO struct {
	ID         int64   `json:"id"`
	RoomID     int64   `json:"room_id"`
	EmployeeID int64   `json:"employee_id"`
	Date       string  `json:"date"`
	StartTime  string  `json:"start_time"`
	EndTime    string  `json:"end_time"`
	Title      *string `json:"title,omitempty"`
	CreatedAt  string  `json:"created_at,omitempty"`
}

func toReservationDTO(reservation application.Reservation) reservationDTO {
	return reservationDTO{
		ID:         reservation.ID,
		RoomID:     reservation.RoomID,
		EmployeeID: reservation.EmployeeID,
		Date:       reservation.Date.String(),
		StartTime:  reservation.Slot.Start.String(),
		EndTime:    reservation.Slot.End.String(),
		Title:      reservation.Title,
		CreatedAt:  formatTimestamp(reservation.CreatedAt),
	}
}

func toReservationDTOs(reservations []application.Reservation) []reservationDTO {
	out := make([]reservationDTO, 0, len(reservations))
	for _, reservation := range reservations {
		out = append(out, toReservationDTO(reservation))
	}
	return out
}

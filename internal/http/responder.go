package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/room-reservations/internal/application"
)

// retryAfterSeconds is advertised when the store timed out.
const retryAfterSeconds = 1

var (
	errBadRequestBody    = errors.New("Formato de solicitud no válido")
	errInvalidID         = errors.New("Identificador no válido")
	errInvalidQueryParam = errors.New("Parámetro de consulta no válido")
)

const (
	codeValidation       = "VALIDATION_ERROR"
	codeMissingFields    = "MISSING_FIELDS"
	codeConflict         = "RESERVATION_CONFLICT"
	codeInvalidReference = "INVALID_REFERENCE"
	codeNotFound         = "NOT_FOUND"
	codeAlreadyExists    = "ALREADY_EXISTS"
	codeStoreTimeout     = "STORE_TIMEOUT"
	codeStoreError       = "STORE_ERROR"
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError maps the application error taxonomy onto status codes.
// Conflicts share 400 with validation failures and are told apart by error_code.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var (
		vErr     *application.ValidationError
		conflict *application.ConflictError
	)
	switch {
	case errors.As(err, &vErr):
		resp := errorResponse{
			ErrorCode: codeValidation,
			Message:   "Datos de entrada no válidos",
			Errors:    vErr.FieldErrors,
		}
		if vErr.MissingRequired() {
			resp.ErrorCode = codeMissingFields
			resp.Message = "Faltan campos obligatorios"
		}
		r.writeJSON(ctx, w, http.StatusBadRequest, resp)
	case errors.As(err, &conflict):
		r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{
			ErrorCode:      codeConflict,
			Message:        "Conflicto: horario ya reservado",
			ConflictingIDs: conflict.ReservationIDs(),
		})
	case errors.Is(err, application.ErrInvalidReference):
		r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{
			ErrorCode: codeInvalidReference,
			Message:   "La sala o el empleado indicado no existe",
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{
			ErrorCode: codeNotFound,
			Message:   "El recurso solicitado no existe",
		})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: codeAlreadyExists,
			Message:   "El recurso ya existe",
		})
	case errors.Is(err, application.ErrStoreTimeout):
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
		r.writeJSON(ctx, w, http.StatusServiceUnavailable, errorResponse{
			ErrorCode: codeStoreTimeout,
			Message:   "El almacenamiento no respondió a tiempo, inténtelo de nuevo",
		})
	case errors.Is(err, application.ErrStore):
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{
			ErrorCode: codeStoreError,
			Message:   "Error interno del servidor",
		})
	default:
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "Error interno del servidor"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Solicitud no válida"
	case http.StatusNotFound:
		return "El recurso solicitado no existe"
	case http.StatusMethodNotAllowed:
		return "Método no permitido"
	case http.StatusConflict:
		return "El recurso ya existe"
	case http.StatusServiceUnavailable:
		return "Servicio no disponible"
	default:
		return "Error interno del servidor"
	}
}

type errorResponse struct {
	Message        string            `json:"error"`
	ErrorCode      string            `json:"error_code,omitempty"`
	Errors         map[string]string `json:"errors,omitempty"`
	ConflictingIDs []int64           `json:"conflicting_reservation_ids,omitempty"`
}

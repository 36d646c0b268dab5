package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/example/room-reservations/internal/application"
)

type employeeService interface {
	CreateEmployee(ctx context.Context, input application.EmployeeInput) (application.Employee, error)
	UpdateEmployee(ctx context.Context, params application.UpdateEmployeeParams) (application.Employee, error)
	GetEmployee(ctx context.Context, id int64) (application.Employee, error)
	DeleteEmployee(ctx context.Context, employeeID int64) error
	ListEmployees(ctx context.Context) ([]application.Employee, error)
}

type EmployeeHandler struct {
	service   employeeService
	responder responder
	logger    *slog.Logger
}

func NewEmployeeHandler(service employeeService, logger *slog.Logger) *EmployeeHandler {
	base := defaultLogger(logger)
	return &EmployeeHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *EmployeeHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "EmployeeHandler", operation, attrs...)
}

func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req employeeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logBadRequest(r.Context(), h.log(r.Context(), "Create"), "failed to decode employee request", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create")
	employee, err := h.service.CreateEmployee(r.Context(), req.toInput())
	if err != nil {
		logFailure(r.Context(), logger, "employee creation failed", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("employee_id", employee.ID).InfoContext(r.Context(), "employee created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, createEmployeeResponse{
		ID:       employee.ID,
		Message:  "Empleado agregado",
		Employee: toEmployeeDTO(employee),
	})
}

func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	employeeID, ok := ResourceIDFromContext(r.Context())
	if !ok {
		logBadRequest(r.Context(), h.log(r.Context(), "Update"), "missing employee id for update", nil)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}

	logger := h.log(r.Context(), "Update", "employee_id", employeeID)

	var req employeeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logBadRequest(r.Context(), logger, "failed to decode employee update", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	employee, err := h.service.UpdateEmployee(r.Context(), application.UpdateEmployeeParams{
		EmployeeID: employeeID,
		Input:      req.toInput(),
	})
	if err != nil {
		logFailure(r.Context(), logger, "employee update failed", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "employee updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, updateEmployeeResponse{
		Message:  fmt.Sprintf("Empleado %d actualizado", employee.ID),
		Employee: toEmployeeDTO(employee),
	})
}

func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	employeeID, ok := ResourceIDFromContext(r.Context())
	if !ok {
		logBadRequest(r.Context(), h.log(r.Context(), "Get"), "missing employee id", nil)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}

	employee, err := h.service.GetEmployee(r.Context(), employeeID)
	if err != nil {
		logFailure(r.Context(), h.log(r.Context(), "Get", "employee_id", employeeID), "employee lookup failed", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, employeeResponse{Employee: toEmployeeDTO(employee)})
}

func (h *EmployeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	employeeID, ok := ResourceIDFromContext(r.Context())
	if !ok {
		logBadRequest(r.Context(), h.log(r.Context(), "Delete"), "missing employee id for delete", nil)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}

	logger := h.log(r.Context(), "Delete", "employee_id", employeeID)
	if err := h.service.DeleteEmployee(r.Context(), employeeID); err != nil {
		logFailure(r.Context(), logger, "employee delete failed", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "employee deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "List")
	employees, err := h.service.ListEmployees(r.Context())
	if err != nil {
		logFailure(r.Context(), logger, "employee list failed", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(employees)).DebugContext(r.Context(), "employees listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toEmployeeDTOs(employees))
}

type employeeRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

func (r employeeRequest) toInput() application.EmployeeInput {
	return application.EmployeeInput{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
	}
}

type createEmployeeResponse struct {
	ID       int64       `json:"id"`
	Message  string      `json:"message"`
	Employee employeeDTO `json:"employee"`
}

type updateEmployeeResponse struct {
	Message  string      `json:"message"`
	Employee employeeDTO `json:"employee"`
}

type employeeResponse struct {
	Employee employeeDTO `json:"employee"`
}

type employeeDTO struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at,omitempty"`
}

func toEmployeeDTO(employee application.Employee) employeeDTO {
	return employeeDTO{
		ID:        employee.ID,
		FirstName: employee.FirstName,
		LastName:  employee.LastName,
		Email:     employee.Email,
		CreatedAt: formatTimestamp(employee.CreatedAt),
	}
}

func toEmployeeDTOs(employees []application.Employee) []employeeDTO {
	out := make([]employeeDTO, 0, len(employees))
	for _, employee := range employees {
		out = append(out, toEmployeeDTO(employee))
	}
	return out
}

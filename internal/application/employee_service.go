package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// EmployeeRepository captures the persistence operations needed by the employee service.
type EmployeeRepository interface {
	CreateEmployee(ctx context.Context, employee Employee) (Employee, error)
	GetEmployee(ctx context.Context, id int64) (Employee, error)
	UpdateEmployee(ctx context.Context, employee Employee) (Employee, error)
	DeleteEmployee(ctx context.Context, id int64) error
	ListEmployees(ctx context.Context) ([]Employee, error)
}

// EmployeeService orchestrates validation and persistence for employees.
type EmployeeService struct {
	employees    EmployeeRepository
	storeTimeout time.Duration
	logger       *slog.Logger
}

// NewEmployeeService wires dependencies for the employee service.
func NewEmployeeService(employees EmployeeRepository, storeTimeout time.Duration) *EmployeeService {
	return NewEmployeeServiceWithLogger(employees, storeTimeout, nil)
}

// NewEmployeeServiceWithLogger wires dependencies for the employee service with a specified logger.
func NewEmployeeServiceWithLogger(employees EmployeeRepository, storeTimeout time.Duration, logger *slog.Logger) *EmployeeService {
	return &EmployeeService{employees: employees, storeTimeout: storeTimeout, logger: defaultLogger(logger)}
}

func (s *EmployeeService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EmployeeService", operation, attrs...)
}

// CreateEmployee validates input and persists a new employee.
func (s *EmployeeService) CreateEmployee(ctx context.Context, input EmployeeInput) (employee Employee, err error) {
	if s == nil {
		return Employee{}, fmt.Errorf("EmployeeService is nil")
	}
	if s.employees == nil {
		return Employee{}, fmt.Errorf("employee repository not configured")
	}

	logger := s.loggerWith(ctx, "CreateEmployee")
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "failed to create employee", err)
			return
		}
		logger.With("employee_id", employee.ID).InfoContext(ctx, "employee created")
	}()

	normalized := normalizeEmployeeInput(input)
	if vErr := validateStruct(normalized); vErr.HasErrors() {
		return Employee{}, vErr
	}

	storeCtx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	employee, err = s.employees.CreateEmployee(storeCtx, Employee{
		FirstName: normalized.FirstName,
		LastName:  normalized.LastName,
		Email:     normalized.Email,
	})
	if err != nil {
		return Employee{}, mapEmployeeRepoError(storeCtx, err)
	}
	return employee, nil
}

// UpdateEmployee validates input and replaces the fields of an existing employee.
func (s *EmployeeService) UpdateEmployee(ctx context.Context, params UpdateEmployeeParams) (employee Employee, err error) {
	if s == nil {
		return Employee{}, fmt.Errorf("EmployeeService is nil")
	}
	if s.employees == nil {
		return Employee{}, fmt.Errorf("employee repository not configured")
	}
	if params.EmployeeID <= 0 {
		return Employee{}, ErrNotFound
	}

	logger := s.loggerWith(ctx, "UpdateEmployee", "employee_id", params.EmployeeID)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "failed to update employee", err)
			return
		}
		logger.InfoContext(ctx, "employee updated")
	}()

	normalized := normalizeEmployeeInput(params.Input)
	if vErr := validateStruct(normalized); vErr.HasErrors() {
		return Employee{}, vErr
	}

	storeCtx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	employee, err = s.employees.UpdateEmployee(storeCtx, Employee{
		ID:        params.EmployeeID,
		FirstName: normalized.FirstName,
		LastName:  normalized.LastName,
		Email:     normalized.Email,
	})
	if err != nil {
		return Employee{}, mapEmployeeRepoError(storeCtx, err)
	}
	return employee, nil
}

// GetEmployee returns a single employee by identifier.
func (s *EmployeeService) GetEmployee(ctx context.Context, id int64) (Employee, error) {
	if s == nil {
		return Employee{}, fmt.Errorf("EmployeeService is nil")
	}
	if id <= 0 || s.employees == nil {
		return Employee{}, ErrNotFound
	}

	storeCtx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	employee, err := s.employees.GetEmployee(storeCtx, id)
	if err != nil {
		return Employee{}, mapEmployeeRepoError(storeCtx, err)
	}
	return employee, nil
}

// DeleteEmployee removes an employee together with their reservations.
func (s *EmployeeService) DeleteEmployee(ctx context.Context, employeeID int64) error {
	if s == nil {
		return fmt.Errorf("EmployeeService is nil")
	}
	if s.employees == nil {
		return fmt.Errorf("employee repository not configured")
	}
	if employeeID <= 0 {
		return ErrNotFound
	}

	storeCtx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	logger := s.loggerWith(ctx, "DeleteEmployee", "employee_id", employeeID)
	if err := s.employees.DeleteEmployee(storeCtx, employeeID); err != nil {
		err = mapEmployeeRepoError(storeCtx, err)
		logOutcome(ctx, logger, "failed to delete employee", err)
		return err
	}
	logger.InfoContext(ctx, "employee deleted")
	return nil
}

// ListEmployees returns all employees ordered by last name, first name and ID.
func (s *EmployeeService) ListEmployees(ctx context.Context) ([]Employee, error) {
	if s == nil {
		return nil, fmt.Errorf("EmployeeService is nil")
	}
	if s.employees == nil {
		return nil, nil
	}

	storeCtx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	employees, err := s.employees.ListEmployees(storeCtx)
	if err != nil {
		err = mapEmployeeRepoError(storeCtx, err)
		logOutcome(ctx, s.loggerWith(ctx, "ListEmployees"), "failed to list employees", err)
		return nil, err
	}
	return employees, nil
}

func normalizeEmployeeInput(input EmployeeInput) EmployeeInput {
	return EmployeeInput{
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Email:     strings.ToLower(strings.TrimSpace(input.Email)),
	}
}

func mapEmployeeRepoError(ctx context.Context, err error) error {
	return storeFailure(ctx, "employees", err)
}

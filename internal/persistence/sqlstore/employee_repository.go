package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/example/room-reservations/internal/persistence"
)

// EmployeeRepository implements persistence.EmployeeRepository on top of sqlx.
type EmployeeRepository struct {
	pool *ConnectionPool
}

// NewEmployeeRepository creates an employee repository bound to the pool.
func NewEmployeeRepository(pool *ConnectionPool) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

func (r *EmployeeRepository) columns() string {
	return "id, first_name, last_name, email, " + r.pool.dialect.timestampExpr("created_at") + " AS created_at"
}

// CreateEmployee inserts an employee and returns it with the generated identifier.
func (r *EmployeeRepository) CreateEmployee(ctx context.Context, employee persistence.Employee) (persistence.Employee, error) {
	if strings.TrimSpace(employee.Email) == "" {
		return persistence.Employee{}, persistence.ErrConstraintViolation
	}

	employee.CreatedAt = now()
	query := r.pool.rebind(`
		INSERT INTO employees (first_name, last_name, email, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`)

	err := r.pool.db.QueryRowxContext(ctx, query,
		employee.FirstName,
		employee.LastName,
		employee.Email,
		formatTimestamp(employee.CreatedAt),
	).Scan(&employee.ID)
	if err != nil {
		return persistence.Employee{}, r.pool.dialect.mapError(err)
	}

	return employee, nil
}

// UpdateEmployee replaces the mutable fields of an existing employee.
func (r *EmployeeRepository) UpdateEmployee(ctx context.Context, employee persistence.Employee) (persistence.Employee, error) {
	if employee.ID <= 0 {
		return persistence.Employee{}, persistence.ErrNotFound
	}
	if strings.TrimSpace(employee.Email) == "" {
		return persistence.Employee{}, persistence.ErrConstraintViolation
	}

	var updated persistence.Employee
	err := r.pool.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, r.pool.rebind(`
			UPDATE employees
			SET first_name = ?, last_name = ?, email = ?
			WHERE id = ?
		`), employee.FirstName, employee.LastName, employee.Email, employee.ID)
		if err != nil {
			return r.pool.dialect.mapError(err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}

		updated, err = r.get(ctx, tx, employee.ID)
		return err
	})
	if err != nil {
		return persistence.Employee{}, err
	}
	return updated, nil
}

// GetEmployee retrieves an employee by identifier.
func (r *EmployeeRepository) GetEmployee(ctx context.Context, id int64) (persistence.Employee, error) {
	if id <= 0 {
		return persistence.Employee{}, persistence.ErrNotFound
	}
	return r.get(ctx, r.pool.db, id)
}

func (r *EmployeeRepository) get(ctx context.Context, q sqlx.QueryerContext, id int64) (persistence.Employee, error) {
	var row employeeRow
	query := r.pool.rebind("SELECT " + r.columns() + " FROM employees WHERE id = ?")
	if err := sqlx.GetContext(ctx, q, &row, query, id); err != nil {
		return persistence.Employee{}, r.pool.dialect.mapError(err)
	}
	return row.model()
}

// ListEmployees returns all employees ordered by last name, first name and identifier.
func (r *EmployeeRepository) ListEmployees(ctx context.Context) ([]persistence.Employee, error) {
	var rows []employeeRow
	query := "SELECT " + r.columns() + " FROM employees ORDER BY last_name ASC, first_name ASC, id ASC"
	if err := sqlx.SelectContext(ctx, r.pool.db, &rows, query); err != nil {
		return nil, r.pool.dialect.mapError(err)
	}

	employees := make([]persistence.Employee, 0, len(rows))
	for _, row := range rows {
		employee, err := row.model()
		if err != nil {
			return nil, err
		}
		employees = append(employees, employee)
	}
	return employees, nil
}

// DeleteEmployee removes an employee together with their reservations.
func (r *EmployeeRepository) DeleteEmployee(ctx context.Context, id int64) error {
	if id <= 0 {
		return persistence.ErrNotFound
	}

	result, err := r.pool.db.ExecContext(ctx, r.pool.rebind("DELETE FROM employees WHERE id = ?"), id)
	if err != nil {
		return r.pool.dialect.mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

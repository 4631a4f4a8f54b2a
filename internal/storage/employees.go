package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lueurxax/support-kpi/internal/core/domain"
)

const employeeColumns = `employee_id, full_name, department, status, telegram_user_id, telegram_username, created_at`

type employeeScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row employeeScanner) (domain.Employee, error) {
	var (
		emp      domain.Employee
		userID   pgtype.Int8
		username pgtype.Text
	)

	if err := row.Scan(&emp.EmployeeID, &emp.FullName, &emp.Department, &emp.Status, &userID, &username, &emp.CreatedAt); err != nil {
		return domain.Employee{}, err //nolint:wrapcheck // wrapped by callers
	}

	emp.TelegramUserID = fromInt8Ptr(userID)
	emp.TelegramUsername = fromText(username)

	return emp, nil
}

func (db *DB) ListEmployees(ctx context.Context, department string) ([]domain.Employee, error) {
	rows, err := db.conn().Query(ctx, `
		SELECT `+employeeColumns+`
		FROM employees
		WHERE $1 = '' OR department = $1
		ORDER BY employee_id
	`, department)
	if err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	defer rows.Close()

	employees := make([]domain.Employee, 0)

	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan employee row: %w", err)
		}

		employees = append(employees, emp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate employee rows: %w", err)
	}

	return employees, nil
}

func (db *DB) GetEmployee(ctx context.Context, employeeID string) (*domain.Employee, error) {
	emp, err := scanEmployee(db.conn().QueryRow(ctx, `
		SELECT `+employeeColumns+`
		FROM employees
		WHERE employee_id = $1
	`, employeeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil //nolint:nilnil // nil,nil indicates unknown employee
		}

		return nil, fmt.Errorf("get employee: %w", err)
	}

	return &emp, nil
}

func (db *DB) CreateEmployee(ctx context.Context, emp *domain.Employee) error {
	status := emp.Status
	if status == "" {
		status = "active"
	}

	_, err := db.conn().Exec(ctx, `
		INSERT INTO employees (employee_id, full_name, department, status, telegram_user_id, telegram_username)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, emp.EmployeeID, SanitizeUTF8(emp.FullName), emp.Department, status,
		toInt8Ptr(emp.TelegramUserID), toText(emp.TelegramUsername))
	if err != nil {
		return fmt.Errorf("create employee: %w", err)
	}

	return nil
}

// LinkEmployeeTelegram fills contact and department columns that are still empty.
func (db *DB) LinkEmployeeTelegram(ctx context.Context, employeeID string, userID *int64, username, department string) error {
	_, err := db.conn().Exec(ctx, `
		UPDATE employees
		SET telegram_user_id = COALESCE(telegram_user_id, $2),
		    telegram_username = COALESCE(NULLIF(telegram_username, ''), $3),
		    department = COALESCE(NULLIF(department, ''), $4, '')
		WHERE employee_id = $1
	`, employeeID, toInt8Ptr(userID), toText(username), toText(department))
	if err != nil {
		return fmt.Errorf("link employee telegram: %w", err)
	}

	return nil
}

// LastEmployeeIDWithPrefix orders by length first so RD-1000 sorts after RD-999.
func (db *DB) LastEmployeeIDWithPrefix(ctx context.Context, prefix string) (string, error) {
	var id string

	err := db.conn().QueryRow(ctx, `
		SELECT employee_id
		FROM employees
		WHERE employee_id LIKE $1 || '%'
		ORDER BY length(employee_id) DESC, employee_id DESC
		LIMIT 1
	`, prefix).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}

		return "", fmt.Errorf("last employee id: %w", err)
	}

	return id, nil
}

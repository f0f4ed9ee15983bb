package employees

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"kpi/internal/platform/querier"
)

var (
	ErrNotFound      = errors.New("employee not found")
	ErrDuplicateCode = errors.New("employee code already exists")
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

const employeeColumns = `id, employee_code, short_name, role, team, area, active, created_at, updated_at`

func scanEmployee(row pgx.Row) (Employee, error) {
	var e Employee
	err := row.Scan(&e.ID, &e.Code, &e.ShortName, &e.Role, &e.Team, &e.Area, &e.Active, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (s *Store) List(ctx context.Context, filter Filter) ([]Employee, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	if filter.Role != "" {
		args = append(args, filter.Role)
		where += fmt.Sprintf(" AND role = $%d", len(args))
	}
	if filter.Area != "" {
		args = append(args, filter.Area)
		where += fmt.Sprintf(" AND area = $%d", len(args))
	}
	if filter.ActiveOnly {
		where += " AND active"
	}

	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM dim_employees"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + employeeColumns + " FROM dim_employees" + where + " ORDER BY employee_code"
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

func (s *Store) Get(ctx context.Context, id int64) (Employee, error) {
	e, err := scanEmployee(s.DB.QueryRow(ctx, "SELECT "+employeeColumns+" FROM dim_employees WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrNotFound
	}
	return e, err
}

func (s *Store) Create(ctx context.Context, e Employee) (int64, error) {
	var id int64
	err := s.DB.QueryRow(ctx, `
    INSERT INTO dim_employees (employee_code, short_name, role, team, area, active)
    VALUES ($1,$2,$3,$4,$5,$6)
    RETURNING id
  `, e.Code, e.ShortName, e.Role, e.Team, e.Area, e.Active).Scan(&id)
	if isUniqueViolation(err) {
		return 0, ErrDuplicateCode
	}
	return id, err
}

// Update rewrites the mutable attributes. The employee code is identity and never changes.
func (s *Store) Update(ctx context.Context, id int64, e Employee) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE dim_employees
    SET short_name = $1, role = $2, team = $3, area = $4, active = $5, updated_at = now()
    WHERE id = $6
  `, e.ShortName, e.Role, e.Team, e.Area, e.Active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

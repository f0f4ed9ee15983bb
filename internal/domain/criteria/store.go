package criteria

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"kpi/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) ListGroups(ctx context.Context, applyDate time.Time) ([]Group, error) {
	query := `SELECT group_code, apply_date, group_name, condition_sql, created_at FROM dim_criteria_groups`
	args := []any{}
	if !applyDate.IsZero() {
		args = append(args, applyDate)
		query += " WHERE apply_date = $1"
	}
	query += " ORDER BY apply_date DESC, group_code"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.Code, &g.ApplyDate, &g.Name, &g.ConditionSQL, &g.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) GetGroup(ctx context.Context, code string, applyDate time.Time) (Group, error) {
	var g Group
	err := s.DB.QueryRow(ctx, `
    SELECT group_code, apply_date, group_name, condition_sql, created_at
    FROM dim_criteria_groups
    WHERE group_code = $1 AND apply_date = $2
  `, code, applyDate).Scan(&g.Code, &g.ApplyDate, &g.Name, &g.ConditionSQL, &g.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Group{}, ErrGroupNotFound
	}
	return g, err
}

func (s *Store) GroupExists(ctx context.Context, code string, applyDate time.Time) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (SELECT 1 FROM dim_criteria_groups WHERE group_code = $1 AND apply_date = $2)
  `, code, applyDate).Scan(&exists)
	return exists, err
}

func (s *Store) CreateGroup(ctx context.Context, g Group) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO dim_criteria_groups (group_code, apply_date, group_name, condition_sql)
    VALUES ($1,$2,$3,$4)
  `, g.Code, g.ApplyDate, g.Name, g.ConditionSQL)
	if pgCode(err) == "23505" {
		return ErrGroupExists
	}
	return err
}

func (s *Store) UpdateGroup(ctx context.Context, code string, applyDate time.Time, g Group) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE dim_criteria_groups
    SET group_name = $1, condition_sql = $2
    WHERE group_code = $3 AND apply_date = $4
  `, g.Name, g.ConditionSQL, code, applyDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrGroupNotFound
	}
	return nil
}

func (s *Store) DeleteGroup(ctx context.Context, code string, applyDate time.Time) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM dim_criteria_groups WHERE group_code = $1 AND apply_date = $2", code, applyDate)
	if pgCode(err) == "23503" {
		return ErrGroupInUse
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrGroupNotFound
	}
	return nil
}

const criterionColumns = `criteria_code, apply_date, group_code, description, employee_type,
    threshold, weight, severity_score, calculation_sql, active, created_at`

func scanCriterion(row pgx.Row) (Criterion, error) {
	var c Criterion
	err := row.Scan(&c.Code, &c.ApplyDate, &c.GroupCode, &c.Description, &c.EmployeeType,
		&c.Threshold, &c.Weight, &c.SeverityScore, &c.CalculationSQL, &c.Active, &c.CreatedAt)
	return c, err
}

func (s *Store) ListCriteria(ctx context.Context, filter Filter) ([]Criterion, error) {
	query := "SELECT " + criterionColumns + " FROM dim_criteria WHERE 1=1"
	args := []any{}
	if !filter.ApplyDate.IsZero() {
		args = append(args, filter.ApplyDate)
		query += fmt.Sprintf(" AND apply_date = $%d", len(args))
	}
	if filter.GroupCode != "" {
		args = append(args, filter.GroupCode)
		query += fmt.Sprintf(" AND group_code = $%d", len(args))
	}
	query += " ORDER BY apply_date DESC, group_code, criteria_code"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Criterion
	for rows.Next() {
		c, err := scanCriterion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetCriterion(ctx context.Context, code string, applyDate time.Time) (Criterion, error) {
	c, err := scanCriterion(s.DB.QueryRow(ctx, "SELECT "+criterionColumns+" FROM dim_criteria WHERE criteria_code = $1 AND apply_date = $2", code, applyDate))
	if errors.Is(err, pgx.ErrNoRows) {
		return Criterion{}, ErrCriterionNotFound
	}
	return c, err
}

func (s *Store) CreateCriterion(ctx context.Context, c Criterion) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO dim_criteria (criteria_code, apply_date, group_code, description, employee_type, threshold, weight, severity_score, calculation_sql, active)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
  `, c.Code, c.ApplyDate, c.GroupCode, c.Description, c.EmployeeType, c.Threshold, c.Weight, c.SeverityScore, c.CalculationSQL, c.Active)
	switch pgCode(err) {
	case "23505":
		return ErrCriterionExists
	case "23503":
		return ErrCriterionGroupMissing
	}
	return err
}

func (s *Store) UpdateCriterion(ctx context.Context, code string, applyDate time.Time, c Criterion) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE dim_criteria
    SET group_code = $1, description = $2, employee_type = $3, threshold = $4, weight = $5,
        severity_score = $6, calculation_sql = $7, active = $8
    WHERE criteria_code = $9 AND apply_date = $10
  `, c.GroupCode, c.Description, c.EmployeeType, c.Threshold, c.Weight, c.SeverityScore, c.CalculationSQL, c.Active, code, applyDate)
	if pgCode(err) == "23503" {
		return ErrCriterionGroupMissing
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCriterionNotFound
	}
	return nil
}

func (s *Store) DeleteCriterion(ctx context.Context, code string, applyDate time.Time) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM dim_criteria WHERE criteria_code = $1 AND apply_date = $2", code, applyDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCriterionNotFound
	}
	return nil
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

package jobs

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"kpi/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) CreateRun(ctx context.Context, jobType string) (int64, error) {
	var id int64
	err := s.DB.QueryRow(ctx, `
    INSERT INTO job_runs (job_type, status)
    VALUES ($1,$2)
    RETURNING id
  `, jobType, StatusQueued).Scan(&id)
	return id, err
}

func (s *Store) StartRun(ctx context.Context, id int64) error {
	_, err := s.DB.Exec(ctx, `UPDATE job_runs SET status = $1, started_at = now() WHERE id = $2`, StatusRunning, id)
	return err
}

func (s *Store) FinishRun(ctx context.Context, id int64, status string, details []byte) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE job_runs
    SET status = $1, details_json = $2, completed_at = now()
    WHERE id = $3
  `, status, details, id)
	return err
}

func (s *Store) GetRun(ctx context.Context, id int64) (Run, error) {
	var run Run
	var details []byte
	err := s.DB.QueryRow(ctx, `
    SELECT id, job_type, status, details_json, created_at, started_at, completed_at
    FROM job_runs
    WHERE id = $1
  `, id).Scan(&run.ID, &run.Type, &run.Status, &details, &run.CreatedAt, &run.StartedAt, &run.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, err
	}
	run.Details = details
	return run, nil
}

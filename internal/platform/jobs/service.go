package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"
)

const (
	JobPeriodScoring = "period_scoring"

	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

var (
	ErrQueueFull = errors.New("job queue full")
	ErrNotFound  = errors.New("job run not found")
)

type Run struct {
	ID          int64           `json:"id"`
	Type        string          `json:"jobType"`
	Status      string          `json:"status"`
	Details     json.RawMessage `json:"details,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	StartedAt   *time.Time      `json:"startedAt,omitempty"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

type RunStore interface {
	CreateRun(ctx context.Context, jobType string) (int64, error)
	StartRun(ctx context.Context, id int64) error
	FinishRun(ctx context.Context, id int64, status string, details []byte) error
	GetRun(ctx context.Context, id int64) (Run, error)
}

// Service runs background jobs one at a time and records each run in the
// job_runs table.
type Service struct {
	store RunStore
	queue chan job
	log   *slog.Logger
}

type job struct {
	ID   int64
	Type string
	Run  func(context.Context) (any, error)
}

func New(store RunStore, queueSize int, logger *slog.Logger) *Service {
	if queueSize <= 0 {
		queueSize = 16
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store: store,
		queue: make(chan job, queueSize),
		log:   logger.With("component", "jobs"),
	}
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
}

// Enqueue records a queued run and hands it to the worker. A full queue
// marks the run failed and returns ErrQueueFull along with its id.
func (s *Service) Enqueue(ctx context.Context, jobType string, run func(context.Context) (any, error)) (int64, error) {
	id, err := s.store.CreateRun(ctx, jobType)
	if err != nil {
		return 0, err
	}
	select {
	case s.queue <- job{ID: id, Type: jobType, Run: run}:
		return id, nil
	default:
		s.log.Warn("job queue full", "jobType", jobType, "runId", id)
		s.finish(ctx, id, StatusFailed, map[string]string{"error": ErrQueueFull.Error()})
		return id, ErrQueueFull
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run func(context.Context) (any, error)) (int64, any, error) {
	id, err := s.store.CreateRun(ctx, jobType)
	if err != nil {
		return 0, nil, err
	}
	details, err := s.runJob(ctx, job{ID: id, Type: jobType, Run: run})
	return id, details, err
}

func (s *Service) Get(ctx context.Context, id int64) (Run, error) {
	return s.store.GetRun(ctx, id)
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				s.log.Warn("job run failed", "jobType", j.Type, "runId", j.ID, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	if err := s.store.StartRun(ctx, j.ID); err != nil {
		s.log.Warn("job run start failed", "runId", j.ID, "err", err)
	}

	details, err := j.Run(ctx)
	status := StatusCompleted
	if err != nil {
		status = StatusFailed
		if details == nil {
			details = map[string]string{"error": err.Error()}
		}
	}
	s.finish(ctx, j.ID, status, details)
	return details, err
}

func (s *Service) finish(ctx context.Context, id int64, status string, details any) {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		s.log.Warn("job details marshal failed", "runId", id, "err", err)
		detailsJSON = []byte("{}")
	}
	// The run row is closed even when the job's context has been cancelled.
	if err := s.store.FinishRun(context.WithoutCancel(ctx), id, status, detailsJSON); err != nil {
		s.log.Warn("job run update failed", "runId", id, "err", err)
	}
}

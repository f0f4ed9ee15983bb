package employees

import (
	"context"
	"errors"
	"strings"

	"kpi/internal/domain/scoring"
)

var ErrInvalidEmployee = errors.New("invalid employee")

type directoryStore interface {
	List(ctx context.Context, filter Filter) ([]Employee, int, error)
	Get(ctx context.Context, id int64) (Employee, error)
	Create(ctx context.Context, e Employee) (int64, error)
	Update(ctx context.Context, id int64, e Employee) error
}

type Service struct {
	store directoryStore
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

func (s *Service) List(ctx context.Context, filter Filter) ([]Employee, int, error) {
	return s.store.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int64) (Employee, error) {
	if id <= 0 {
		return Employee{}, ErrNotFound
	}
	return s.store.Get(ctx, id)
}

// Create inserts a new directory row and returns it as stored.
func (s *Service) Create(ctx context.Context, e Employee) (Employee, error) {
	e = normalize(e)
	if err := check(e, true); err != nil {
		return Employee{}, err
	}
	id, err := s.store.Create(ctx, e)
	if err != nil {
		return Employee{}, err
	}
	return s.store.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, e Employee) (Employee, error) {
	e = normalize(e)
	if err := check(e, false); err != nil {
		return Employee{}, err
	}
	if err := s.store.Update(ctx, id, e); err != nil {
		return Employee{}, err
	}
	return s.store.Get(ctx, id)
}

func check(e Employee, requireCode bool) error {
	if requireCode && e.Code == "" {
		return ErrInvalidEmployee
	}
	if e.ShortName == "" {
		return ErrInvalidEmployee
	}
	if !oneOf(e.Role, scoring.Roles) || !oneOf(e.Area, scoring.Areas) {
		return ErrInvalidEmployee
	}
	return nil
}

func oneOf(value string, allowed []string) bool {
	for _, candidate := range allowed {
		if value == candidate {
			return true
		}
	}
	return false
}

func normalize(e Employee) Employee {
	e.Code = strings.TrimSpace(e.Code)
	e.ShortName = strings.TrimSpace(e.ShortName)
	e.Team = strings.TrimSpace(e.Team)
	e.Role = strings.TrimSpace(e.Role)
	e.Area = strings.TrimSpace(e.Area)
	return e
}

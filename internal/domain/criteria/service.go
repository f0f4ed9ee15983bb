package criteria

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"kpi/internal/domain/scoring"
)

type groupStore interface {
	ListGroups(ctx context.Context, applyDate time.Time) ([]Group, error)
	GetGroup(ctx context.Context, code string, applyDate time.Time) (Group, error)
	GroupExists(ctx context.Context, code string, applyDate time.Time) (bool, error)
	CreateGroup(ctx context.Context, g Group) error
	UpdateGroup(ctx context.Context, code string, applyDate time.Time, g Group) error
	DeleteGroup(ctx context.Context, code string, applyDate time.Time) error
}

type criterionStore interface {
	ListCriteria(ctx context.Context, filter Filter) ([]Criterion, error)
	GetCriterion(ctx context.Context, code string, applyDate time.Time) (Criterion, error)
	CreateCriterion(ctx context.Context, c Criterion) error
	UpdateCriterion(ctx context.Context, code string, applyDate time.Time, c Criterion) error
	DeleteCriterion(ctx context.Context, code string, applyDate time.Time) error
}

// Service authors groups and criteria. Apply dates are always stored as the
// first day of their month.
type Service struct {
	groups   groupStore
	criteria criterionStore
}

func NewService(store *Store) *Service {
	return &Service{groups: store, criteria: store}
}

func (s *Service) ListGroups(ctx context.Context, applyDate time.Time) ([]Group, error) {
	return s.groups.ListGroups(ctx, scoring.NormalizePeriod(applyDate))
}

func (s *Service) GetGroup(ctx context.Context, code string, applyDate time.Time) (Group, error) {
	return s.groups.GetGroup(ctx, code, scoring.NormalizePeriod(applyDate))
}

func (s *Service) CreateGroup(ctx context.Context, g Group) (Group, error) {
	g.Code = strings.TrimSpace(g.Code)
	g.Name = strings.TrimSpace(g.Name)
	g.ApplyDate = scoring.NormalizePeriod(g.ApplyDate)
	if err := s.groups.CreateGroup(ctx, g); err != nil {
		return Group{}, err
	}
	return g, nil
}

func (s *Service) UpdateGroup(ctx context.Context, code string, applyDate time.Time, g Group) error {
	g.Name = strings.TrimSpace(g.Name)
	return s.groups.UpdateGroup(ctx, code, scoring.NormalizePeriod(applyDate), g)
}

func (s *Service) DeleteGroup(ctx context.Context, code string, applyDate time.Time) error {
	return s.groups.DeleteGroup(ctx, code, scoring.NormalizePeriod(applyDate))
}

func (s *Service) ListCriteria(ctx context.Context, filter Filter) ([]Criterion, error) {
	filter.ApplyDate = scoring.NormalizePeriod(filter.ApplyDate)
	return s.criteria.ListCriteria(ctx, filter)
}

func (s *Service) GetCriterion(ctx context.Context, code string, applyDate time.Time) (Criterion, error) {
	return s.criteria.GetCriterion(ctx, code, scoring.NormalizePeriod(applyDate))
}

func (s *Service) CreateCriterion(ctx context.Context, c Criterion) (Criterion, error) {
	c.Code = strings.TrimSpace(c.Code)
	c.ApplyDate = scoring.NormalizePeriod(c.ApplyDate)
	if err := s.checkCriterion(ctx, c); err != nil {
		return Criterion{}, err
	}
	if err := s.criteria.CreateCriterion(ctx, c); err != nil {
		return Criterion{}, err
	}
	return c, nil
}

func (s *Service) UpdateCriterion(ctx context.Context, code string, applyDate time.Time, c Criterion) error {
	c.Code = code
	c.ApplyDate = scoring.NormalizePeriod(applyDate)
	if err := s.checkCriterion(ctx, c); err != nil {
		return err
	}
	return s.criteria.UpdateCriterion(ctx, code, c.ApplyDate, c)
}

func (s *Service) DeleteCriterion(ctx context.Context, code string, applyDate time.Time) error {
	return s.criteria.DeleteCriterion(ctx, code, scoring.NormalizePeriod(applyDate))
}

// checkCriterion enforces that the owning group row exists for the same
// apply date and that the weight is a fraction.
func (s *Service) checkCriterion(ctx context.Context, c Criterion) error {
	if c.Weight.LessThan(decimal.Zero) || c.Weight.GreaterThan(decimal.NewFromInt(1)) {
		return ErrInvalidWeight
	}
	exists, err := s.groups.GroupExists(ctx, c.GroupCode, c.ApplyDate)
	if err != nil {
		return err
	}
	if !exists {
		return ErrCriterionGroupMissing
	}
	return nil
}

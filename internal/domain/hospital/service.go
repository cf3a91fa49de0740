package hospital

import (
	"context"
	"errors"
	"strings"

	"github.com/hnms/hnms/internal/platform/apperror"
	"github.com/hnms/hnms/pkg/pagination"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, h *Hospital) error {
	h.Name = strings.TrimSpace(h.Name)
	if h.Name == "" {
		return apperror.Validation("Hospital name is required.")
	}
	if err := s.repo.Create(ctx, h); err != nil {
		return apperror.Internal("Error creating hospital.", err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Hospital, error) {
	h, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperror.NotFound("Hospital not found.")
	}
	if err != nil {
		return nil, apperror.Internal("Error retrieving hospital.", err)
	}
	return h, nil
}

func (s *Service) List(ctx context.Context, p pagination.Params) ([]*Hospital, int, error) {
	items, total, err := s.repo.List(ctx, p)
	if err != nil {
		return nil, 0, apperror.Internal("Error retrieving hospitals.", err)
	}
	return items, total, nil
}

// Exists reports whether a hospital with id exists.
func (s *Service) Exists(ctx context.Context, id int64) (bool, error) {
	ok, err := s.repo.Exists(ctx, id)
	if err != nil {
		return false, apperror.Internal("Error retrieving hospital.", err)
	}
	return ok, nil
}

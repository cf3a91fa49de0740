package hospital

import (
	"context"
	"errors"

	"github.com/hnms/hnms/pkg/pagination"
)

var ErrNotFound = errors.New("hospital: not found")

type Repository interface {
	Create(ctx context.Context, h *Hospital) error
	GetByID(ctx context.Context, id int64) (*Hospital, error)
	List(ctx context.Context, p pagination.Params) ([]*Hospital, int, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

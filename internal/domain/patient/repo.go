package patient

import (
	"context"
	"errors"

	"github.com/hnms/hnms/internal/platform/policy"
	"github.com/hnms/hnms/pkg/pagination"
)

// ErrNotFound is returned when no patient matches both the id and the scope.
var ErrNotFound = errors.New("patient: not found")

type Repository interface {
	Create(ctx context.Context, pt *Patient) error
	Get(ctx context.Context, id int64, scope policy.Scope) (*Patient, error)
	List(ctx context.Context, scope policy.Scope, search string, p pagination.Params) ([]*Patient, int, error)
	Update(ctx context.Context, id int64, req UpdateRequest) (*Patient, error)
	Delete(ctx context.Context, id int64) error
	MedicalRecords(ctx context.Context, patientID int64) ([]*MedicalRecord, error)
}

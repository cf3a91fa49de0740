package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/hnms/hnms/internal/platform/policy"
	"github.com/hnms/hnms/pkg/pagination"
)

var (
	// ErrNotFound is returned when no row matches both the id and the scope.
	ErrNotFound = errors.New("appointment: not found")

	// ErrSlotTaken is returned when the write would give a doctor two
	// scheduled appointments at the same instant.
	ErrSlotTaken = errors.New("appointment: doctor slot taken")

	// ErrPatientGone is returned when the patient was deleted between the
	// lookup and the insert.
	ErrPatientGone = errors.New("appointment: patient no longer exists")
)

type Repository interface {
	// PatientHospital returns the hospital owning the patient, if the
	// patient is visible under scope.
	PatientHospital(ctx context.Context, patientID int64, scope policy.Scope) (int64, error)
	FindDoctor(ctx context.Context, id int64) (*Doctor, error)

	Create(ctx context.Context, a *Appointment) error
	Get(ctx context.Context, id int64, scope policy.Scope) (*Appointment, error)
	List(ctx context.Context, scope policy.Scope, f ListFilter, p pagination.Params) ([]*Appointment, int, error)
	Update(ctx context.Context, id int64, req UpdateRequest) (*Appointment, error)

	// SlotTaken reports whether the doctor has a scheduled appointment at
	// exactly t, other than excludeID.
	SlotTaken(ctx context.Context, doctorID int64, t time.Time, excludeID int64) (bool, error)
	Schedule(ctx context.Context, doctorID int64, scope policy.Scope, w *Window) ([]*Appointment, error)
	ForPatient(ctx context.Context, patientID int64, scope policy.Scope, status Status) ([]*Appointment, error)
}

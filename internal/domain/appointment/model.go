package appointment

import (
	"fmt"
	"time"

	"github.com/hnms/hnms/internal/platform/apperror"
)

// Status is an appointment's lifecycle state.
type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusNoShow    Status = "NO_SHOW"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// CanTransition reports whether an appointment in from may move to to. Only
// SCHEDULED appointments change state; a terminal state accepts itself so
// that re-sending the current status is a no-op.
func CanTransition(from, to Status) bool {
	if !to.Valid() {
		return false
	}
	return from == to || from == StatusScheduled
}

func transitionError(from, to Status) error {
	return apperror.Conflict(fmt.Sprintf("Invalid status transition from %s to %s.", from, to))
}

// NormalizeTime maps t to the instant the datastore will store: UTC at
// microsecond precision. Slot comparisons use normalized times only.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// DefaultDuration is the length of an appointment created without one.
const DefaultDuration = 30

type Appointment struct {
	ID              int64     `json:"id"`
	PatientID       int64     `json:"patient_id"`
	DoctorID        int64     `json:"doctor_id"`
	HospitalID      int64     `json:"hospital_id"`
	PatientName     *string   `json:"patient_name,omitempty"`
	DoctorName      *string   `json:"doctor_name,omitempty"`
	HospitalName    *string   `json:"hospital_name,omitempty"`
	AppointmentTime time.Time `json:"appointment_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          Status    `json:"status"`
	Reason          *string   `json:"reason"`
	Notes           *string   `json:"notes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type CreateRequest struct {
	PatientID       int64      `json:"patient_id"`
	DoctorID        int64      `json:"doctor_id"`
	AppointmentTime *time.Time `json:"appointment_time"`
	DurationMinutes *int       `json:"duration_minutes"`
	Reason          *string    `json:"reason"`
	Notes           *string    `json:"notes"`
}

// UpdateRequest is a partial update. Nil fields keep their stored value.
type UpdateRequest struct {
	AppointmentTime *time.Time `json:"appointment_time"`
	DurationMinutes *int       `json:"duration_minutes"`
	Status          *Status    `json:"status"`
	Reason          *string    `json:"reason"`
	Notes           *string    `json:"notes"`
}

// Apply copies the non-nil fields of req onto a.
func (req UpdateRequest) Apply(a *Appointment) {
	if req.AppointmentTime != nil {
		a.AppointmentTime = NormalizeTime(*req.AppointmentTime)
	}
	if req.DurationMinutes != nil {
		a.DurationMinutes = *req.DurationMinutes
	}
	if req.Status != nil {
		a.Status = *req.Status
	}
	if req.Reason != nil {
		v := *req.Reason
		a.Reason = &v
	}
	if req.Notes != nil {
		v := *req.Notes
		a.Notes = &v
	}
}

// changes reports whether applying req to a would alter any stored field.
func (req UpdateRequest) changes(a *Appointment) bool {
	next := *a
	req.Apply(&next)
	return !next.AppointmentTime.Equal(a.AppointmentTime) ||
		next.DurationMinutes != a.DurationMinutes ||
		next.Status != a.Status ||
		!sameString(next.Reason, a.Reason) ||
		!sameString(next.Notes, a.Notes)
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// ListFilter holds the optional list filters. Zero values mean no filter.
type ListFilter struct {
	Status    Status
	DoctorID  int64
	PatientID int64
	Date      *time.Time
}

// Window is a half-open time range [From, To).
type Window struct {
	From time.Time
	To   time.Time
}

// Doctor is the subset of a user needed to book against them.
type Doctor struct {
	ID         int64
	HospitalID *int64
	Name       string
	IsActive   bool
}

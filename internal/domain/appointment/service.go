package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/hnms/hnms/internal/platform/apperror"
	"github.com/hnms/hnms/internal/platform/events"
	"github.com/hnms/hnms/internal/platform/metrics"
	"github.com/hnms/hnms/internal/platform/policy"
	"github.com/hnms/hnms/internal/platform/query"
	"github.com/hnms/hnms/pkg/pagination"
)

var (
	errNotAccessible        = apperror.NotFound("Appointment not found or access denied.")
	errPatientNotAccessible = apperror.NotFound("Patient not found or access denied.")
	errDoctorNotFound       = apperror.NotFound("Doctor not found.")
	errSlotTaken            = apperror.Conflict("Doctor already has an appointment at this time.")
	errNotReschedulable     = apperror.Conflict("Only scheduled appointments can be rescheduled.")
	errInvalidStatus        = apperror.Validation("Invalid status. Must be one of: SCHEDULED, COMPLETED, CANCELLED, NO_SHOW")
	errInvalidDuration      = apperror.Validation("Duration must be a positive number of minutes.")
)

type Service struct {
	repo    Repository
	events  *events.Emitter
	metrics *metrics.Metrics
}

// NewService wires the appointment service. emitter and m may be nil.
func NewService(repo Repository, emitter *events.Emitter, m *metrics.Metrics) *Service {
	return &Service{repo: repo, events: emitter, metrics: m}
}

// Create books a SCHEDULED appointment. The patient must be visible to p,
// the doctor must be an active DOCTOR of the patient's hospital, and the
// doctor must not already have a scheduled appointment at the same instant.
func (s *Service) Create(ctx context.Context, p policy.Principal, req CreateRequest) (*Appointment, error) {
	d, err := policy.Authorize(p, policy.AppointmentCreate, nil)
	if err != nil {
		return nil, err
	}
	if req.PatientID <= 0 || req.DoctorID <= 0 || req.AppointmentTime == nil || req.AppointmentTime.IsZero() {
		return nil, apperror.Validation("Patient ID, Doctor ID, and appointment time are required.")
	}
	duration := DefaultDuration
	if req.DurationMinutes != nil {
		duration = *req.DurationMinutes
	}
	if duration <= 0 {
		return nil, errInvalidDuration
	}

	hospitalID, err := s.patientHospital(ctx, req.PatientID, d.Scope)
	if err != nil {
		return nil, err
	}
	if err := s.checkDoctor(ctx, req.DoctorID, &hospitalID); err != nil {
		return nil, err
	}

	at := NormalizeTime(*req.AppointmentTime)
	if err := s.checkSlot(ctx, req.DoctorID, at, 0); err != nil {
		return nil, err
	}

	a := &Appointment{
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		HospitalID:      hospitalID,
		AppointmentTime: at,
		DurationMinutes: duration,
		Status:          StatusScheduled,
		Reason:          req.Reason,
		Notes:           req.Notes,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		if errors.Is(err, ErrPatientGone) {
			return nil, errPatientNotAccessible
		}
		return nil, s.writeError("Error creating appointment.", err)
	}

	s.events.Emit(ctx, events.AppointmentCreated, a.ID, &a.HospitalID, p.ID, a)
	return a, nil
}

// Get returns one appointment visible to p. A DOCTOR only sees their own.
func (s *Service) Get(ctx context.Context, p policy.Principal, id int64) (*Appointment, error) {
	d, err := policy.Authorize(p, policy.AppointmentRead, nil)
	if err != nil {
		return nil, err
	}
	return s.get(ctx, id, d.Scope)
}

func (s *Service) get(ctx context.Context, id int64, scope policy.Scope) (*Appointment, error) {
	a, err := s.repo.Get(ctx, id, scope)
	if errors.Is(err, ErrNotFound) {
		return nil, errNotAccessible
	}
	if err != nil {
		return nil, apperror.Internal("Error retrieving appointment.", err)
	}
	return a, nil
}

// List returns a page of appointments visible to p, newest first.
func (s *Service) List(ctx context.Context, p policy.Principal, f ListFilter, page pagination.Params) ([]*Appointment, int, error) {
	d, err := policy.Authorize(p, policy.AppointmentList, nil)
	if err != nil {
		return nil, 0, err
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, errInvalidStatus
	}
	items, total, err := s.repo.List(ctx, d.Scope, f, page)
	if err != nil {
		return nil, 0, apperror.Internal("Error retrieving appointments.", err)
	}
	if items == nil {
		items = []*Appointment{}
	}
	return items, total, nil
}

// Update applies a partial update. A changed time is re-checked for
// exclusivity against every other scheduled appointment of the doctor. A
// patch that changes nothing performs no write and emits no event.
func (s *Service) Update(ctx context.Context, p policy.Principal, id int64, req UpdateRequest) (*Appointment, error) {
	d, err := policy.Authorize(p, policy.AppointmentUpdate, nil)
	if err != nil {
		return nil, err
	}
	if req.DurationMinutes != nil && *req.DurationMinutes <= 0 {
		return nil, errInvalidDuration
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, errInvalidStatus
	}
	if req.AppointmentTime != nil {
		if req.AppointmentTime.IsZero() {
			return nil, apperror.Validation("Appointment time cannot be empty.")
		}
		at := NormalizeTime(*req.AppointmentTime)
		req.AppointmentTime = &at
	}

	a, err := s.get(ctx, id, d.Scope)
	if err != nil {
		return nil, err
	}
	if !req.changes(a) {
		return a, nil
	}

	next := *a
	req.Apply(&next)
	rescheduled := !next.AppointmentTime.Equal(a.AppointmentTime)

	if rescheduled && a.Status != StatusScheduled {
		return nil, errNotReschedulable
	}
	if next.Status != a.Status && !CanTransition(a.Status, next.Status) {
		return nil, transitionError(a.Status, next.Status)
	}
	if rescheduled && next.Status == StatusScheduled {
		if err := s.checkSlot(ctx, a.DoctorID, next.AppointmentTime, a.ID); err != nil {
			return nil, err
		}
	}

	updated, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return nil, s.writeError("Error updating appointment.", err)
	}

	evt := events.AppointmentUpdated
	switch {
	case updated.Status == StatusCancelled && a.Status != StatusCancelled:
		evt = events.AppointmentCancelled
	case rescheduled:
		evt = events.AppointmentRescheduled
	}
	s.events.Emit(ctx, evt, updated.ID, &updated.HospitalID, p.ID, updated)
	return updated, nil
}

// Cancel marks an appointment CANCELLED. The row is kept, and cancelling an
// already cancelled appointment succeeds without a write.
func (s *Service) Cancel(ctx context.Context, p policy.Principal, id int64) (*Appointment, error) {
	d, err := policy.Authorize(p, policy.AppointmentCancel, nil)
	if err != nil {
		return nil, err
	}
	a, err := s.get(ctx, id, d.Scope)
	if err != nil {
		return nil, err
	}
	if a.Status == StatusCancelled {
		return a, nil
	}
	if !CanTransition(a.Status, StatusCancelled) {
		return nil, transitionError(a.Status, StatusCancelled)
	}

	cancelled := StatusCancelled
	updated, err := s.repo.Update(ctx, id, UpdateRequest{Status: &cancelled})
	if err != nil {
		return nil, s.writeError("Error cancelling appointment.", err)
	}
	s.events.Emit(ctx, events.AppointmentCancelled, updated.ID, &updated.HospitalID, p.ID, updated)
	return updated, nil
}

// Schedule returns a doctor's scheduled appointments in ascending time
// order, optionally limited to a window. The doctor must belong to the
// caller's hospital. A DOCTOR asking for a colleague's schedule gets an
// empty list.
func (s *Service) Schedule(ctx context.Context, p policy.Principal, doctorID int64, w *Window) ([]*Appointment, error) {
	d, err := policy.Authorize(p, policy.AppointmentScheduleRead, nil)
	if err != nil {
		return nil, err
	}
	if err := s.checkDoctor(ctx, doctorID, d.Scope.HospitalID); err != nil {
		return nil, err
	}
	items, err := s.repo.Schedule(ctx, doctorID, d.Scope, w)
	if err != nil {
		return nil, apperror.Internal("Error retrieving doctor schedule.", err)
	}
	return items, nil
}

// ForPatient returns a patient's appointments, newest first, optionally
// filtered by status.
func (s *Service) ForPatient(ctx context.Context, p policy.Principal, patientID int64, status Status) ([]*Appointment, error) {
	d, err := policy.Authorize(p, policy.PatientAppointmentsRead, nil)
	if err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, errInvalidStatus
	}
	if _, err := s.patientHospital(ctx, patientID, d.Scope); err != nil {
		return nil, err
	}
	items, err := s.repo.ForPatient(ctx, patientID, d.Scope, status)
	if err != nil {
		return nil, apperror.Internal("Error retrieving appointments.", err)
	}
	return items, nil
}

// patientHospital resolves the patient under the hospital part of scope.
// The doctor part is dropped: a DOCTOR may book for any patient of their
// hospital.
func (s *Service) patientHospital(ctx context.Context, patientID int64, scope policy.Scope) (int64, error) {
	hospitalID, err := s.repo.PatientHospital(ctx, patientID, policy.Scope{HospitalID: scope.HospitalID})
	if errors.Is(err, ErrNotFound) {
		return 0, errPatientNotAccessible
	}
	if err != nil {
		return 0, apperror.Internal("Error retrieving patient.", err)
	}
	return hospitalID, nil
}

// checkDoctor requires an active DOCTOR. When hospitalID is set the doctor
// must belong to that hospital.
func (s *Service) checkDoctor(ctx context.Context, doctorID int64, hospitalID *int64) error {
	doc, err := s.repo.FindDoctor(ctx, doctorID)
	if errors.Is(err, ErrNotFound) {
		return errDoctorNotFound
	}
	if err != nil {
		return apperror.Internal("Error retrieving doctor.", err)
	}
	if !doc.IsActive {
		return errDoctorNotFound
	}
	if hospitalID != nil && (doc.HospitalID == nil || *doc.HospitalID != *hospitalID) {
		return errDoctorNotFound
	}
	return nil
}

// checkSlot is the fast-path exclusivity check. The unique index on
// scheduled (doctor_id, appointment_time) remains the enforcement point.
func (s *Service) checkSlot(ctx context.Context, doctorID int64, at time.Time, excludeID int64) error {
	taken, err := s.repo.SlotTaken(ctx, doctorID, at, excludeID)
	if err != nil {
		return apperror.Internal("Error checking doctor availability.", err)
	}
	if taken {
		s.metrics.SchedulingConflict()
		return errSlotTaken
	}
	return nil
}

func (s *Service) writeError(msg string, err error) error {
	if errors.Is(err, ErrSlotTaken) {
		s.metrics.SchedulingConflict()
		return errSlotTaken
	}
	if errors.Is(err, ErrNotFound) {
		return errNotAccessible
	}
	return apperror.Internal(msg, err)
}

// ScheduleWindow builds the schedule window from the date or week query
// values. date wins when both are set; neither means no window.
func ScheduleWindow(date, week string) (*Window, error) {
	switch {
	case date != "":
		t, err := query.ParseDate(date)
		if err != nil {
			return nil, apperror.Validation("Invalid date. Use YYYY-MM-DD.")
		}
		from, to := query.DayRange(t)
		return &Window{From: from, To: to}, nil
	case week != "":
		t, err := query.ParseDate(week)
		if err != nil {
			return nil, apperror.Validation("Invalid week. Use YYYY-MM-DD.")
		}
		from, to := query.WeekRange(t)
		return &Window{From: from, To: to}, nil
	}
	return nil, nil
}

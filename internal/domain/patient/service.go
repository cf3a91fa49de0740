package patient

import (
	"context"
	"errors"
	"strings"

	"github.com/hnms/hnms/internal/platform/apperror"
	"github.com/hnms/hnms/internal/platform/policy"
	"github.com/hnms/hnms/internal/platform/query"
	"github.com/hnms/hnms/pkg/pagination"
)

// HospitalDirectory answers whether a hospital exists. *hospital.Service
// satisfies it.
type HospitalDirectory interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// errNotAccessible is returned for a patient that does not exist and for one
// outside the caller's hospital alike.
var errNotAccessible = apperror.NotFound("Patient not found or access denied.")

type Service struct {
	repo      Repository
	hospitals HospitalDirectory
}

func NewService(repo Repository, hospitals HospitalDirectory) *Service {
	return &Service{repo: repo, hospitals: hospitals}
}

// List returns a page of the patients visible to p, optionally filtered by a
// name or email search term.
func (s *Service) List(ctx context.Context, p policy.Principal, search string, page pagination.Params) ([]*Patient, int, error) {
	d, err := policy.Authorize(p, policy.PatientList, nil)
	if err != nil {
		return nil, 0, err
	}
	items, total, err := s.repo.List(ctx, d.Scope, strings.TrimSpace(search), page)
	if err != nil {
		return nil, 0, apperror.Internal("Error retrieving patients.", err)
	}
	if items == nil {
		items = []*Patient{}
	}
	return items, total, nil
}

func (s *Service) Get(ctx context.Context, p policy.Principal, id int64) (*Patient, error) {
	return s.resolve(ctx, p, policy.PatientRead, id)
}

// resolve authorizes action and loads the patient under the resulting scope.
func (s *Service) resolve(ctx context.Context, p policy.Principal, action policy.Action, id int64) (*Patient, error) {
	d, err := policy.Authorize(p, action, nil)
	if err != nil {
		return nil, err
	}
	pt, err := s.repo.Get(ctx, id, d.Scope)
	if errors.Is(err, ErrNotFound) {
		return nil, errNotAccessible
	}
	if err != nil {
		return nil, apperror.Internal("Error retrieving patient.", err)
	}
	return pt, nil
}

// Create registers a patient. A SUPER_ADMIN must name the hospital; everyone
// else creates in their own hospital and may not name another.
func (s *Service) Create(ctx context.Context, p policy.Principal, req CreateRequest) (*Patient, error) {
	d, err := policy.Authorize(p, policy.PatientCreate, req.HospitalID)
	if err != nil {
		return nil, err
	}

	req.FullName = strings.TrimSpace(req.FullName)
	if req.FullName == "" {
		return nil, apperror.Validation("Patient name is required.")
	}
	dob, err := normalizeDob(req.Dob)
	if err != nil {
		return nil, err
	}

	var hospitalID int64
	switch {
	case d.Scope.HospitalID != nil:
		hospitalID = *d.Scope.HospitalID
	case req.HospitalID == nil:
		return nil, apperror.Validation("Hospital ID is required.")
	default:
		ok, err := s.hospitals.Exists(ctx, *req.HospitalID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperror.Validation("Hospital not found.")
		}
		hospitalID = *req.HospitalID
	}

	pt := &Patient{
		HospitalID:       hospitalID,
		FullName:         req.FullName,
		Dob:              dob,
		Gender:           req.Gender,
		Phone:            req.Phone,
		Email:            req.Email,
		Address:          req.Address,
		EmergencyContact: req.EmergencyContact,
		BloodType:        req.BloodType,
		Allergies:        req.Allergies,
	}
	if err := s.repo.Create(ctx, pt); err != nil {
		return nil, apperror.Internal("Error creating patient.", err)
	}
	return pt, nil
}

// Update applies a partial update to a patient visible to p.
func (s *Service) Update(ctx context.Context, p policy.Principal, id int64, req UpdateRequest) (*Patient, error) {
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return nil, apperror.Validation("Patient name cannot be empty.")
		}
		req.FullName = &name
	}
	if req.Dob != nil {
		if _, err := query.ParseDate(*req.Dob); err != nil {
			return nil, errInvalidDob
		}
	}

	if _, err := s.resolve(ctx, p, policy.PatientUpdate, id); err != nil {
		return nil, err
	}
	pt, err := s.repo.Update(ctx, id, req)
	if errors.Is(err, ErrNotFound) {
		return nil, errNotAccessible
	}
	if err != nil {
		return nil, apperror.Internal("Error updating patient.", err)
	}
	return pt, nil
}

// Delete removes a patient and, by cascade, their appointments and records.
func (s *Service) Delete(ctx context.Context, p policy.Principal, id int64) error {
	if _, err := s.resolve(ctx, p, policy.PatientDelete, id); err != nil {
		return err
	}
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return errNotAccessible
	}
	if err != nil {
		return apperror.Internal("Error deleting patient.", err)
	}
	return nil
}

// MedicalRecords returns a patient's records, newest first.
func (s *Service) MedicalRecords(ctx context.Context, p policy.Principal, id int64) ([]*MedicalRecord, error) {
	if _, err := s.resolve(ctx, p, policy.PatientRecordsRead, id); err != nil {
		return nil, err
	}
	records, err := s.repo.MedicalRecords(ctx, id)
	if err != nil {
		return nil, apperror.Internal("Error retrieving medical records.", err)
	}
	return records, nil
}

var errInvalidDob = apperror.Validation("Invalid date of birth. Use YYYY-MM-DD.")

// normalizeDob treats an empty string as absent and rejects anything that is
// not a calendar date.
func normalizeDob(dob *string) (*string, error) {
	if dob == nil || strings.TrimSpace(*dob) == "" {
		return nil, nil
	}
	v := strings.TrimSpace(*dob)
	if _, err := query.ParseDate(v); err != nil {
		return nil, errInvalidDob
	}
	return &v, nil
}

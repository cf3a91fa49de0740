// Package policy decides, for an authenticated principal and an action,
// whether the request is allowed and which row filter must be applied.
//
// Every function takes the Principal explicitly; nothing here reads request
// state, so the rules can be exercised without an HTTP harness.
package policy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hnms/hnms/internal/platform/apperror"
)

// Role is a principal's role.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleDoctor     Role = "DOCTOR"
	RoleNurse      Role = "NURSE"
	RolePatient    Role = "PATIENT"
)

var knownRoles = map[Role]bool{
	RoleSuperAdmin: true,
	RoleAdmin:      true,
	RoleDoctor:     true,
	RoleNurse:      true,
	RolePatient:    true,
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool { return knownRoles[r] }

// SelfRegistrable reports whether r may be chosen at public registration.
func (r Role) SelfRegistrable() bool { return r.Valid() && r != RoleSuperAdmin }

// Principal is an authenticated actor.
type Principal struct {
	ID         int64  `json:"id"`
	Role       Role   `json:"role"`
	HospitalID *int64 `json:"hospital_id"`
	Email      string `json:"email"`
}

// Authenticated reports whether p carries an identity.
func (p Principal) Authenticated() bool { return p.ID > 0 && p.Role.Valid() }

// IsSuperAdmin reports whether p bypasses tenant isolation.
func (p Principal) IsSuperAdmin() bool { return p.Role == RoleSuperAdmin }

// Action names an operation guarded by the evaluator.
type Action string

const (
	PatientList             Action = "patient.list"
	PatientRead             Action = "patient.read"
	PatientCreate           Action = "patient.create"
	PatientUpdate           Action = "patient.update"
	PatientDelete           Action = "patient.delete"
	PatientRecordsRead      Action = "patient.records.read"
	PatientAppointmentsRead Action = "patient.appointments.read"

	AppointmentList         Action = "appointment.list"
	AppointmentRead         Action = "appointment.read"
	AppointmentCreate       Action = "appointment.create"
	AppointmentUpdate       Action = "appointment.update"
	AppointmentCancel       Action = "appointment.cancel"
	AppointmentScheduleRead Action = "appointment.schedule.read"
)

var clinicalStaff = []Role{RoleSuperAdmin, RoleAdmin, RoleDoctor, RoleNurse}

// allowedRoles is the role allow-list per action. An action missing from the
// table is denied for everyone.
var allowedRoles = map[Action][]Role{
	PatientList:             clinicalStaff,
	PatientRead:             clinicalStaff,
	PatientCreate:           clinicalStaff,
	PatientUpdate:           clinicalStaff,
	PatientDelete:           {RoleSuperAdmin, RoleAdmin},
	PatientRecordsRead:      clinicalStaff,
	PatientAppointmentsRead: clinicalStaff,

	AppointmentList:         clinicalStaff,
	AppointmentRead:         clinicalStaff,
	AppointmentCreate:       clinicalStaff,
	AppointmentUpdate:       clinicalStaff,
	AppointmentCancel:       clinicalStaff,
	AppointmentScheduleRead: clinicalStaff,
}

// doctorNarrowed lists the actions for which a DOCTOR only sees rows where
// they are the assigned doctor.
var doctorNarrowed = map[Action]bool{
	AppointmentList:         true,
	AppointmentRead:         true,
	AppointmentScheduleRead: true,
	PatientAppointmentsRead: true,
}

// Scope is the row filter a permitted request must apply. A nil field means
// no restriction on that dimension.
type Scope struct {
	HospitalID *int64
	DoctorID   *int64
}

// Unrestricted reports whether the scope filters nothing.
func (s Scope) Unrestricted() bool { return s.HospitalID == nil && s.DoctorID == nil }

// Decision is the result of evaluating a request.
type Decision struct {
	Allowed bool
	Scope   Scope
	Reason  string
}

// AllowedRoles returns the allow-list for an action, sorted for stable output.
func AllowedRoles(action Action) []Role {
	roles := append([]Role(nil), allowedRoles[action]...)
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

// RoleAllowed reports whether role appears in the action's allow-list.
func RoleAllowed(role Role, action Action) bool {
	for _, r := range allowedRoles[action] {
		if r == role {
			return true
		}
	}
	return false
}

// Authorize evaluates p against action. resourceHospitalID is the owning
// hospital of the target when the caller already knows it (nil for list and
// create-by-default operations). A denied decision is always accompanied by
// a non-nil *apperror.Error.
func Authorize(p Principal, action Action, resourceHospitalID *int64) (Decision, error) {
	if !p.Authenticated() {
		return deny("not authenticated"), apperror.Unauthorized("Authentication required.")
	}

	if !RoleAllowed(p.Role, action) {
		reason := fmt.Sprintf("role %s may not perform %s", p.Role, action)
		return deny(reason), apperror.Forbidden(forbiddenMessage(action))
	}

	if p.IsSuperAdmin() {
		return Decision{Allowed: true, Reason: "super admin"}, nil
	}

	if p.HospitalID == nil {
		return deny("principal has no hospital"), apperror.Forbidden("User is not associated with any hospital.")
	}

	if resourceHospitalID != nil && *resourceHospitalID != *p.HospitalID {
		return deny("hospital mismatch"), apperror.Forbidden("Access denied to resources of another hospital.")
	}

	hospitalID := *p.HospitalID
	d := Decision{
		Allowed: true,
		Scope:   Scope{HospitalID: &hospitalID},
		Reason:  "hospital match",
	}
	if p.Role == RoleDoctor && doctorNarrowed[action] {
		doctorID := p.ID
		d.Scope.DoctorID = &doctorID
		d.Reason = "hospital match, own appointments"
	}
	return d, nil
}

func deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

func forbiddenMessage(action Action) string {
	roles := AllowedRoles(action)
	if len(roles) == 0 {
		return "Access denied."
	}
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return "Access denied. Required roles: " + strings.Join(names, ", ")
}

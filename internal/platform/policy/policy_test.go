package policy

import (
	"testing"

	"github.com/hnms/hnms/internal/platform/apperror"
)

func ptr(v int64) *int64 { return &v }

func TestAuthorize_Unauthenticated(t *testing.T) {
	d, err := Authorize(Principal{}, PatientList, nil)
	if d.Allowed {
		t.Fatal("expected deny for zero principal")
	}
	if apperror.KindOf(err) != apperror.KindUnauthorized {
		t.Errorf("expected unauthorized, got %v", err)
	}
}

func TestAuthorize_SuperAdminUnrestricted(t *testing.T) {
	p := Principal{ID: 1, Role: RoleSuperAdmin}
	for action := range allowedRoles {
		d, err := Authorize(p, action, ptr(99))
		if err != nil {
			t.Fatalf("%s: unexpected error %v", action, err)
		}
		if !d.Allowed || !d.Scope.Unrestricted() {
			t.Errorf("%s: expected unrestricted allow, got %+v", action, d)
		}
	}
}

func TestAuthorize_NoHospital(t *testing.T) {
	p := Principal{ID: 2, Role: RoleAdmin}
	d, err := Authorize(p, PatientList, nil)
	if d.Allowed {
		t.Fatal("expected deny for principal without hospital")
	}
	if apperror.KindOf(err) != apperror.KindForbidden {
		t.Errorf("expected forbidden, got %v", err)
	}
}

func TestAuthorize_TenantFilter(t *testing.T) {
	p := Principal{ID: 3, Role: RoleNurse, HospitalID: ptr(1)}
	d, err := Authorize(p, PatientList, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Scope.HospitalID == nil || *d.Scope.HospitalID != 1 {
		t.Errorf("expected hospital filter 1, got %+v", d.Scope)
	}
	if d.Scope.DoctorID != nil {
		t.Errorf("nurse should not get doctor filter")
	}
}

func TestAuthorize_TenantMismatch(t *testing.T) {
	p := Principal{ID: 3, Role: RoleAdmin, HospitalID: ptr(1)}
	d, err := Authorize(p, PatientRead, ptr(2))
	if d.Allowed {
		t.Fatal("expected deny on hospital mismatch")
	}
	if apperror.KindOf(err) != apperror.KindForbidden {
		t.Errorf("expected forbidden, got %v", err)
	}

	d, err = Authorize(p, PatientRead, ptr(1))
	if err != nil || !d.Allowed {
		t.Errorf("expected allow on matching hospital, got %+v %v", d, err)
	}
}

func TestAuthorize_RoleGating(t *testing.T) {
	tests := []struct {
		role    Role
		action  Action
		allowed bool
	}{
		{RoleAdmin, PatientDelete, true},
		{RoleSuperAdmin, PatientDelete, true},
		{RoleNurse, PatientDelete, false},
		{RoleDoctor, PatientDelete, false},
		{RolePatient, PatientList, false},
		{RolePatient, AppointmentRead, false},
		{RoleDoctor, AppointmentCreate, true},
		{RoleNurse, AppointmentCancel, true},
	}
	for _, tt := range tests {
		p := Principal{ID: 10, Role: tt.role, HospitalID: ptr(1)}
		// Same hospital: role gating must hold regardless of tenant match.
		d, err := Authorize(p, tt.action, ptr(1))
		if d.Allowed != tt.allowed {
			t.Errorf("%s %s: allowed=%v, want %v", tt.role, tt.action, d.Allowed, tt.allowed)
		}
		if !tt.allowed && apperror.KindOf(err) != apperror.KindForbidden {
			t.Errorf("%s %s: expected forbidden, got %v", tt.role, tt.action, err)
		}
	}
}

func TestAuthorize_RoleCheckedBeforeTenant(t *testing.T) {
	// A disallowed role without a hospital is rejected for its role.
	p := Principal{ID: 4, Role: RolePatient}
	d, err := Authorize(p, PatientList, nil)
	if d.Reason != "role PATIENT may not perform patient.list" {
		t.Errorf("unexpected reason: %q", d.Reason)
	}
	if apperror.KindOf(err) != apperror.KindForbidden {
		t.Errorf("expected forbidden, got %v", err)
	}
}

func TestAuthorize_DoctorNarrowing(t *testing.T) {
	p := Principal{ID: 7, Role: RoleDoctor, HospitalID: ptr(1)}

	for _, action := range []Action{AppointmentList, AppointmentRead, AppointmentScheduleRead, PatientAppointmentsRead} {
		d, err := Authorize(p, action, nil)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", action, err)
		}
		if d.Scope.DoctorID == nil || *d.Scope.DoctorID != 7 {
			t.Errorf("%s: expected doctor filter 7, got %+v", action, d.Scope)
		}
	}

	d, _ := Authorize(p, PatientList, nil)
	if d.Scope.DoctorID != nil {
		t.Error("patient listing should not be narrowed to the doctor")
	}
}

func TestAuthorize_UnknownAction(t *testing.T) {
	p := Principal{ID: 1, Role: RoleAdmin, HospitalID: ptr(1)}
	d, err := Authorize(p, Action("billing.read"), nil)
	if d.Allowed || err == nil {
		t.Error("expected unknown actions to be denied")
	}
}

func TestRole_SelfRegistrable(t *testing.T) {
	if RoleSuperAdmin.SelfRegistrable() {
		t.Error("super admin must not be self-registrable")
	}
	if !RoleDoctor.SelfRegistrable() {
		t.Error("doctor should be self-registrable")
	}
	if Role("JANITOR").SelfRegistrable() {
		t.Error("unknown role should not be registrable")
	}
}

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/hnms/hnms/internal/platform/apperror"
	"github.com/hnms/hnms/internal/platform/policy"
)

func contextWithPrincipal(p *policy.Principal) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if p != nil {
		req = req.WithContext(WithPrincipal(req.Context(), *p))
	}
	return e.NewContext(req, httptest.NewRecorder())
}

func TestRequireAction(t *testing.T) {
	tests := []struct {
		name     string
		p        *policy.Principal
		action   policy.Action
		wantKind apperror.Kind
		wantOK   bool
	}{
		{"no principal", nil, policy.PatientList, apperror.KindUnauthorized, false},
		{"admin deletes", &policy.Principal{ID: 1, Role: policy.RoleAdmin, HospitalID: ptr(1)}, policy.PatientDelete, 0, true},
		{"nurse deletes", &policy.Principal{ID: 2, Role: policy.RoleNurse, HospitalID: ptr(1)}, policy.PatientDelete, apperror.KindForbidden, false},
		{"patient lists", &policy.Principal{ID: 3, Role: policy.RolePatient, HospitalID: ptr(1)}, policy.PatientList, apperror.KindForbidden, false},
		{"doctor lists appointments", &policy.Principal{ID: 4, Role: policy.RoleDoctor, HospitalID: ptr(1)}, policy.AppointmentList, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := contextWithPrincipal(tt.p)
			err := RequireAction(tt.action)(okHandler)(c)
			if tt.wantOK {
				if err != nil {
					t.Errorf("expected pass, got %v", err)
				}
				return
			}
			if apperror.KindOf(err) != tt.wantKind {
				t.Errorf("expected %s, got %v", tt.wantKind, err)
			}
		})
	}
}

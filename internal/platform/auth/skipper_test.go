package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestAuthSkipper(t *testing.T) {
	tests := []struct {
		route  string
		public bool
	}{
		{"/health", true},
		{"/health/db", true},
		{"/metrics", true},
		{"/api/auth/login", true},
		{"/api/auth/register", true},
		{"/api/docs", true},
		{"/api/docs/openapi.json", true},
		{"/api/auth/me", false},
		{"/api/auth/change-password", false},
		{"/api/patients", false},
		{"/api/patients/:id", false},
		{"/api/appointments/doctor/:doctorId/schedule", false},
		{"/api/*", false},
	}

	e := echo.New()
	for _, tt := range tests {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.SetPath(tt.route)

		if got := AuthSkipper(c); got != tt.public {
			t.Errorf("AuthSkipper(%s) = %v, want %v", tt.route, got, tt.public)
		}
		if got := IsPublicPath(tt.route); got != tt.public {
			t.Errorf("IsPublicPath(%s) = %v, want %v", tt.route, got, tt.public)
		}
	}
}

// The matched route decides, not the raw URL, so a request path that merely
// looks public does not bypass authentication.
func TestAuthSkipper_UsesRouteTemplate(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/auth/login", nil), httptest.NewRecorder())
	c.SetPath("/api/auth/me")
	if AuthSkipper(c) {
		t.Error("expected route template to decide")
	}
}

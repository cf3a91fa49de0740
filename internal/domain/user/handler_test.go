package user

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/hnms/hnms/internal/platform/apperror"
	"github.com/hnms/hnms/internal/platform/auth"
)

func newJSONContext(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_RegisterAndLogin(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)

	c, rec := newJSONContext(http.MethodPost, "/api/auth/register",
		`{"name":"Dr Who","email":"who@example.com","password":"tardis-123","role":"DOCTOR","hospital_id":1}`)
	if err := h.Register(c); err != nil {
		t.Fatalf("register: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	c, rec = newJSONContext(http.MethodPost, "/api/auth/login", `{"email":"who@example.com","password":"tardis-123"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("login: %v", err)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["success"] != true || body["token"] == "" {
		t.Errorf("unexpected body: %v", body)
	}
	user := body["user"].(map[string]interface{})
	if user["role"] != "DOCTOR" {
		t.Errorf("unexpected user: %v", user)
	}
	if _, leaked := user["PasswordHash"]; leaked {
		t.Error("password hash must not be serialized")
	}
	if strings.Contains(rec.Body.String(), "$2a$") {
		t.Error("response contains a bcrypt hash")
	}
}

func TestHandler_LoginInvalidCredentials(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)

	c, _ := newJSONContext(http.MethodPost, "/api/auth/login", `{"email":"nobody@example.com","password":"whatever1"}`)
	err := h.Login(c)
	if !apperror.IsKind(err, apperror.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestHandler_MalformedBody(t *testing.T) {
	h := NewHandler(nil)
	c, _ := newJSONContext(http.MethodPost, "/api/auth/login", `{"email":`)
	if err := h.Login(c); !apperror.IsKind(err, apperror.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestHandler_Profile(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	res := registerNurse(t, svc)

	c, rec := newJSONContext(http.MethodGet, "/api/auth/me", "")
	c.SetRequest(c.Request().WithContext(auth.WithPrincipal(c.Request().Context(), res.User.Principal())))
	if err := h.GetProfile(c); err != nil {
		t.Fatalf("profile: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"email":"nina@example.com"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}

	c, rec = newJSONContext(http.MethodPost, "/api/auth/change-password", `{"current_password":"correct-horse","new_password":"brand-new-pass"}`)
	c.SetRequest(c.Request().WithContext(auth.WithPrincipal(c.Request().Context(), res.User.Principal())))
	if err := h.ChangePassword(c); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "Password changed successfully.") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestHandler_ProfileUnauthenticated(t *testing.T) {
	svc, _, _ := newTestService()
	c, _ := newJSONContext(http.MethodGet, "/api/auth/me", "")
	if err := NewHandler(svc).GetProfile(c); !apperror.IsKind(err, apperror.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestKindStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindForbidden, http.StatusForbidden},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := tt.kind.Status(); got != tt.want {
			t.Errorf("%s.Status() = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("lookup: %w", NotFound("Patient not found or access denied."))
	if KindOf(err) != KindNotFound {
		t.Errorf("expected not_found, got %s", KindOf(err))
	}
	if !IsKind(err, KindNotFound) {
		t.Error("expected IsKind to match through wrapping")
	}
	if KindOf(errors.New("boom")) != KindInternal {
		t.Error("expected plain errors to classify as internal")
	}
}

func TestErrorsIs_Sentinel(t *testing.T) {
	sentinel := Conflict("Doctor already has an appointment at this time.")
	err := fmt.Errorf("create: %w", Conflict("Doctor already has an appointment at this time."))
	if !errors.Is(err, sentinel) {
		t.Error("expected errors.Is to match same kind and message")
	}
	if errors.Is(err, Conflict("Email already registered.")) {
		t.Error("expected different message not to match")
	}
}

func TestInternal_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("failed to list patients", cause)
	if !errors.Is(err, cause) {
		t.Error("expected Internal to unwrap to its cause")
	}
}

func serve(t *testing.T, verbose bool, err error) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	e := echo.New()
	e.HTTPErrorHandler = HTTPErrorHandler(zerolog.Nop(), verbose)
	e.GET("/x", func(c echo.Context) error { return err })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var body map[string]interface{}
	if decodeErr := json.Unmarshal(rec.Body.Bytes(), &body); decodeErr != nil {
		t.Fatalf("failed to decode body: %v", decodeErr)
	}
	return rec, body
}

func TestHTTPErrorHandler_AppError(t *testing.T) {
	rec, body := serve(t, false, Forbidden("Access denied."))
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
	if body["success"] != false {
		t.Errorf("expected success=false, got %v", body["success"])
	}
	if body["message"] != "Access denied." {
		t.Errorf("unexpected message: %v", body["message"])
	}
}

func TestHTTPErrorHandler_HidesCauseInProduction(t *testing.T) {
	rec, body := serve(t, false, Internal("Failed to fetch patients.", errors.New("pq: relation missing")))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if _, ok := body["error"]; ok {
		t.Errorf("expected no error detail outside development, got %v", body["error"])
	}
}

func TestHTTPErrorHandler_ShowsCauseInDevelopment(t *testing.T) {
	_, body := serve(t, true, Internal("Failed to fetch patients.", errors.New("pq: relation missing")))
	if body["error"] != "pq: relation missing" {
		t.Errorf("expected cause in development, got %v", body["error"])
	}
}

func TestHTTPErrorHandler_PlainError(t *testing.T) {
	rec, body := serve(t, false, errors.New("secret detail"))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if body["message"] != "Internal server error." {
		t.Errorf("unexpected message: %v", body["message"])
	}
}

func TestHTTPErrorHandler_EchoHTTPError(t *testing.T) {
	rec, body := serve(t, false, echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded"))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", rec.Code)
	}
	if body["message"] != "rate limit exceeded" {
		t.Errorf("unexpected message: %v", body["message"])
	}
}

func TestHTTPErrorHandler_UnknownRoute(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = HTTPErrorHandler(zerolog.Nop(), false)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var body map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["message"] != "Route not found" {
		t.Errorf("unexpected message: %v", body["message"])
	}
}

func TestFromBind(t *testing.T) {
	tooLarge := echo.NewHTTPError(http.StatusRequestEntityTooLarge, "too large")
	if got := FromBind(tooLarge); got != tooLarge {
		t.Errorf("expected 413 to pass through, got %v", got)
	}

	err := FromBind(echo.NewHTTPError(http.StatusBadRequest, "syntax error"))
	if KindOf(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	var appErr *Error
	if !errors.As(err, &appErr) || appErr.Message != "Invalid request body." {
		t.Errorf("unexpected error: %v", err)
	}

	if KindOf(FromBind(errors.New("eof"))) != KindValidation {
		t.Error("expected plain bind error to be a validation error")
	}
}

package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func runHealth(t *testing.T, p Pinger) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health/db", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	stats := func() *PoolStats { return &PoolStats{TotalConns: 2, MaxConns: 20, Healthy: true} }
	if err := HealthHandler(p, stats)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return rec, body
}

func TestHealthHandler_Healthy(t *testing.T) {
	rec, body := runHealth(t, fakePinger{})
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if body["success"] != true {
		t.Errorf("expected success=true, got %v", body["success"])
	}
	data := body["data"].(map[string]interface{})
	if data["status"] != "healthy" {
		t.Errorf("expected healthy, got %v", data["status"])
	}
}

func TestHealthHandler_Unhealthy(t *testing.T) {
	rec, body := runHealth(t, fakePinger{err: errors.New("connection refused")})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	data := body["data"].(map[string]interface{})
	pool := data["pool"].(map[string]interface{})
	if pool["healthy"] != false {
		t.Errorf("expected pool marked unhealthy, got %v", pool["healthy"])
	}
	if _, leaked := body["error"]; leaked {
		t.Error("ping error must not be exposed")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: CodeUniqueViolation, ConstraintName: "users_email_key"})
	if !IsUniqueViolation(err, "") {
		t.Error("expected unique violation match")
	}
	if !IsUniqueViolation(err, "users_email_key") {
		t.Error("expected constraint match")
	}
	if IsUniqueViolation(err, "appointments_doctor_slot_key") {
		t.Error("expected different constraint not to match")
	}
	if IsUniqueViolation(errors.New("plain"), "") {
		t.Error("plain error must not match")
	}
	fk := &pgconn.PgError{Code: CodeForeignKeyViolation}
	if IsUniqueViolation(fk, "") || !IsForeignKeyViolation(fk, "") {
		t.Error("expected foreign key classification")
	}
}

func TestIsNoRows(t *testing.T) {
	if !IsNoRows(fmt.Errorf("get: %w", pgx.ErrNoRows)) {
		t.Error("expected wrapped ErrNoRows to match")
	}
	if IsNoRows(errors.New("other")) {
		t.Error("expected other error not to match")
	}
}

func TestConnFromContext_Empty(t *testing.T) {
	if ConnFromContext(context.Background()) != nil {
		t.Error("expected nil connection on bare context")
	}
}

type failingAcquirer struct{}

func (failingAcquirer) Acquire(ctx context.Context) (*pgxpool.Conn, error) {
	return nil, errors.New("pool exhausted")
}

func TestConnMiddleware_AcquireFailure(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/patients", nil), httptest.NewRecorder())

	called := false
	err := ConnMiddleware(failingAcquirer{})(func(c echo.Context) error {
		called = true
		return nil
	})(c)

	if called {
		t.Error("handler must not run without a connection")
	}
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %v", err)
	}
}

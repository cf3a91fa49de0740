package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hnms/hnms/internal/platform/auth"
	"github.com/hnms/hnms/internal/platform/metrics"
)

// auditEntry records who touched which patient data, when, from where, and
// with what result.
type auditEntry struct {
	UserID       int64
	Role         string
	HospitalID   *int64
	ResourceType string
	ResourceID   string
	PatientID    string
	Action       string // read, create, update, delete
	IPAddress    string
	UserAgent    string
	Path         string
	Method       string
	RequestID    string
	StatusCode   int
}

// Audit returns middleware that logs a phi_access event for every request to
// a patient or appointment route, after the handler has run. It must be
// installed after authentication so the principal is known. m may be nil.
func Audit(logger zerolog.Logger, m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			if !isAuditableRoute(route) {
				return next(c)
			}

			err := next(c)

			req := c.Request()
			entry := auditEntry{
				Path:         req.URL.Path,
				Method:       req.Method,
				IPAddress:    c.RealIP(),
				UserAgent:    req.UserAgent(),
				StatusCode:   responseStatus(c, err),
				Action:       httpMethodToAction(req.Method),
				ResourceType: resourceTypeOf(route),
				ResourceID:   c.Param("id"),
				PatientID:    patientIDOf(c, route),
			}
			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}
			if p, ok := auth.PrincipalFromContext(req.Context()); ok {
				entry.UserID = p.ID
				entry.Role = string(p.Role)
				entry.HospitalID = p.HospitalID
			}

			m.PHIAccess(entry.Role, entry.ResourceType, entry.Action, statusClass(entry.StatusCode))
			entry.log(logger)
			return err
		}
	}
}

func (e auditEntry) log(logger zerolog.Logger) {
	evt := logger.Info().
		Str("type", "phi_access").
		Str("request_id", e.RequestID).
		Int64("user_id", e.UserID).
		Str("role", e.Role).
		Str("resource_type", e.ResourceType).
		Str("resource_id", e.ResourceID).
		Str("patient_id", e.PatientID).
		Str("action", e.Action).
		Str("method", e.Method).
		Str("path", e.Path).
		Str("remote_ip", e.IPAddress).
		Str("user_agent", e.UserAgent).
		Int("status", e.StatusCode)
	if e.HospitalID != nil {
		evt = evt.Int64("hospital_id", *e.HospitalID)
	}
	evt.Msg("phi_access")
}

func isAuditableRoute(route string) bool {
	return strings.HasPrefix(route, "/api/patients") || strings.HasPrefix(route, "/api/appointments")
}

func httpMethodToAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// resourceTypeOf names the resource a route template addresses.
func resourceTypeOf(route string) string {
	switch {
	case strings.HasSuffix(route, "/medical-records"):
		return "MedicalRecord"
	case strings.HasSuffix(route, "/appointments"), strings.HasPrefix(route, "/api/appointments"):
		return "Appointment"
	case strings.HasPrefix(route, "/api/patients"):
		return "Patient"
	}
	return "unknown"
}

// patientIDOf returns the patient id addressed by the request, from the path
// for patient routes or from the patient_id filter on appointment routes.
func patientIDOf(c echo.Context, route string) string {
	if strings.HasPrefix(route, "/api/patients/:id") {
		return c.Param("id")
	}
	return c.QueryParam("patient_id")
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

package main

import (
	"net/http"

	"github.com/hnms/hnms/internal/platform/openapi"
)

var pageQuery = []string{"page", "limit"}

func describeRoutes(g *openapi.Generator) {
	g.Describe(http.MethodGet, "/health", openapi.Doc{Summary: "Liveness check"})
	g.Describe(http.MethodGet, "/health/db", openapi.Doc{Summary: "Database connectivity and pool statistics"})
	g.Describe(http.MethodGet, "/metrics", openapi.Doc{Summary: "Prometheus metrics"})

	g.Describe(http.MethodPost, "/api/auth/login", openapi.Doc{Summary: "Exchange credentials for a bearer token", Body: "LoginRequest"})
	g.Describe(http.MethodPost, "/api/auth/register", openapi.Doc{Summary: "Create a staff account", Body: "RegisterRequest"})
	g.Describe(http.MethodGet, "/api/auth/me", openapi.Doc{Summary: "Current user's profile"})
	g.Describe(http.MethodPut, "/api/auth/me", openapi.Doc{Summary: "Update the current user's name or phone"})
	g.Describe(http.MethodPost, "/api/auth/change-password", openapi.Doc{Summary: "Change the current user's password"})

	g.Describe(http.MethodGet, "/api/patients", openapi.Doc{Summary: "List patients visible to the caller", Query: append([]string{"search"}, pageQuery...)})
	g.Describe(http.MethodPost, "/api/patients", openapi.Doc{Summary: "Register a patient", Body: "Patient"})
	g.Describe(http.MethodGet, "/api/patients/:id", openapi.Doc{Summary: "Get a patient"})
	g.Describe(http.MethodPut, "/api/patients/:id", openapi.Doc{Summary: "Update a patient", Body: "Patient"})
	g.Describe(http.MethodDelete, "/api/patients/:id", openapi.Doc{Summary: "Delete a patient"})
	g.Describe(http.MethodGet, "/api/patients/:id/medical-records", openapi.Doc{Summary: "Medical records of a patient"})
	g.Describe(http.MethodGet, "/api/patients/:id/appointments", openapi.Doc{Summary: "Appointments of a patient", Query: []string{"status"}})

	g.Describe(http.MethodGet, "/api/appointments", openapi.Doc{
		Summary: "List appointments visible to the caller",
		Query:   append([]string{"status", "doctor_id", "patient_id", "date"}, pageQuery...),
	})
	g.Describe(http.MethodPost, "/api/appointments", openapi.Doc{Summary: "Book an appointment", Body: "Appointment"})
	g.Describe(http.MethodGet, "/api/appointments/doctor/:doctorId/schedule", openapi.Doc{Summary: "Scheduled appointments of a doctor", Query: []string{"date", "week"}})
	g.Describe(http.MethodGet, "/api/appointments/:id", openapi.Doc{Summary: "Get an appointment"})
	g.Describe(http.MethodPut, "/api/appointments/:id", openapi.Doc{Summary: "Reschedule or update an appointment", Body: "Appointment"})
	g.Describe(http.MethodDelete, "/api/appointments/:id", openapi.Doc{Summary: "Cancel an appointment"})
}

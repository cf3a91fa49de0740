package appointment

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hnms/hnms/internal/platform/apperror"
	"github.com/hnms/hnms/internal/platform/auth"
	"github.com/hnms/hnms/internal/platform/policy"
	"github.com/hnms/hnms/internal/platform/query"
	"github.com/hnms/hnms/pkg/pagination"
	"github.com/hnms/hnms/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/appointments")
	g.GET("", h.List, auth.RequireAction(policy.AppointmentList))
	g.POST("", h.Create, auth.RequireAction(policy.AppointmentCreate))
	g.GET("/doctor/:doctorId/schedule", h.Schedule, auth.RequireAction(policy.AppointmentScheduleRead))
	g.GET("/:id", h.Get, auth.RequireAction(policy.AppointmentRead))
	g.PUT("/:id", h.Update, auth.RequireAction(policy.AppointmentUpdate))
	g.DELETE("/:id", h.Cancel, auth.RequireAction(policy.AppointmentCancel))

	api.GET("/patients/:id/appointments", h.ForPatient, auth.RequireAction(policy.PatientAppointmentsRead))
}

func pathID(c echo.Context, name, label string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.Validationf("Invalid %s ID.", label)
	}
	return id, nil
}

// queryID parses an optional positive id filter; empty means unset.
func queryID(c echo.Context, name, label string) (int64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.Validationf("Invalid %s ID.", label)
	}
	return id, nil
}

func statusParam(c echo.Context) Status {
	return Status(strings.ToUpper(strings.TrimSpace(c.QueryParam("status"))))
}

func (h *Handler) List(c echo.Context) error {
	f := ListFilter{Status: statusParam(c)}
	var err error
	if f.DoctorID, err = queryID(c, "doctor_id", "doctor"); err != nil {
		return err
	}
	if f.PatientID, err = queryID(c, "patient_id", "patient"); err != nil {
		return err
	}
	if raw := c.QueryParam("date"); raw != "" {
		d, err := query.ParseDate(raw)
		if err != nil {
			return apperror.Validation("Invalid date. Use YYYY-MM-DD.")
		}
		f.Date = &d
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), auth.PrincipalFrom(c), f, pg)
	if err != nil {
		return err
	}
	return response.List(c, items, pg, total)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := pathID(c, "id", "appointment")
	if err != nil {
		return err
	}
	a, err := h.svc.Get(c.Request().Context(), auth.PrincipalFrom(c), id)
	if err != nil {
		return err
	}
	return response.OK(c, a)
}

func (h *Handler) Create(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return apperror.FromBind(err)
	}
	a, err := h.svc.Create(c.Request().Context(), auth.PrincipalFrom(c), req)
	if err != nil {
		return err
	}
	return response.Created(c, "Appointment created successfully.", a)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := pathID(c, "id", "appointment")
	if err != nil {
		return err
	}
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return apperror.FromBind(err)
	}
	a, err := h.svc.Update(c.Request().Context(), auth.PrincipalFrom(c), id, req)
	if err != nil {
		return err
	}
	return response.Updated(c, "Appointment updated successfully.", a)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := pathID(c, "id", "appointment")
	if err != nil {
		return err
	}
	a, err := h.svc.Cancel(c.Request().Context(), auth.PrincipalFrom(c), id)
	if err != nil {
		return err
	}
	return response.Updated(c, "Appointment cancelled successfully.", a)
}

func (h *Handler) Schedule(c echo.Context) error {
	doctorID, err := pathID(c, "doctorId", "doctor")
	if err != nil {
		return err
	}
	w, err := ScheduleWindow(c.QueryParam("date"), c.QueryParam("week"))
	if err != nil {
		return err
	}
	items, err := h.svc.Schedule(c.Request().Context(), auth.PrincipalFrom(c), doctorID, w)
	if err != nil {
		return err
	}
	return response.OK(c, items)
}

func (h *Handler) ForPatient(c echo.Context) error {
	patientID, err := pathID(c, "id", "patient")
	if err != nil {
		return err
	}
	items, err := h.svc.ForPatient(c.Request().Context(), auth.PrincipalFrom(c), patientID, statusParam(c))
	if err != nil {
		return err
	}
	return response.OK(c, items)
}

package patient

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hnms/hnms/internal/platform/apperror"
	"github.com/hnms/hnms/internal/platform/auth"
	"github.com/hnms/hnms/internal/platform/policy"
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
	g := api.Group("/patients")
	g.GET("", h.List, auth.RequireAction(policy.PatientList))
	g.POST("", h.Create, auth.RequireAction(policy.PatientCreate))
	g.GET("/:id", h.Get, auth.RequireAction(policy.PatientRead))
	g.PUT("/:id", h.Update, auth.RequireAction(policy.PatientUpdate))
	g.DELETE("/:id", h.Delete, auth.RequireAction(policy.PatientDelete))
	g.GET("/:id/medical-records", h.MedicalRecords, auth.RequireAction(policy.PatientRecordsRead))
}

func patientID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.Validation("Invalid patient ID.")
	}
	return id, nil
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), auth.PrincipalFrom(c), c.QueryParam("search"), pg)
	if err != nil {
		return err
	}
	return response.List(c, items, pg, total)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := patientID(c)
	if err != nil {
		return err
	}
	pt, err := h.svc.Get(c.Request().Context(), auth.PrincipalFrom(c), id)
	if err != nil {
		return err
	}
	return response.OK(c, pt)
}

func (h *Handler) Create(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return apperror.FromBind(err)
	}
	pt, err := h.svc.Create(c.Request().Context(), auth.PrincipalFrom(c), req)
	if err != nil {
		return err
	}
	return response.Created(c, "Patient created successfully.", pt)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := patientID(c)
	if err != nil {
		return err
	}
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return apperror.FromBind(err)
	}
	pt, err := h.svc.Update(c.Request().Context(), auth.PrincipalFrom(c), id, req)
	if err != nil {
		return err
	}
	return response.Updated(c, "Patient updated successfully.", pt)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := patientID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), auth.PrincipalFrom(c), id); err != nil {
		return err
	}
	return response.Message(c, "Patient deleted successfully.")
}

func (h *Handler) MedicalRecords(c echo.Context) error {
	id, err := patientID(c)
	if err != nil {
		return err
	}
	records, err := h.svc.MedicalRecords(c.Request().Context(), auth.PrincipalFrom(c), id)
	if err != nil {
		return err
	}
	return response.OK(c, records)
}

package user

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hnms/hnms/internal/platform/apperror"
	"github.com/hnms/hnms/internal/platform/auth"
	"github.com/hnms/hnms/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the auth endpoints on api. Login and register are
// exempted from authentication by the auth skipper; the rest act on the
// caller's own account and need no role.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/auth")
	g.POST("/login", h.Login)
	g.POST("/register", h.Register)
	g.GET("/me", h.GetProfile)
	g.PUT("/me", h.UpdateProfile)
	g.POST("/change-password", h.ChangePassword)
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.FromBind(err)
	}
	res, err := h.svc.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &response.Envelope{
		Success: true,
		Message: "Login successful.",
		Token:   res.Token,
		User:    res.User,
	})
}

func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.FromBind(err)
	}
	res, err := h.svc.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, &response.Envelope{
		Success: true,
		Message: "User registered successfully.",
		Token:   res.Token,
		User:    res.User,
	})
}

func (h *Handler) GetProfile(c echo.Context) error {
	u, err := h.svc.Profile(c.Request().Context(), auth.PrincipalFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &response.Envelope{Success: true, User: u})
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return apperror.FromBind(err)
	}
	u, err := h.svc.UpdateProfile(c.Request().Context(), auth.PrincipalFrom(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &response.Envelope{
		Success: true,
		Message: "Profile updated successfully.",
		User:    u,
	})
}

func (h *Handler) ChangePassword(c echo.Context) error {
	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperror.FromBind(err)
	}
	if err := h.svc.ChangePassword(c.Request().Context(), auth.PrincipalFrom(c), req); err != nil {
		return err
	}
	return response.Message(c, "Password changed successfully.")
}

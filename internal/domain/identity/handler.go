package identity

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/moinmakda/ChemoCareAI/internal/platform/auth"
	"github.com/moinmakda/ChemoCareAI/pkg/apperr"
	"github.com/moinmakda/ChemoCareAI/pkg/pagination"
	"github.com/moinmakda/ChemoCareAI/pkg/validate"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Public credential endpoints
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.POST("/auth/refresh", h.Refresh)
	api.POST("/auth/logout", h.Logout)
	api.POST("/auth/forgot-password", h.ForgotPassword)
	api.POST("/auth/reset-password", h.ResetPassword)

	authed := api.Group("", auth.RequireRole(auth.Everyone...))
	authed.GET("/auth/me", h.Me)
	authed.POST("/auth/change-password", h.ChangePassword)

	staffRead := api.Group("", auth.RequireRole(auth.MedicalStaff...))
	staffRead.GET("/doctors", h.ListDoctors)
	staffRead.GET("/doctors/:id", h.GetDoctor)
	staffRead.GET("/nurses", h.ListNurses)
	staffRead.GET("/nurses/:id", h.GetNurse)

	staffWrite := api.Group("", auth.RequireRole(auth.Admins...))
	staffWrite.POST("/doctors", h.CreateDoctor)
	staffWrite.POST("/nurses", h.CreateNurse)
}

// -- Auth handlers --

func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	u, err := h.svc.Register(c.Request().Context(), &req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	pair, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pair)
}

func (h *Handler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	pair, err := h.svc.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pair)
}

func (h *Handler) Logout(c echo.Context) error {
	var req LogoutRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	if err := h.svc.Logout(c.Request().Context(), req.RefreshToken); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Successfully logged out"})
}

func (h *Handler) Me(c echo.Context) error {
	u, err := h.svc.Me(c.Request().Context(), auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	if err := h.svc.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "If the email exists, a reset link will be sent"})
}

func (h *Handler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	if err := h.svc.ResetPassword(c.Request().Context(), req.Token, req.NewPassword); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Password reset successfully"})
}

func (h *Handler) ChangePassword(c echo.Context) error {
	var req ChangePasswordRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.svc.ChangePassword(ctx, auth.UserIDFromContext(ctx), req.CurrentPassword, req.NewPassword); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Password changed successfully"})
}

// -- Staff handlers --

func (h *Handler) CreateDoctor(c echo.Context) error {
	var req CreateDoctorRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	d, err := h.svc.CreateDoctor(c.Request().Context(), &req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) GetDoctor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.svc.GetDoctor(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListDoctors(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewPage(items, total, pg))
}

func (h *Handler) CreateNurse(c echo.Context) error {
	var req CreateNurseRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	n, err := h.svc.CreateNurse(c.Request().Context(), &req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, n)
}

func (h *Handler) GetNurse(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	n, err := h.svc.GetNurse(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, n)
}

func (h *Handler) ListNurses(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListNurses(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewPage(items, total, pg))
}

package treatment

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/moinmakda/ChemoCareAI/internal/platform/auth"
	"github.com/moinmakda/ChemoCareAI/pkg/apperr"
	"github.com/moinmakda/ChemoCareAI/pkg/validate"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Doctors
	doctors := api.Group("", auth.RequireRole(auth.Doctors...))
	doctors.POST("/protocols", h.CreateProtocol)
	doctors.POST("/treatment-plans", h.CreatePlan)
	doctors.PUT("/treatment-plans/:id", h.UpdatePlan)
	doctors.POST("/treatment-plans/:id/approve-opd", h.ApproveOPD)
	doctors.POST("/treatment-plans/:id/approve-daycare", h.ApproveDaycare)
	doctors.POST("/cycles/:id/approve", h.ApproveCycle)

	// Medical staff
	staff := api.Group("", auth.RequireRole(auth.MedicalStaff...))
	staff.GET("/protocols", h.ListProtocols)
	staff.GET("/protocols/:id", h.GetProtocol)
	staff.POST("/treatment-plans/:id/cycles", h.CreateCycle)
	staff.PUT("/cycles/:id", h.UpdateCycle)
	staff.POST("/cycles/:id/start", h.StartCycle)
	staff.POST("/cycles/:id/complete", h.CompleteCycle)
	staff.PUT("/drug-admin/:id", h.UpdateAdministration)

	// Everyone; patients are limited to their own plans.
	members := api.Group("", auth.RequireRole(auth.Everyone...))
	members.GET("/treatment-plans/:id", h.GetPlan)
	members.GET("/treatment-plans/:id/cycles", h.ListCycles)
	members.GET("/cycles/:id", h.GetCycle)
	members.GET("/cycles/:id/drugs", h.ListAdministrations)
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func optionalQuery(c echo.Context, name string) *string {
	if v := c.QueryParam(name); v != "" {
		return &v
	}
	return nil
}

// -- Protocol Templates --

func (h *Handler) CreateProtocol(c echo.Context) error {
	var req CreateProtocolRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	p, err := h.svc.CreateProtocol(c.Request().Context(), &req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetProtocol(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetProtocol(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListProtocols(c echo.Context) error {
	isActive := true
	if v := c.QueryParam("is_active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "is_active must be a boolean")
		}
		isActive = b
	}
	items, err := h.svc.ListProtocols(c.Request().Context(), c.QueryParam("cancer_type"), isActive)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

// -- Treatment Plans --

func (h *Handler) CreatePlan(c echo.Context) error {
	var req CreatePlanRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	p, err := h.svc.CreatePlan(c.Request().Context(), &req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPlan(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetPlan(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdatePlan(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req UpdatePlanRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	p, err := h.svc.UpdatePlan(c.Request().Context(), id, &req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ApproveOPD(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.ApproveOPD(c.Request().Context(), id, optionalQuery(c, "notes"))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ApproveDaycare(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.ApproveDaycare(c.Request().Context(), id, optionalQuery(c, "notes"))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

// -- Treatment Cycles --

func (h *Handler) ListCycles(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListCycles(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) CreateCycle(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req CreateCycleRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	cy, err := h.svc.CreateCycle(c.Request().Context(), id, &req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, cy)
}

func (h *Handler) GetCycle(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	cy, err := h.svc.GetCycle(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, cy)
}

func (h *Handler) UpdateCycle(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req UpdateCycleRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	cy, err := h.svc.UpdateCycle(c.Request().Context(), id, &req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, cy)
}

func (h *Handler) ApproveCycle(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	cy, err := h.svc.ApproveCycle(c.Request().Context(), id, optionalQuery(c, "notes"))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, cy)
}

func (h *Handler) StartCycle(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	cy, err := h.svc.StartCycle(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, cy)
}

func (h *Handler) CompleteCycle(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	cy, err := h.svc.CompleteCycle(c.Request().Context(), id,
		optionalQuery(c, "discharge_notes"), optionalQuery(c, "follow_up_instructions"))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, cy)
}

// -- Drug Administrations --

func (h *Handler) ListAdministrations(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListAdministrations(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) UpdateAdministration(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req UpdateAdministrationRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	a, err := h.svc.UpdateAdministration(c.Request().Context(), id, &req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

package advisor

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/moinmakda/ChemoCareAI/internal/domain/dosing"
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

// RegisterRoutes mounts the /ai routes. mw runs before the role checks, so a
// rate limiter passed here covers every recommender call.
func (h *Handler) RegisterRoutes(api *echo.Group, mw ...echo.MiddlewareFunc) {
	ai := api.Group("/ai", mw...)
	ai.GET("/health", h.Health)

	doctors := ai.Group("", auth.RequireRole(auth.Doctors...))
	doctors.POST("/generate-protocol", h.GenerateProtocol)
	doctors.POST("/risk-assessment", h.AssessRisk)

	staff := ai.Group("", auth.RequireRole(auth.MedicalStaff...))
	staff.POST("/dose-calculator", h.CalculateDose)
	staff.POST("/analyze-labs", h.AnalyzeLabs)
	staff.POST("/drug-interactions", h.CheckInteractions)
	staff.POST("/symptom-analysis", h.AnalyzeSymptoms)
	staff.GET("/recommendations/:patient_id", h.Recommendations)

	patients := ai.Group("", auth.RequireRole(auth.Patients...))
	patients.POST("/chat", h.Chat)
}

func (h *Handler) GenerateProtocol(c echo.Context) error {
	var req GenerateProtocolRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	res, err := h.svc.GenerateProtocol(c.Request().Context(), &req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) CalculateDose(c echo.Context) error {
	var in dosing.DoseInput
	if err := validate.Bind(c, &in); err != nil {
		return err
	}
	res, err := h.svc.CalculateDose(c.Request().Context(), &in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) AssessRisk(c echo.Context) error {
	var req RiskRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	res, err := h.svc.AssessRisk(c.Request().Context(), &req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) AnalyzeLabs(c echo.Context) error {
	var in dosing.LabInput
	if err := validate.Bind(c, &in); err != nil {
		return err
	}
	if len(in.Labs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "labs is required")
	}
	res, err := h.svc.AnalyzeLabs(c.Request().Context(), &in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) CheckInteractions(c echo.Context) error {
	var req InteractionRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	res, err := h.svc.CheckInteractions(c.Request().Context(), &req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) AnalyzeSymptoms(c echo.Context) error {
	var req dosing.SymptomRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	res, err := h.svc.AnalyzeSymptoms(c.Request().Context(), &req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Recommendations(c echo.Context) error {
	id, err := uuid.Parse(c.Param("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	res, err := h.svc.Recommendations(c.Request().Context(), id, c.QueryParam("current_status"))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Chat(c echo.Context) error {
	var req ChatRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	res, err := h.svc.Chat(c.Request().Context(), &req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Health())
}

package clinical

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/moinmakda/ChemoCareAI/internal/platform/auth"
	"github.com/moinmakda/ChemoCareAI/pkg/apperr"
	"github.com/moinmakda/ChemoCareAI/pkg/civil"
	"github.com/moinmakda/ChemoCareAI/pkg/pagination"
	"github.com/moinmakda/ChemoCareAI/pkg/validate"
)

// Default page sizes per listing.
const (
	vitalsLimit        = 20
	symptomsLimit      = 30
	notificationsLimit = 50
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	nurses := api.Group("", auth.RequireRole(auth.Nurses...))
	nurses.POST("/vitals", h.RecordVitals)

	patients := api.Group("", auth.RequireRole(auth.Patients...))
	patients.POST("/vitals/me", h.RecordMyVitals)
	patients.GET("/vitals/me", h.MyVitals)
	patients.POST("/symptoms/me", h.LogMySymptoms)
	patients.GET("/symptoms/me", h.MySymptoms)

	staff := api.Group("", auth.RequireRole(auth.MedicalStaff...))
	staff.POST("/appointments/:id/checkin", h.CheckIn)
	staff.POST("/appointments/:id/checkout", h.CheckOut)

	members := api.Group("", auth.RequireRole(auth.Everyone...))
	members.GET("/vitals/cycle/:cycle_id", h.CycleVitals)
	members.GET("/vitals/:patient_id", h.PatientVitals)
	members.POST("/patients/:id/symptoms", h.LogSymptoms)
	members.GET("/patients/:id/symptoms", h.ListSymptoms)

	members.GET("/appointments", h.ListAppointments)
	members.POST("/appointments", h.CreateAppointment)
	members.GET("/appointments/:id", h.GetAppointment)
	members.PUT("/appointments/:id", h.UpdateAppointment)
	members.DELETE("/appointments/:id", h.CancelAppointment)

	members.GET("/notifications", h.ListNotifications)
	members.PUT("/notifications/read-all", h.MarkAllRead)
	members.PUT("/notifications/:id/read", h.MarkRead)
}

func paramID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// -- Vitals --

func (h *Handler) RecordVitals(c echo.Context) error {
	var req RecordVitalRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	v, err := h.svc.RecordVitals(c.Request().Context(), &req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler) RecordMyVitals(c echo.Context) error {
	var req SelfVitalRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	v, err := h.svc.RecordMyVitals(c.Request().Context(), &req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler) MyVitals(c echo.Context) error {
	limit, err := pagination.Limit(c, vitalsLimit)
	if err != nil {
		return err
	}
	items, err := h.svc.MyVitals(c.Request().Context(), limit)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) PatientVitals(c echo.Context) error {
	id, err := paramID(c, "patient_id")
	if err != nil {
		return err
	}
	limit, err := pagination.Limit(c, vitalsLimit)
	if err != nil {
		return err
	}
	items, err := h.svc.PatientVitals(c.Request().Context(), id, limit)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) CycleVitals(c echo.Context) error {
	id, err := paramID(c, "cycle_id")
	if err != nil {
		return err
	}
	items, err := h.svc.CycleVitals(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

// -- Symptoms --

func (h *Handler) LogSymptoms(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req CreateSymptomRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	e, err := h.svc.LogSymptoms(c.Request().Context(), id, &req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) LogMySymptoms(c echo.Context) error {
	var req CreateSymptomRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	e, err := h.svc.LogMySymptoms(c.Request().Context(), &req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) ListSymptoms(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	limit, err := pagination.Limit(c, symptomsLimit)
	if err != nil {
		return err
	}
	items, err := h.svc.ListSymptoms(c.Request().Context(), id, limit)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) MySymptoms(c echo.Context) error {
	limit, err := pagination.Limit(c, symptomsLimit)
	if err != nil {
		return err
	}
	items, err := h.svc.MySymptoms(c.Request().Context(), limit)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

// -- Appointments --

func (h *Handler) ListAppointments(c echo.Context) error {
	var f AppointmentFilter
	if v := c.QueryParam("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		f.PatientID = &id
	}
	if v := c.QueryParam("scheduled_date"); v != "" {
		d, err := civil.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "scheduled_date must be YYYY-MM-DD")
		}
		f.ScheduledDate = &d
	}
	if v := c.QueryParam("status"); v != "" {
		st := AppointmentStatus(v)
		f.Status = &st
	}
	items, err := h.svc.ListAppointments(c.Request().Context(), f)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	var req CreateAppointmentRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	a, err := h.svc.CreateAppointment(c.Request().Context(), &req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	a, err := h.svc.GetAppointment(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) UpdateAppointment(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req UpdateAppointmentRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	a, err := h.svc.UpdateAppointment(c.Request().Context(), id, &req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) CheckIn(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	a, err := h.svc.CheckIn(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) CheckOut(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	a, err := h.svc.CheckOut(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) CancelAppointment(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var reason *string
	if v := c.QueryParam("reason"); v != "" {
		reason = &v
	}
	if err := h.svc.CancelAppointment(c.Request().Context(), id, reason); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Notifications --

func (h *Handler) ListNotifications(c echo.Context) error {
	limit, err := pagination.Limit(c, notificationsLimit)
	if err != nil {
		return err
	}
	unreadOnly := false
	if v := c.QueryParam("unread_only"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unread_only must be a boolean")
		}
		unreadOnly = b
	}
	items, err := h.svc.ListNotifications(c.Request().Context(), unreadOnly, limit)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) MarkRead(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.MarkRead(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Notification marked as read"})
}

func (h *Handler) MarkAllRead(c echo.Context) error {
	n, err := h.svc.MarkAllRead(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Marked %d notifications as read", n),
	})
}

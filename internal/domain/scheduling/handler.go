package scheduling

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := auth.RequireRole(auth.RoleDoctor, auth.RoleReceptionist)
	anyRole := auth.RequireRole(auth.RolePatient, auth.RoleDoctor, auth.RoleReceptionist)

	// Requests: patients file and withdraw, staff triage.
	api.POST("/appointment-requests", h.CreateRequest, anyRole)
	api.GET("/appointment-requests", h.ListRequestsByStatus, staff)
	api.GET("/appointment-requests/:id", h.GetRequest, anyRole)
	api.PUT("/appointment-requests/:id/preferred-time", h.UpdateRequestPreferredTime, auth.RequireRole(auth.RolePatient))
	api.POST("/appointment-requests/:id/cancel", h.CancelRequest, anyRole)
	api.POST("/appointment-requests/:id/approve", h.ApproveRequest, staff)
	api.POST("/appointment-requests/:id/reject", h.RejectRequest, staff)
	api.POST("/appointment-requests/:id/schedule", h.ScheduleRequest, staff)

	// Appointments: staff book, patients and staff see and cancel.
	api.POST("/appointments", h.CreateAppointment, staff)
	api.GET("/appointments/:id", h.GetAppointment, anyRole)
	api.POST("/appointments/:id/complete", h.CompleteAppointment, auth.RequireRole(auth.RoleDoctor))
	api.POST("/appointments/:id/cancel", h.CancelAppointment, anyRole)
	api.POST("/appointments/:id/miss", h.MissAppointment, staff)

	api.GET("/patients/:profile_id/appointment-requests", h.ListRequestsByPatient, anyRole)
	api.GET("/patients/:profile_id/appointments", h.ListAppointmentsByPatient, anyRole)
	api.GET("/doctors/:profile_id/appointments", h.ListAppointmentsByDoctor, staff)
	api.GET("/doctors/:profile_id/availability", h.FindAvailability, anyRole)
}

// httpError maps the domain's sentinel errors onto HTTP statuses. Anything
// unrecognized is treated as a bad request.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNoAvailability):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrCancellationClosed):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// -- Appointment request handlers --

func (h *Handler) CreateRequest(c echo.Context) error {
	var p CreateRequestParams
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req, err := h.svc.CreateAppointmentRequest(c.Request().Context(), p)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, req)
}

func (h *Handler) GetRequest(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	req, err := h.svc.GetRequest(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) ListRequestsByStatus(c echo.Context) error {
	status := RequestStatus(c.QueryParam("status"))
	if status == "" {
		status = RequestPending
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListRequestsByStatus(c.Request().Context(), status, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListRequestsByPatient(c echo.Context) error {
	profileID, err := pathID(c, "profile_id")
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListRequestsByPatient(c.Request().Context(), profileID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateRequestPreferredTime(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var body struct {
		PreferredAt time.Time `json:"preferred_at"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req, err := h.svc.UpdateRequestPreferredTime(c.Request().Context(), id, body.PreferredAt)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) ApproveRequest(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var body struct {
		AppointmentID int64   `json:"appointment_id"`
		HandlingNotes *string `json:"handling_notes,omitempty"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req, err := h.svc.ApproveRequest(c.Request().Context(), id, body.AppointmentID,
		auth.ProfileIDFromContext(c.Request().Context()), body.HandlingNotes)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) RejectRequest(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var body struct {
		HandlingNotes string `json:"handling_notes"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req, err := h.svc.RejectRequest(c.Request().Context(), id, auth.ProfileIDFromContext(c.Request().Context()), body.HandlingNotes)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) CancelRequest(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	req, err := h.svc.CancelRequest(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) ScheduleRequest(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var p ScheduleRequestParams
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.HandledByProfileID = auth.ProfileIDFromContext(c.Request().Context())
	appt, err := h.svc.ScheduleRequest(c.Request().Context(), id, p)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, appt)
}

// -- Appointment handlers --

func (h *Handler) CreateAppointment(c echo.Context) error {
	var p CreateAppointmentParams
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.CreatedByProfileID = auth.ProfileIDFromContext(c.Request().Context())
	appt, err := h.svc.CreateAppointment(c.Request().Context(), p)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, appt)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	appt, err := h.svc.GetAppointment(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) ListAppointmentsByPatient(c echo.Context) error {
	profileID, err := pathID(c, "profile_id")
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAppointmentsByPatient(c.Request().Context(), profileID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListAppointmentsByDoctor(c echo.Context) error {
	profileID, err := pathID(c, "profile_id")
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAppointmentsByDoctor(c.Request().Context(), profileID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) FindAvailability(c echo.Context) error {
	profileID, err := pathID(c, "profile_id")
	if err != nil {
		return err
	}
	from, err := time.Parse(time.RFC3339, c.QueryParam("from"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid from, want RFC3339")
	}
	to, err := time.Parse(time.RFC3339, c.QueryParam("to"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid to, want RFC3339")
	}
	minutes := 30
	if v := c.QueryParam("duration_minutes"); v != "" {
		minutes, err = strconv.Atoi(v)
		if err != nil || minutes <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid duration_minutes")
		}
	}

	slot, err := h.svc.FindAvailability(c.Request().Context(), profileID,
		Interval{Start: from, End: to}, time.Duration(minutes)*time.Minute)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, slot)
}

func (h *Handler) CompleteAppointment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var body struct {
		DoctorNotes *string `json:"doctor_notes,omitempty"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	appt, err := h.svc.CompleteAppointment(c.Request().Context(), id, body.DoctorNotes)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) CancelAppointment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var body struct {
		CancellationReason string `json:"cancellation_reason"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	appt, err := h.svc.CancelAppointment(c.Request().Context(), id,
		auth.ProfileIDFromContext(c.Request().Context()), body.CancellationReason)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) MissAppointment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	appt, err := h.svc.MissAppointment(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, appt)
}

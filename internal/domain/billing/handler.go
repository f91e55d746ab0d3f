package billing

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/tshakameya123/Kaga-Hospital/internal/domain/identity"
	"github.com/tshakameya123/Kaga-Hospital/internal/platform/auth"
	"github.com/tshakameya123/Kaga-Hospital/internal/platform/middleware"
	"github.com/tshakameya123/Kaga-Hospital/pkg/apperrors"
	"github.com/tshakameya123/Kaga-Hospital/pkg/pagination"
)

// Patients maps a signed-in account to its patient profile.
type Patients interface {
	GetPatientByUserID(ctx context.Context, userID uuid.UUID) (*identity.Patient, error)
}

type Handler struct {
	svc      *Service
	patients Patients
}

func NewHandler(svc *Service, patients Patients) *Handler {
	return &Handler{svc: svc, patients: patients}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/bookings", auth.RequireAuth())
	g.GET("", h.ListBookings, auth.RequireRole(auth.RoleDoctor))
	g.POST("", h.CreateBooking)
	g.GET("/:id", h.GetBooking)
	g.GET("/:id/receipt", h.GetReceipt)
	g.PUT("/:id", h.UpdateBooking, auth.RequireRole(auth.RoleDoctor))
	g.PATCH("/:id/status", h.TransitionBooking, auth.RequireRole(auth.RoleDoctor))
	g.DELETE("/:id", h.DeleteBooking, auth.RequireRole(auth.RoleAdmin))
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperrors.Validation("invalid id")
	}
	return id, nil
}

// ownsAppointment lets staff through and checks patients pay only for
// their own appointments.
func (h *Handler) ownsAppointment(c echo.Context, appointmentID uuid.UUID) error {
	ctx := c.Request().Context()
	if auth.HasRole(ctx, auth.RoleDoctor) {
		return nil
	}
	uid, ok := auth.UserUUID(ctx)
	if !ok {
		return apperrors.Unauthorized("authentication required")
	}
	p, err := h.patients.GetPatientByUserID(ctx, uid)
	if apperrors.IsKind(err, apperrors.KindNotFound) {
		return apperrors.Forbidden("no patient profile for this account")
	}
	if err != nil {
		return err
	}
	a, err := h.svc.appointments.Get(ctx, appointmentID)
	if err != nil {
		return err
	}
	if a.PatientID != p.ID {
		return apperrors.NotFound("appointment not found")
	}
	return nil
}

func (h *Handler) ListBookings(c echo.Context) error {
	f := BookingFilter{Status: Status(c.QueryParam("status")), Method: Method(c.QueryParam("method"))}
	if v := c.QueryParam("appointmentId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperrors.Validation("invalid appointmentId")
		}
		f.AppointmentID = &id
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) CreateBooking(c echo.Context) error {
	var in CreateBookingInput
	if err := middleware.BindAndValidate(c, &in); err != nil {
		return err
	}
	if err := h.ownsAppointment(c, in.AppointmentID); err != nil {
		return err
	}
	b, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) GetBooking(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	b, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if err := h.ownsAppointment(c, b.AppointmentID); err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return apperrors.NotFound("booking not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, b)
}

// GetReceipt streams the booking's receipt as a PDF.
func (h *Handler) GetReceipt(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	b, err := h.svc.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := h.ownsAppointment(c, b.AppointmentID); err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return apperrors.NotFound("booking not found")
		}
		return err
	}
	var buf bytes.Buffer
	if err := h.svc.WriteReceipt(ctx, id, &buf); err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("inline; filename=receipt-%s.pdf", id))
	return c.Blob(http.StatusOK, "application/pdf", buf.Bytes())
}

func (h *Handler) UpdateBooking(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in UpdateBookingInput
	if err := middleware.BindAndValidate(c, &in); err != nil {
		return err
	}
	b, err := h.svc.Update(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

type transitionRequest struct {
	Status Status `json:"status" validate:"required"`
}

func (h *Handler) TransitionBooking(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in transitionRequest
	if err := middleware.BindAndValidate(c, &in); err != nil {
		return err
	}
	b, err := h.svc.Transition(c.Request().Context(), id, in.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) DeleteBooking(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

package scheduling

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/tshakameya123/Kaga-Hospital/internal/platform/auth"
	"github.com/tshakameya123/Kaga-Hospital/internal/platform/middleware"
	"github.com/tshakameya123/Kaga-Hospital/pkg/apperrors"
	"github.com/tshakameya123/Kaga-Hospital/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	appts := api.Group("/appointments", auth.RequireAuth())
	appts.GET("", h.ListAppointments)
	appts.POST("", h.CreateAppointment)
	appts.GET("/:id", h.GetAppointment)
	appts.PUT("/:id", h.UpdateAppointment)
	appts.PATCH("/:id/status", h.TransitionAppointment)
	appts.POST("/:id/cancel", h.CancelAppointment)
	appts.DELETE("/:id", h.DeleteAppointment, auth.RequireRole(auth.RoleAdmin))

	schedules := api.Group("/workSchedules", auth.RequireAuth())
	schedules.GET("", h.ListSchedules)
	schedules.GET("/:id", h.GetSchedule)
	schedules.POST("", h.PutSchedule, auth.RequireRole(auth.RoleDoctor))
	schedules.PUT("", h.PutSchedule, auth.RequireRole(auth.RoleDoctor))
	schedules.DELETE("/:id", h.DeleteSchedule, auth.RequireRole(auth.RoleDoctor))

	api.GET("/medicalStaff/:id/openSlots", h.OpenSlots, auth.RequireAuth())
	api.GET("/medicalStaff/:id/workSchedule", h.DoctorSchedule, auth.RequireAuth())

	notes := api.Group("/doctorNotes", auth.RequireAuth())
	notes.GET("", h.ListNotes)
	notes.GET("/:id", h.GetNote)
	notes.GET("/:id/prescription", h.GetPrescription)
	notes.POST("", h.CreateNote, auth.RequireRole(auth.RoleDoctor))
	notes.PUT("/:id", h.UpdateNote, auth.RequireRole(auth.RoleDoctor))
	notes.DELETE("/:id", h.DeleteNote, auth.RequireRole(auth.RoleDoctor))
}

// caller is who is making the request, resolved to their hospital profile.
type caller struct {
	admin     bool
	staffID   uuid.UUID
	patientID uuid.UUID
}

func (k *caller) isDoctor() bool { return k.staffID != uuid.Nil }

// staff reports whether the caller works at the hospital.
func (k *caller) staff() bool { return k.admin || k.isDoctor() }

func (h *Handler) caller(c echo.Context) (*caller, error) {
	ctx := c.Request().Context()
	if auth.HasRole(ctx, auth.RoleAdmin) {
		return &caller{admin: true}, nil
	}
	uid, ok := auth.UserUUID(ctx)
	if !ok {
		return nil, apperrors.Unauthorized("authentication required")
	}
	if auth.HasRole(ctx, auth.RoleDoctor) {
		doc, err := h.svc.directory.GetStaffByUserID(ctx, uid)
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return nil, apperrors.Forbidden("no medical staff profile for this account")
		}
		if err != nil {
			return nil, err
		}
		return &caller{staffID: doc.ID}, nil
	}
	p, err := h.svc.directory.GetPatientByUserID(ctx, uid)
	if apperrors.IsKind(err, apperrors.KindNotFound) {
		return nil, apperrors.Forbidden("no patient profile for this account")
	}
	if err != nil {
		return nil, err
	}
	return &caller{patientID: p.ID}, nil
}

// canSee allows admins, the appointment's doctor and its patient. Other
// doctors may read it too.
func (k *caller) canSee(a *Appointment) bool {
	return k.staff() || k.patientID == a.PatientID
}

// canManage allows admins and the appointment's own doctor.
func (k *caller) canManage(a *Appointment) bool {
	return k.admin || (k.isDoctor() && k.staffID == a.DoctorID)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperrors.Validation("invalid id")
	}
	return id, nil
}

func optionalUUID(c echo.Context, name string) (*uuid.UUID, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, apperrors.Validation("invalid %s", name)
	}
	return &id, nil
}

// -- Appointments --

func (h *Handler) ListAppointments(c echo.Context) error {
	who, err := h.caller(c)
	if err != nil {
		return err
	}
	f := AppointmentFilter{Department: c.QueryParam("department"), Status: Status(c.QueryParam("status"))}
	if f.PatientID, err = optionalUUID(c, "patientId"); err != nil {
		return err
	}
	if f.DoctorID, err = optionalUUID(c, "doctorId"); err != nil {
		return err
	}
	if d := c.QueryParam("date"); d != "" {
		day, err := ParseDate(d)
		if err != nil {
			return err
		}
		f.Date = &day
	}
	if !who.staff() {
		f.PatientID = &who.patientID
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	who, err := h.caller(c)
	if err != nil {
		return err
	}
	var in CreateAppointmentInput
	if !who.staff() {
		// Patients book for themselves; the body may omit patientId.
		in.PatientID = who.patientID
	}
	if err := c.Bind(&in); err != nil {
		return apperrors.Validation("invalid request body")
	}
	if !who.staff() {
		if in.PatientID != who.patientID {
			return apperrors.Forbidden("patients may only book for themselves")
		}
		if in.Status != "" && in.Status != StatusPending {
			return apperrors.Forbidden("only staff may create appointments with status %s", in.Status)
		}
	}
	if err := middleware.Validate(&in); err != nil {
		return err
	}
	a, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) visibleAppointment(c echo.Context) (*caller, *Appointment, error) {
	who, err := h.caller(c)
	if err != nil {
		return nil, nil, err
	}
	id, err := parseID(c)
	if err != nil {
		return nil, nil, err
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return nil, nil, err
	}
	if !who.canSee(a) {
		return nil, nil, apperrors.NotFound("appointment not found")
	}
	return who, a, nil
}

func (h *Handler) GetAppointment(c echo.Context) error {
	_, a, err := h.visibleAppointment(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) UpdateAppointment(c echo.Context) error {
	who, a, err := h.visibleAppointment(c)
	if err != nil {
		return err
	}
	var in UpdateAppointmentInput
	if err := middleware.BindAndValidate(c, &in); err != nil {
		return err
	}
	if !who.canManage(a) {
		// Patients may reschedule, reword or cancel their own booking.
		if who.staff() {
			return apperrors.Forbidden("only the assigned doctor may change this appointment")
		}
		if in.Status != nil && *in.Status != StatusCancelled && *in.Status != a.Status {
			return apperrors.Forbidden("patients may only cancel appointments")
		}
	}
	updated, err := h.svc.Update(c.Request().Context(), a.ID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

type transitionRequest struct {
	Status Status `json:"status" validate:"required"`
	Reason string `json:"reason"`
}

func (h *Handler) TransitionAppointment(c echo.Context) error {
	who, a, err := h.visibleAppointment(c)
	if err != nil {
		return err
	}
	var in transitionRequest
	if err := middleware.BindAndValidate(c, &in); err != nil {
		return err
	}
	if !who.canManage(a) && !(in.Status == StatusCancelled && who.patientID == a.PatientID) {
		return apperrors.Forbidden("not allowed to move this appointment to %s", in.Status)
	}
	updated, err := h.svc.Transition(c.Request().Context(), a.ID, in.Status, in.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) CancelAppointment(c echo.Context) error {
	who, a, err := h.visibleAppointment(c)
	if err != nil {
		return err
	}
	var in cancelRequest
	if err := middleware.BindAndValidate(c, &in); err != nil {
		return err
	}
	if !who.canManage(a) && who.patientID != a.PatientID {
		return apperrors.Forbidden("only the patient or the assigned doctor may cancel")
	}
	updated, err := h.svc.Cancel(c.Request().Context(), a.ID, in.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) DeleteAppointment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Work schedules --

func (h *Handler) ListSchedules(c echo.Context) error {
	doctorID, err := optionalUUID(c, "doctorId")
	if err != nil {
		return err
	}
	if doctorID != nil {
		ws, err := h.svc.EffectiveSchedule(c.Request().Context(), *doctorID)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, pagination.NewResponse([]*WorkSchedule{ws}, 1, 1, 0))
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAvailability(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetSchedule(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ws, err := h.svc.GetAvailability(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ws)
}

func (h *Handler) PutSchedule(c echo.Context) error {
	who, err := h.caller(c)
	if err != nil {
		return err
	}
	var in PutAvailabilityInput
	if who.isDoctor() {
		in.DoctorID = who.staffID
	}
	if err := c.Bind(&in); err != nil {
		return apperrors.Validation("invalid request body")
	}
	if !who.admin && in.DoctorID != who.staffID {
		return apperrors.Forbidden("doctors may only edit their own schedule")
	}
	if err := middleware.Validate(&in); err != nil {
		return err
	}
	ws, err := h.svc.PutAvailability(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ws)
}

func (h *Handler) DeleteSchedule(c echo.Context) error {
	who, err := h.caller(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	ws, err := h.svc.GetAvailability(ctx, id)
	if err != nil {
		return err
	}
	if !who.admin && ws.DoctorID != who.staffID {
		return apperrors.Forbidden("doctors may only delete their own schedule")
	}
	if err := h.svc.DeleteAvailability(ctx, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DoctorSchedule(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ws, err := h.svc.EffectiveSchedule(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ws)
}

func (h *Handler) OpenSlots(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	date := c.QueryParam("date")
	if date == "" {
		return apperrors.Validation("date query parameter is required")
	}
	open, err := h.svc.OpenSlots(c.Request().Context(), id, date)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, open)
}

// -- Doctor notes --

func (h *Handler) ListNotes(c echo.Context) error {
	who, err := h.caller(c)
	if err != nil {
		return err
	}
	var f NoteFilter
	if f.AppointmentID, err = optionalUUID(c, "appointmentId"); err != nil {
		return err
	}
	if f.DoctorID, err = optionalUUID(c, "doctorId"); err != nil {
		return err
	}
	if f.PatientID, err = optionalUUID(c, "patientId"); err != nil {
		return err
	}
	if !who.staff() {
		f.PatientID = &who.patientID
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListNotes(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetNote(c echo.Context) error {
	who, err := h.caller(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	n, err := h.svc.GetNote(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if !who.staff() && n.PatientID != who.patientID {
		return apperrors.NotFound("doctor note not found")
	}
	return c.JSON(http.StatusOK, n)
}

// GetPrescription streams the note as a printable prescription.
func (h *Handler) GetPrescription(c echo.Context) error {
	who, err := h.caller(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	n, err := h.svc.GetNote(ctx, id)
	if err != nil {
		return err
	}
	if !who.staff() && n.PatientID != who.patientID {
		return apperrors.NotFound("doctor note not found")
	}
	var buf bytes.Buffer
	if err := h.svc.WritePrescription(ctx, id, &buf); err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("inline; filename=prescription-%s.pdf", id))
	return c.Blob(http.StatusOK, "application/pdf", buf.Bytes())
}

func (h *Handler) CreateNote(c echo.Context) error {
	who, err := h.caller(c)
	if err != nil {
		return err
	}
	var in CreateNoteInput
	if err := middleware.BindAndValidate(c, &in); err != nil {
		return err
	}
	if !who.admin {
		a, err := h.svc.Get(c.Request().Context(), in.AppointmentID)
		if err == nil && a.DoctorID != who.staffID {
			return apperrors.Forbidden("only the assigned doctor may write notes")
		}
	}
	n, err := h.svc.CreateNote(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, n)
}

func (h *Handler) ownNote(c echo.Context) (*DoctorNote, error) {
	who, err := h.caller(c)
	if err != nil {
		return nil, err
	}
	id, err := parseID(c)
	if err != nil {
		return nil, err
	}
	n, err := h.svc.GetNote(c.Request().Context(), id)
	if err != nil {
		return nil, err
	}
	if !who.admin && n.DoctorID != who.staffID {
		return nil, apperrors.Forbidden("only the note's author may change it")
	}
	return n, nil
}

func (h *Handler) UpdateNote(c echo.Context) error {
	n, err := h.ownNote(c)
	if err != nil {
		return err
	}
	var in UpdateNoteInput
	if err := middleware.BindAndValidate(c, &in); err != nil {
		return err
	}
	updated, err := h.svc.UpdateNote(c.Request().Context(), n.ID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) DeleteNote(c echo.Context) error {
	n, err := h.ownNote(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteNote(c.Request().Context(), n.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

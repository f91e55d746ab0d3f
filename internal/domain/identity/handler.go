package identity

import (
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
	authGroup := api.Group("/auth")
	authGroup.POST("/register", h.Register)
	authGroup.POST("/login", h.Login)
	authGroup.POST("/doctor-login", h.DoctorLogin)
	authGroup.POST("/logout", h.Logout)
	authGroup.GET("/me", h.Me, auth.RequireAuth())

	users := api.Group("/users", auth.RequireRole(auth.RoleAdmin))
	users.GET("", h.ListUsers)
	users.POST("", h.CreateUser)
	users.GET("/:id", h.GetUser)
	users.PUT("/:id", h.UpdateUser)
	users.DELETE("/:id", h.DeleteUser)

	// Patients read and edit their own profile; staff see everyone.
	patients := api.Group("/patients", auth.RequireAuth())
	patients.GET("", h.ListPatients, auth.RequireRole(auth.RoleDoctor))
	patients.POST("", h.CreatePatient, auth.RequireRole(auth.RoleAdmin))
	patients.GET("/me", h.GetMyPatient, auth.RequireRole(auth.RolePatient))
	patients.GET("/:id", h.GetPatient)
	patients.PUT("/:id", h.UpdatePatient)
	patients.DELETE("/:id", h.DeletePatient, auth.RequireRole(auth.RoleAdmin))

	staff := api.Group("/medicalStaff", auth.RequireAuth())
	staff.GET("", h.ListStaff)
	staff.GET("/departments", h.ListDepartments)
	staff.GET("/me", h.GetMyStaff, auth.RequireRole(auth.RoleDoctor))
	staff.GET("/:id", h.GetStaff)
	staff.POST("", h.CreateStaff, auth.RequireRole(auth.RoleAdmin))
	staff.PUT("/:id", h.UpdateStaff, auth.RequireRole(auth.RoleAdmin))
	staff.DELETE("/:id", h.DeleteStaff, auth.RequireRole(auth.RoleAdmin))
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperrors.Validation("invalid id")
	}
	return id, nil
}

func currentUser(c echo.Context) (uuid.UUID, error) {
	id, ok := auth.UserUUID(c.Request().Context())
	if !ok {
		return uuid.Nil, apperrors.Unauthorized("authentication required")
	}
	return id, nil
}

// -- Auth --

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type doctorLoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Register(c echo.Context) error {
	var in RegisterInput
	if err := middleware.BindAndValidate(c, &in); err != nil {
		return err
	}
	res, err := h.svc.Register(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) Login(c echo.Context) error {
	var in loginRequest
	if err := middleware.BindAndValidate(c, &in); err != nil {
		return err
	}
	res, err := h.svc.Login(c.Request().Context(), in.Email, in.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) DoctorLogin(c echo.Context) error {
	var in doctorLoginRequest
	if err := middleware.BindAndValidate(c, &in); err != nil {
		return err
	}
	res, err := h.svc.DoctorLogin(c.Request().Context(), in.Username, in.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// Logout revokes the presented bearer token, if any.
func (h *Handler) Logout(c echo.Context) error {
	var token string
	if c.Request().Header.Get("Authorization") != "" {
		t, err := auth.BearerToken(c.Request())
		if err != nil {
			return err
		}
		token = t
	}
	if err := h.svc.Logout(c.Request().Context(), token); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *Handler) Me(c echo.Context) error {
	id, err := currentUser(c)
	if err != nil {
		return err
	}
	u, err := h.svc.Me(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

// -- Users --

func (h *Handler) ListUsers(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := UserFilter{Role: Role(c.QueryParam("role")), Query: c.QueryParam("q")}
	users, total, err := h.svc.ListUsers(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(users, total, pg.Limit, pg.Offset))
}

func (h *Handler) CreateUser(c echo.Context) error {
	var in CreateUserInput
	if err := middleware.BindAndValidate(c, &in); err != nil {
		return err
	}
	u, err := h.svc.CreateUser(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) GetUser(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	u, err := h.svc.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) UpdateUser(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in UpdateUserInput
	if err := middleware.BindAndValidate(c, &in); err != nil {
		return err
	}
	u, err := h.svc.UpdateUser(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) DeleteUser(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteUser(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Patients --

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := PatientFilter{Query: c.QueryParam("q"), Gender: c.QueryParam("gender")}
	patients, total, err := h.svc.ListPatients(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, total, pg.Limit, pg.Offset))
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var in CreatePatientInput
	if err := middleware.BindAndValidate(c, &in); err != nil {
		return err
	}
	p, err := h.svc.CreatePatient(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetMyPatient(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetPatientByUserID(c.Request().Context(), uid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// ownPatient loads a patient and checks the caller may act on it.
func (h *Handler) ownPatient(c echo.Context) (*Patient, error) {
	id, err := parseID(c)
	if err != nil {
		return nil, err
	}
	ctx := c.Request().Context()
	p, err := h.svc.GetPatient(ctx, id)
	if err != nil {
		return nil, err
	}
	if auth.HasRole(ctx, auth.RoleDoctor) {
		return p, nil
	}
	if uid, ok := auth.UserUUID(ctx); ok && uid == p.UserID {
		return p, nil
	}
	return nil, apperrors.Forbidden("patients may only access their own profile")
}

func (h *Handler) GetPatient(c echo.Context) error {
	p, err := h.ownPatient(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	p, err := h.ownPatient(c)
	if err != nil {
		return err
	}
	var in UpdatePatientInput
	if err := middleware.BindAndValidate(c, &in); err != nil {
		return err
	}
	updated, err := h.svc.UpdatePatient(c.Request().Context(), p.ID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeletePatient(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Medical staff --

func (h *Handler) ListStaff(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := StaffFilter{Department: c.QueryParam("department"), Query: c.QueryParam("q")}
	staff, total, err := h.svc.ListStaff(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(staff, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListDepartments(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"departments": Departments})
}

func (h *Handler) GetMyStaff(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	st, err := h.svc.GetStaffByUserID(c.Request().Context(), uid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) GetStaff(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	st, err := h.svc.GetStaff(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) CreateStaff(c echo.Context) error {
	var in CreateStaffInput
	if err := middleware.BindAndValidate(c, &in); err != nil {
		return err
	}
	st, err := h.svc.CreateStaff(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, st)
}

func (h *Handler) UpdateStaff(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in UpdateStaffInput
	if err := middleware.BindAndValidate(c, &in); err != nil {
		return err
	}
	st, err := h.svc.UpdateStaff(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) DeleteStaff(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteStaff(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

package medication

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medtrack/medtrack/internal/platform/auth"
	"github.com/medtrack/medtrack/internal/platform/errs"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/medications", h.ListMedications)
	api.POST("/medications", h.CreateMedication)
	api.GET("/medications/:id", h.GetMedication)
	api.PUT("/medications/:id", h.UpdateMedication)
	api.DELETE("/medications/:id", h.DeleteMedication)
	api.PATCH("/medications/:id/complete", h.ToggleCompletion)
	api.PATCH("/medications/:id/inactive", h.MarkInactive)
	api.GET("/medications/:id/history", h.ListHistory)
	api.GET("/medication-templates", h.ListTemplates)
}

func userID(c echo.Context) (string, error) {
	uid := auth.UserIDFromContext(c.Request().Context())
	if uid == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	return uid, nil
}

func doseID(c echo.Context) (uuid.UUID, error) {
	raw := c.Param("id")
	if raw == "" {
		return uuid.Nil, errs.Validation("missing medication id")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errs.Validation("invalid medication id")
	}
	return id, nil
}

func bind(c echo.Context, v interface{}) error {
	if err := c.Bind(v); err != nil {
		return errs.Validation("invalid request body")
	}
	return nil
}

func parseFilter(c echo.Context) (ListFilter, error) {
	var f ListFilter
	if v := c.QueryParam("careRecipientId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, errs.Validation("careRecipientId must be a valid id")
		}
		f.CareRecipientID = &id
	}
	if v := c.QueryParam("dateFrom"); v != "" {
		f.DateFrom = &v
	}
	if v := c.QueryParam("dateTo"); v != "" {
		f.DateTo = &v
	}
	for name, dst := range map[string]**bool{"isCompleted": &f.IsCompleted, "isActive": &f.IsActive} {
		v := c.QueryParam(name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, errs.Validation("%s must be true or false", name)
		}
		*dst = &b
	}
	return f, nil
}

func (h *Handler) ListMedications(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	f, err := parseFilter(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListMedications(c.Request().Context(), uid, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) CreateMedication(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var req CreateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	result, err := h.svc.CreateMedication(c.Request().Context(), uid, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, result)
}

func (h *Handler) GetMedication(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	id, err := doseID(c)
	if err != nil {
		return err
	}
	d, err := h.svc.GetMedication(c.Request().Context(), uid, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) UpdateMedication(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	id, err := doseID(c)
	if err != nil {
		return err
	}
	var req UpdateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	d, err := h.svc.UpdateMedication(c.Request().Context(), uid, id, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) DeleteMedication(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	id, err := doseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteMedication(c.Request().Context(), uid, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ToggleCompletion(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	id, err := doseID(c)
	if err != nil {
		return err
	}
	result, err := h.svc.ToggleCompletion(c.Request().Context(), uid, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

type markInactiveRequest struct {
	Scope string `json:"scope"`
}

func (h *Handler) MarkInactive(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	id, err := doseID(c)
	if err != nil {
		return err
	}
	var req markInactiveRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	scope, err := ParseScope(req.Scope)
	if err != nil {
		return err
	}
	result, err := h.svc.MarkInactive(c.Request().Context(), uid, id, scope)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) ListHistory(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	id, err := doseID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListHistory(c.Request().Context(), uid, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListTemplates(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListTemplates(c.Request().Context(), uid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

package carerecipient

import (
	"net/http"

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
	api.GET("/care-recipients", h.List)
	api.POST("/care-recipients", h.Create)
	api.GET("/care-recipients/:id", h.Get)
	api.PUT("/care-recipients/:id", h.Update)
	api.DELETE("/care-recipients/:id", h.Delete)
}

func userAndID(c echo.Context) (string, uuid.UUID, error) {
	uid := auth.UserIDFromContext(c.Request().Context())
	if uid == "" {
		return "", uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	if c.Param("id") == "" {
		return uid, uuid.Nil, nil
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return "", uuid.Nil, errs.Validation("invalid care recipient id")
	}
	return uid, id, nil
}

func (h *Handler) List(c echo.Context) error {
	uid, _, err := userAndID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.List(c.Request().Context(), uid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Create(c echo.Context) error {
	uid, _, err := userAndID(c)
	if err != nil {
		return err
	}
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return errs.Validation("invalid request body")
	}
	r, err := h.svc.Create(c.Request().Context(), uid, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) Get(c echo.Context) error {
	uid, id, err := userAndID(c)
	if err != nil {
		return err
	}
	r, err := h.svc.Get(c.Request().Context(), uid, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) Update(c echo.Context) error {
	uid, id, err := userAndID(c)
	if err != nil {
		return err
	}
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return errs.Validation("invalid request body")
	}
	r, err := h.svc.Update(c.Request().Context(), uid, id, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) Delete(c echo.Context) error {
	uid, id, err := userAndID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), uid, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

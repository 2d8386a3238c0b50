// Package handlers is the HTTP presentation layer: thin echo handlers
// that call the core operations and render their results as JSON.
package handlers

import (
	"errors"
	"log"
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"

	"github.com/ykawasaki/routine-to-do/internal/catalog"
	"github.com/ykawasaki/routine-to-do/internal/models"
	"github.com/ykawasaki/routine-to-do/internal/todolist"
)

func errorStatus(err error) int {
	var ve *todolist.ValidationError
	var ue *catalog.UnavailableError

	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrRoutineNotFound):
		return http.StatusNotFound
	case errors.As(err, &ue):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func jsonError(c echo.Context, status int, err error) error {
	return c.JSON(status, map[string]string{"error": err.Error()})
}

type CatalogHandler struct {
	catalog *catalog.Catalog
}

func NewCatalogHandler(cat *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: cat}
}

func (h *CatalogHandler) Register(e *echo.Echo) {
	e.GET("/api/routines", h.ListRoutines)
	e.POST("/api/routines/:routineId/tasks", h.AppendTask)
	e.GET("/api/users/:userId/purchases", h.ListPurchases)
	e.POST("/api/users/:userId/purchases", h.Purchase)
}

func (h *CatalogHandler) ListRoutines(c echo.Context) error {
	routines, warnings, err := h.catalog.ListRoutines(c.Request().Context())
	if err != nil {
		log.Printf("Error listing routines: %v", err)
		return jsonError(c, errorStatus(err), err)
	}

	resp := routinesResponse{Routines: routines}
	for _, w := range warnings {
		resp.Warnings = append(resp.Warnings, w.Error())
	}
	if resp.Routines == nil {
		resp.Routines = []models.Routine{}
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *CatalogHandler) ListPurchases(c echo.Context) error {
	purchased, err := h.catalog.ListPurchases(c.Request().Context(), c.Param("userId"))
	if err != nil {
		log.Printf("Error listing purchases: %v", err)
		return jsonError(c, errorStatus(err), err)
	}

	ids := make([]string, 0, len(purchased))
	for id := range purchased {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return c.JSON(http.StatusOK, purchasesResponse{RoutineIDs: ids})
}

func (h *CatalogHandler) Purchase(c echo.Context) error {
	var req purchaseRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, err)
	}
	if req.RoutineID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "routineId is required"})
	}

	ctx := c.Request().Context()
	if _, err := h.catalog.Routine(ctx, req.RoutineID); err != nil {
		return jsonError(c, errorStatus(err), err)
	}

	p, err := h.catalog.Purchase(ctx, c.Param("userId"), req.RoutineID)
	if err != nil {
		log.Printf("Error saving purchase: %v", err)
		return jsonError(c, errorStatus(err), err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *CatalogHandler) AppendTask(c echo.Context) error {
	var task models.RoutineTask
	if err := c.Bind(&task); err != nil {
		return jsonError(c, http.StatusBadRequest, err)
	}

	if err := h.catalog.AppendTask(c.Request().Context(), c.Param("routineId"), task); err != nil {
		if errors.Is(err, catalog.ErrRoutineNotFound) {
			return jsonError(c, http.StatusNotFound, err)
		}
		return jsonError(c, http.StatusBadRequest, err)
	}
	return c.NoContent(http.StatusNoContent)
}

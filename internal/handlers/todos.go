package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ykawasaki/routine-to-do/internal/catalog"
	"github.com/ykawasaki/routine-to-do/internal/models"
	"github.com/ykawasaki/routine-to-do/internal/schedule"
	"github.com/ykawasaki/routine-to-do/internal/store"
	"github.com/ykawasaki/routine-to-do/internal/todolist"
)

type TodoHandler struct {
	todos   *todolist.Service
	mat     *schedule.Materializer
	catalog *catalog.Catalog
}

func NewTodoHandler(todos *todolist.Service, mat *schedule.Materializer, cat *catalog.Catalog) *TodoHandler {
	return &TodoHandler{todos: todos, mat: mat, catalog: cat}
}

func (h *TodoHandler) Register(e *echo.Echo) {
	e.GET("/api/users/:userId/todos", h.List)
	e.POST("/api/users/:userId/todos", h.Create)
	e.POST("/api/users/:userId/todos/:todoId/toggle", h.Toggle)
	e.DELETE("/api/users/:userId/todos/:todoId", h.Delete)
	e.GET("/api/users/:userId/todos/stream", h.Stream)
	e.POST("/api/users/:userId/routines/:routineId/materialize", h.Materialize)
}

// parseDay parses the optional date/timezone pair used by the list and
// materialize endpoints.
func parseDay(dateStr, tzStr string) (time.Time, *time.Location, error) {
	loc := time.UTC
	if tzStr != "" {
		var err error
		loc, err = time.LoadLocation(tzStr)
		if err != nil {
			return time.Time{}, nil, fmt.Errorf("unknown timezone %q", tzStr)
		}
	}
	if dateStr == "" {
		return time.Time{}, loc, nil
	}
	day, err := time.ParseInLocation("2006-01-02", dateStr, loc)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("date must be YYYY-MM-DD")
	}
	return day, loc, nil
}

func (h *TodoHandler) List(c echo.Context) error {
	day, loc, err := parseDay(c.QueryParam("date"), c.QueryParam("tz"))
	if err != nil {
		return jsonError(c, http.StatusBadRequest, err)
	}

	items, err := h.todos.Items(c.Request().Context(), c.Param("userId"))
	if err != nil {
		log.Printf("Error listing todos: %v", err)
		return jsonError(c, errorStatus(err), err)
	}

	return c.JSON(http.StatusOK, todosResponse{Items: todolist.FilterByDate(items, day, loc)})
}

func (h *TodoHandler) Create(c echo.Context) error {
	var req createTodoRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, err)
	}

	item, err := h.todos.CreateItem(c.Request().Context(), c.Param("userId"), req.Title, req.DueDate.Time())
	if err != nil {
		return jsonError(c, errorStatus(err), err)
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *TodoHandler) Toggle(c echo.Context) error {
	item, err := h.todos.Toggle(c.Request().Context(), c.Param("userId"), c.Param("todoId"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return jsonError(c, http.StatusNotFound, err)
		}
		log.Printf("Error toggling todo: %v", err)
		return jsonError(c, errorStatus(err), err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *TodoHandler) Delete(c echo.Context) error {
	if err := h.todos.DeleteItem(c.Request().Context(), c.Param("userId"), c.Param("todoId")); err != nil {
		log.Printf("Error deleting todo: %v", err)
		return jsonError(c, errorStatus(err), err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *TodoHandler) Materialize(c echo.Context) error {
	var req materializeRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, err)
	}
	day, loc, err := parseDay(req.Date, req.Timezone)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, err)
	}
	if day.IsZero() {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "date is required"})
	}

	ctx := c.Request().Context()
	userID := c.Param("userId")
	routineID := c.Param("routineId")

	routine, err := h.catalog.Routine(ctx, routineID)
	if err != nil {
		return jsonError(c, errorStatus(err), err)
	}

	purchased, err := h.catalog.ListPurchases(ctx, userID)
	if err != nil {
		return jsonError(c, errorStatus(err), err)
	}
	if !catalog.IsPurchased(purchased, routineID) {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "routine not purchased"})
	}

	items, err := h.mat.Materialize(ctx, userID, routine, day, loc)
	if items == nil {
		items = []models.ToDoItem{}
	}
	if err != nil {
		var pe *schedule.PartialError
		if errors.As(err, &pe) {
			log.Printf("Partial materialization of %s for %s: %v", routineID, userID, err)
			resp := partialMaterializeResponse{Items: items}
			for _, f := range pe.Failed {
				resp.Failed = append(resp.Failed, materializeFailure{
					Index:    f.Index,
					TaskName: f.TaskName,
					Reason:   f.Err.Error(),
				})
			}
			return c.JSON(http.StatusInternalServerError, resp)
		}
		return jsonError(c, errorStatus(err), err)
	}

	return c.JSON(http.StatusCreated, materializeResponse{Items: items})
}

// Stream serves the live subscription as server-sent events, one JSON
// array per snapshot. The subscription is released when the client
// disconnects.
func (h *TodoHandler) Stream(c echo.Context) error {
	sub, err := h.todos.Subscribe(c.Request().Context(), c.Param("userId"))
	if err != nil {
		log.Printf("Error subscribing to todos: %v", err)
		return jsonError(c, errorStatus(err), err)
	}
	defer sub.Stop()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)

	for snap := range sub.Snapshots() {
		b, err := json.Marshal(snap)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(res, "data: %s\n\n", b); err != nil {
			return nil
		}
		res.Flush()
	}

	if err := sub.Err(); err != nil {
		log.Printf("Todo subscription ended with error: %v", err)
		fmt.Fprintf(res, "event: error\ndata: %q\n\n", err.Error())
		res.Flush()
	}
	return nil
}

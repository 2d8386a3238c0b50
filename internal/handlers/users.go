package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ykawasaki/routine-to-do/internal/store"
)

// UserHandler serves user profiles. Profiles are read-only here; the
// identity provider owns their lifecycle.
type UserHandler struct {
	users store.UserStore
}

func NewUserHandler(users store.UserStore) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) Register(e *echo.Echo) {
	e.GET("/api/users/:userId", h.Get)
}

func (h *UserHandler) Get(c echo.Context) error {
	u, err := h.users.User(c.Request().Context(), c.Param("userId"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return jsonError(c, http.StatusNotFound, err)
		}
		log.Printf("Error getting user: %v", err)
		return jsonError(c, http.StatusServiceUnavailable, err)
	}
	return c.JSON(http.StatusOK, u)
}

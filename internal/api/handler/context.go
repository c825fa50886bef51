package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/gutwise/diet-api/internal/api/middleware"
)

// currentUserID extracts the authenticated user id injected by the Auth
// middleware. Routes using it are always registered behind that middleware,
// so an empty value only happens on a wiring mistake; the service layer
// rejects it as not-found rather than panicking here.
func currentUserID(c echo.Context) string {
	id, _ := c.Get(middleware.ContextUserID).(string)
	return id
}

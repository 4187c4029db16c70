package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-reservation/internal/handler"
	"github.com/iliyamo/parking-reservation/internal/middleware"
	"github.com/iliyamo/parking-reservation/internal/model"
)

// RegisterUser registers the booking flow under /v1.  Any signed-in
// account may book; booking and release are rate limited per user.
func RegisterUser(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser, model.RoleAdmin),
	)
	g.POST("/bookings", h.Book, limiter)
	g.POST("/bookings/release", h.Release, limiter)
	g.GET("/dashboard", h.Dashboard)
	g.GET("/stats", h.Stats)
}

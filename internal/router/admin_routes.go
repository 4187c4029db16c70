package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-reservation/internal/handler"
	"github.com/iliyamo/parking-reservation/internal/middleware"
	"github.com/iliyamo/parking-reservation/internal/model"
)

// RegisterAdmin registers administration endpoints under /v1/admin.  All
// routes require a valid JWT with the admin role.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)

	// lots
	g.POST("/lots", h.CreateLot)
	g.GET("/lots", h.ListLots)
	g.PUT("/lots/:id", h.UpdateLot)
	g.DELETE("/lots/:id", h.DeleteLot)

	// spots
	g.GET("/spots/:id", h.Spot)
	g.PATCH("/spots/:id/name", h.RenameSpot)
	g.PATCH("/spots/:id/status", h.SetSpotStatus)
	g.POST("/spots/:id/release", h.ReleaseSpot)

	// reports
	g.GET("/users", h.Users)
	g.GET("/reports", h.Reports)
	g.GET("/ledger", h.Ledger)
}

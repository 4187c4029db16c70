package router // package router defines how HTTP routes are registered for the API

import (
	"database/sql"

	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/parking-reservation/internal/handler"
	"github.com/iliyamo/parking-reservation/internal/middleware"
	"github.com/iliyamo/parking-reservation/internal/model"
)

// RegisterRoutes registers routes that do not require authentication and
// are not part of the API, currently only the health check.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers authentication routes.  Register, login, refresh
// and logout live under /v1/auth without a session; /v1/me needs a valid
// access token of either role.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh) // rotates the refresh token
	// logout accepts a refresh token in the body or a bearer token
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser, model.RoleAdmin),
	)
	auth.GET("/me", a.Me)
}

// RegisterPublic registers anonymous browse endpoints.  The lot listings
// go through the response cache, which is purged on every change.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/lots", p.ListLots, cache)
	e.GET("/v1/lots/:id/spots", p.FreeSpots, cache)
	e.GET("/v1/ws/availability", p.Availability)
}

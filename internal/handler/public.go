package handler

import (
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-reservation/internal/realtime"
	"github.com/iliyamo/parking-reservation/internal/service"
)

// PublicHandler serves anonymous browsing and the availability stream.
type PublicHandler struct {
	Svc *service.ParkingService
	Hub *realtime.Hub
}

func NewPublicHandler(svc *service.ParkingService, hub *realtime.Hub) *PublicHandler {
	return &PublicHandler{Svc: svc, Hub: hub}
}

// ListLots handles GET /v1/lots?q=.  q filters by name or location.
func (h *PublicHandler) ListLots(c echo.Context) error {
	lots, err := h.Svc.ListLots(c.Request().Context(), strings.TrimSpace(c.QueryParam("q")))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": lots})
}

// FreeSpots handles GET /v1/lots/:id/spots.
func (h *PublicHandler) FreeSpots(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lot id"})
	}
	spots, err := h.Svc.FreeSpots(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"lot_id": id, "items": spots})
}

// Availability handles GET /v1/ws/availability and upgrades to a
// websocket that receives an update after every change.
func (h *PublicHandler) Availability(c echo.Context) error {
	if h.Hub == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "realtime updates disabled"})
	}
	// the upgrader writes its own error response
	if err := h.Hub.ServeWS(c.Response(), c.Request()); err != nil {
		return nil
	}
	log.Printf("realtime: subscriber connected, %d open", h.Hub.Clients())
	return nil
}

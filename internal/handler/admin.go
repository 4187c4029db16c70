package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-reservation/internal/service"
)

// AdminHandler serves lot and spot administration and reports.  The
// service re-checks the admin role on every call.
type AdminHandler struct {
	Svc *service.ParkingService
}

func NewAdminHandler(svc *service.ParkingService) *AdminHandler {
	return &AdminHandler{Svc: svc}
}

type lotReq struct {
	Name         string  `json:"name" validate:"required,max=100"`
	Location     string  `json:"location" validate:"required,max=200"`
	TotalSpots   int     `json:"total_spots" validate:"gte=1,lte=1000"`
	PricePerHour float64 `json:"price_per_hour" validate:"gt=0"`
}

func (r lotReq) input() service.LotInput {
	return service.LotInput{Name: r.Name, Location: r.Location, TotalSpots: r.TotalSpots, PricePerHour: r.PricePerHour}
}

type renameReq struct {
	SpotNumber string `json:"spot_number" validate:"required,min=1,max=10"`
}

type statusReq struct {
	Occupied *bool `json:"occupied" validate:"required"`
}

// CreateLot handles POST /v1/admin/lots.
func (h *AdminHandler) CreateLot(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	var req lotReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	lot, err := h.Svc.CreateLot(c.Request().Context(), a, req.input())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, lot)
}

// ListLots handles GET /v1/admin/lots?q=, lots with occupancy and spots.
func (h *AdminHandler) ListLots(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	lots, err := h.Svc.AdminLots(c.Request().Context(), a, strings.TrimSpace(c.QueryParam("q")))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": lots})
}

// UpdateLot handles PUT /v1/admin/lots/:id.
func (h *AdminHandler) UpdateLot(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lot id"})
	}
	var req lotReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	res, err := h.Svc.UpdateLot(c.Request().Context(), a, id, req.input())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// DeleteLot handles DELETE /v1/admin/lots/:id.
func (h *AdminHandler) DeleteLot(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lot id"})
	}
	if err := h.Svc.DeleteLot(c.Request().Context(), a, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Spot handles GET /v1/admin/spots/:id.
func (h *AdminHandler) Spot(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid spot id"})
	}
	d, err := h.Svc.SpotDetail(c.Request().Context(), a, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// RenameSpot handles PATCH /v1/admin/spots/:id/name.
func (h *AdminHandler) RenameSpot(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid spot id"})
	}
	var req renameReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	spot, err := h.Svc.RenameSpot(c.Request().Context(), a, id, req.SpotNumber)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, spot)
}

// SetSpotStatus handles PATCH /v1/admin/spots/:id/status.
func (h *AdminHandler) SetSpotStatus(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid spot id"})
	}
	var req statusReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	res, err := h.Svc.SetSpotStatus(c.Request().Context(), a, id, *req.Occupied)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// ReleaseSpot handles POST /v1/admin/spots/:id/release.
func (h *AdminHandler) ReleaseSpot(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid spot id"})
	}
	res, err := h.Svc.ForceRelease(c.Request().Context(), a, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Users handles GET /v1/admin/users.
func (h *AdminHandler) Users(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	users, err := h.Svc.Customers(c.Request().Context(), a)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": users})
}

// Reports handles GET /v1/admin/reports.
func (h *AdminHandler) Reports(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	r, err := h.Svc.SystemReport(c.Request().Context(), a)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

// Ledger handles GET /v1/admin/ledger.  An empty list means every lot's
// counter matches its spots.
func (h *AdminHandler) Ledger(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	bad, err := h.Svc.LedgerMismatches(c.Request().Context(), a)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"mismatches": bad, "consistent": len(bad) == 0})
}

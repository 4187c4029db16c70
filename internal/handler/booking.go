package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-reservation/internal/service"
)

// BookingHandler serves the signed-in user's booking flow.  Routes are
// guarded by JWTAuth, so a missing identity means a wiring bug and is
// answered with 401.
type BookingHandler struct {
	Svc *service.ParkingService
}

func NewBookingHandler(svc *service.ParkingService) *BookingHandler {
	return &BookingHandler{Svc: svc}
}

type bookReq struct {
	LotID         uint64 `json:"lot_id" validate:"required"`
	SpotID        uint64 `json:"spot_id" validate:"required"`
	VehicleNumber string `json:"vehicle_number" validate:"required,max=20"`
}

// Book handles POST /v1/bookings.
func (h *BookingHandler) Book(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	var req bookReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	b, err := h.Svc.Book(c.Request().Context(), a, service.BookRequest{
		LotID:         req.LotID,
		SpotID:        req.SpotID,
		VehicleNumber: req.VehicleNumber,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// Release handles POST /v1/bookings/release.
func (h *BookingHandler) Release(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	rc, err := h.Svc.Release(c.Request().Context(), a)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, rc)
}

// Dashboard handles GET /v1/dashboard.
func (h *BookingHandler) Dashboard(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	d, err := h.Svc.UserDashboard(c.Request().Context(), a)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// Stats handles GET /v1/stats.
func (h *BookingHandler) Stats(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	s, err := h.Svc.UserStats(c.Request().Context(), a)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

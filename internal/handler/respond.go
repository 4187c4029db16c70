package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-reservation/internal/middleware"
	"github.com/iliyamo/parking-reservation/internal/service"
)

// bindValid binds the request body into dst and runs the registered
// validator.  On failure it writes the response and returns ok=false.
func bindValid(c echo.Context, dst any) (bool, error) {
	if err := c.Bind(dst); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(dst); err != nil {
		if fields := fieldErrors(err); fields != nil {
			return false, c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "validation failed", "fields": fields})
		}
		return false, c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	}
	return true, nil
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// actor builds the request-scoped caller from what JWTAuth stored.
func actor(c echo.Context) (service.Actor, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		return service.Actor{}, false
	}
	role, ok := middleware.Role(c)
	if !ok {
		return service.Actor{}, false
	}
	return service.Actor{UserID: id, Role: role}, true
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

// respondError maps service and storage errors to HTTP responses.
func respondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		msg := strings.TrimPrefix(err.Error(), service.ErrValidation.Error()+": ")
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": msg})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, service.ErrDuplicateActiveBooking),
		errors.Is(err, service.ErrSpotUnavailable),
		errors.Is(err, service.ErrNoActiveBooking),
		errors.Is(err, service.ErrInsufficientFreeCapacity),
		errors.Is(err, service.ErrDuplicateSpotName),
		errors.Is(err, service.ErrLotHasOccupiedSpots):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	}
	log.Printf("handler: %s %s: %v", c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

package service

import (
	"errors"

	"github.com/iliyamo/parking-reservation/internal/repository"
)

// Business rule violations.  Handlers map these to HTTP statuses with
// errors.Is; every one of them aborts the operation with no writes.
var (
	ErrDuplicateActiveBooking   = errors.New("you already have an active booking")
	ErrSpotUnavailable          = errors.New("spot is not available")
	ErrNoActiveBooking          = errors.New("no active booking")
	ErrInsufficientFreeCapacity = errors.New("not enough free spots to remove")
	ErrDuplicateSpotName        = errors.New("spot name already exists in this lot")
	ErrLotHasOccupiedSpots      = errors.New("lot has occupied spots")
	ErrValidation               = errors.New("validation failed")
	ErrForbidden                = errors.New("admin access required")
)

// ErrNotFound is the storage not-found family; lot, spot and user lookups
// all wrap it.
var ErrNotFound = repository.ErrNotFound

// Package service holds the parking business rules: the booking lifecycle,
// lot and spot administration, and the read models behind dashboards and
// reports.  Every mutation runs in one database transaction and publishes
// a queue.ParkingEvent once committed.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/parking-reservation/internal/model"
	"github.com/iliyamo/parking-reservation/internal/queue"
	"github.com/iliyamo/parking-reservation/internal/repository"
)

// ParkingService implements the booking and administration operations.
type ParkingService struct {
	db       *sql.DB
	Users    *repository.UserRepo
	Lots     *repository.LotRepo
	Spots    *repository.SpotRepo
	Bookings *repository.BookingRepo
	Reports  *repository.ReportRepo

	notifier Notifier
	now      func() time.Time
}

// Option configures a ParkingService.
type Option func(*ParkingService)

// WithClock replaces time.Now, letting tests simulate elapsed time.
func WithClock(now func() time.Time) Option {
	return func(s *ParkingService) { s.now = now }
}

// WithNotifier sets where committed events are delivered.
func WithNotifier(n Notifier) Option {
	return func(s *ParkingService) { s.notifier = n }
}

// NewParkingService wires the repositories around db.
func NewParkingService(db *sql.DB, opts ...Option) *ParkingService {
	s := &ParkingService{
		db:       db,
		Users:    repository.NewUserRepo(db),
		Lots:     repository.NewLotRepo(db),
		Spots:    repository.NewSpotRepo(db),
		Bookings: repository.NewBookingRepo(db),
		Reports:  repository.NewReportRepo(db),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ParkingService) clock() time.Time { return s.now().UTC() }

// inTx runs fn in a transaction that is committed only when fn succeeds.
// fn must not use s.db: SQLite runs with a single connection.
func (s *ParkingService) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *ParkingService) emit(ctx context.Context, ev queue.ParkingEvent) {
	if s.notifier == nil {
		return
	}
	ev.ID = uuid.NewString()
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = s.clock()
	}
	_ = s.notifier.Notify(ctx, ev)
}

func lotEvent(typ queue.EventType, actor Actor, lot *model.ParkingLot) queue.ParkingEvent {
	return queue.ParkingEvent{
		Type:           typ,
		ActorID:        actor.UserID,
		LotID:          lot.ID,
		LotName:        lot.Name,
		AvailableSpots: lot.AvailableSpots,
		TotalSpots:     lot.TotalSpots,
	}
}

// BookRequest selects a spot of a lot for a vehicle.
type BookRequest struct {
	LotID         uint64
	SpotID        uint64
	VehicleNumber string
}

// Book reserves a free spot for the actor.  The booking starts active
// with total_cost set to the lot's hourly rate; the spot becomes occupied
// and the lot's available counter drops by one.
func (s *ParkingService) Book(ctx context.Context, actor Actor, req BookRequest) (*model.Booking, error) {
	vehicle := strings.ToUpper(strings.TrimSpace(req.VehicleNumber))
	if vehicle == "" {
		return nil, fmt.Errorf("%w: vehicle number is required", ErrValidation)
	}

	var (
		booking *model.Booking
		lot     *model.ParkingLot
		spot    *model.ParkingSpot
	)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.Bookings.ActiveByUserTx(ctx, tx, actor.UserID); err == nil {
			return ErrDuplicateActiveBooking
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		var err error
		if lot, err = s.Lots.GetByIDTx(ctx, tx, req.LotID); err != nil {
			return err
		}
		spot, err = s.Spots.GetByIDTx(ctx, tx, req.SpotID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSpotUnavailable
		}
		if err != nil {
			return err
		}
		if spot.ParkingLotID != lot.ID || spot.IsOccupied {
			return ErrSpotUnavailable
		}

		ok, err := s.Spots.SwapOccupiedTx(ctx, tx, spot.ID, false, true)
		if err != nil {
			return err
		}
		if !ok {
			return ErrSpotUnavailable
		}
		booking = &model.Booking{
			UserID:        actor.UserID,
			ParkingSpotID: spot.ID,
			ParkingLotID:  lot.ID,
			VehicleNumber: vehicle,
			BookingTime:   s.clock(),
			Status:        model.BookingActive,
			TotalCost:     lot.PricePerHour,
		}
		if err := s.Bookings.CreateTx(ctx, tx, booking); err != nil {
			return err
		}
		if err := s.Lots.AdjustAvailableTx(ctx, tx, lot.ID, -1); err != nil {
			return err
		}
		spot.IsOccupied = true
		lot.AvailableSpots--
		return nil
	})
	if err != nil {
		return nil, err
	}

	ev := lotEvent(queue.BookingCreated, actor, lot)
	ev.SpotID, ev.SpotNumber = spot.ID, spot.SpotNumber
	ev.BookingID, ev.VehicleNumber, ev.Cost = booking.ID, booking.VehicleNumber, booking.TotalCost
	ev.OccurredAt = booking.BookingTime
	s.emit(ctx, ev)
	return booking, nil
}

// Receipt describes a completed booking.
type Receipt struct {
	Booking     *model.Booking `json:"booking"`
	SpotNumber  string         `json:"spot_number"`
	LotName     string         `json:"lot_name"`
	BilledHours int            `json:"billed_hours"`
	Cost        float64        `json:"cost"`
}

// Release completes the actor's active booking.  The cost is the booked
// hourly rate times BilledHours of the elapsed time.
func (s *ParkingService) Release(ctx context.Context, actor Actor) (*Receipt, error) {
	var (
		rc  Receipt
		lot *model.ParkingLot
	)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		b, err := s.Bookings.ActiveByUserTx(ctx, tx, actor.UserID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNoActiveBooking
		}
		if err != nil {
			return err
		}

		now := s.clock()
		elapsed := now.Sub(b.BookingTime)
		rc.BilledHours = BilledHours(elapsed)
		rc.Cost = Cost(b.TotalCost, elapsed)
		ok, err := s.Bookings.CompleteTx(ctx, tx, b.ID, now, rc.Cost)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNoActiveBooking
		}
		b.Status, b.ReleaseTime, b.TotalCost = model.BookingCompleted, &now, rc.Cost
		rc.Booking = b

		// The spot may already have been freed by an administrator; the
		// counter only follows an actual flag change.
		freed, err := s.Spots.SwapOccupiedTx(ctx, tx, b.ParkingSpotID, true, false)
		if err != nil {
			return err
		}
		if freed {
			if err := s.Lots.AdjustAvailableTx(ctx, tx, b.ParkingLotID, 1); err != nil {
				return err
			}
		}

		spot, err := s.Spots.GetByIDTx(ctx, tx, b.ParkingSpotID)
		if err != nil {
			return err
		}
		rc.SpotNumber = spot.SpotNumber
		if lot, err = s.Lots.GetByIDTx(ctx, tx, b.ParkingLotID); err != nil {
			return err
		}
		rc.LotName = lot.Name
		return nil
	})
	if err != nil {
		return nil, err
	}

	ev := lotEvent(queue.BookingCompleted, actor, lot)
	ev.SpotID, ev.SpotNumber = rc.Booking.ParkingSpotID, rc.SpotNumber
	ev.BookingID, ev.VehicleNumber = rc.Booking.ID, rc.Booking.VehicleNumber
	ev.Cost, ev.BilledHours = rc.Cost, rc.BilledHours
	ev.OccurredAt = *rc.Booking.ReleaseTime
	s.emit(ctx, ev)
	return &rc, nil
}

// SpotChange is the outcome of an administrative occupancy change.
// Changed is false when the spot already was in the requested state.
type SpotChange struct {
	Spot             *model.ParkingSpot `json:"spot"`
	Changed          bool               `json:"changed"`
	CancelledBooking *model.Booking     `json:"cancelled_booking,omitempty"`
	Warning          string             `json:"warning,omitempty"`
}

// ForceRelease frees an occupied spot, cancelling its active booking
// without billing.  A free spot is left alone and a warning returned.
func (s *ParkingService) ForceRelease(ctx context.Context, actor Actor, spotID uint64) (*SpotChange, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	var (
		res SpotChange
		lot *model.ParkingLot
	)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		spot, err := s.Spots.GetByIDTx(ctx, tx, spotID)
		if err != nil {
			return err
		}
		res.Spot = spot
		if !spot.IsOccupied {
			res.Warning = fmt.Sprintf("Spot %s is not currently occupied.", spot.SpotNumber)
			return nil
		}
		if res.CancelledBooking, res.Changed, err = s.freeSpotTx(ctx, tx, spot); err != nil {
			return err
		}
		if !res.Changed {
			res.Warning = fmt.Sprintf("Spot %s is not currently occupied.", spot.SpotNumber)
			return nil
		}
		lot, err = s.Lots.GetByIDTx(ctx, tx, spot.ParkingLotID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if res.Changed {
		s.emit(ctx, s.spotEvent(actor, lot, &res))
	}
	return &res, nil
}

// SetSpotStatus forces a spot's occupied flag.  Freeing cancels the active
// booking like ForceRelease.  Occupying creates no booking; the result
// carries a warning saying so.  Requesting the current state is a no-op.
func (s *ParkingService) SetSpotStatus(ctx context.Context, actor Actor, spotID uint64, occupied bool) (*SpotChange, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	var (
		res SpotChange
		lot *model.ParkingLot
	)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		spot, err := s.Spots.GetByIDTx(ctx, tx, spotID)
		if err != nil {
			return err
		}
		res.Spot = spot
		if spot.IsOccupied == occupied {
			return nil
		}

		if occupied {
			ok, err := s.Spots.SwapOccupiedTx(ctx, tx, spot.ID, false, true)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			if err := s.Lots.AdjustAvailableTx(ctx, tx, spot.ParkingLotID, -1); err != nil {
				return err
			}
			spot.IsOccupied = true
			res.Changed = true
			res.Warning = fmt.Sprintf("Spot %s is marked occupied without a booking record.", spot.SpotNumber)
		} else {
			if res.CancelledBooking, res.Changed, err = s.freeSpotTx(ctx, tx, spot); err != nil {
				return err
			}
			if !res.Changed {
				return nil
			}
		}
		lot, err = s.Lots.GetByIDTx(ctx, tx, spot.ParkingLotID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if res.Changed {
		s.emit(ctx, s.spotEvent(actor, lot, &res))
	}
	return &res, nil
}

// freeSpotTx flips an occupied spot to free, cancels its active booking if
// any and credits the lot counter.  changed is false when the spot was no
// longer occupied.
func (s *ParkingService) freeSpotTx(ctx context.Context, tx *sql.Tx, spot *model.ParkingSpot) (*model.Booking, bool, error) {
	ok, err := s.Spots.SwapOccupiedTx(ctx, tx, spot.ID, true, false)
	if err != nil || !ok {
		return nil, false, err
	}
	if err := s.Lots.AdjustAvailableTx(ctx, tx, spot.ParkingLotID, 1); err != nil {
		return nil, false, err
	}
	spot.IsOccupied = false

	b, err := s.Bookings.ActiveBySpotTx(ctx, tx, spot.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	now := s.clock()
	cancelled, err := s.Bookings.CancelTx(ctx, tx, b.ID, now)
	if err != nil {
		return nil, false, err
	}
	if !cancelled {
		return nil, true, nil
	}
	b.Status, b.ReleaseTime = model.BookingCancelled, &now
	return b, true, nil
}

func (s *ParkingService) spotEvent(actor Actor, lot *model.ParkingLot, res *SpotChange) queue.ParkingEvent {
	ev := lotEvent(queue.SpotStatusChanged, actor, lot)
	ev.SpotID, ev.SpotNumber = res.Spot.ID, res.Spot.SpotNumber
	if b := res.CancelledBooking; b != nil {
		ev.Type = queue.BookingCancelled
		ev.BookingID, ev.VehicleNumber = b.ID, b.VehicleNumber
	}
	return ev
}

package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/parking-reservation/internal/model"
	"github.com/iliyamo/parking-reservation/internal/repository"
)

const (
	userHistoryLimit = 5
	spotHistoryLimit = 10
	recentFeedLimit  = 50
)

// ListLots returns lots whose name or location contains search (all lots
// when empty).
func (s *ParkingService) ListLots(ctx context.Context, search string) ([]*model.ParkingLot, error) {
	return s.Lots.List(ctx, search)
}

// FreeSpots lists the spots of a lot that can be booked.
func (s *ParkingService) FreeSpots(ctx context.Context, lotID uint64) ([]*model.ParkingSpot, error) {
	if _, err := s.Lots.GetByID(ctx, lotID); err != nil {
		return nil, err
	}
	return s.Spots.ListFreeByLot(ctx, lotID)
}

// ActiveBooking is the user's current booking with its provisional cost.
type ActiveBooking struct {
	*model.Booking
	SpotNumber      string  `json:"spot_number"`
	LotName         string  `json:"lot_name"`
	LotLocation     string  `json:"lot_location"`
	ElapsedHours    int     `json:"elapsed_hours"`
	ProvisionalCost float64 `json:"provisional_cost"`
}

// Dashboard is what a user sees after signing in.
type Dashboard struct {
	Active  *ActiveBooking           `json:"active"`
	History []*model.BookingActivity `json:"history"`
	Stats   model.UserStats          `json:"stats"`
}

// UserDashboard returns the actor's active booking, last finished bookings
// and stats.
func (s *ParkingService) UserDashboard(ctx context.Context, actor Actor) (*Dashboard, error) {
	var d Dashboard
	b, err := s.Bookings.ActiveByUser(ctx, actor.UserID)
	switch {
	case err == nil:
		d.Active, err = s.activeView(ctx, b)
		if err != nil {
			return nil, err
		}
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	if d.History, err = s.Reports.UserHistory(ctx, actor.UserID, userHistoryLimit); err != nil {
		return nil, err
	}
	withDurations(d.History)
	if d.Stats, err = s.Reports.UserStats(ctx, actor.UserID); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *ParkingService) activeView(ctx context.Context, b *model.Booking) (*ActiveBooking, error) {
	spot, err := s.Spots.GetByID(ctx, b.ParkingSpotID)
	if err != nil {
		return nil, err
	}
	lot, err := s.Lots.GetByID(ctx, b.ParkingLotID)
	if err != nil {
		return nil, err
	}
	elapsed := s.clock().Sub(b.BookingTime)
	return &ActiveBooking{
		Booking:         b,
		SpotNumber:      spot.SpotNumber,
		LotName:         lot.Name,
		LotLocation:     lot.Location,
		ElapsedHours:    BilledHours(elapsed),
		ProvisionalCost: Cost(b.TotalCost, elapsed),
	}, nil
}

// UserStats returns booking counts and spend for the actor.
func (s *ParkingService) UserStats(ctx context.Context, actor Actor) (model.UserStats, error) {
	return s.Reports.UserStats(ctx, actor.UserID)
}

// LotWithSpots is a lot on the admin dashboard.
type LotWithSpots struct {
	*model.LotOccupancy
	Spots []*model.ParkingSpot `json:"spots"`
}

// AdminLots lists lots with their occupancy and spots.
func (s *ParkingService) AdminLots(ctx context.Context, actor Actor, search string) ([]*LotWithSpots, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	lots, err := s.Reports.LotsWithOccupancy(ctx, search)
	if err != nil {
		return nil, err
	}
	out := make([]*LotWithSpots, 0, len(lots))
	for _, l := range lots {
		spots, err := s.Spots.ListByLot(ctx, l.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, &LotWithSpots{LotOccupancy: l, Spots: spots})
	}
	return out, nil
}

// SpotDetail is the admin view of one spot.
type SpotDetail struct {
	Spot    *model.ParkingSpot       `json:"spot"`
	Lot     *model.ParkingLot        `json:"lot"`
	Active  *model.Booking           `json:"active,omitempty"`
	History []*model.BookingActivity `json:"history"`
}

// SpotDetail returns a spot with its lot, active booking and last bookings.
func (s *ParkingService) SpotDetail(ctx context.Context, actor Actor, spotID uint64) (*SpotDetail, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	spot, err := s.Spots.GetByID(ctx, spotID)
	if err != nil {
		return nil, err
	}
	d := SpotDetail{Spot: spot}
	if d.Lot, err = s.Lots.GetByID(ctx, spot.ParkingLotID); err != nil {
		return nil, err
	}
	d.Active, err = s.Bookings.ActiveBySpot(ctx, spotID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if d.History, err = s.Reports.SpotHistory(ctx, spotID, spotHistoryLimit); err != nil {
		return nil, err
	}
	withDurations(d.History)
	return &d, nil
}

// Customers lists non-admin accounts with their booking counts.
func (s *ParkingService) Customers(ctx context.Context, actor Actor) ([]*model.CustomerSummary, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	return s.Reports.Customers(ctx)
}

// Report is the system-wide admin report.
type Report struct {
	Stats       model.SystemStats        `json:"stats"`
	Recent      []*model.BookingActivity `json:"recent"`
	GeneratedAt time.Time                `json:"generated_at"`
}

// SystemReport returns global stats and the latest bookings feed.
func (s *ParkingService) SystemReport(ctx context.Context, actor Actor) (*Report, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	var (
		r   = Report{GeneratedAt: s.clock()}
		err error
	)
	if r.Stats, err = s.Reports.SystemStats(ctx); err != nil {
		return nil, err
	}
	if r.Recent, err = s.Reports.RecentActivity(ctx, recentFeedLimit); err != nil {
		return nil, err
	}
	withDurations(r.Recent)
	return &r, nil
}

// LedgerMismatches lists lots whose counters disagree with their spots.
func (s *ParkingService) LedgerMismatches(ctx context.Context, actor Actor) ([]*model.LotOccupancy, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	return s.Reports.LedgerMismatches(ctx)
}

func withDurations(items []*model.BookingActivity) {
	for _, a := range items {
		a.Duration = FormatDuration(a.Booking)
	}
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/iliyamo/parking-reservation/internal/model"
	"github.com/iliyamo/parking-reservation/internal/queue"
	"github.com/iliyamo/parking-reservation/internal/repository"
)

// LotInput carries the editable fields of a lot.
type LotInput struct {
	Name         string
	Location     string
	TotalSpots   int
	PricePerHour float64
}

func (in *LotInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Location = strings.TrimSpace(in.Location)
	switch {
	case in.Name == "":
		return fmt.Errorf("%w: name is required", ErrValidation)
	case in.Location == "":
		return fmt.Errorf("%w: location is required", ErrValidation)
	case in.TotalSpots < 1:
		return fmt.Errorf("%w: total_spots must be at least 1", ErrValidation)
	case in.PricePerHour <= 0:
		return fmt.Errorf("%w: price_per_hour must be positive", ErrValidation)
	}
	return nil
}

// CreateLot inserts a lot with TotalSpots free spots labeled A01, A02, ...
func (s *ParkingService) CreateLot(ctx context.Context, actor Actor, in LotInput) (*model.ParkingLot, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	lot := &model.ParkingLot{
		Name:           in.Name,
		Location:       in.Location,
		TotalSpots:     in.TotalSpots,
		AvailableSpots: in.TotalSpots,
		PricePerHour:   in.PricePerHour,
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.Lots.CreateTx(ctx, tx, lot); err != nil {
			return err
		}
		return s.Spots.CreateBulkTx(ctx, tx, lot.ID, NextSpotLabels(nil, in.TotalSpots))
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, lotEvent(queue.LotCreated, actor, lot))
	return lot, nil
}

// LotUpdate reports what UpdateLot did to the spot set.
type LotUpdate struct {
	Lot     *model.ParkingLot `json:"lot"`
	Added   int               `json:"added"`
	Removed int               `json:"removed"`
}

// UpdateLot overwrites name, location and rate, and resizes the lot to
// in.TotalSpots.  Growing appends new free spots.  Shrinking deletes the
// lowest-id free spots with their booking history, and fails with
// ErrInsufficientFreeCapacity when too few spots are free.
func (s *ParkingService) UpdateLot(ctx context.Context, actor Actor, lotID uint64, in LotInput) (*LotUpdate, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	var res LotUpdate
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		lot, err := s.Lots.GetByIDTx(ctx, tx, lotID)
		if err != nil {
			return err
		}
		spots, err := s.Spots.ListByLotTx(ctx, tx, lotID)
		if err != nil {
			return err
		}

		current := len(spots)
		switch {
		case in.TotalSpots > current:
			res.Added = in.TotalSpots - current
			if err := s.Spots.CreateBulkTx(ctx, tx, lotID, NextSpotLabels(spots, res.Added)); err != nil {
				return err
			}
			if err := s.Lots.AdjustAvailableTx(ctx, tx, lotID, res.Added); err != nil {
				return err
			}
		case in.TotalSpots < current:
			need := current - in.TotalSpots
			ids := make([]uint64, 0, need)
			for _, sp := range spots {
				if len(ids) == need {
					break
				}
				if !sp.IsOccupied {
					ids = append(ids, sp.ID)
				}
			}
			if len(ids) < need {
				return fmt.Errorf("%w: cannot reduce spots to %d, only %d spots are free",
					ErrInsufficientFreeCapacity, in.TotalSpots, len(ids))
			}
			if err := s.Spots.DeleteByIDsTx(ctx, tx, ids); err != nil {
				return err
			}
			if err := s.Lots.AdjustAvailableTx(ctx, tx, lotID, -need); err != nil {
				return err
			}
			res.Removed = need
		}

		lot.Name, lot.Location, lot.PricePerHour, lot.TotalSpots = in.Name, in.Location, in.PricePerHour, in.TotalSpots
		if err := s.Lots.UpdateDetailsTx(ctx, tx, lot); err != nil {
			return err
		}
		res.Lot, err = s.Lots.GetByIDTx(ctx, tx, lotID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, lotEvent(queue.LotUpdated, actor, res.Lot))
	return &res, nil
}

// DeleteLot removes a lot with its spots and bookings.  It is refused
// while any spot of the lot is occupied.
func (s *ParkingService) DeleteLot(ctx context.Context, actor Actor, lotID uint64) error {
	if err := actor.requireAdmin(); err != nil {
		return err
	}
	var lot *model.ParkingLot
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		if lot, err = s.Lots.GetByIDTx(ctx, tx, lotID); err != nil {
			return err
		}
		n, err := s.Spots.CountOccupiedTx(ctx, tx, lotID)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %d spots are currently occupied", ErrLotHasOccupiedSpots, n)
		}
		return s.Lots.DeleteTx(ctx, tx, lotID)
	})
	if err != nil {
		return err
	}
	ev := lotEvent(queue.LotDeleted, actor, lot)
	ev.AvailableSpots, ev.TotalSpots = 0, 0
	s.emit(ctx, ev)
	return nil
}

// MaxSpotNameLen bounds spot labels.
const MaxSpotNameLen = 10

// RenameSpot relabels a spot.  Labels are unique within a lot.
func (s *ParkingService) RenameSpot(ctx context.Context, actor Actor, spotID uint64, name string) (*model.ParkingSpot, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < 1 || n > MaxSpotNameLen {
		return nil, fmt.Errorf("%w: spot name must be 1-%d characters", ErrValidation, MaxSpotNameLen)
	}
	var (
		spot *model.ParkingSpot
		lot  *model.ParkingLot
	)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		if spot, err = s.Spots.GetByIDTx(ctx, tx, spotID); err != nil {
			return err
		}
		if spot.SpotNumber == name {
			return nil
		}
		taken, err := s.Spots.LabelTakenTx(ctx, tx, spot.ParkingLotID, name, spot.ID)
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicateSpotName
		}
		if err := s.Spots.RenameTx(ctx, tx, spot.ID, name); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrDuplicateSpotName
			}
			return err
		}
		spot.SpotNumber = name
		lot, err = s.Lots.GetByIDTx(ctx, tx, spot.ParkingLotID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if lot != nil {
		ev := lotEvent(queue.SpotRenamed, actor, lot)
		ev.SpotID, ev.SpotNumber = spot.ID, spot.SpotNumber
		s.emit(ctx, ev)
	}
	return spot, nil
}

// NextSpotLabels returns n new labels for a lot that already has existing.
// Numbering continues after the larger of the spot count and the highest
// numeric "A" label, skipping labels already in use.
func NextSpotLabels(existing []*model.ParkingSpot, n int) []string {
	taken := make(map[string]bool, len(existing))
	next := len(existing)
	for _, sp := range existing {
		taken[sp.SpotNumber] = true
		if rest, ok := strings.CutPrefix(sp.SpotNumber, "A"); ok {
			if k, err := strconv.Atoi(rest); err == nil && k > next {
				next = k
			}
		}
	}
	out := make([]string, 0, n)
	for i := next + 1; len(out) < n; i++ {
		label := fmt.Sprintf("A%02d", i)
		if !taken[label] {
			out = append(out, label)
		}
	}
	return out
}

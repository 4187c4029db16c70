package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/iliyamo/parking-reservation/internal/model"
	"github.com/iliyamo/parking-reservation/internal/repository"
)

// BootstrapConfig controls first-start seeding.
type BootstrapConfig struct {
	AdminEmail     string
	AdminPassword  string
	BcryptCost     int
	SeedSampleLots bool
}

var sampleLots = []LotInput{
	{Name: "City Center Parking", Location: "Main Street, Downtown", TotalSpots: 20, PricePerHour: 50},
	{Name: "Mall Parking", Location: "Shopping Mall Complex", TotalSpots: 30, PricePerHour: 40},
	{Name: "Airport Parking", Location: "Terminal 1, Airport", TotalSpots: 50, PricePerHour: 80},
}

// Bootstrap creates the administrator account when no admin exists and,
// if enabled, seeds sample lots into an empty database.
func (s *ParkingService) Bootstrap(ctx context.Context, cfg BootstrapConfig) error {
	admin := Actor{Role: model.RoleAdmin}
	existing, err := s.Users.FirstByRole(ctx, model.RoleAdmin)
	switch {
	case err == nil:
		admin.UserID = existing.ID
	case !errors.Is(err, repository.ErrUserNotFound):
		return fmt.Errorf("find admin: %w", err)
	default:
		u := &model.User{
			Email:    cfg.AdminEmail,
			FullName: "Administrator",
			Role:     model.RoleAdmin,
		}
		err := s.Users.Create(ctx, u, cfg.AdminPassword, cfg.BcryptCost)
		if errors.Is(err, repository.ErrEmailExists) {
			return fmt.Errorf("admin email %s is taken by a non-admin account", cfg.AdminEmail)
		}
		if err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		admin.UserID = u.ID
		log.Printf("seed: created admin %s", u.Email)
	}

	if !cfg.SeedSampleLots {
		return nil
	}
	lots, err := s.Lots.List(ctx, "")
	if err != nil {
		return fmt.Errorf("list lots: %w", err)
	}
	if len(lots) > 0 {
		return nil
	}
	for _, in := range sampleLots {
		lot, err := s.CreateLot(ctx, admin, in)
		if err != nil {
			return fmt.Errorf("seed lot %q: %w", in.Name, err)
		}
		log.Printf("seed: created lot %q with %d spots", lot.Name, lot.TotalSpots)
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/parking-reservation/internal/model"
)

// BookingRepo stores bookings.  Status transitions are conditional updates
// on status='active', so a booking can be finished at most once.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo constructs a BookingRepo with the given DB handle.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = "id, user_id, parking_spot_id, parking_lot_id, vehicle_number, booking_time, release_time, status, total_cost"

// CreateTx inserts an active booking and sets b.ID.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings (user_id, parking_spot_id, parking_lot_id, vehicle_number, booking_time, status, total_cost)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	if b.Status == "" {
		b.Status = model.BookingActive
	}
	res, err := tx.ExecContext(ctx, q, b.UserID, b.ParkingSpotID, b.ParkingLotID, b.VehicleNumber,
		b.BookingTime.UTC(), string(b.Status), b.TotalCost)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// ActiveByUser returns the user's active booking or ErrBookingNotFound.
func (r *BookingRepo) ActiveByUser(ctx context.Context, userID uint64) (*model.Booking, error) {
	return getBooking(ctx, r.db, `SELECT `+bookingColumns+` FROM bookings WHERE user_id = ? AND status = 'active' ORDER BY id DESC LIMIT 1`, userID)
}

// ActiveByUserTx is ActiveByUser inside a transaction.
func (r *BookingRepo) ActiveByUserTx(ctx context.Context, tx *sql.Tx, userID uint64) (*model.Booking, error) {
	return getBooking(ctx, tx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id = ? AND status = 'active' ORDER BY id DESC LIMIT 1`, userID)
}

// ActiveBySpot returns the active booking holding a spot or ErrBookingNotFound.
func (r *BookingRepo) ActiveBySpot(ctx context.Context, spotID uint64) (*model.Booking, error) {
	return getBooking(ctx, r.db, `SELECT `+bookingColumns+` FROM bookings WHERE parking_spot_id = ? AND status = 'active' ORDER BY id DESC LIMIT 1`, spotID)
}

// ActiveBySpotTx is ActiveBySpot inside a transaction.
func (r *BookingRepo) ActiveBySpotTx(ctx context.Context, tx *sql.Tx, spotID uint64) (*model.Booking, error) {
	return getBooking(ctx, tx, `SELECT `+bookingColumns+` FROM bookings WHERE parking_spot_id = ? AND status = 'active' ORDER BY id DESC LIMIT 1`, spotID)
}

func getBooking(ctx context.Context, q querier, query string, args ...any) (*model.Booking, error) {
	b, err := scanBooking(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return b, nil
}

// CompleteTx finishes an active booking with the billed cost.  It reports
// false when the booking was no longer active.
func (r *BookingRepo) CompleteTx(ctx context.Context, tx *sql.Tx, bookingID uint64, releasedAt time.Time, cost float64) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = 'completed', release_time = ?, total_cost = ? WHERE id = ? AND status = 'active'`,
		releasedAt.UTC(), cost, bookingID)
	if err != nil {
		return false, err
	}
	return affectedOne(res)
}

// CancelTx cancels an active booking and leaves its cost untouched.
func (r *BookingRepo) CancelTx(ctx context.Context, tx *sql.Tx, bookingID uint64, releasedAt time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = 'cancelled', release_time = ? WHERE id = ? AND status = 'active'`,
		releasedAt.UTC(), bookingID)
	if err != nil {
		return false, err
	}
	return affectedOne(res)
}

func scanBooking(row rowScanner) (*model.Booking, error) {
	var (
		b       model.Booking
		release sql.NullTime
		status  string
	)
	if err := row.Scan(&b.ID, &b.UserID, &b.ParkingSpotID, &b.ParkingLotID, &b.VehicleNumber,
		&b.BookingTime, &release, &status, &b.TotalCost); err != nil {
		return nil, err
	}
	if release.Valid {
		t := release.Time
		b.ReleaseTime = &t
	}
	b.Status = model.BookingStatus(status)
	return &b, nil
}

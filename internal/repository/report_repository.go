package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/parking-reservation/internal/model"
)

// ReportRepo runs the read-only aggregate queries behind dashboards and
// admin reports.
type ReportRepo struct {
	db *sql.DB
}

// NewReportRepo constructs a ReportRepo with the given DB handle.
func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{db: db} }

// UserStats counts a user's bookings by status and sums what completed
// bookings cost.
func (r *ReportRepo) UserStats(ctx context.Context, userID uint64) (model.UserStats, error) {
	const q = `SELECT COUNT(*),
	                  COUNT(CASE WHEN status = 'active' THEN 1 END),
	                  COUNT(CASE WHEN status = 'completed' THEN 1 END),
	                  COUNT(CASE WHEN status = 'cancelled' THEN 1 END),
	                  COALESCE(SUM(CASE WHEN status = 'completed' THEN total_cost END), 0)
	           FROM bookings WHERE user_id = ?`
	var s model.UserStats
	err := r.db.QueryRowContext(ctx, q, userID).
		Scan(&s.TotalBookings, &s.ActiveBookings, &s.CompletedBookings, &s.CancelledBookings, &s.TotalSpent)
	return s, err
}

// SystemStats aggregates users, lots, spots and bookings.
func (r *ReportRepo) SystemStats(ctx context.Context) (model.SystemStats, error) {
	var s model.SystemStats
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE role <> 'admin'`).Scan(&s.TotalUsers); err != nil {
		return s, err
	}
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM parking_lots`).Scan(&s.TotalLots); err != nil {
		return s, err
	}
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(CASE WHEN is_occupied = 1 THEN 1 END) FROM parking_spots`).
		Scan(&s.TotalSpots, &s.OccupiedSpots); err != nil {
		return s, err
	}
	const qb = `SELECT COUNT(*),
	                   COUNT(CASE WHEN status = 'active' THEN 1 END),
	                   COUNT(CASE WHEN status = 'completed' THEN 1 END),
	                   COUNT(CASE WHEN status = 'cancelled' THEN 1 END),
	                   COALESCE(SUM(CASE WHEN status = 'completed' THEN total_cost END), 0)
	            FROM bookings`
	err := r.db.QueryRowContext(ctx, qb).
		Scan(&s.TotalBookings, &s.ActiveBookings, &s.CompletedBookings, &s.CancelledBookings, &s.TotalRevenue)
	return s, err
}

const activityQuery = `SELECT b.id, b.user_id, b.parking_spot_id, b.parking_lot_id, b.vehicle_number,
                                 b.booking_time, b.release_time, b.status, b.total_cost,
                                 u.email, u.fullname, s.spot_number, l.name, l.location
                          FROM bookings b
                          JOIN users u ON u.id = b.user_id
                          JOIN parking_spots s ON s.id = b.parking_spot_id
                          JOIN parking_lots l ON l.id = b.parking_lot_id`

// RecentActivity returns the newest bookings across the system joined with
// user, spot and lot labels.  Duration is left for the caller to fill.
func (r *ReportRepo) RecentActivity(ctx context.Context, limit int) ([]*model.BookingActivity, error) {
	return r.activity(ctx, activityQuery+` ORDER BY b.booking_time DESC, b.id DESC LIMIT ?`, limit)
}

// UserHistory returns a user's newest completed or cancelled bookings.
func (r *ReportRepo) UserHistory(ctx context.Context, userID uint64, limit int) ([]*model.BookingActivity, error) {
	return r.activity(ctx, activityQuery+` WHERE b.user_id = ? AND b.status IN ('completed', 'cancelled')
	                                        ORDER BY b.booking_time DESC, b.id DESC LIMIT ?`, userID, limit)
}

// SpotHistory returns a spot's newest bookings of any status.
func (r *ReportRepo) SpotHistory(ctx context.Context, spotID uint64, limit int) ([]*model.BookingActivity, error) {
	return r.activity(ctx, activityQuery+` WHERE b.parking_spot_id = ?
	                                        ORDER BY b.booking_time DESC, b.id DESC LIMIT ?`, spotID, limit)
}

func (r *ReportRepo) activity(ctx context.Context, q string, args ...any) ([]*model.BookingActivity, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.BookingActivity, 0)
	for rows.Next() {
		var (
			a       model.BookingActivity
			release sql.NullTime
			status  string
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.ParkingSpotID, &a.ParkingLotID, &a.VehicleNumber,
			&a.BookingTime, &release, &status, &a.TotalCost,
			&a.UserEmail, &a.UserName, &a.SpotNumber, &a.LotName, &a.LotLocation); err != nil {
			return nil, err
		}
		if release.Valid {
			t := release.Time
			a.ReleaseTime = &t
		}
		a.Status = model.BookingStatus(status)
		out = append(out, &a)
	}
	return out, rows.Err()
}

// Customers lists non-admin accounts with their booking counts.
func (r *ReportRepo) Customers(ctx context.Context) ([]*model.CustomerSummary, error) {
	const q = `SELECT u.id, u.email, u.fullname, u.phone, u.pincode, u.created_at,
	                  COUNT(b.id),
	                  COUNT(CASE WHEN b.status = 'active' THEN 1 END)
	           FROM users u
	           LEFT JOIN bookings b ON b.user_id = u.id
	           WHERE u.role <> 'admin'
	           GROUP BY u.id, u.email, u.fullname, u.phone, u.pincode, u.created_at
	           ORDER BY u.id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.CustomerSummary, 0)
	for rows.Next() {
		var c model.CustomerSummary
		if err := rows.Scan(&c.ID, &c.Email, &c.FullName, &c.Phone, &c.Pincode, &c.CreatedAt,
			&c.TotalBookings, &c.ActiveBookings); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// LotsWithOccupancy lists lots (optionally filtered like LotRepo.List) with
// free and occupied counts taken from the spot rows.
func (r *ReportRepo) LotsWithOccupancy(ctx context.Context, search string) ([]*model.LotOccupancy, error) {
	q := `SELECT l.id, l.name, l.location, l.total_spots, l.available_spots, l.price_per_hour,
	             COUNT(CASE WHEN s.is_occupied = 1 THEN 1 END),
	             COUNT(CASE WHEN s.is_occupied = 0 THEN 1 END)
	      FROM parking_lots l
	      LEFT JOIN parking_spots s ON s.parking_lot_id = l.id`
	var args []any
	if search != "" {
		q += ` WHERE l.name LIKE ? ESCAPE '!' OR l.location LIKE ? ESCAPE '!'`
		p := likePattern(search)
		args = append(args, p, p)
	}
	q += ` GROUP BY l.id, l.name, l.location, l.total_spots, l.available_spots, l.price_per_hour ORDER BY l.id`
	return r.occupancy(ctx, q, args...)
}

// LedgerMismatches returns lots whose available_spots counter or
// total_spots disagrees with their spot rows.  A healthy store returns none.
func (r *ReportRepo) LedgerMismatches(ctx context.Context) ([]*model.LotOccupancy, error) {
	const q = `SELECT l.id, l.name, l.location, l.total_spots, l.available_spots, l.price_per_hour,
	                  COUNT(CASE WHEN s.is_occupied = 1 THEN 1 END),
	                  COUNT(CASE WHEN s.is_occupied = 0 THEN 1 END)
	           FROM parking_lots l
	           LEFT JOIN parking_spots s ON s.parking_lot_id = l.id
	           GROUP BY l.id, l.name, l.location, l.total_spots, l.available_spots, l.price_per_hour
	           HAVING l.available_spots <> COUNT(CASE WHEN s.is_occupied = 0 THEN 1 END)
	               OR l.total_spots <> COUNT(s.id)
	           ORDER BY l.id`
	return r.occupancy(ctx, q)
}

func (r *ReportRepo) occupancy(ctx context.Context, q string, args ...any) ([]*model.LotOccupancy, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.LotOccupancy, 0)
	for rows.Next() {
		var o model.LotOccupancy
		if err := rows.Scan(&o.ID, &o.Name, &o.Location, &o.TotalSpots, &o.AvailableSpots, &o.PricePerHour,
			&o.OccupiedCount, &o.FreeCount); err != nil {
			return nil, err
		}
		out = append(out, &o)
	}
	return out, rows.Err()
}

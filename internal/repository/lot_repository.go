package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/parking-reservation/internal/model"
)

// LotRepo stores parking lots.  Mutations that must stay consistent with
// spot state (counter adjustments, deletes) only exist as *Tx methods so
// they always run inside the caller's transaction.
type LotRepo struct {
	db *sql.DB
}

// NewLotRepo constructs a LotRepo with the given DB handle.
func NewLotRepo(db *sql.DB) *LotRepo { return &LotRepo{db: db} }

const lotColumns = "id, name, location, total_spots, available_spots, price_per_hour"

// CreateTx inserts a lot and populates its ID.
func (r *LotRepo) CreateTx(ctx context.Context, tx *sql.Tx, l *model.ParkingLot) error {
	const q = `INSERT INTO parking_lots (name, location, total_spots, available_spots, price_per_hour) VALUES (?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, l.Name, l.Location, l.TotalSpots, l.AvailableSpots, l.PricePerHour)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return nil
}

// GetByID returns ErrLotNotFound when no lot has the id.
func (r *LotRepo) GetByID(ctx context.Context, id uint64) (*model.ParkingLot, error) {
	return getLot(ctx, r.db, id)
}

// GetByIDTx is GetByID inside a transaction.
func (r *LotRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.ParkingLot, error) {
	return getLot(ctx, tx, id)
}

func getLot(ctx context.Context, q querier, id uint64) (*model.ParkingLot, error) {
	row := q.QueryRowContext(ctx, `SELECT `+lotColumns+` FROM parking_lots WHERE id = ?`, id)
	l, err := scanLot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLotNotFound
		}
		return nil, err
	}
	return l, nil
}

// List returns all lots ordered by id.  A non-empty search keeps only lots
// whose name or location contains it.
func (r *LotRepo) List(ctx context.Context, search string) ([]*model.ParkingLot, error) {
	q := `SELECT ` + lotColumns + ` FROM parking_lots`
	var args []any
	if search != "" {
		q += ` WHERE name LIKE ? ESCAPE '!' OR location LIKE ? ESCAPE '!'`
		p := likePattern(search)
		args = append(args, p, p)
	}
	q += ` ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.ParkingLot, 0)
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// UpdateDetailsTx overwrites name, location, rate and total_spots.  The
// available_spots counter is adjusted separately with AdjustAvailableTx.
func (r *LotRepo) UpdateDetailsTx(ctx context.Context, tx *sql.Tx, l *model.ParkingLot) error {
	const q = `UPDATE parking_lots SET name = ?, location = ?, price_per_hour = ?, total_spots = ? WHERE id = ?`
	res, err := tx.ExecContext(ctx, q, l.Name, l.Location, l.PricePerHour, l.TotalSpots, l.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// MySQL reports 0 for an unchanged row, so confirm existence.
		if _, err := getLot(ctx, tx, l.ID); err != nil {
			return err
		}
	}
	return nil
}

// AdjustAvailableTx adds delta (positive or negative) to the lot's
// available_spots counter.
func (r *LotRepo) AdjustAvailableTx(ctx context.Context, tx *sql.Tx, lotID uint64, delta int) error {
	if delta == 0 {
		return nil
	}
	res, err := tx.ExecContext(ctx, `UPDATE parking_lots SET available_spots = available_spots + ? WHERE id = ?`, delta, lotID)
	if err != nil {
		return err
	}
	ok, err := affectedOne(res)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLotNotFound
	}
	return nil
}

// DeleteTx removes the lot's bookings, then its spots, then the lot.
func (r *LotRepo) DeleteTx(ctx context.Context, tx *sql.Tx, lotID uint64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE parking_lot_id = ?`, lotID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM parking_spots WHERE parking_lot_id = ?`, lotID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM parking_lots WHERE id = ?`, lotID)
	if err != nil {
		return err
	}
	ok, err := affectedOne(res)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLotNotFound
	}
	return nil
}

func scanLot(row rowScanner) (*model.ParkingLot, error) {
	var l model.ParkingLot
	if err := row.Scan(&l.ID, &l.Name, &l.Location, &l.TotalSpots, &l.AvailableSpots, &l.PricePerHour); err != nil {
		return nil, err
	}
	return &l, nil
}

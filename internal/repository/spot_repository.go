package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/parking-reservation/internal/model"
)

// SpotRepo provides access to parking spots.  Occupancy changes go through
// SwapOccupiedTx, a compare-and-swap on is_occupied, so two requests racing
// for the same spot cannot both win.
type SpotRepo struct {
	db *sql.DB
}

// NewSpotRepo constructs a SpotRepo with the given DB handle.
func NewSpotRepo(db *sql.DB) *SpotRepo { return &SpotRepo{db: db} }

const spotColumns = "id, parking_lot_id, spot_number, is_occupied"

// CreateBulkTx inserts one free spot per label in a single statement.
// A clash with an existing label of the lot is reported as ErrConflict.
func (r *SpotRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, lotID uint64, labels []string) error {
	if len(labels) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString("INSERT INTO parking_spots (parking_lot_id, spot_number, is_occupied) VALUES ")
	args := make([]any, 0, len(labels)*2)
	for i, label := range labels {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?, ?, 0)")
		args = append(args, lotID, label)
	}
	if _, err := tx.ExecContext(ctx, b.String(), args...); err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

// ListByLot returns every spot of a lot ordered by id.
func (r *SpotRepo) ListByLot(ctx context.Context, lotID uint64) ([]*model.ParkingSpot, error) {
	return listSpots(ctx, r.db, `SELECT `+spotColumns+` FROM parking_spots WHERE parking_lot_id = ? ORDER BY id`, lotID)
}

// ListByLotTx is ListByLot inside a transaction.
func (r *SpotRepo) ListByLotTx(ctx context.Context, tx *sql.Tx, lotID uint64) ([]*model.ParkingSpot, error) {
	return listSpots(ctx, tx, `SELECT `+spotColumns+` FROM parking_spots WHERE parking_lot_id = ? ORDER BY id`, lotID)
}

// ListFreeByLot returns the unoccupied spots of a lot ordered by id.
func (r *SpotRepo) ListFreeByLot(ctx context.Context, lotID uint64) ([]*model.ParkingSpot, error) {
	return listSpots(ctx, r.db, `SELECT `+spotColumns+` FROM parking_spots WHERE parking_lot_id = ? AND is_occupied = 0 ORDER BY id`, lotID)
}

func listSpots(ctx context.Context, q querier, query string, args ...any) ([]*model.ParkingSpot, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.ParkingSpot, 0)
	for rows.Next() {
		s, err := scanSpot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetByID returns ErrSpotNotFound when the spot does not exist.
func (r *SpotRepo) GetByID(ctx context.Context, id uint64) (*model.ParkingSpot, error) {
	return getSpot(ctx, r.db, id)
}

// GetByIDTx is GetByID inside a transaction.
func (r *SpotRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.ParkingSpot, error) {
	return getSpot(ctx, tx, id)
}

func getSpot(ctx context.Context, q querier, id uint64) (*model.ParkingSpot, error) {
	s, err := scanSpot(q.QueryRowContext(ctx, `SELECT `+spotColumns+` FROM parking_spots WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSpotNotFound
		}
		return nil, err
	}
	return s, nil
}

// CountOccupiedTx counts the occupied spots of a lot.
func (r *SpotRepo) CountOccupiedTx(ctx context.Context, tx *sql.Tx, lotID uint64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM parking_spots WHERE parking_lot_id = ? AND is_occupied = 1`, lotID).Scan(&n)
	return n, err
}

// SwapOccupiedTx sets is_occupied to next only if it currently equals
// expected.  It reports false when the row was not in the expected state
// (or does not exist).
func (r *SpotRepo) SwapOccupiedTx(ctx context.Context, tx *sql.Tx, spotID uint64, expected, next bool) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE parking_spots SET is_occupied = ? WHERE id = ? AND is_occupied = ?`,
		boolInt(next), spotID, boolInt(expected))
	if err != nil {
		return false, err
	}
	return affectedOne(res)
}

// LabelTakenTx reports whether another spot of the lot already uses label.
func (r *SpotRepo) LabelTakenTx(ctx context.Context, tx *sql.Tx, lotID uint64, label string, exceptID uint64) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM parking_spots WHERE parking_lot_id = ? AND spot_number = ? AND id <> ?`,
		lotID, label, exceptID).Scan(&n)
	return n > 0, err
}

// RenameTx changes a spot label.  Uniqueness violations map to ErrConflict.
func (r *SpotRepo) RenameTx(ctx context.Context, tx *sql.Tx, spotID uint64, label string) error {
	if _, err := tx.ExecContext(ctx, `UPDATE parking_spots SET spot_number = ? WHERE id = ?`, label, spotID); err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

// DeleteByIDsTx removes the given spots together with their booking history.
func (r *SpotRepo) DeleteByIDsTx(ctx context.Context, tx *sql.Tx, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	in := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE parking_spot_id IN (`+in+`)`, args...); err != nil {
		return err
	}
	// Only free spots are ever removed.
	res, err := tx.ExecContext(ctx, `DELETE FROM parking_spots WHERE is_occupied = 0 AND id IN (`+in+`)`, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if int(n) != len(ids) {
		return ErrConflict
	}
	return nil
}

func scanSpot(row rowScanner) (*model.ParkingSpot, error) {
	var s model.ParkingSpot
	if err := row.Scan(&s.ID, &s.ParkingLotID, &s.SpotNumber, &s.IsOccupied); err != nil {
		return nil, err
	}
	return &s, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/parking-reservation/internal/database"
	"github.com/iliyamo/parking-reservation/internal/model"
	"github.com/iliyamo/parking-reservation/internal/queue"
	"github.com/iliyamo/parking-reservation/internal/repository"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recorder struct {
	mu     sync.Mutex
	events []queue.ParkingEvent
}

func (r *recorder) Notify(_ context.Context, ev queue.ParkingEvent) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return nil
}

func (r *recorder) types() []queue.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]queue.EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

type fixture struct {
	svc   *ParkingService
	clock *fakeClock
	rec   *recorder
	admin Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "parking.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(ctx, db, "sqlite"))

	f := &fixture{
		clock: &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
		rec:   &recorder{},
	}
	f.svc = NewParkingService(db, WithClock(f.clock.Now), WithNotifier(f.rec))
	f.admin = f.user(t, "admin@example.com", model.RoleAdmin)
	return f
}

func (f *fixture) user(t *testing.T, email string, role model.Role) Actor {
	t.Helper()
	u := &model.User{Email: email, FullName: "Test User", Address: "1 Road", Phone: "9876543210", Pincode: "560001", Role: role}
	require.NoError(t, f.svc.Users.Create(context.Background(), u, "secret1", bcrypt.MinCost))
	return Actor{UserID: u.ID, Role: role}
}

func (f *fixture) lot(t *testing.T, spots int, rate float64) *model.ParkingLot {
	t.Helper()
	lot, err := f.svc.CreateLot(context.Background(), f.admin, LotInput{
		Name: "Central", Location: "MG Road", TotalSpots: spots, PricePerHour: rate,
	})
	require.NoError(t, err)
	return lot
}

func (f *fixture) spots(t *testing.T, lotID uint64) []*model.ParkingSpot {
	t.Helper()
	spots, err := f.svc.Spots.ListByLot(context.Background(), lotID)
	require.NoError(t, err)
	return spots
}

func (f *fixture) reload(t *testing.T, lotID uint64) *model.ParkingLot {
	t.Helper()
	lot, err := f.svc.Lots.GetByID(context.Background(), lotID)
	require.NoError(t, err)
	return lot
}

// checkLedger asserts every counter matches the spot rows and no spot or
// user holds more than one active booking.
func (f *fixture) checkLedger(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	bad, err := f.svc.LedgerMismatches(ctx, f.admin)
	require.NoError(t, err)
	require.Empty(t, bad)

	var n int
	require.NoError(t, f.svc.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM (SELECT parking_spot_id FROM bookings WHERE status = 'active' GROUP BY parking_spot_id HAVING COUNT(*) > 1) x`).Scan(&n))
	require.Zero(t, n)
	require.NoError(t, f.svc.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM (SELECT user_id FROM bookings WHERE status = 'active' GROUP BY user_id HAVING COUNT(*) > 1) x`).Scan(&n))
	require.Zero(t, n)
}

func TestCreateLotGeneratesSpots(t *testing.T) {
	f := newFixture(t)
	lot := f.lot(t, 5, 50)

	require.Equal(t, 5, lot.TotalSpots)
	require.Equal(t, 5, lot.AvailableSpots)
	spots := f.spots(t, lot.ID)
	require.Len(t, spots, 5)
	for i, want := range []string{"A01", "A02", "A03", "A04", "A05"} {
		require.Equal(t, want, spots[i].SpotNumber)
		require.False(t, spots[i].IsOccupied)
	}
	require.Equal(t, []queue.EventType{queue.LotCreated}, f.rec.types())
	f.checkLedger(t)
}

func TestCreateLotValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cases := []LotInput{
		{Name: "", Location: "x", TotalSpots: 1, PricePerHour: 1},
		{Name: "x", Location: " ", TotalSpots: 1, PricePerHour: 1},
		{Name: "x", Location: "x", TotalSpots: 0, PricePerHour: 1},
		{Name: "x", Location: "x", TotalSpots: 1, PricePerHour: 0},
	}
	for _, in := range cases {
		_, err := f.svc.CreateLot(ctx, f.admin, in)
		require.ErrorIs(t, err, ErrValidation)
	}
}

func TestAdminOperationsRequireAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "u@example.com", model.RoleUser)
	lot := f.lot(t, 2, 50)
	spot := f.spots(t, lot.ID)[0]

	_, err := f.svc.CreateLot(ctx, u, LotInput{Name: "x", Location: "y", TotalSpots: 1, PricePerHour: 1})
	require.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.UpdateLot(ctx, u, lot.ID, LotInput{Name: "x", Location: "y", TotalSpots: 1, PricePerHour: 1})
	require.ErrorIs(t, err, ErrForbidden)
	require.ErrorIs(t, f.svc.DeleteLot(ctx, u, lot.ID), ErrForbidden)
	_, err = f.svc.RenameSpot(ctx, u, spot.ID, "B1")
	require.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.ForceRelease(ctx, u, spot.ID)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.SetSpotStatus(ctx, u, spot.ID, true)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.SystemReport(ctx, u)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestBookSpot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "u@example.com", model.RoleUser)
	lot := f.lot(t, 3, 50)
	spot := f.spots(t, lot.ID)[0]

	b, err := f.svc.Book(ctx, u, BookRequest{LotID: lot.ID, SpotID: spot.ID, VehicleNumber: " ka01ab1234 "})
	require.NoError(t, err)
	require.Equal(t, model.BookingActive, b.Status)
	require.Equal(t, 50.0, b.TotalCost)
	require.Equal(t, "KA01AB1234", b.VehicleNumber)
	require.Nil(t, b.ReleaseTime)

	require.Equal(t, 2, f.reload(t, lot.ID).AvailableSpots)
	got, err := f.svc.Spots.GetByID(ctx, spot.ID)
	require.NoError(t, err)
	require.True(t, got.IsOccupied)
	f.checkLedger(t)
}

func TestBookRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.user(t, "u1@example.com", model.RoleUser)
	u2 := f.user(t, "u2@example.com", model.RoleUser)
	lot := f.lot(t, 3, 50)
	other := f.lot(t, 1, 20)
	spots := f.spots(t, lot.ID)

	_, err := f.svc.Book(ctx, u1, BookRequest{LotID: lot.ID, SpotID: spots[0].ID, VehicleNumber: "CAR1"})
	require.NoError(t, err)

	_, err = f.svc.Book(ctx, u1, BookRequest{LotID: lot.ID, SpotID: spots[1].ID, VehicleNumber: "CAR1"})
	require.ErrorIs(t, err, ErrDuplicateActiveBooking)

	_, err = f.svc.Book(ctx, u2, BookRequest{LotID: lot.ID, SpotID: spots[0].ID, VehicleNumber: "CAR2"})
	require.ErrorIs(t, err, ErrSpotUnavailable)

	_, err = f.svc.Book(ctx, u2, BookRequest{LotID: other.ID, SpotID: spots[1].ID, VehicleNumber: "CAR2"})
	require.ErrorIs(t, err, ErrSpotUnavailable)

	_, err = f.svc.Book(ctx, u2, BookRequest{LotID: lot.ID, SpotID: 9999, VehicleNumber: "CAR2"})
	require.ErrorIs(t, err, ErrSpotUnavailable)

	_, err = f.svc.Book(ctx, u2, BookRequest{LotID: 9999, SpotID: spots[1].ID, VehicleNumber: "CAR2"})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Book(ctx, u2, BookRequest{LotID: lot.ID, SpotID: spots[1].ID, VehicleNumber: "  "})
	require.ErrorIs(t, err, ErrValidation)

	require.Equal(t, 2, f.reload(t, lot.ID).AvailableSpots)
	require.Equal(t, 1, f.reload(t, other.ID).AvailableSpots)
	f.checkLedger(t)
}

func TestReleaseBillsWholeHours(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "u@example.com", model.RoleUser)
	lot := f.lot(t, 2, 50)
	spot := f.spots(t, lot.ID)[0]

	_, err := f.svc.Book(ctx, u, BookRequest{LotID: lot.ID, SpotID: spot.ID, VehicleNumber: "CAR"})
	require.NoError(t, err)
	f.clock.Advance(2*time.Hour + 30*time.Minute)

	rc, err := f.svc.Release(ctx, u)
	require.NoError(t, err)
	require.Equal(t, 2, rc.BilledHours)
	require.Equal(t, 100.0, rc.Cost)
	require.Equal(t, model.BookingCompleted, rc.Booking.Status)
	require.Equal(t, 100.0, rc.Booking.TotalCost)
	require.NotNil(t, rc.Booking.ReleaseTime)
	require.Equal(t, "A01", rc.SpotNumber)

	got, err := f.svc.Spots.GetByID(ctx, spot.ID)
	require.NoError(t, err)
	require.False(t, got.IsOccupied)
	require.Equal(t, 2, f.reload(t, lot.ID).AvailableSpots)

	d, err := f.svc.UserDashboard(ctx, u)
	require.NoError(t, err)
	require.Nil(t, d.Active)
	require.Len(t, d.History, 1)
	require.Equal(t, "2h 30m", d.History[0].Duration)
	require.Equal(t, 100.0, d.Stats.TotalSpent)
	require.Equal(t, 1, d.Stats.CompletedBookings)
	f.checkLedger(t)
}

func TestReleaseMinimumOneHour(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "u@example.com", model.RoleUser)
	lot := f.lot(t, 1, 50)
	spot := f.spots(t, lot.ID)[0]

	_, err := f.svc.Book(ctx, u, BookRequest{LotID: lot.ID, SpotID: spot.ID, VehicleNumber: "CAR"})
	require.NoError(t, err)
	f.clock.Advance(10 * time.Minute)

	rc, err := f.svc.Release(ctx, u)
	require.NoError(t, err)
	require.Equal(t, 1, rc.BilledHours)
	require.Equal(t, 50.0, rc.Cost)

	_, err = f.svc.Release(ctx, u)
	require.ErrorIs(t, err, ErrNoActiveBooking)
	f.checkLedger(t)
}

func TestShrinkLot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lot := f.lot(t, 10, 50)
	spots := f.spots(t, lot.ID)
	// occupy A02, A05, A09
	for i, idx := range []int{1, 4, 8} {
		u := f.user(t, string(rune('a'+i))+"@example.com", model.RoleUser)
		_, err := f.svc.Book(ctx, u, BookRequest{LotID: lot.ID, SpotID: spots[idx].ID, VehicleNumber: "CAR"})
		require.NoError(t, err)
	}
	in := LotInput{Name: "Central", Location: "MG Road", PricePerHour: 50}

	in.TotalSpots = 2
	_, err := f.svc.UpdateLot(ctx, f.admin, lot.ID, in)
	require.ErrorIs(t, err, ErrInsufficientFreeCapacity)
	require.Len(t, f.spots(t, lot.ID), 10)
	require.Equal(t, 7, f.reload(t, lot.ID).AvailableSpots)

	in.TotalSpots = 5
	res, err := f.svc.UpdateLot(ctx, f.admin, lot.ID, in)
	require.NoError(t, err)
	require.Equal(t, 5, res.Removed)
	require.Equal(t, 5, res.Lot.TotalSpots)
	require.Equal(t, 2, res.Lot.AvailableSpots)

	left := f.spots(t, lot.ID)
	require.Len(t, left, 5)
	occupied := 0
	for _, sp := range left {
		if sp.IsOccupied {
			occupied++
		}
	}
	require.Equal(t, 3, occupied)
	f.checkLedger(t)
}

func TestGrowLotContinuesNumbering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lot := f.lot(t, 5, 50)
	spots := f.spots(t, lot.ID)
	_, err := f.svc.RenameSpot(ctx, f.admin, spots[2].ID, "A07")
	require.NoError(t, err)

	res, err := f.svc.UpdateLot(ctx, f.admin, lot.ID, LotInput{Name: "North", Location: "Ring Road", TotalSpots: 8, PricePerHour: 60})
	require.NoError(t, err)
	require.Equal(t, 3, res.Added)
	require.Equal(t, "North", res.Lot.Name)
	require.Equal(t, 60.0, res.Lot.PricePerHour)
	require.Equal(t, 8, res.Lot.AvailableSpots)

	var labels []string
	for _, sp := range f.spots(t, lot.ID) {
		labels = append(labels, sp.SpotNumber)
	}
	require.Equal(t, []string{"A01", "A02", "A07", "A04", "A05", "A08", "A09", "A10"}, labels)
	f.checkLedger(t)
}

func TestDeleteLot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "u@example.com", model.RoleUser)
	lot := f.lot(t, 3, 50)
	spot := f.spots(t, lot.ID)[0]
	_, err := f.svc.Book(ctx, u, BookRequest{LotID: lot.ID, SpotID: spot.ID, VehicleNumber: "CAR"})
	require.NoError(t, err)

	require.ErrorIs(t, f.svc.DeleteLot(ctx, f.admin, lot.ID), ErrLotHasOccupiedSpots)
	require.Len(t, f.spots(t, lot.ID), 3)

	_, err = f.svc.Release(ctx, u)
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteLot(ctx, f.admin, lot.ID))

	_, err = f.svc.Lots.GetByID(ctx, lot.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.Empty(t, f.spots(t, lot.ID))
	var n int
	require.NoError(t, f.svc.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE parking_lot_id = ?`, lot.ID).Scan(&n))
	require.Zero(t, n)

	require.ErrorIs(t, f.svc.DeleteLot(ctx, f.admin, lot.ID), ErrNotFound)
	f.checkLedger(t)
}

func TestForceReleaseCancelsWithoutBilling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "u@example.com", model.RoleUser)
	lot := f.lot(t, 2, 50)
	spot := f.spots(t, lot.ID)[0]
	_, err := f.svc.Book(ctx, u, BookRequest{LotID: lot.ID, SpotID: spot.ID, VehicleNumber: "CAR"})
	require.NoError(t, err)
	f.clock.Advance(5 * time.Hour)

	res, err := f.svc.ForceRelease(ctx, f.admin, spot.ID)
	require.NoError(t, err)
	require.True(t, res.Changed)
	require.NotNil(t, res.CancelledBooking)
	require.Equal(t, model.BookingCancelled, res.CancelledBooking.Status)
	require.Equal(t, 50.0, res.CancelledBooking.TotalCost)
	require.Equal(t, 2, f.reload(t, lot.ID).AvailableSpots)

	_, err = f.svc.Release(ctx, u)
	require.ErrorIs(t, err, ErrNoActiveBooking)

	again, err := f.svc.ForceRelease(ctx, f.admin, spot.ID)
	require.NoError(t, err)
	require.False(t, again.Changed)
	require.NotEmpty(t, again.Warning)
	require.Equal(t, 2, f.reload(t, lot.ID).AvailableSpots)

	_, err = f.svc.ForceRelease(ctx, f.admin, 9999)
	require.ErrorIs(t, err, ErrNotFound)

	types := f.rec.types()
	require.Equal(t, queue.BookingCancelled, types[len(types)-1])
	f.checkLedger(t)
}

func TestSetSpotStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lot := f.lot(t, 2, 50)
	spot := f.spots(t, lot.ID)[0]

	res, err := f.svc.SetSpotStatus(ctx, f.admin, spot.ID, false)
	require.NoError(t, err)
	require.False(t, res.Changed)
	require.Equal(t, 2, f.reload(t, lot.ID).AvailableSpots)

	res, err = f.svc.SetSpotStatus(ctx, f.admin, spot.ID, true)
	require.NoError(t, err)
	require.True(t, res.Changed)
	require.NotEmpty(t, res.Warning)
	require.Nil(t, res.CancelledBooking)
	require.Equal(t, 1, f.reload(t, lot.ID).AvailableSpots)
	f.checkLedger(t)

	res, err = f.svc.SetSpotStatus(ctx, f.admin, spot.ID, true)
	require.NoError(t, err)
	require.False(t, res.Changed)
	require.Equal(t, 1, f.reload(t, lot.ID).AvailableSpots)

	// no booking exists for the override
	_, err = f.svc.Bookings.ActiveBySpot(ctx, spot.ID)
	require.ErrorIs(t, err, ErrNotFound)

	res, err = f.svc.SetSpotStatus(ctx, f.admin, spot.ID, false)
	require.NoError(t, err)
	require.True(t, res.Changed)
	require.Nil(t, res.CancelledBooking)
	require.Equal(t, 2, f.reload(t, lot.ID).AvailableSpots)
	f.checkLedger(t)
}

func TestSetSpotStatusFreeCancelsBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "u@example.com", model.RoleUser)
	lot := f.lot(t, 1, 30)
	spot := f.spots(t, lot.ID)[0]
	b, err := f.svc.Book(ctx, u, BookRequest{LotID: lot.ID, SpotID: spot.ID, VehicleNumber: "CAR"})
	require.NoError(t, err)

	res, err := f.svc.SetSpotStatus(ctx, f.admin, spot.ID, false)
	require.NoError(t, err)
	require.True(t, res.Changed)
	require.NotNil(t, res.CancelledBooking)
	require.Equal(t, b.ID, res.CancelledBooking.ID)
	require.Equal(t, 1, f.reload(t, lot.ID).AvailableSpots)
	f.checkLedger(t)
}

func TestRenameSpot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lot := f.lot(t, 2, 50)
	other := f.lot(t, 1, 50)
	spots := f.spots(t, lot.ID)

	_, err := f.svc.RenameSpot(ctx, f.admin, spots[0].ID, "A02")
	require.ErrorIs(t, err, ErrDuplicateSpotName)

	// labels only need to be unique within a lot
	sp, err := f.svc.RenameSpot(ctx, f.admin, f.spots(t, other.ID)[0].ID, "A02")
	require.NoError(t, err)
	require.Equal(t, "A02", sp.SpotNumber)

	sp, err = f.svc.RenameSpot(ctx, f.admin, spots[0].ID, " VIP-1 ")
	require.NoError(t, err)
	require.Equal(t, "VIP-1", sp.SpotNumber)

	_, err = f.svc.RenameSpot(ctx, f.admin, spots[0].ID, "")
	require.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.RenameSpot(ctx, f.admin, spots[0].ID, "ABCDEFGHIJK")
	require.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.RenameSpot(ctx, f.admin, 9999, "X")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReports(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.user(t, "u1@example.com", model.RoleUser)
	u2 := f.user(t, "u2@example.com", model.RoleUser)
	lot := f.lot(t, 4, 50)
	spots := f.spots(t, lot.ID)

	_, err := f.svc.Book(ctx, u1, BookRequest{LotID: lot.ID, SpotID: spots[0].ID, VehicleNumber: "ONE"})
	require.NoError(t, err)
	f.clock.Advance(3*time.Hour + 5*time.Minute)
	_, err = f.svc.Release(ctx, u1)
	require.NoError(t, err)
	_, err = f.svc.Book(ctx, u2, BookRequest{LotID: lot.ID, SpotID: spots[1].ID, VehicleNumber: "TWO"})
	require.NoError(t, err)

	r, err := f.svc.SystemReport(ctx, f.admin)
	require.NoError(t, err)
	require.Equal(t, 2, r.Stats.TotalUsers)
	require.Equal(t, 1, r.Stats.TotalLots)
	require.Equal(t, 4, r.Stats.TotalSpots)
	require.Equal(t, 1, r.Stats.OccupiedSpots)
	require.Equal(t, 2, r.Stats.TotalBookings)
	require.Equal(t, 1, r.Stats.ActiveBookings)
	require.Equal(t, 1, r.Stats.CompletedBookings)
	require.Equal(t, 150.0, r.Stats.TotalRevenue)
	require.Len(t, r.Recent, 2)
	require.Equal(t, "TWO", r.Recent[0].VehicleNumber)
	require.Equal(t, "Ongoing", r.Recent[0].Duration)
	require.Equal(t, "3h 5m", r.Recent[1].Duration)
	require.Equal(t, "u1@example.com", r.Recent[1].UserEmail)
	require.Equal(t, "A01", r.Recent[1].SpotNumber)

	customers, err := f.svc.Customers(ctx, f.admin)
	require.NoError(t, err)
	require.Len(t, customers, 2)
	require.Equal(t, 1, customers[0].TotalBookings)
	require.Equal(t, 0, customers[0].ActiveBookings)
	require.Equal(t, 1, customers[1].ActiveBookings)

	d, err := f.svc.UserDashboard(ctx, u2)
	require.NoError(t, err)
	require.NotNil(t, d.Active)
	require.Equal(t, "A02", d.Active.SpotNumber)
	require.Equal(t, "Central", d.Active.LotName)
	require.Equal(t, 50.0, d.Active.ProvisionalCost)
	require.Empty(t, d.History)

	detail, err := f.svc.SpotDetail(ctx, f.admin, spots[0].ID)
	require.NoError(t, err)
	require.Nil(t, detail.Active)
	require.Len(t, detail.History, 1)
	require.Equal(t, "Central", detail.Lot.Name)

	lots, err := f.svc.AdminLots(ctx, f.admin, "mg")
	require.NoError(t, err)
	require.Len(t, lots, 1)
	require.Equal(t, 1, lots[0].OccupiedCount)
	require.Equal(t, 3, lots[0].FreeCount)
	require.Len(t, lots[0].Spots, 4)

	lots, err = f.svc.AdminLots(ctx, f.admin, "nowhere")
	require.NoError(t, err)
	require.Empty(t, lots)

	free, err := f.svc.FreeSpots(ctx, lot.ID)
	require.NoError(t, err)
	require.Len(t, free, 3)
	_, err = f.svc.FreeSpots(ctx, 9999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListLotsSearchEscapesWildcards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateLot(ctx, f.admin, LotInput{Name: "100% Covered", Location: "Dock", TotalSpots: 1, PricePerHour: 10})
	require.NoError(t, err)
	_, err = f.svc.CreateLot(ctx, f.admin, LotInput{Name: "Open Air", Location: "Dock_2", TotalSpots: 1, PricePerHour: 10})
	require.NoError(t, err)

	lots, err := f.svc.ListLots(ctx, "%")
	require.NoError(t, err)
	require.Len(t, lots, 1)
	require.Equal(t, "100% Covered", lots[0].Name)

	lots, err = f.svc.ListLots(ctx, "k_")
	require.NoError(t, err)
	require.Len(t, lots, 1)

	lots, err = f.svc.ListLots(ctx, "")
	require.NoError(t, err)
	require.Len(t, lots, 2)
}

func TestEventsFollowCommits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "u@example.com", model.RoleUser)
	lot := f.lot(t, 2, 50)
	spot := f.spots(t, lot.ID)[0]

	_, err := f.svc.Book(ctx, u, BookRequest{LotID: lot.ID, SpotID: spot.ID, VehicleNumber: "CAR"})
	require.NoError(t, err)
	_, err = f.svc.Book(ctx, u, BookRequest{LotID: lot.ID, SpotID: spot.ID, VehicleNumber: "CAR"})
	require.Error(t, err)
	_, err = f.svc.Release(ctx, u)
	require.NoError(t, err)

	require.Equal(t, []queue.EventType{queue.LotCreated, queue.BookingCreated, queue.BookingCompleted}, f.rec.types())
	last := f.rec.events[len(f.rec.events)-1]
	require.NotEmpty(t, last.ID)
	require.Equal(t, 2, last.AvailableSpots)
	require.Equal(t, 1, last.BilledHours)
	require.Equal(t, "A01", last.SpotNumber)
}

func TestBootstrap(t *testing.T) {
	ctx := context.Background()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "boot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(ctx, db, "sqlite"))
	svc := NewParkingService(db)

	cfg := BootstrapConfig{AdminEmail: "Root@Example.com", AdminPassword: "changeme", BcryptCost: bcrypt.MinCost, SeedSampleLots: true}
	require.NoError(t, svc.Bootstrap(ctx, cfg))
	require.NoError(t, svc.Bootstrap(ctx, cfg))

	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = 'admin'`).Scan(&n))
	require.Equal(t, 1, n)
	admin, err := svc.Users.GetByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	require.Equal(t, model.RoleAdmin, admin.Role)

	lots, err := svc.ListLots(ctx, "")
	require.NoError(t, err)
	require.Len(t, lots, len(sampleLots))
	for _, l := range lots {
		require.Equal(t, l.TotalSpots, l.AvailableSpots)
	}
}

func TestBootstrapSeedsAsExistingAdmin(t *testing.T) {
	ctx := context.Background()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "boot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(ctx, db, "sqlite"))
	rec := &recorder{}
	svc := NewParkingService(db, WithNotifier(rec))

	existing := &model.User{Email: "ops@example.com", FullName: "Ops", Role: model.RoleAdmin}
	require.NoError(t, svc.Users.Create(ctx, existing, "secret123", bcrypt.MinCost))

	cfg := BootstrapConfig{AdminEmail: "root@example.com", AdminPassword: "changeme", BcryptCost: bcrypt.MinCost, SeedSampleLots: true}
	require.NoError(t, svc.Bootstrap(ctx, cfg))

	_, err = svc.Users.GetByEmail(ctx, "root@example.com")
	require.ErrorIs(t, err, repository.ErrUserNotFound)
	require.Len(t, rec.events, len(sampleLots))
	for _, ev := range rec.events {
		require.Equal(t, queue.LotCreated, ev.Type)
		require.Equal(t, existing.ID, ev.ActorID)
	}
}

package model

import "time"

// BookingStatus is the lifecycle state of a booking.  The only transitions
// are active -> completed and active -> cancelled.
type BookingStatus string

const (
	BookingActive    BookingStatus = "active"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking links a user to a spot (and redundantly its lot) for one stay.
// TotalCost holds the lot's hourly rate while active and the billed amount
// once completed.  Cancelled bookings keep the hourly rate.
type Booking struct {
	ID            uint64        `json:"id"`                     // bookings.id
	UserID        uint64        `json:"user_id"`                // bookings.user_id
	ParkingSpotID uint64        `json:"parking_spot_id"`        // bookings.parking_spot_id
	ParkingLotID  uint64        `json:"parking_lot_id"`         // bookings.parking_lot_id
	VehicleNumber string        `json:"vehicle_number"`         // bookings.vehicle_number
	BookingTime   time.Time     `json:"booking_time"`           // bookings.booking_time
	ReleaseTime   *time.Time    `json:"release_time,omitempty"` // bookings.release_time (nullable)
	Status        BookingStatus `json:"status"`                 // bookings.status
	TotalCost     float64       `json:"total_cost"`             // bookings.total_cost
}

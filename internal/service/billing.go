package service

import (
	"fmt"
	"time"

	"github.com/iliyamo/parking-reservation/internal/model"
)

// BilledHours is floor(elapsed hours) with a one hour minimum.
func BilledHours(elapsed time.Duration) int {
	h := int(elapsed / time.Hour)
	if h < 1 {
		return 1
	}
	return h
}

// Cost returns the amount owed for parking at rate for elapsed.
func Cost(rate float64, elapsed time.Duration) float64 {
	return rate * float64(BilledHours(elapsed))
}

// FormatDuration renders a booking's length as "{h}h {m}m", or "Ongoing"
// while it has no release time.
func FormatDuration(b model.Booking) string {
	if b.ReleaseTime == nil {
		return "Ongoing"
	}
	d := b.ReleaseTime.Sub(b.BookingTime)
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

package model

import "time"

// UserStats summarises one user's booking history.
type UserStats struct {
	TotalBookings     int     `json:"total_bookings"`
	ActiveBookings    int     `json:"active_bookings"`
	CompletedBookings int     `json:"completed_bookings"`
	CancelledBookings int     `json:"cancelled_bookings"`
	TotalSpent        float64 `json:"total_spent"` // completed bookings only
}

// SystemStats is the administrator's overview of the whole system.
type SystemStats struct {
	TotalUsers        int     `json:"total_users"` // administrators excluded
	TotalLots         int     `json:"total_lots"`
	TotalSpots        int     `json:"total_spots"`
	OccupiedSpots     int     `json:"occupied_spots"`
	TotalBookings     int     `json:"total_bookings"`
	ActiveBookings    int     `json:"active_bookings"`
	CompletedBookings int     `json:"completed_bookings"`
	CancelledBookings int     `json:"cancelled_bookings"`
	TotalRevenue      float64 `json:"total_revenue"`
}

// BookingActivity is a booking joined with the labels needed to show it in
// an activity feed.
type BookingActivity struct {
	Booking
	UserEmail   string `json:"user_email"`
	UserName    string `json:"user_name"`
	SpotNumber  string `json:"spot_number"`
	LotName     string `json:"lot_name"`
	LotLocation string `json:"lot_location"`
	Duration    string `json:"duration"`
}

// CustomerSummary is a non-admin account with its booking counts.
type CustomerSummary struct {
	ID             uint64    `json:"id"`
	Email          string    `json:"email"`
	FullName       string    `json:"fullname"`
	Phone          string    `json:"phone"`
	Pincode        string    `json:"pincode"`
	CreatedAt      time.Time `json:"created_at"`
	TotalBookings  int       `json:"total_bookings"`
	ActiveBookings int       `json:"active_bookings"`
}

// LotOccupancy pairs a lot with the occupancy counted from its spot rows.
type LotOccupancy struct {
	ParkingLot
	OccupiedCount int `json:"occupied_count"`
	FreeCount     int `json:"free_count"`
}

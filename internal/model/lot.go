package model

// ParkingLot is a named facility with a fixed number of spots and an
// hourly rate.  AvailableSpots is a denormalized counter that always equals
// the number of the lot's spots with IsOccupied=false; every operation that
// flips a spot adjusts it in the same transaction.
type ParkingLot struct {
	ID             uint64  `json:"id"`              // parking_lots.id
	Name           string  `json:"name"`            // parking_lots.name
	Location       string  `json:"location"`        // parking_lots.location
	TotalSpots     int     `json:"total_spots"`     // parking_lots.total_spots
	AvailableSpots int     `json:"available_spots"` // parking_lots.available_spots
	PricePerHour   float64 `json:"price_per_hour"`  // parking_lots.price_per_hour
}

// ParkingSpot is a single bookable slot inside a lot.  SpotNumber is
// unique within the lot (A01, A02, ...).
type ParkingSpot struct {
	ID           uint64 `json:"id"`             // parking_spots.id
	ParkingLotID uint64 `json:"parking_lot_id"` // parking_spots.parking_lot_id
	SpotNumber   string `json:"spot_number"`    // parking_spots.spot_number
	IsOccupied   bool   `json:"is_occupied"`    // parking_spots.is_occupied
}

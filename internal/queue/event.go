// Package queue defines message payloads exchanged over the message broker.
package queue

import "time"

// QueueName is the durable queue parking events are published to.
const QueueName = "parking.events"

// EventType names what happened.
type EventType string

const (
	BookingCreated    EventType = "booking.created"
	BookingCompleted  EventType = "booking.completed"
	BookingCancelled  EventType = "booking.cancelled"
	SpotStatusChanged EventType = "spot.status_changed"
	SpotRenamed       EventType = "spot.renamed"
	LotCreated        EventType = "lot.created"
	LotUpdated        EventType = "lot.updated"
	LotDeleted        EventType = "lot.deleted"
)

// ParkingEvent is emitted after every committed mutation.  It carries
// enough information for consumers to log, notify or refresh availability
// without querying the primary database.  Fields that do not apply to an
// event type are left zero.
type ParkingEvent struct {
	ID             string    `json:"id"`
	Type           EventType `json:"type"`
	ActorID        uint64    `json:"actor_id"`
	LotID          uint64    `json:"lot_id"`
	LotName        string    `json:"lot_name,omitempty"`
	AvailableSpots int       `json:"available_spots"`
	TotalSpots     int       `json:"total_spots"`
	SpotID         uint64    `json:"spot_id,omitempty"`
	SpotNumber     string    `json:"spot_number,omitempty"`
	BookingID      uint64    `json:"booking_id,omitempty"`
	VehicleNumber  string    `json:"vehicle_number,omitempty"`
	Cost           float64   `json:"cost,omitempty"`
	BilledHours    int       `json:"billed_hours,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFormatEventBookingCompleted(t *testing.T) {
	ev := ParkingEvent{
		ID:             "abc",
		Type:           BookingCompleted,
		ActorID:        7,
		LotID:          3,
		LotName:        "Central",
		AvailableSpots: 9,
		TotalSpots:     10,
		SpotID:         21,
		SpotNumber:     "A01",
		BookingID:      5,
		VehicleNumber:  "KA01AB1234",
		Cost:           100,
		BilledHours:    2,
		OccurredAt:     time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	require.Equal(t,
		`[2024-05-01T10:00:00Z] booking.completed | id=abc | actor_id=7 | lot_id=3 | lot="Central" | available=9/10 | spot_id=21 | spot=A01 | booking_id=5 | vehicle=KA01AB1234 | hours=2 | cost=100.00`,
		FormatEvent(ev))
}

func TestFormatEventOmitsEmptyFields(t *testing.T) {
	ev := ParkingEvent{ID: "x", Type: LotDeleted, LotID: 4, OccurredAt: time.Unix(0, 0)}
	line := FormatEvent(ev)
	require.NotContains(t, line, "spot")
	require.NotContains(t, line, "cost")
	require.Contains(t, line, "lot.deleted")
}

func TestHandleMessageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "parking.log")
	for _, typ := range []EventType{LotCreated, LotUpdated} {
		body, err := json.Marshal(ParkingEvent{ID: "1", Type: typ, LotID: 1, OccurredAt: time.Now()})
		require.NoError(t, err)
		require.NoError(t, HandleMessage(body, path))
	}
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "lot.created")
	require.Contains(t, lines[1], "lot.updated")
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parking.log")
	require.Error(t, HandleMessage([]byte("{not json"), path))
	require.Error(t, HandleMessage([]byte(`{"id":"1"}`), path))
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

// Package realtime pushes lot availability to websocket clients.
package realtime

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iliyamo/parking-reservation/internal/queue"
)

// AvailabilityUpdate is the message sent to every subscriber.
type AvailabilityUpdate struct {
	LotID          uint64          `json:"lot_id"`
	LotName        string          `json:"lot_name,omitempty"`
	AvailableSpots int             `json:"available_spots"`
	TotalSpots     int             `json:"total_spots"`
	Event          queue.EventType `json:"event"`
	At             time.Time       `json:"at"`
}

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub tracks websocket subscribers and fans availability updates out to
// them.  Run must be started for updates to be delivered.
type Hub struct {
	mu        sync.Mutex
	clients   map[*websocket.Conn]bool
	broadcast chan AvailabilityUpdate
}

// NewHub returns a hub whose queue holds up to buffer pending updates.
func NewHub(buffer int) *Hub {
	return &Hub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan AvailabilityUpdate, buffer),
	}
}

// Notify implements service.Notifier.  It never blocks: when the queue is
// full the update is dropped.
func (h *Hub) Notify(_ context.Context, ev queue.ParkingEvent) error {
	u := AvailabilityUpdate{
		LotID:          ev.LotID,
		LotName:        ev.LotName,
		AvailableSpots: ev.AvailableSpots,
		TotalSpots:     ev.TotalSpots,
		Event:          ev.Type,
		At:             ev.OccurredAt,
	}
	select {
	case h.broadcast <- u:
	default:
		log.Printf("realtime: queue full, dropping %s for lot %d", ev.Type, ev.LotID)
	}
	return nil
}

// Run delivers queued updates until ctx is cancelled, then closes every
// connection.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case u := <-h.broadcast:
			h.send(u)
		}
	}
}

func (h *Hub) send(u AvailabilityUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		_ = client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteJSON(u); err != nil {
			log.Printf("realtime: write to client failed: %v", err)
			_ = client.Close()
			delete(h.clients, client)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		_ = client.Close()
		delete(h.clients, client)
	}
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeWS upgrades the request and registers the connection.  The read
// loop only watches for the client going away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return nil
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[conn] {
		_ = conn.Close()
		delete(h.clients, conn)
	}
}

// Package queue also contains the background consumer that listens to the
// parking.events queue and writes one line per event to logs/parking.log.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultLogPath is where StartEventConsumer appends events.
var DefaultLogPath = filepath.Join("logs", "parking.log")

// StartEventConsumer connects to RabbitMQ, declares the parking.events
// queue (durable) and appends every message to logPath.  It reconnects with
// exponential backoff and returns only when ctx is cancelled.  Messages
// that cannot be decoded are rejected without requeue.
func StartEventConsumer(ctx context.Context, url, logPath string) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("event-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, logPath)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("event-consumer: consume loop ended: %v; reconnecting", err)
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, logPath string) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("event-consumer: set QoS failed: %v", err)
	}
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(QueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := HandleMessage(d.Body, logPath); err != nil {
				log.Printf("event-consumer: handle message failed: %v", err)
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// HandleMessage decodes one event and appends its log line to logPath.
func HandleMessage(body []byte, logPath string) error {
	var ev ParkingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" {
		return errors.New("event without type")
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatEvent(ev) + "\n"); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatEvent renders an event as a single human-friendly line.
func FormatEvent(ev ParkingEvent) string {
	parts := []string{
		fmt.Sprintf("[%s] %s", ev.OccurredAt.UTC().Format(time.RFC3339), ev.Type),
		"id=" + ev.ID,
		fmt.Sprintf("actor_id=%d", ev.ActorID),
		fmt.Sprintf("lot_id=%d", ev.LotID),
	}
	if ev.LotName != "" {
		parts = append(parts, fmt.Sprintf("lot=%q", ev.LotName))
	}
	parts = append(parts, fmt.Sprintf("available=%d/%d", ev.AvailableSpots, ev.TotalSpots))
	if ev.SpotID != 0 {
		parts = append(parts, fmt.Sprintf("spot_id=%d", ev.SpotID))
	}
	if ev.SpotNumber != "" {
		parts = append(parts, "spot="+ev.SpotNumber)
	}
	if ev.BookingID != 0 {
		parts = append(parts, fmt.Sprintf("booking_id=%d", ev.BookingID))
	}
	if ev.VehicleNumber != "" {
		parts = append(parts, "vehicle="+ev.VehicleNumber)
	}
	if ev.BilledHours > 0 {
		parts = append(parts, fmt.Sprintf("hours=%d", ev.BilledHours))
	}
	if ev.Cost > 0 {
		parts = append(parts, fmt.Sprintf("cost=%.2f", ev.Cost))
	}
	return strings.Join(parts, " | ")
}

package service

import (
	"context"
	"log"

	"github.com/iliyamo/parking-reservation/internal/queue"
)

// Notifier receives events for mutations that have already committed.
// Errors are logged by the caller and never undo the mutation.
type Notifier interface {
	Notify(ctx context.Context, ev queue.ParkingEvent) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev queue.ParkingEvent) error

func (f NotifierFunc) Notify(ctx context.Context, ev queue.ParkingEvent) error { return f(ctx, ev) }

// Notifiers fans an event out to every member in order.
type Notifiers []Notifier

// Notify delivers ev to all members, logging failures.  It always returns nil.
func (ns Notifiers) Notify(ctx context.Context, ev queue.ParkingEvent) error {
	for _, n := range ns {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			log.Printf("notify: %s %s failed: %v", ev.Type, ev.ID, err)
		}
	}
	return nil
}

package middleware

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/parking-reservation/internal/queue"
)

// CachePurger drops every cached response under Prefix.  Any change to a
// lot, spot or booking can alter availability, so it purges on every event.
type CachePurger struct {
	RDB    *redis.Client
	Prefix string
}

// Notify implements service.Notifier.
func (p *CachePurger) Notify(ctx context.Context, _ queue.ParkingEvent) error {
	if p == nil || p.RDB == nil {
		return nil
	}
	return PurgeCache(ctx, p.RDB, p.Prefix)
}

// PurgeCache bumps the cache generation, then deletes the entries of
// older generations in SCAN batches.
func PurgeCache(ctx context.Context, rdb *redis.Client, prefix string) error {
	if err := rdb.Incr(ctx, generationKey(prefix)).Err(); err != nil {
		return err
	}
	var cursor uint64
	for {
		keys, next, err := rdb.Scan(ctx, cursor, prefix+":*", 200).Result()
		if err != nil {
			return err
		}
		if keys = entryKeys(keys, prefix); len(keys) > 0 {
			if err := rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// entryKeys drops the generation counter from a scanned batch.
func entryKeys(keys []string, prefix string) []string {
	gen := generationKey(prefix)
	out := keys[:0]
	for _, k := range keys {
		if k != gen {
			out = append(out, k)
		}
	}
	return out
}

package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/Jamarblack/Degen-Arena/internal/core/ports"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Quarantine implements ports.Quarantine as a hash keyed by wager ID.
type Quarantine struct {
	client *goredis.Client
}

// NewQuarantine creates a Redis-backed quarantine set.
func NewQuarantine(client *goredis.Client) *Quarantine {
	return &Quarantine{client: client}
}

// Add quarantines a wager, overwriting any previous entry.
func (q *Quarantine) Add(ctx context.Context, entry ports.QuarantineEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode quarantine entry: %w", err)
	}
	if err := q.client.HSet(ctx, quarantineKey, entry.WagerID.String(), data).Err(); err != nil {
		return fmt.Errorf("redis quarantine add: %w", err)
	}
	return nil
}

// Contains reports whether the wager is quarantined.
func (q *Quarantine) Contains(ctx context.Context, wagerID uuid.UUID) (bool, error) {
	ok, err := q.client.HExists(ctx, quarantineKey, wagerID.String()).Result()
	if err != nil {
		return false, fmt.Errorf("redis quarantine lookup: %w", err)
	}
	return ok, nil
}

// List returns every entry, oldest first.
func (q *Quarantine) List(ctx context.Context) ([]ports.QuarantineEntry, error) {
	vals, err := q.client.HGetAll(ctx, quarantineKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis quarantine list: %w", err)
	}
	entries := make([]ports.QuarantineEntry, 0, len(vals))
	for id, raw := range vals {
		var e ports.QuarantineEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("decode quarantine entry %s: %w", id, err)
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].AddedAt.Before(entries[j].AddedAt)
	})
	return entries, nil
}

// Release removes a wager from quarantine and reports whether it was present.
func (q *Quarantine) Release(ctx context.Context, wagerID uuid.UUID) (bool, error) {
	n, err := q.client.HDel(ctx, quarantineKey, wagerID.String()).Result()
	if err != nil {
		return false, fmt.Errorf("redis quarantine release: %w", err)
	}
	return n > 0, nil
}

// Count returns the number of quarantined wagers.
func (q *Quarantine) Count(ctx context.Context) (int64, error) {
	n, err := q.client.HLen(ctx, quarantineKey).Result()
	if err != nil {
		return 0, fmt.Errorf("redis quarantine count: %w", err)
	}
	return n, nil
}

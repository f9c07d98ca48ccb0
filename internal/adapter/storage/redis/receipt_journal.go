package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Jamarblack/Degen-Arena/internal/core/domain"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// receiptRetention bounds how long an orphaned entry survives. It is far
// longer than any realistic outage between payout and status write.
const receiptRetention = 30 * 24 * time.Hour

// ReceiptJournal implements ports.ReceiptJournal. An entry is written once a
// transfer is signed, updated with its receipt when it confirms, and cleared
// once the wager row reads won.
type ReceiptJournal struct {
	client *goredis.Client
}

// NewReceiptJournal creates a Redis-backed receipt journal.
func NewReceiptJournal(client *goredis.Client) *ReceiptJournal {
	return &ReceiptJournal{client: client}
}

// Record stores or replaces the payout entry under its wager ID.
func (j *ReceiptJournal) Record(ctx context.Context, entry domain.JournaledPayout) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}
	if err := j.client.Set(ctx, receiptPrefix+entry.Decision.WagerID.String(), data, receiptRetention).Err(); err != nil {
		return fmt.Errorf("redis journal record: %w", err)
	}
	return nil
}

// Lookup returns the journaled payout, or nil, nil when there is none.
func (j *ReceiptJournal) Lookup(ctx context.Context, wagerID uuid.UUID) (*domain.JournaledPayout, error) {
	data, err := j.client.Get(ctx, receiptPrefix+wagerID.String()).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis journal lookup: %w", err)
	}
	var entry domain.JournaledPayout
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	return &entry, nil
}

// Clear drops the journal entry for wagerID.
func (j *ReceiptJournal) Clear(ctx context.Context, wagerID uuid.UUID) error {
	if err := j.client.Del(ctx, receiptPrefix+wagerID.String()).Err(); err != nil {
		return fmt.Errorf("redis journal clear: %w", err)
	}
	return nil
}

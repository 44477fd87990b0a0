package redis

import (
	"context"
	"fmt"
	"time"
)

// DedupWindow is the fast recent-history check both ingestion frontends
// share. A (chat, message) pair is remembered for the window TTL, so
// Telegram re-deliveries inside that window are dropped before they ever
// reach the queue. The durable ledger in Postgres backstops anything
// older.
type DedupWindow struct {
	client RedisClient
	ttl    time.Duration
}

func NewDedupWindow(client RedisClient, ttl time.Duration) *DedupWindow {
	return &DedupWindow{client: client, ttl: ttl}
}

// Seen marks (chatID, messageID) and reports whether it was already
// present. The first caller gets false, every re-delivery true.
func (d *DedupWindow) Seen(ctx context.Context, chatID int64, messageID int) (bool, error) {
	key := fmt.Sprintf("dedup:%d:%d", chatID, messageID)
	inserted, err := d.client.SetNX(ctx, key, 1, d.ttl)
	if err != nil {
		return false, err
	}
	return !inserted, nil
}

// Forget removes the mark, used when an enqueue fails after the mark was
// taken so the sender's retry is not swallowed.
func (d *DedupWindow) Forget(ctx context.Context, chatID int64, messageID int) error {
	key := fmt.Sprintf("dedup:%d:%d", chatID, messageID)
	return d.client.Del(ctx, key)
}

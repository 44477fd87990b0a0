package repository

import (
	"context"
	"time"
)

// ProcessedLedger is the durable record of message IDs the dispatcher has
// already handled, used to suppress re-deliveries across restarts.
type ProcessedLedger interface {
	// RecordProcessed marks (chatID, messageID) as handled. It returns
	// true when this call inserted the mark, false when the pair was
	// already present.
	RecordProcessed(ctx context.Context, qx any, chatID int64, messageID int, now time.Time) (bool, error)
	// PruneBefore drops ledger rows older than cutoff and returns the
	// number removed.
	PruneBefore(ctx context.Context, qx any, cutoff time.Time) (int64, error)
}

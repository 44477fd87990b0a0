package model

import "time"

// IngestMode records which frontend produced an update.
type IngestMode string

const (
	IngestPolling IngestMode = "polling"
	IngestWebhook IngestMode = "webhook"
)

// InboundUpdate is the normalized form of a Telegram update as it enters
// the ingestion queue. Both frontends produce exactly this shape so the
// dispatcher never needs to know where an update came from.
type InboundUpdate struct {
	UpdateID   int
	ChatID     int64
	SenderID   int64 // zero for anonymous channel posts
	MessageID  int
	Text       string
	IsCommand  bool
	Command    string
	Args       string
	ReceivedAt time.Time
	Mode       IngestMode
	TraceID    string
}

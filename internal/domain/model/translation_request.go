package model

import (
	"fmt"
	"time"

	"telegram-translation-bot/internal/domain"
)

type RequestStatus string

const (
	RequestPending        RequestStatus = "pending"
	RequestInFlight       RequestStatus = "in_flight"
	RequestRetryScheduled RequestStatus = "retry_scheduled"
	RequestSucceeded      RequestStatus = "succeeded"
	RequestFailed         RequestStatus = "failed"
)

// TranslationRequest is one unit of dispatch work: translate a single
// message for its chat. Attempts and Deadline are first-class so the
// retry schedule survives inspection and logging, and status moves only
// through the explicit transition methods.
type TranslationRequest struct {
	ID            string
	ChatID        int64
	MessageID     int
	Text          string
	SourceLang    string
	TargetLangs   []string
	Provider      string
	Status        RequestStatus
	Attempts      int
	NextAttemptAt time.Time
	Deadline      time.Time
	EnqueuedAt    time.Time
	Mode          IngestMode
	TraceID       string
	LastError     string

	resolved bool
}

// NewTranslationRequest builds a pending request from an ingested update.
// Session preferences are attached later via ResolveSession, once the
// coordinator has loaded them for the first attempt.
func NewTranslationRequest(id string, upd InboundUpdate, deadline time.Time) *TranslationRequest {
	return &TranslationRequest{
		ID:         id,
		ChatID:     upd.ChatID,
		MessageID:  upd.MessageID,
		Text:       upd.Text,
		Status:     RequestPending,
		Deadline:   deadline,
		EnqueuedAt: upd.ReceivedAt,
		Mode:       upd.Mode,
		TraceID:    upd.TraceID,
	}
}

// ResolveSession snapshots the session preferences the request runs
// under. The snapshot is taken once; retries reuse it so one request
// never observes a half-updated preference.
func (r *TranslationRequest) ResolveSession(s *ChatSession) {
	if r.resolved {
		return
	}
	r.SourceLang = s.SourceLang
	r.TargetLangs = s.Targets(s.SourceLang)
	r.Provider = s.Provider
	r.resolved = true
}

// Resolved reports whether session preferences were attached.
func (r *TranslationRequest) Resolved() bool { return r.resolved }

// Expired reports whether the request deadline has passed at now.
func (r *TranslationRequest) Expired(now time.Time) bool {
	return !r.Deadline.IsZero() && now.After(r.Deadline)
}

// MarkInFlight starts an attempt and counts it.
func (r *TranslationRequest) MarkInFlight() error {
	if err := r.transition(RequestInFlight, RequestPending, RequestRetryScheduled); err != nil {
		return err
	}
	r.Attempts++
	return nil
}

// MarkRetryScheduled parks the request until next, keeping it at the
// head of its lane.
func (r *TranslationRequest) MarkRetryScheduled(next time.Time, cause error) error {
	if err := r.transition(RequestRetryScheduled, RequestInFlight); err != nil {
		return err
	}
	r.NextAttemptAt = next
	if cause != nil {
		r.LastError = cause.Error()
	}
	return nil
}

func (r *TranslationRequest) MarkSucceeded() error {
	return r.transition(RequestSucceeded, RequestInFlight)
}

// MarkFailed terminates the request. Failure is reachable from any
// non-terminal state: a deadline can expire while a retry is parked or
// before the first attempt ever ran.
func (r *TranslationRequest) MarkFailed(cause error) error {
	if err := r.transition(RequestFailed, RequestPending, RequestInFlight, RequestRetryScheduled); err != nil {
		return err
	}
	if cause != nil {
		r.LastError = cause.Error()
	}
	return nil
}

func (r *TranslationRequest) transition(to RequestStatus, from ...RequestStatus) error {
	for _, f := range from {
		if r.Status == f {
			r.Status = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, r.Status, to)
}

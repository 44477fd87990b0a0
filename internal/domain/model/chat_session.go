package model

import (
	"slices"
	"time"
)

// MaxTargetLangs bounds how many target languages a chat may configure.
const MaxTargetLangs = 5

// ChatSession is the per-chat translation preference record. Version
// implements optimistic concurrency: every successful update increments
// it, and writers must present the version they read.
type ChatSession struct {
	ChatID         int64
	SourceLang     string // "" means auto-detect per message
	TargetLangs    []string
	Provider       string // "" means health-ranked automatic choice
	AutoTranslate  bool
	Version        int64
	LastActivityAt time.Time
	ArchivedAt     *time.Time
}

// NewChatSession builds a session with the given target defaults and version 0.
func NewChatSession(chatID int64, targetLangs []string, now time.Time) *ChatSession {
	return &ChatSession{
		ChatID:         chatID,
		TargetLangs:    slices.Clone(targetLangs),
		AutoTranslate:  true,
		Version:        0,
		LastActivityAt: now,
	}
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (s *ChatSession) Clone() *ChatSession {
	cp := *s
	cp.TargetLangs = slices.Clone(s.TargetLangs)
	if s.ArchivedAt != nil {
		t := *s.ArchivedAt
		cp.ArchivedAt = &t
	}
	return &cp
}

// Targets returns the effective target languages, excluding src so a
// message is never translated into its own language.
func (s *ChatSession) Targets(src string) []string {
	out := make([]string, 0, len(s.TargetLangs))
	for _, lang := range s.TargetLangs {
		if lang != src {
			out = append(out, lang)
		}
	}
	return out
}

// Touch records chat activity at now and clears any archive mark.
func (s *ChatSession) Touch(now time.Time) {
	s.LastActivityAt = now
	s.ArchivedAt = nil
}

package model

import "time"

// DailyStats is one per-chat usage row, keyed by calendar day.
type DailyStats struct {
	Day          time.Time
	ChatID       int64
	Posts        int64
	Translations int64
	Failures     int64
}

// Date truncates t to its UTC calendar day.
func Date(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

package models

import "time"

// RateLimitRecord tracks submissions from one client within a fixed window
// that opens on the first submission.
type RateLimitRecord struct {
	Key         string    `json:"key" db:"client_key"`
	WindowStart time.Time `json:"window_start" db:"window_start"`
	Count       int       `json:"count" db:"count"`
}

// Expired reports whether the window that opened at WindowStart has passed.
func (r RateLimitRecord) Expired(now time.Time, window time.Duration) bool {
	return now.Sub(r.WindowStart) > window
}

// Admit applies one submission attempt to the record. A zero or expired
// record restarts the window with a count of one. A record already at the
// limit is returned unchanged and the attempt is refused.
func (r RateLimitRecord) Admit(now time.Time, window time.Duration, limit int) (RateLimitRecord, bool) {
	if r.WindowStart.IsZero() || r.Expired(now, window) {
		return RateLimitRecord{Key: r.Key, WindowStart: now, Count: 1}, true
	}
	if r.Count >= limit {
		return r, false
	}
	r.Count++
	return r, true
}

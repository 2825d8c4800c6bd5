// Package domain – update markers
//
// This file defines the record kept per processed Telegram update so that
// redelivered webhooks are acknowledged without being handled twice.
package domain

import "time"

// UpdateMarker records that a Telegram update id has been claimed for
// processing. Markers live under UPDATES/<update_id> and are pruned by the
// retention job once older than the dedup TTL.
type UpdateMarker struct {
	UpdateID   int       `json:"updateId"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// Expired reports whether the marker is older than ttl at now.
func (m UpdateMarker) Expired(now time.Time, ttl time.Duration) bool {
	return !m.ReceivedAt.Add(ttl).After(now)
}

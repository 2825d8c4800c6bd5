// Package repo – processed updates
//
// This file claims Telegram update ids with set-if-absent and prunes claims
// older than a TTL.
package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tbourn/anonbot/internal/domain"
)

// ClaimUpdate records updateID as being processed. It returns false when the
// update was already claimed, i.e. Telegram redelivered it.
func ClaimUpdate(ctx context.Context, s Store, updateID int, now time.Time) (bool, error) {
	b, err := json.Marshal(domain.UpdateMarker{UpdateID: updateID, ReceivedAt: now.UTC()})
	if err != nil {
		return false, err
	}
	return s.SetNX(ctx, K(domain.TableUpdates, updateID), b)
}

// PruneUpdates deletes markers older than ttl at now and returns how many it
// removed. Undecodable markers are removed too.
func PruneUpdates(ctx context.Context, s Store, now time.Time, ttl time.Duration) (int, error) {
	entries, err := s.Scan(ctx, K(domain.TableUpdates), 0)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		var m domain.UpdateMarker
		if jerr := json.Unmarshal(e.Value, &m); jerr == nil && !m.Expired(now, ttl) {
			continue
		}
		k, err := DecodeKey(e.Key)
		if err != nil {
			return removed, err
		}
		if err := s.Delete(ctx, k); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

package db

import "time"

// UserOffense is the persisted moderation state for a single user.
// A missing row is equivalent to a zero ToxicCount and no block.
type UserOffense struct {
	UserID       int64      `db:"user_id"`
	Username     string     `db:"username"`
	ToxicCount   int        `db:"toxic_count"`
	BlockedUntil *time.Time `db:"blocked_until"`
}

// IsBlocked reports whether the user's block window covers the given moment.
func (o *UserOffense) IsBlocked(now time.Time) bool {
	if o == nil || o.BlockedUntil == nil {
		return false
	}
	return now.Before(*o.BlockedUntil)
}

package moderation

import (
	"time"

	"github.com/iamwavecut/toxbot/internal/db"
)

type Action string

const (
	// ActionAllow lets the message through untouched.
	ActionAllow Action = "allow"
	// ActionRemove deletes the message and explains which keywords triggered.
	ActionRemove Action = "remove"
	// ActionBlock removes the message and opens a 2-day block window.
	ActionBlock Action = "block"
	// ActionRejectBlocked drops a message sent inside an active block window,
	// before any classification.
	ActionRejectBlocked Action = "reject_blocked"
)

const (
	WarnThreshold  = 8
	BlockThreshold = 10
	BlockDuration  = 48 * time.Hour
)

// Decision is the outcome of one classified message for one user.
type Decision struct {
	Action Action
	Record db.UserOffense
	// Warn is set exactly once, when the updated count equals WarnThreshold.
	Warn bool
	// BlockedUntil carries the expiry to surface to the user, for both a
	// fresh block and a rejected-while-blocked message.
	BlockedUntil *time.Time
}

// Decide computes the action for a message and the updated offense record.
// It is pure: classification happens before the call, persistence after.
//
// The count never resets and an expired block is never cleared, so a user
// whose block elapsed keeps a count >= BlockThreshold and is re-blocked on
// their next toxic message.
func Decide(rec db.UserOffense, now time.Time, toxic bool) Decision {
	if rec.IsBlocked(now) {
		return Decision{
			Action:       ActionRejectBlocked,
			Record:       rec,
			BlockedUntil: rec.BlockedUntil,
		}
	}

	if !toxic {
		return Decision{Action: ActionAllow, Record: rec}
	}

	rec.ToxicCount++
	decision := Decision{Action: ActionRemove, Record: rec}
	switch {
	case rec.ToxicCount == WarnThreshold:
		decision.Warn = true
	case rec.ToxicCount >= BlockThreshold:
		until := now.Add(BlockDuration)
		rec.BlockedUntil = &until
		decision.Action = ActionBlock
		decision.Record = rec
		decision.BlockedUntil = &until
	}
	return decision
}

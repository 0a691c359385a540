package moderation

import (
	"testing"
	"time"

	"github.com/iamwavecut/toxbot/internal/db"
)

func TestDecideIncrementsWithoutEscalation(t *testing.T) {
	t.Parallel()

	now := time.Now()
	for count := 0; count < 7; count++ {
		d := Decide(db.UserOffense{UserID: 1, ToxicCount: count}, now, true)
		if d.Action != ActionRemove {
			t.Fatalf("count %d: unexpected action %q", count, d.Action)
		}
		if d.Record.ToxicCount != count+1 {
			t.Fatalf("count %d: expected increment to %d, got %d", count, count+1, d.Record.ToxicCount)
		}
		if d.Warn || d.BlockedUntil != nil {
			t.Fatalf("count %d: unexpected escalation %#v", count, d)
		}
	}
}

func TestDecideWarnsAtExactlyEight(t *testing.T) {
	t.Parallel()

	now := time.Now()
	d := Decide(db.UserOffense{UserID: 1, ToxicCount: 7}, now, true)
	if d.Action != ActionRemove || !d.Warn {
		t.Fatalf("expected remove with warning at 8th offense, got %#v", d)
	}
	if d.BlockedUntil != nil {
		t.Fatalf("warning must not carry a block: %#v", d)
	}

	// Equality, not >=: the 9th offense must not warn again.
	d = Decide(d.Record, now, true)
	if d.Warn {
		t.Fatalf("9th offense must not re-trigger warning: %#v", d)
	}
	if d.Action != ActionRemove || d.Record.ToxicCount != 9 {
		t.Fatalf("unexpected 9th offense decision: %#v", d)
	}
}

func TestDecideBlocksAtTen(t *testing.T) {
	t.Parallel()

	now := time.Now()
	d := Decide(db.UserOffense{UserID: 1, ToxicCount: 9}, now, true)
	if d.Action != ActionBlock {
		t.Fatalf("expected block at 10th offense, got %q", d.Action)
	}
	if d.Record.ToxicCount != 10 {
		t.Fatalf("unexpected count: %d", d.Record.ToxicCount)
	}
	want := now.Add(BlockDuration)
	if d.BlockedUntil == nil || !d.BlockedUntil.Equal(want) {
		t.Fatalf("blocked_until = %v, want %v", d.BlockedUntil, want)
	}
	if d.Record.BlockedUntil == nil || !d.Record.BlockedUntil.Equal(want) {
		t.Fatalf("record blocked_until = %v, want %v", d.Record.BlockedUntil, want)
	}
	if d.Warn {
		t.Fatalf("block must not carry the one-time warning: %#v", d)
	}
}

func TestDecideRejectsDuringBlockWindow(t *testing.T) {
	t.Parallel()

	now := time.Now()
	until := now.Add(time.Hour)
	rec := db.UserOffense{UserID: 1, ToxicCount: 10, BlockedUntil: &until}

	// Toxicity of the message is irrelevant inside the window.
	for _, toxic := range []bool{true, false} {
		d := Decide(rec, now, toxic)
		if d.Action != ActionRejectBlocked {
			t.Fatalf("toxic=%v: expected reject, got %q", toxic, d.Action)
		}
		if d.Record.ToxicCount != 10 {
			t.Fatalf("toxic=%v: count must not change, got %d", toxic, d.Record.ToxicCount)
		}
		if d.BlockedUntil == nil || !d.BlockedUntil.Equal(until) {
			t.Fatalf("toxic=%v: expected stored expiry %v, got %v", toxic, until, d.BlockedUntil)
		}
	}
}

func TestDecideExpiredBlockBehavesUnblocked(t *testing.T) {
	t.Parallel()

	now := time.Now()
	past := now.Add(-time.Minute)
	rec := db.UserOffense{UserID: 1, ToxicCount: 10, BlockedUntil: &past}

	d := Decide(rec, now, false)
	if d.Action != ActionAllow {
		t.Fatalf("expired block must not reject, got %q", d.Action)
	}
	if d.Record.ToxicCount != 10 {
		t.Fatalf("allow must not change count, got %d", d.Record.ToxicCount)
	}

	// No rehabilitation: the count stays >= 10, so the very next toxic
	// message opens a new block window.
	d = Decide(rec, now, true)
	if d.Action != ActionBlock || d.Record.ToxicCount != 11 {
		t.Fatalf("expected immediate re-block at count 11, got %#v", d)
	}
	want := now.Add(BlockDuration)
	if d.BlockedUntil == nil || !d.BlockedUntil.Equal(want) {
		t.Fatalf("new blocked_until = %v, want %v", d.BlockedUntil, want)
	}
}

func TestDecideAllowKeepsRecord(t *testing.T) {
	t.Parallel()

	now := time.Now()
	d := Decide(db.UserOffense{UserID: 1, Username: "alice", ToxicCount: 5}, now, false)
	if d.Action != ActionAllow {
		t.Fatalf("unexpected action %q", d.Action)
	}
	if d.Record.ToxicCount != 5 || d.Record.Username != "alice" {
		t.Fatalf("allow must keep the record intact: %#v", d.Record)
	}
	if d.Warn || d.BlockedUntil != nil {
		t.Fatalf("allow must not escalate: %#v", d)
	}
}

func TestDecideJumpPastWarnThresholdDoesNotWarn(t *testing.T) {
	t.Parallel()

	// Not reachable with +1 increments, but the engine must use equality.
	now := time.Now()
	d := Decide(db.UserOffense{UserID: 1, ToxicCount: 8}, now, true)
	if d.Warn {
		t.Fatalf("count 9 must not warn: %#v", d)
	}
}

package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iamwavecut/toxbot/internal/db"
)

func TestGetUserOffenseAbsent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, err := NewSQLiteClient(ctx, t.TempDir(), "test.db")
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	_, err = client.GetUserOffense(ctx, 404)
	if !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsertUserOffenseRoundtrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, err := NewSQLiteClient(ctx, t.TempDir(), "test.db")
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	until := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	offense := &db.UserOffense{
		UserID:       7,
		Username:     "offender",
		ToxicCount:   10,
		BlockedUntil: &until,
	}
	if err := client.UpsertUserOffense(ctx, offense); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := client.GetUserOffense(ctx, 7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Username != "offender" || got.ToxicCount != 10 {
		t.Fatalf("unexpected record: %#v", got)
	}
	if got.BlockedUntil == nil || !got.BlockedUntil.Equal(until) {
		t.Fatalf("unexpected blocked_until: %v want %v", got.BlockedUntil, until)
	}
}

func TestUpsertUserOffenseIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, err := NewSQLiteClient(ctx, t.TempDir(), "test.db")
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	offense := &db.UserOffense{UserID: 1, Username: "alice", ToxicCount: 3}
	for i := 0; i < 2; i++ {
		if err := client.UpsertUserOffense(ctx, offense); err != nil {
			t.Fatalf("upsert #%d: %v", i+1, err)
		}
	}

	got, err := client.GetUserOffense(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ToxicCount != 3 || got.Username != "alice" || got.BlockedUntil != nil {
		t.Fatalf("unexpected record after repeated upsert: %#v", got)
	}

	var count int
	if err := client.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM toxic_users"); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected single row, got %d", count)
	}
}

func TestUpsertOverwritesUnconditionally(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, err := NewSQLiteClient(ctx, t.TempDir(), "test.db")
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if err := client.UpsertUserOffense(ctx, &db.UserOffense{UserID: 2, Username: "old", ToxicCount: 1}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := client.UpsertUserOffense(ctx, &db.UserOffense{UserID: 2, Username: "new", ToxicCount: 2}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := client.GetUserOffense(ctx, 2)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Username != "new" || got.ToxicCount != 2 {
		t.Fatalf("expected last write to win, got %#v", got)
	}
}

package db

import (
	"context"
	"errors"
)

// ErrNotFound signals an absent offense record. Callers decide whether that
// means "first-time user" or a hard failure.
var ErrNotFound = errors.New("not found")

type Client interface {
	Close() error
	GetUserOffense(ctx context.Context, userID int64) (*UserOffense, error)
	UpsertUserOffense(ctx context.Context, offense *UserOffense) error
}

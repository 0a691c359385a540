package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/iamwavecut/tool"
	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/sethvargo/go-retry"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/iamwavecut/toxbot/internal/db"
	"github.com/iamwavecut/toxbot/resources"
)

const reconnectDelay = 300 * time.Millisecond

type sqliteClient struct {
	db    *sqlx.DB
	dsn   string
	mutex sync.Mutex
}

func NewSQLiteClient(ctx context.Context, dir, name string) (*sqliteClient, error) {
	dsn := filepath.Join(dir, name)
	dbx, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cant open db: %w", err)
	}
	dbx.SetMaxOpenConns(42)

	migrationsSource := &migrate.EmbedFileSystemMigrationSource{
		FileSystem: resources.FS,
		Root:       "migrations",
	}
	n, err := migrate.ExecContext(ctx, dbx.DB, "sqlite3", migrationsSource, migrate.Up)
	if err != nil {
		return nil, fmt.Errorf("migrate up failed: %w", err)
	}
	if n > 0 {
		log.Infof("applied %d migrations!", n)
	}

	return &sqliteClient{db: dbx, dsn: dsn}, nil
}

func (s *sqliteClient) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.db.Close()
}

func (s *sqliteClient) GetUserOffense(ctx context.Context, userID int64) (*db.UserOffense, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var offense db.UserOffense
	err := retry.Do(ctx, retry.WithMaxRetries(1, retry.NewConstant(reconnectDelay)), func(ctx context.Context) error {
		err := s.db.GetContext(ctx, &offense, `
			SELECT user_id, username, toxic_count, blocked_until
			FROM toxic_users
			WHERE user_id = ?
		`, userID)
		if err == nil {
			return nil
		}
		if errors.Is(err, sql.ErrNoRows) {
			return db.ErrNotFound
		}
		return s.reconnectOrFail(ctx, err)
	})
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get offense record for user %d: %w", userID, err)
	}
	return &offense, nil
}

func (s *sqliteClient) UpsertUserOffense(ctx context.Context, offense *db.UserOffense) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		INSERT INTO toxic_users (user_id, username, toxic_count, blocked_until)
		VALUES (:user_id, :username, :toxic_count, :blocked_until)
		ON CONFLICT(user_id) DO UPDATE SET
		username = excluded.username,
		toxic_count = excluded.toxic_count,
		blocked_until = excluded.blocked_until
	`
	err := retry.Do(ctx, retry.WithMaxRetries(1, retry.NewConstant(reconnectDelay)), func(ctx context.Context) error {
		if err := tool.Err(s.db.NamedExecContext(ctx, query, offense)); err != nil {
			return s.reconnectOrFail(ctx, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to upsert offense record for user %d: %w", offense.UserID, err)
	}
	return nil
}

// reconnectOrFail reopens the database handle when the connection itself is
// gone. The retry budget allows a single reconnect per operation.
func (s *sqliteClient) reconnectOrFail(ctx context.Context, cause error) error {
	if pingErr := s.db.PingContext(ctx); pingErr == nil {
		return cause
	}
	log.WithField("error", cause.Error()).Warn("lost database connection, reconnecting")
	reopened, err := sqlx.Open("sqlite", s.dsn)
	if err != nil {
		return cause
	}
	_ = s.db.Close()
	s.db = reopened
	return retry.RetryableError(cause)
}

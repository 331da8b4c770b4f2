package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrInvalidArgument is returned when a store method is called with a zero
// identifier or nil record.
var ErrInvalidArgument = errors.New("invalid argument")

// Store defines the interface for database operations.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// UpsertChannel inserts a registration or refreshes title and username
	// of an existing one. AddedAt of an existing row is never changed. The
	// stored row is written back into ch.
	UpsertChannel(ctx context.Context, ch *Channel) error

	// GetChannel returns a single registration, or nil, nil if absent.
	GetChannel(ctx context.Context, ownerID, channelID int64) (*Channel, error)

	// ListChannelsByOwner returns the owner's registrations ordered by title.
	ListChannelsByOwner(ctx context.Context, ownerID int64) ([]Channel, error)

	// ListDistinctChannels returns one row per channel regardless of owner,
	// ordered by title.
	ListDistinctChannels(ctx context.Context) ([]Channel, error)

	// UpdateChannelMetadata refreshes title and username on every row of
	// channelID.
	UpdateChannelMetadata(ctx context.Context, channelID int64, title string, username sql.NullString) (int64, error)

	// DeleteChannel removes one (owner, channel) row. Absence is not an error.
	DeleteChannel(ctx context.Context, ownerID, channelID int64) (int64, error)

	// DeleteChannelEverywhere removes every row for channelID.
	DeleteChannelEverywhere(ctx context.Context, channelID int64) (int64, error)

	// GetSession returns the operator's session, or nil, nil if absent.
	GetSession(ctx context.Context, operatorID int64) (*SessionRecord, error)

	// SaveSession inserts or replaces the operator's session.
	SaveSession(ctx context.Context, rec *SessionRecord) error

	// DeleteSession removes the operator's session. Absence is not an error.
	DeleteSession(ctx context.Context, operatorID int64) error

	// DeleteSessionsBefore removes sessions idle since before cutoff.
	DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates a Store backed by sqlx.
// It requires a connected, migrated sqlx.DB instance.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const channelColumns = `owner_id, channel_id, title, username, added_at, updated_at`

// UpsertChannel relies on ON CONFLICT so repeated promotions update in place.
func (s *sqlxStore) UpsertChannel(ctx context.Context, ch *Channel) error {
	if ch == nil {
		return fmt.Errorf("%w: nil channel", ErrInvalidArgument)
	}
	if ch.ChannelID == 0 {
		return fmt.Errorf("%w: channel_id cannot be zero", ErrInvalidArgument)
	}

	now := s.now()
	ch.AddedAt = now
	ch.UpdatedAt = now

	query := `
        INSERT INTO channels (owner_id, channel_id, title, username, added_at, updated_at)
        VALUES (:owner_id, :channel_id, :title, :username, :added_at, :updated_at)
        ON CONFLICT (owner_id, channel_id) DO UPDATE SET
            title = excluded.title,
            username = excluded.username,
            updated_at = excluded.updated_at;
    `
	if _, err := s.db.NamedExecContext(ctx, query, ch); err != nil {
		s.logger.ErrorContext(ctx, "Error upserting channel",
			"owner_id", ch.OwnerID, "channel_id", ch.ChannelID, "error", err)
		return fmt.Errorf("failed to upsert channel %d for owner %d: %w", ch.ChannelID, ch.OwnerID, err)
	}

	stored, err := s.GetChannel(ctx, ch.OwnerID, ch.ChannelID)
	if err != nil {
		return err
	}
	if stored == nil {
		return fmt.Errorf("channel %d for owner %d vanished after upsert", ch.ChannelID, ch.OwnerID)
	}
	*ch = *stored

	s.logger.DebugContext(ctx, "Channel upserted",
		"owner_id", ch.OwnerID, "channel_id", ch.ChannelID, "title", ch.Title)
	return nil
}

func (s *sqlxStore) GetChannel(ctx context.Context, ownerID, channelID int64) (*Channel, error) {
	var ch Channel
	query := `SELECT ` + channelColumns + ` FROM channels WHERE owner_id = ? AND channel_id = ?`

	err := s.db.GetContext(ctx, &ch, query, ownerID, channelID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return nil, err
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting channel", "owner_id", ownerID, "channel_id", channelID, "error", err)
		return nil, fmt.Errorf("failed to get channel %d for owner %d: %w", channelID, ownerID, err)
	}
	return &ch, nil
}

func (s *sqlxStore) ListChannelsByOwner(ctx context.Context, ownerID int64) ([]Channel, error) {
	var channels []Channel
	query := `
        SELECT ` + channelColumns + `
        FROM channels
        WHERE owner_id = ?
        ORDER BY title, channel_id;
    `
	if err := s.db.SelectContext(ctx, &channels, query, ownerID); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		s.logger.ErrorContext(ctx, "Error listing channels", "owner_id", ownerID, "error", err)
		return nil, fmt.Errorf("failed to list channels for owner %d: %w", ownerID, err)
	}
	return channels, nil
}

// ListDistinctChannels keeps, for each channel, the most recently refreshed
// row (lowest owner id on ties).
func (s *sqlxStore) ListDistinctChannels(ctx context.Context) ([]Channel, error) {
	var channels []Channel
	query := `
        SELECT ` + channelColumns + `
        FROM channels c
        WHERE NOT EXISTS (
            SELECT 1 FROM channels d
            WHERE d.channel_id = c.channel_id
              AND (d.updated_at > c.updated_at
                   OR (d.updated_at = c.updated_at AND d.owner_id < c.owner_id))
        )
        ORDER BY title, channel_id;
    `
	if err := s.db.SelectContext(ctx, &channels, query); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		s.logger.ErrorContext(ctx, "Error listing distinct channels", "error", err)
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	return channels, nil
}

func (s *sqlxStore) UpdateChannelMetadata(ctx context.Context, channelID int64, title string, username sql.NullString) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE channels SET title = ?, username = ?, updated_at = ? WHERE channel_id = ?`,
		title, username, s.now(), channelID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error updating channel metadata", "channel_id", channelID, "error", err)
		return 0, fmt.Errorf("failed to update channel %d: %w", channelID, err)
	}
	count, _ := result.RowsAffected()
	return count, nil
}

func (s *sqlxStore) DeleteChannel(ctx context.Context, ownerID, channelID int64) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM channels WHERE owner_id = ? AND channel_id = ?`, ownerID, channelID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting channel", "owner_id", ownerID, "channel_id", channelID, "error", err)
		return 0, fmt.Errorf("failed to delete channel %d for owner %d: %w", channelID, ownerID, err)
	}
	count, _ := result.RowsAffected()
	return count, nil
}

func (s *sqlxStore) DeleteChannelEverywhere(ctx context.Context, channelID int64) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM channels WHERE channel_id = ?`, channelID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting channel for all owners", "channel_id", channelID, "error", err)
		return 0, fmt.Errorf("failed to delete channel %d: %w", channelID, err)
	}
	count, _ := result.RowsAffected()
	return count, nil
}

func (s *sqlxStore) GetSession(ctx context.Context, operatorID int64) (*SessionRecord, error) {
	var rec SessionRecord
	query := `SELECT operator_id, step, pending, updated_at FROM sessions WHERE operator_id = ?`

	err := s.db.GetContext(ctx, &rec, query, operatorID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to get session for operator %d: %w", operatorID, err)
	}
	return &rec, nil
}

func (s *sqlxStore) SaveSession(ctx context.Context, rec *SessionRecord) error {
	if rec == nil || rec.OperatorID == 0 {
		return fmt.Errorf("%w: session needs an operator id", ErrInvalidArgument)
	}
	if rec.Pending == "" {
		rec.Pending = "[]"
	}
	rec.UpdatedAt = s.now()

	query := `
        INSERT INTO sessions (operator_id, step, pending, updated_at)
        VALUES (:operator_id, :step, :pending, :updated_at)
        ON CONFLICT (operator_id) DO UPDATE SET
            step = excluded.step,
            pending = excluded.pending,
            updated_at = excluded.updated_at;
    `
	if _, err := s.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("failed to save session for operator %d: %w", rec.OperatorID, err)
	}
	return nil
}

func (s *sqlxStore) DeleteSession(ctx context.Context, operatorID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE operator_id = ?`, operatorID); err != nil {
		return fmt.Errorf("failed to delete session for operator %d: %w", operatorID, err)
	}
	return nil
}

func (s *sqlxStore) DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	count, _ := result.RowsAffected()
	s.logger.DebugContext(ctx, "Deleted expired sessions", "count", count, "cutoff", cutoff)
	return count, nil
}

// RunSQLMaintenance executes VACUUM. It must run outside a transaction.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)")

	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed")
	return nil
}

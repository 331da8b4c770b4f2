// Package directory maintains the durable mapping of owners to the channels
// they registered.
package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/edgard/relaybot/internal/database"
	"github.com/edgard/relaybot/internal/relay"
)

// Scope decides whether registrations belong to individual owners or to
// everyone.
type Scope string

const (
	ScopePerOwner Scope = "per_owner"
	ScopeGlobal   Scope = "global"
)

// ParseScope validates a configured scope.
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case ScopePerOwner:
		return ScopePerOwner, nil
	case ScopeGlobal:
		return ScopeGlobal, nil
	default:
		return "", fmt.Errorf("unknown directory scope %q", s)
	}
}

// ChatInfo is the channel metadata fetched from the transport.
type ChatInfo struct {
	ID       int64
	Title    string
	Username string // without the leading "@"
}

// ChatLookup fetches current channel metadata.
type ChatLookup interface {
	ChatInfo(ctx context.Context, chatID int64) (ChatInfo, error)
}

// Directory is the channel directory.
type Directory struct {
	store  database.Store
	chats  ChatLookup
	scope  Scope
	logger *slog.Logger
}

// New creates a Directory.
func New(store database.Store, chats ChatLookup, scope Scope, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	if scope == "" {
		scope = ScopePerOwner
	}
	return &Directory{
		store:  store,
		chats:  chats,
		scope:  scope,
		logger: logger.With("component", "directory", "scope", string(scope)),
	}
}

// Scope returns the configured scope.
func (d *Directory) Scope() Scope {
	return d.scope
}

func (d *Directory) owner(ownerID int64) int64 {
	if d.scope == ScopeGlobal {
		return database.GlobalOwner
	}
	return ownerID
}

// Upsert fetches the channel's current metadata and registers it for owner.
func (d *Directory) Upsert(ctx context.Context, ownerID, channelID int64) (*database.Channel, error) {
	info, err := d.chats.ChatInfo(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chat %d: %w", channelID, err)
	}

	ch := &database.Channel{
		OwnerID:   d.owner(ownerID),
		ChannelID: channelID,
	}
	ch.Title, ch.Username = metadata(channelID, info)

	if err := d.store.UpsertChannel(ctx, ch); err != nil {
		return nil, err
	}

	d.logger.InfoContext(ctx, "Channel registered", "owner_id", ch.OwnerID, "channel_id", channelID, "title", ch.Title)
	return ch, nil
}

// List returns the owner's channels ordered by title. In global scope the
// owner is ignored and each channel appears once.
func (d *Directory) List(ctx context.Context, ownerID int64) ([]database.Channel, error) {
	if d.scope == ScopeGlobal {
		return d.store.ListDistinctChannels(ctx)
	}
	return d.store.ListChannelsByOwner(ctx, ownerID)
}

// All returns every registered channel once.
func (d *Directory) All(ctx context.Context) ([]database.Channel, error) {
	return d.store.ListDistinctChannels(ctx)
}

// Remove unregisters a channel for owner; in global scope it is removed for
// everyone. Removing an absent registration is not an error.
func (d *Directory) Remove(ctx context.Context, ownerID, channelID int64) error {
	if d.scope == ScopeGlobal {
		return d.RemoveChannel(ctx, channelID)
	}

	n, err := d.store.DeleteChannel(ctx, ownerID, channelID)
	if err != nil {
		return err
	}
	d.logger.InfoContext(ctx, "Channel unregistered", "owner_id", ownerID, "channel_id", channelID, "rows", n)
	return nil
}

// RemoveChannel unregisters a channel for every owner.
func (d *Directory) RemoveChannel(ctx context.Context, channelID int64) error {
	n, err := d.store.DeleteChannelEverywhere(ctx, channelID)
	if err != nil {
		return err
	}
	d.logger.InfoContext(ctx, "Channel removed for all owners", "channel_id", channelID, "rows", n)
	return nil
}

// Refresh re-fetches a channel's metadata. A channel the transport reports
// as unreachable is removed; it returns true in that case.
func (d *Directory) Refresh(ctx context.Context, channelID int64) (removed bool, err error) {
	info, err := d.chats.ChatInfo(ctx, channelID)
	if errors.Is(err, relay.ErrChannelUnreachable) {
		if rmErr := d.RemoveChannel(ctx, channelID); rmErr != nil {
			return false, rmErr
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to fetch chat %d: %w", channelID, err)
	}

	title, username := metadata(channelID, info)
	if _, err := d.store.UpdateChannelMetadata(ctx, channelID, title, username); err != nil {
		return false, err
	}
	return false, nil
}

// metadata applies the display rules: the title falls back to the channel
// id, the username is stored with its "@".
func metadata(channelID int64, info ChatInfo) (string, sql.NullString) {
	title := strings.TrimSpace(info.Title)
	if title == "" {
		title = strconv.FormatInt(channelID, 10)
	}
	var username sql.NullString
	if u := strings.TrimPrefix(strings.TrimSpace(info.Username), "@"); u != "" {
		username = sql.NullString{String: "@" + u, Valid: true}
	}
	return title, username
}

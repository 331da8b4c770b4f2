// Package tasks implements the bot's scheduled maintenance tasks.
package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/edgard/relaybot/internal/config"
	"github.com/edgard/relaybot/internal/database"
	"github.com/edgard/relaybot/internal/session"
)

// ChannelRefresher re-fetches channel metadata and prunes channels that are
// gone.
type ChannelRefresher interface {
	All(ctx context.Context) ([]database.Channel, error)
	Refresh(ctx context.Context, channelID int64) (removed bool, err error)
}

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger    *slog.Logger
	Store     database.Store
	Sessions  session.Store
	Directory ChannelRefresher
	Config    *config.Config
	// Now defaults to time.Now.
	Now func() time.Time
}

// Package registration keeps the channel directory in step with the bot's
// own admin status in channels.
package registration

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/edgard/relaybot/internal/database"
	"github.com/edgard/relaybot/internal/directory"
)

// Member statuses carried by membership events.
const (
	StatusAdministrator = "administrator"
	StatusLeft          = "left"
	StatusKicked        = "kicked"
)

// ChatTypeChannel is the only chat type the listener acts on.
const ChatTypeChannel = "channel"

// Member identifies a chat member.
type Member struct {
	ID    int64
	IsBot bool
}

// Event is a membership change of the bot in some chat.
type Event struct {
	ChatID    int64
	ChatType  string
	ChatTitle string
	Member    Member
	Status    string
}

// Admins enumerates a channel's administrators.
type Admins interface {
	Administrators(ctx context.Context, chatID int64) ([]Member, error)
}

// Notifier sends a direct message to a user.
type Notifier interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// Directory is the part of the channel directory the listener writes to.
type Directory interface {
	Upsert(ctx context.Context, ownerID, channelID int64) (*database.Channel, error)
	RemoveChannel(ctx context.Context, channelID int64) error
	Scope() directory.Scope
}

// Listener turns membership events into directory writes.
type Listener struct {
	botID     int64
	admins    Admins
	notifier  Notifier
	dir       Directory
	linkedFmt string
	logger    *slog.Logger
}

// NewListener creates a Listener. linkedFmt is the confirmation sent to each
// admin and must contain a single %s for the channel label.
func NewListener(botID int64, admins Admins, notifier Notifier, dir Directory, linkedFmt string, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		botID:     botID,
		admins:    admins,
		notifier:  notifier,
		dir:       dir,
		linkedFmt: linkedFmt,
		logger:    logger.With("component", "registration"),
	}
}

// Handle processes one event. It never fails; problems are logged.
func (l *Listener) Handle(ctx context.Context, ev Event) {
	log := l.logger.With("chat_id", ev.ChatID, "status", ev.Status)

	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "Recovered from panic in membership handler",
				"panic", r, "stack", string(debug.Stack()))
		}
	}()

	if ev.ChatType != ChatTypeChannel {
		log.DebugContext(ctx, "Ignoring membership change outside a channel", "chat_type", ev.ChatType)
		return
	}
	if ev.Member.ID != l.botID {
		log.DebugContext(ctx, "Ignoring membership change of another member", "member_id", ev.Member.ID)
		return
	}

	switch ev.Status {
	case StatusAdministrator:
		l.register(ctx, log, ev)
	case StatusLeft, StatusKicked:
		if err := l.dir.RemoveChannel(ctx, ev.ChatID); err != nil {
			log.ErrorContext(ctx, "Failed to remove channel", "error", err)
			return
		}
		log.InfoContext(ctx, "Channel removed from directory", "title", ev.ChatTitle)
	default:
		log.DebugContext(ctx, "Ignoring membership status")
	}
}

func (l *Listener) register(ctx context.Context, log *slog.Logger, ev Event) {
	if l.dir.Scope() == directory.ScopeGlobal {
		ch, err := l.dir.Upsert(ctx, database.GlobalOwner, ev.ChatID)
		if err != nil {
			log.ErrorContext(ctx, "Failed to register channel", "error", err)
			return
		}
		log.InfoContext(ctx, "Channel registered", "title", ch.Title)
		return
	}

	admins, err := l.admins.Administrators(ctx, ev.ChatID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to fetch channel administrators", "error", err)
		return
	}

	for _, admin := range admins {
		if admin.IsBot {
			continue
		}

		ch, err := l.dir.Upsert(ctx, admin.ID, ev.ChatID)
		if err != nil {
			log.ErrorContext(ctx, "Failed to register channel for admin", "admin_id", admin.ID, "error", err)
			continue
		}
		log.InfoContext(ctx, "Channel registered", "title", ch.Title, "admin_id", admin.ID)

		if err := l.notifier.SendText(ctx, admin.ID, fmt.Sprintf(l.linkedFmt, ch.Label())); err != nil {
			log.DebugContext(ctx, "Could not notify admin", "admin_id", admin.ID, "error", err)
		}
	}
}

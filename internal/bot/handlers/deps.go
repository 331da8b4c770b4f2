package handlers

import (
	"context"
	"log/slog"

	"github.com/edgard/relaybot/internal/config"
	"github.com/edgard/relaybot/internal/dialogue"
	"github.com/edgard/relaybot/internal/registration"
)

// DialogueHandler consumes private operator messages.
type DialogueHandler interface {
	Handle(ctx context.Context, in dialogue.Incoming)
}

// MembershipHandler consumes changes of the bot's own chat membership.
type MembershipHandler interface {
	Handle(ctx context.Context, ev registration.Event)
}

// HandlerDeps provides dependencies for Telegram handlers.
type HandlerDeps struct {
	Logger       *slog.Logger
	Config       *config.Config
	Dialogue     DialogueHandler
	Registration MembershipHandler
}

package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewDefaultHandler returns the handler for updates no text handler matched:
// membership changes go to the registration listener, messages (media
// included) to the dialogue.
func NewDefaultHandler(deps HandlerDeps) bot.HandlerFunc {
	dialogueHandler := NewDialogueHandler(deps)
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		switch {
		case update.MyChatMember != nil:
			deps.Registration.Handle(ctx, EventFromMembership(update.MyChatMember))
		case update.Message != nil:
			dialogueHandler(ctx, b, update)
		default:
			deps.Logger.DebugContext(ctx, "Ignoring update", "handler", "default", "update_id", update.ID)
		}
	}
}

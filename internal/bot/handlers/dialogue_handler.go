package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewDialogueHandler returns a handler passing private messages to the
// dialogue.
func NewDialogueHandler(deps HandlerDeps) bot.HandlerFunc {
	return dialogueHandler{deps}.Handle
}

type dialogueHandler struct {
	deps HandlerDeps
}

func (h dialogueHandler) Handle(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		h.deps.Logger.WarnContext(ctx, "Dialogue handler received update with nil message or sender", "handler", "dialogue", "update_id", update.ID)
		return
	}
	h.deps.Dialogue.Handle(ctx, IncomingFromMessage(update.Message))
}

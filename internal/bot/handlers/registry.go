package handlers

import (
	tgbot "github.com/go-telegram/bot"
)

// RegisteredHandler represents a handler with its match rule and middleware.
type RegisteredHandler struct {
	HandlerType tgbot.HandlerType
	Pattern     string
	Handler     tgbot.HandlerFunc
	Middleware  []tgbot.Middleware
	MatchType   tgbot.MatchType
}

// RegisterAllCommands returns the text handlers: the two commands and the
// two menu buttons, matched by their configured labels. Everything else
// reaches NewDefaultHandler.
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredHandler {
	handlers := make(map[string]RegisteredHandler)

	private := []tgbot.Middleware{PrivateOnly(deps)}
	dialogueHandler := NewDialogueHandler(deps)

	handlers["/start"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "start",
		Handler:     dialogueHandler,
		MatchType:   tgbot.MatchTypeCommandStartOnly,
		Middleware:  private,
	}
	handlers["/cancel"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "cancel",
		Handler:     dialogueHandler,
		MatchType:   tgbot.MatchTypeCommandStartOnly,
		Middleware:  private,
	}
	handlers["button_view_channels"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     deps.Config.Messages.ButtonViewChannels,
		Handler:     dialogueHandler,
		MatchType:   tgbot.MatchTypeExact,
		Middleware:  private,
	}
	handlers["button_cancel"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     deps.Config.Messages.ButtonCancel,
		Handler:     dialogueHandler,
		MatchType:   tgbot.MatchTypeExact,
		Middleware:  private,
	}

	return handlers
}

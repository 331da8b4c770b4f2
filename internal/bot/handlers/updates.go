package handlers

import (
	"github.com/go-telegram/bot/models"

	"github.com/edgard/relaybot/internal/dialogue"
	"github.com/edgard/relaybot/internal/registration"
	"github.com/edgard/relaybot/internal/relay"
)

// IncomingFromMessage converts a message into dialogue input. The message
// itself is the relay item; text messages are marked formatted so copies
// keep HTML parse mode.
func IncomingFromMessage(msg *models.Message) dialogue.Incoming {
	in := dialogue.Incoming{
		ChatID:   msg.Chat.ID,
		ChatType: string(msg.Chat.Type),
		Text:     msg.Text,
		Item: relay.Item{
			FromChatID: msg.Chat.ID,
			MessageID:  msg.ID,
			Formatted:  msg.Text != "",
		},
	}
	if msg.From != nil {
		in.OperatorID = msg.From.ID
	}
	return in
}

// EventFromMembership converts a my_chat_member update into a registration
// event. The member is the subject of the new status.
func EventFromMembership(upd *models.ChatMemberUpdated) registration.Event {
	ev := registration.Event{
		ChatID:    upd.Chat.ID,
		ChatType:  string(upd.Chat.Type),
		ChatTitle: upd.Chat.Title,
		Status:    string(upd.NewChatMember.Type),
	}
	if user := MemberUser(upd.NewChatMember); user != nil {
		ev.Member = registration.Member{ID: user.ID, IsBot: user.IsBot}
	}
	return ev
}

// MemberUser returns the user of a chat member whatever its status.
func MemberUser(m models.ChatMember) *models.User {
	switch {
	case m.Owner != nil:
		return m.Owner.User
	case m.Administrator != nil:
		return &m.Administrator.User
	case m.Member != nil:
		return m.Member.User
	case m.Restricted != nil:
		return m.Restricted.User
	case m.Left != nil:
		return m.Left.User
	case m.Banned != nil:
		return m.Banned.User
	default:
		return nil
	}
}

package handlers

import (
	"context"
	"testing"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/relaybot/internal/config"
	"github.com/edgard/relaybot/internal/dialogue"
	"github.com/edgard/relaybot/internal/logger"
	"github.com/edgard/relaybot/internal/registration"
	"github.com/edgard/relaybot/internal/relay"
)

type recorder struct {
	incoming []dialogue.Incoming
	events   []registration.Event
}

func (r *recorder) Handle(_ context.Context, in dialogue.Incoming) {
	r.incoming = append(r.incoming, in)
}

type eventRecorder struct{ r *recorder }

func (e eventRecorder) Handle(_ context.Context, ev registration.Event) {
	e.r.events = append(e.r.events, ev)
}

func newDeps() (HandlerDeps, *recorder) {
	rec := &recorder{}
	cfg := &config.Config{Messages: config.DefaultMessages}
	return HandlerDeps{
		Logger:       logger.Discard(),
		Config:       cfg,
		Dialogue:     rec,
		Registration: eventRecorder{rec},
	}, rec
}

func privateMessage(text string) *models.Update {
	return &models.Update{
		ID: 1,
		Message: &models.Message{
			ID:   10,
			From: &models.User{ID: 42},
			Chat: models.Chat{ID: 42, Type: models.ChatTypePrivate},
			Text: text,
		},
	}
}

func TestIncomingFromMessage(t *testing.T) {
	in := IncomingFromMessage(privateMessage("<b>hi</b>").Message)
	assert.Equal(t, dialogue.Incoming{
		ChatID:     42,
		ChatType:   "private",
		OperatorID: 42,
		Text:       "<b>hi</b>",
		Item:       relay.Item{FromChatID: 42, MessageID: 10, Formatted: true},
	}, in)

	photo := &models.Message{ID: 11, From: &models.User{ID: 42}, Chat: models.Chat{ID: 42, Type: models.ChatTypePrivate}, Caption: "look"}
	in = IncomingFromMessage(photo)
	assert.Equal(t, relay.Item{FromChatID: 42, MessageID: 11}, in.Item)
}

func TestEventFromMembership(t *testing.T) {
	tests := []struct {
		name   string
		member models.ChatMember
		want   registration.Event
	}{
		{
			name: "promoted",
			member: models.ChatMember{
				Type:          models.ChatMemberTypeAdministrator,
				Administrator: &models.ChatMemberAdministrator{User: models.User{ID: 999, IsBot: true}},
			},
			want: registration.Event{ChatID: -100, ChatType: "channel", ChatTitle: "Deals", Member: registration.Member{ID: 999, IsBot: true}, Status: "administrator"},
		},
		{
			name: "kicked",
			member: models.ChatMember{
				Type:   models.ChatMemberTypeBanned,
				Banned: &models.ChatMemberBanned{User: &models.User{ID: 999, IsBot: true}},
			},
			want: registration.Event{ChatID: -100, ChatType: "channel", ChatTitle: "Deals", Member: registration.Member{ID: 999, IsBot: true}, Status: "kicked"},
		},
		{
			name: "left",
			member: models.ChatMember{
				Type: models.ChatMemberTypeLeft,
				Left: &models.ChatMemberLeft{User: &models.User{ID: 999, IsBot: true}},
			},
			want: registration.Event{ChatID: -100, ChatType: "channel", ChatTitle: "Deals", Member: registration.Member{ID: 999, IsBot: true}, Status: "left"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EventFromMembership(&models.ChatMemberUpdated{
				Chat:          models.Chat{ID: -100, Type: models.ChatTypeChannel, Title: "Deals"},
				NewChatMember: tt.member,
			})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultHandlerRouting(t *testing.T) {
	deps, rec := newDeps()
	h := NewDefaultHandler(deps)

	h(context.Background(), nil, privateMessage("hello"))
	h(context.Background(), nil, &models.Update{ID: 2, MyChatMember: &models.ChatMemberUpdated{
		Chat: models.Chat{ID: -100, Type: models.ChatTypeChannel},
		NewChatMember: models.ChatMember{
			Type: models.ChatMemberTypeLeft,
			Left: &models.ChatMemberLeft{User: &models.User{ID: 999, IsBot: true}},
		},
	}})
	h(context.Background(), nil, &models.Update{ID: 3, ChannelPost: &models.Message{ID: 1}})

	require.Len(t, rec.incoming, 1)
	assert.Equal(t, "hello", rec.incoming[0].Text)
	require.Len(t, rec.events, 1)
	assert.Equal(t, registration.StatusLeft, rec.events[0].Status)
}

func TestDialogueHandlerNeedsSender(t *testing.T) {
	deps, rec := newDeps()
	upd := privateMessage("hi")
	upd.Message.From = nil

	NewDialogueHandler(deps)(context.Background(), nil, upd)
	assert.Empty(t, rec.incoming)
}

func TestPrivateOnly(t *testing.T) {
	deps, rec := newDeps()
	h := PrivateOnly(deps)(NewDialogueHandler(deps))

	group := privateMessage("/start")
	group.Message.Chat.Type = models.ChatTypeSupergroup
	h(context.Background(), nil, group)
	assert.Empty(t, rec.incoming)

	h(context.Background(), nil, privateMessage("/start"))
	assert.Len(t, rec.incoming, 1)
}

func TestRegisterAllCommands(t *testing.T) {
	deps, _ := newDeps()
	registered := RegisterAllCommands(deps)

	require.Len(t, registered, 4)
	assert.Equal(t, "start", registered["/start"].Pattern)
	assert.Equal(t, tgbot.MatchTypeCommandStartOnly, registered["/cancel"].MatchType)
	assert.Equal(t, "📋 View My Channels", registered["button_view_channels"].Pattern)
	assert.Equal(t, tgbot.MatchTypeExact, registered["button_cancel"].MatchType)
	for name, h := range registered {
		assert.NotNil(t, h.Handler, name)
		assert.Len(t, h.Middleware, 1, name)
	}
}

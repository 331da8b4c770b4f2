package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/relaybot/internal/bot/handlers"
	"github.com/edgard/relaybot/internal/directory"
	"github.com/edgard/relaybot/internal/registration"
	"github.com/edgard/relaybot/internal/relay"
)

// unreachablePhrases are Bot API error descriptions meaning the destination
// is gone for good. Matched case-insensitively.
var unreachablePhrases = []string{
	"chat not found",
	"bot was kicked",
	"bot is not a member",
	"channel_invalid",
	"chat_write_forbidden",
	"need administrator rights in the channel chat",
}

// Classify marks errors that mean the destination chat no longer accepts the
// bot with relay.ErrChannelUnreachable. Other errors are returned unchanged.
func Classify(err error) error {
	if err == nil || errors.Is(err, relay.ErrChannelUnreachable) {
		return err
	}
	if errors.Is(err, bot.ErrorForbidden) {
		return fmt.Errorf("%w: %w", relay.ErrChannelUnreachable, err)
	}

	msg := strings.ToLower(err.Error())
	for _, phrase := range unreachablePhrases {
		if strings.Contains(msg, phrase) {
			return fmt.Errorf("%w: %w", relay.ErrChannelUnreachable, err)
		}
	}
	return err
}

// Client adapts *bot.Bot to the narrow interfaces of the directory, the
// relay engine, the registration listener and the dialogue.
type Client struct {
	b      *bot.Bot
	logger *slog.Logger
}

// NewClient wraps a bot instance.
func NewClient(b *bot.Bot, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{b: b, logger: logger.With("component", "telegram_client")}
}

// ChatInfo fetches a chat's title and public username.
func (c *Client) ChatInfo(ctx context.Context, chatID int64) (directory.ChatInfo, error) {
	chat, err := c.b.GetChat(ctx, &bot.GetChatParams{ChatID: chatID})
	if err != nil {
		return directory.ChatInfo{}, Classify(err)
	}
	return directory.ChatInfo{ID: chat.ID, Title: chat.Title, Username: chat.Username}, nil
}

// Administrators lists a chat's administrators, the owner included.
func (c *Client) Administrators(ctx context.Context, chatID int64) ([]registration.Member, error) {
	admins, err := c.b.GetChatAdministrators(ctx, &bot.GetChatAdministratorsParams{ChatID: chatID})
	if err != nil {
		return nil, Classify(err)
	}

	members := make([]registration.Member, 0, len(admins))
	for _, admin := range admins {
		user := handlers.MemberUser(admin)
		if user == nil {
			c.logger.DebugContext(ctx, "Skipping administrator without user", "chat_id", chatID, "type", admin.Type)
			continue
		}
		members = append(members, registration.Member{ID: user.ID, IsBot: user.IsBot})
	}
	return members, nil
}

// SendText sends a plain text message.
func (c *Client) SendText(ctx context.Context, chatID int64, text string) error {
	_, err := c.b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text})
	return Classify(err)
}

// SendKeyboard sends text with a resized reply keyboard.
func (c *Client) SendKeyboard(ctx context.Context, chatID int64, text string, rows [][]string) error {
	_, err := c.b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: ReplyKeyboard(rows),
	})
	return Classify(err)
}

// Copy duplicates the referenced message without attribution. The caption is
// never overridden so Telegram keeps the source caption with its entities.
// Text messages are sent with HTML parse mode.
func (c *Client) Copy(ctx context.Context, toChatID int64, item relay.Item) error {
	params := &bot.CopyMessageParams{
		ChatID:     toChatID,
		FromChatID: item.FromChatID,
		MessageID:  item.MessageID,
	}
	if item.Formatted {
		params.ParseMode = models.ParseModeHTML
	}
	_, err := c.b.CopyMessage(ctx, params)
	return Classify(err)
}

// Forward forwards the referenced message with its origin.
func (c *Client) Forward(ctx context.Context, toChatID int64, item relay.Item) error {
	_, err := c.b.ForwardMessage(ctx, &bot.ForwardMessageParams{
		ChatID:     toChatID,
		FromChatID: item.FromChatID,
		MessageID:  item.MessageID,
	})
	return Classify(err)
}

// ReplyKeyboard builds a resized reply keyboard from button labels.
func ReplyKeyboard(rows [][]string) *models.ReplyKeyboardMarkup {
	keyboard := make([][]models.KeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]models.KeyboardButton, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, models.KeyboardButton{Text: label})
		}
		keyboard = append(keyboard, buttons)
	}
	return &models.ReplyKeyboardMarkup{Keyboard: keyboard, ResizeKeyboard: true}
}

package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abcdefg...", truncateString("abcdefghijklmnop", 10))
	assert.Equal(t, "...", truncateString("abcdef", 2))
	assert.Equal(t, "привет...", truncateString("приветствие мир", 9))
}

func TestMiddlewareLogsMembershipUpdates(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "debug", true)

	called := false
	handler := Middleware(log)(func(ctx context.Context, _ *bot.Bot, update *models.Update) {
		called = true
	})

	handler(context.Background(), nil, &models.Update{
		ID: 42,
		MyChatMember: &models.ChatMemberUpdated{
			Chat: models.Chat{ID: -100123, Type: models.ChatTypeChannel},
			From: models.User{ID: 7},
			NewChatMember: models.ChatMember{
				Type: models.ChatMemberTypeAdministrator,
			},
		},
	})
	require.True(t, called)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var finished map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &finished))
	assert.Equal(t, "Finished processing update", finished["msg"])
	assert.Equal(t, "my_chat_member", finished["update_type"])
	assert.EqualValues(t, -100123, finished["chat_id"])
	assert.Equal(t, "administrator", finished["new_status"])
}

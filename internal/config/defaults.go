package config

import "time"

// Default values for configuration.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = false

	DefaultDBMaxOpenConns = 1 // sqlite allows a single writer
	DefaultHTTPPort       = 3000

	DefaultAccessPassword = "xfbest"
	DefaultAccessGate     = "strict"

	DefaultRelayMode        = "copy"
	DefaultRelayScope       = "per_owner"
	DefaultRelayWorkers     = 1 // channels are sent to one at a time
	DefaultRelaySendTimeout = 15 * time.Second

	DefaultSessionBackend = "memory"
	DefaultSessionTTL     = 24 * time.Hour
)

// DefaultMessages are the stock operator-facing texts.
var DefaultMessages = MessagesConfig{
	Welcome:            "Welcome TashanWIN\nXFTEAM\nhttps://t.me/TASHANWINXFTEAM\n\nPlease enter the password to use this bot:",
	PasswordCorrect:    "✅ Password correct! You can now use the bot.",
	PasswordWrong:      "❌ Wrong password. Please try again.",
	Canceled:           "Canceled. Back to menu.",
	NoChannels:         "You have not linked any channels yet.",
	ChannelsHeader:     "📌 Your Channels:",
	Received:           "✅ Message received. Copying to all your channels...",
	Done:               "✅ Done! Message copied to all channels.",
	ChannelLinkedFmt:   "✅ Channel linked: %s",
	GeneralError:       "❌ Something went wrong. Please try again later.",
	ButtonViewChannels: "📋 View My Channels",
	ButtonCancel:       "❌ Cancel",
}

// DefaultTasks enables every scheduled task with a conservative cadence.
var DefaultTasks = map[string]TaskConfig{
	"sql_maintenance": {Enabled: true, Schedule: "0 0 4 * * *"},
	"session_expiry":  {Enabled: true, Schedule: "0 */15 * * * *"},
	"channel_refresh": {Enabled: true, Schedule: "0 30 */6 * * *"},
}

// Package config provides configuration loading, validation, and defaults
// for the relay bot. Values come from built-in defaults, an optional YAML
// file, and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"strconv"
	"time"
)

// ErrConfiguration wraps every error returned while loading or validating
// configuration.
var ErrConfiguration = errors.New("configuration error")

// Config is the root application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Access    AccessConfig    `mapstructure:"access"`
	Relay     RelayConfig     `mapstructure:"relay"`
	Session   SessionConfig   `mapstructure:"session"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// LoggerConfig controls slog output.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds the bot credential.
type TelegramConfig struct {
	Token string `mapstructure:"token" validate:"required"`
}

// DatabaseConfig points at the sqlite database holding channel registrations
// and, with the sql session backend, operator sessions.
type DatabaseConfig struct {
	URL          string `mapstructure:"url"            validate:"required"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"min=1,max=64"`
}

// HTTPConfig configures the liveness endpoint.
type HTTPConfig struct {
	Port int `mapstructure:"port" validate:"min=1,max=65535"`
}

// AccessConfig gates the private dialogue.
type AccessConfig struct {
	Password string `mapstructure:"password" validate:"required"`
	// Gate is "strict" (nothing but the password is accepted until it is
	// entered) or "informational" (the password only unlocks the keyboard).
	Gate string `mapstructure:"gate" validate:"oneof=strict informational"`
}

// RelayConfig holds the fan-out policies.
type RelayConfig struct {
	Mode        string        `mapstructure:"mode"         validate:"oneof=copy forward"`
	Scope       string        `mapstructure:"scope"        validate:"oneof=per_owner global"`
	Workers     int           `mapstructure:"workers"      validate:"min=1,max=32"`
	SendTimeout time.Duration `mapstructure:"send_timeout" validate:"min=1s,max=5m"`
}

// SessionConfig selects where operator sessions live.
type SessionConfig struct {
	Backend string        `mapstructure:"backend" validate:"oneof=memory sql"`
	TTL     time.Duration `mapstructure:"ttl"     validate:"min=1m"`
}

// SchedulerConfig lists scheduled tasks by name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig enables a task and sets its cron schedule (seconds field
// allowed).
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// MessagesConfig holds every operator-facing text, including keyboard
// button labels which are matched literally.
type MessagesConfig struct {
	Welcome            string `mapstructure:"welcome"              validate:"required"`
	PasswordCorrect    string `mapstructure:"password_correct"     validate:"required"`
	PasswordWrong      string `mapstructure:"password_wrong"       validate:"required"`
	Canceled           string `mapstructure:"canceled"             validate:"required"`
	NoChannels         string `mapstructure:"no_channels"          validate:"required"`
	ChannelsHeader     string `mapstructure:"channels_header"      validate:"required"`
	Received           string `mapstructure:"received"             validate:"required"`
	Done               string `mapstructure:"done"                 validate:"required"`
	ChannelLinkedFmt   string `mapstructure:"channel_linked_fmt"   validate:"required"`
	GeneralError       string `mapstructure:"general_error"        validate:"required"`
	ButtonViewChannels string `mapstructure:"button_view_channels" validate:"required"`
	ButtonCancel       string `mapstructure:"button_cancel"        validate:"required,nefield=ButtonViewChannels"`
}

// Addr returns the liveness listener address.
func (c HTTPConfig) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envPrefix namespaces every configuration key in the environment,
// e.g. RELAY_RELAY_MODE or RELAY_ACCESS_GATE.
const envPrefix = "RELAY"

// legacyEnv maps keys to the bare variable names used by earlier
// deployments. They are consulted after the prefixed name.
var legacyEnv = map[string]string{
	"telegram.token": "BOT_TOKEN",
	"database.url":   "DATABASE_URL",
	"http.port":      "PORT",
}

// Load reads configuration in this order of precedence:
//  1. Environment variables (RELAY_* and the legacy names)
//  2. The YAML file at path, if it exists (an empty path looks for
//     ./config.yaml)
//  3. Default values
func Load(path string) (*Config, error) {
	startTime := time.Now()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, fmt.Errorf("%w: failed to bind %s: %v", ErrConfiguration, key, err)
		}
	}

	if err := readConfigFile(v, path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	slog.Debug("Configuration loaded",
		"file", v.ConfigFileUsed(),
		"relay_mode", cfg.Relay.Mode,
		"relay_scope", cfg.Relay.Scope,
		"access_gate", cfg.Access.Gate,
		"session_backend", cfg.Session.Backend,
		"duration_ms", time.Since(startTime).Milliseconds())

	return cfg, nil
}

// readConfigFile loads an optional YAML file. A missing file is not an error;
// a file that exists but cannot be parsed is.
func readConfigFile(v *viper.Viper, path string) error {
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	err := v.ReadInConfig()
	if err == nil {
		return nil
	}

	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to read config file: %w", err)
}

// setDefaults registers every optional key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", DefaultLogJSON)

	v.SetDefault("database.max_open_conns", DefaultDBMaxOpenConns)
	v.SetDefault("http.port", DefaultHTTPPort)

	v.SetDefault("access.password", DefaultAccessPassword)
	v.SetDefault("access.gate", DefaultAccessGate)

	v.SetDefault("relay.mode", DefaultRelayMode)
	v.SetDefault("relay.scope", DefaultRelayScope)
	v.SetDefault("relay.workers", DefaultRelayWorkers)
	v.SetDefault("relay.send_timeout", DefaultRelaySendTimeout)

	v.SetDefault("session.backend", DefaultSessionBackend)
	v.SetDefault("session.ttl", DefaultSessionTTL)

	for name, task := range DefaultTasks {
		v.SetDefault("scheduler.tasks."+name+".enabled", task.Enabled)
		v.SetDefault("scheduler.tasks."+name+".schedule", task.Schedule)
	}

	m := DefaultMessages
	v.SetDefault("messages.welcome", m.Welcome)
	v.SetDefault("messages.password_correct", m.PasswordCorrect)
	v.SetDefault("messages.password_wrong", m.PasswordWrong)
	v.SetDefault("messages.canceled", m.Canceled)
	v.SetDefault("messages.no_channels", m.NoChannels)
	v.SetDefault("messages.channels_header", m.ChannelsHeader)
	v.SetDefault("messages.received", m.Received)
	v.SetDefault("messages.done", m.Done)
	v.SetDefault("messages.channel_linked_fmt", m.ChannelLinkedFmt)
	v.SetDefault("messages.general_error", m.GeneralError)
	v.SetDefault("messages.button_view_channels", m.ButtonViewChannels)
	v.SetDefault("messages.button_cancel", m.ButtonCancel)
}

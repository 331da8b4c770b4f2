// Package dialogue drives the password-gated private conversation in which
// an operator browses their channels and submits content for relay.
package dialogue

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/edgard/relaybot/internal/config"
	"github.com/edgard/relaybot/internal/database"
	"github.com/edgard/relaybot/internal/relay"
	"github.com/edgard/relaybot/internal/session"
)

// Gate decides how strictly the password guards the dialogue.
type Gate string

const (
	// GateStrict accepts nothing but the password until it is entered, and
	// ignores operators who never sent /start.
	GateStrict Gate = "strict"
	// GateInformational only uses the password to unlock the keyboard;
	// everything else is relayed.
	GateInformational Gate = "informational"
)

// ParseGate validates a configured gate.
func ParseGate(s string) (Gate, error) {
	switch Gate(strings.ToLower(strings.TrimSpace(s))) {
	case GateStrict:
		return GateStrict, nil
	case GateInformational:
		return GateInformational, nil
	default:
		return "", fmt.Errorf("unknown password gate %q", s)
	}
}

// ChatTypePrivate is the only chat type the dialogue answers in.
const ChatTypePrivate = "private"

// Incoming is one message from an operator.
type Incoming struct {
	ChatID     int64
	ChatType   string
	OperatorID int64
	Text       string
	// Item is the relayable form of the message.
	Item relay.Item
}

// Replier answers the operator.
type Replier interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendKeyboard(ctx context.Context, chatID int64, text string, rows [][]string) error
}

// Relayer fans content out to the operator's channels.
type Relayer interface {
	Relay(ctx context.Context, ownerID int64, items []relay.Item) (relay.Report, error)
}

// Channels lists the operator's registrations.
type Channels interface {
	List(ctx context.Context, ownerID int64) ([]database.Channel, error)
}

// Options configure a Dialogue.
type Options struct {
	Password string
	Gate     Gate
	Messages config.MessagesConfig
}

// Dialogue is the per-operator state machine.
type Dialogue struct {
	sessions session.Store
	relayer  Relayer
	channels Channels
	replier  Replier
	opts     Options
	logger   *slog.Logger

	// locks holds one *sync.Mutex per operator; a session is read, changed
	// and saved under it.
	locks sync.Map
}

// New creates a Dialogue.
func New(sessions session.Store, relayer Relayer, channels Channels, replier Replier, opts Options, logger *slog.Logger) *Dialogue {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Gate == "" {
		opts.Gate = GateStrict
	}
	return &Dialogue{
		sessions: sessions,
		relayer:  relayer,
		channels: channels,
		replier:  replier,
		opts:     opts,
		logger:   logger.With("component", "dialogue", "gate", string(opts.Gate)),
	}
}

// Handle processes one message. Errors are logged and reported to the
// operator; they never reach the caller.
func (d *Dialogue) Handle(ctx context.Context, in Incoming) {
	if in.ChatType != ChatTypePrivate {
		return
	}
	log := d.logger.With("operator_id", in.OperatorID, "chat_id", in.ChatID)

	release := d.lock(in.OperatorID)
	defer release()

	if command(in.Text) == "start" {
		d.start(ctx, log, in)
		return
	}

	sess, err := d.sessions.Get(ctx, in.OperatorID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load session", "error", err)
		d.text(ctx, log, in.ChatID, d.opts.Messages.GeneralError)
		return
	}
	if sess == nil {
		if d.opts.Gate == GateStrict {
			log.DebugContext(ctx, "Ignoring message from operator without a session")
			return
		}
		sess = &session.Session{OperatorID: in.OperatorID, Step: session.StepMenu}
	}

	switch sess.Step {
	case session.StepAwaitingPassword:
		d.awaitingPassword(ctx, log, sess, in)
	case session.StepMenu:
		d.menu(ctx, log, sess, in)
	default:
		log.WarnContext(ctx, "Session in unknown step, resetting", "step", sess.Step)
		if err := d.sessions.Clear(ctx, in.OperatorID); err != nil {
			log.ErrorContext(ctx, "Failed to clear session", "error", err)
		}
		d.text(ctx, log, in.ChatID, d.opts.Messages.GeneralError)
	}
}

func (d *Dialogue) lock(operatorID int64) func() {
	mu, _ := d.locks.LoadOrStore(operatorID, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

func (d *Dialogue) start(ctx context.Context, log *slog.Logger, in Incoming) {
	sess := &session.Session{OperatorID: in.OperatorID, Step: session.StepAwaitingPassword}
	if err := d.sessions.Save(ctx, sess); err != nil {
		log.ErrorContext(ctx, "Failed to start session", "error", err)
		d.text(ctx, log, in.ChatID, d.opts.Messages.GeneralError)
		return
	}
	log.InfoContext(ctx, "Session started")
	d.text(ctx, log, in.ChatID, d.opts.Messages.Welcome)
}

func (d *Dialogue) awaitingPassword(ctx context.Context, log *slog.Logger, sess *session.Session, in Incoming) {
	if in.Text == d.opts.Password {
		d.unlock(ctx, log, sess, in)
		return
	}
	if d.opts.Gate == GateStrict {
		log.InfoContext(ctx, "Wrong password")
		d.text(ctx, log, in.ChatID, d.opts.Messages.PasswordWrong)
		return
	}
	sess.Step = session.StepMenu
	d.menu(ctx, log, sess, in)
}

func (d *Dialogue) unlock(ctx context.Context, log *slog.Logger, sess *session.Session, in Incoming) {
	sess.Step = session.StepMenu
	if !d.save(ctx, log, sess, in.ChatID) {
		return
	}
	log.InfoContext(ctx, "Operator unlocked the menu")
	d.keyboard(ctx, log, in.ChatID, d.opts.Messages.PasswordCorrect)
}

func (d *Dialogue) menu(ctx context.Context, log *slog.Logger, sess *session.Session, in Incoming) {
	msgs := d.opts.Messages

	switch {
	case command(in.Text) == "cancel" || in.Text == msgs.ButtonCancel:
		sess.Pending = nil
		if !d.save(ctx, log, sess, in.ChatID) {
			return
		}
		d.keyboard(ctx, log, in.ChatID, msgs.Canceled)

	case in.Text == msgs.ButtonViewChannels:
		d.listChannels(ctx, log, sess, in)

	case in.Text == d.opts.Password:
		d.unlock(ctx, log, sess, in)

	default:
		d.relay(ctx, log, sess, in)
	}
}

func (d *Dialogue) listChannels(ctx context.Context, log *slog.Logger, sess *session.Session, in Incoming) {
	channels, err := d.channels.List(ctx, sess.OperatorID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list channels", "error", err)
		d.text(ctx, log, in.ChatID, d.opts.Messages.GeneralError)
		return
	}
	if len(channels) == 0 {
		d.text(ctx, log, in.ChatID, d.opts.Messages.NoChannels)
		return
	}
	d.text(ctx, log, in.ChatID, FormatChannels(d.opts.Messages.ChannelsHeader, channels))
}

func (d *Dialogue) relay(ctx context.Context, log *slog.Logger, sess *session.Session, in Incoming) {
	if in.Item.IsLiteral() && in.Item.Text == "" {
		log.DebugContext(ctx, "Ignoring message with nothing to relay")
		return
	}

	// The batch leaves the session in the save that precedes the relay; a
	// restart mid-relay finds nothing pending.
	items := append(sess.Pending, in.Item)
	sess.Pending = nil
	if !d.save(ctx, log, sess, in.ChatID) {
		return
	}
	d.text(ctx, log, in.ChatID, d.opts.Messages.Received)

	report, err := d.relayer.Relay(ctx, sess.OperatorID, items)
	if err != nil {
		log.ErrorContext(ctx, "Relay failed", "error", err)
		d.text(ctx, log, in.ChatID, d.opts.Messages.GeneralError)
		return
	}
	log.InfoContext(ctx, "Relay completed",
		"relay_id", report.RelayID,
		"channels", report.Channels,
		"delivered", report.Delivered,
		"failed", report.Failed)
	d.text(ctx, log, in.ChatID, d.opts.Messages.Done)
}

func (d *Dialogue) save(ctx context.Context, log *slog.Logger, sess *session.Session, chatID int64) bool {
	if err := d.sessions.Save(ctx, sess); err != nil {
		log.ErrorContext(ctx, "Failed to save session", "error", err)
		d.text(ctx, log, chatID, d.opts.Messages.GeneralError)
		return false
	}
	return true
}

func (d *Dialogue) text(ctx context.Context, log *slog.Logger, chatID int64, text string) {
	if err := d.replier.SendText(ctx, chatID, text); err != nil {
		log.ErrorContext(ctx, "Failed to send reply", "error", err)
	}
}

func (d *Dialogue) keyboard(ctx context.Context, log *slog.Logger, chatID int64, text string) {
	if err := d.replier.SendKeyboard(ctx, chatID, text, d.Keyboard()); err != nil {
		log.ErrorContext(ctx, "Failed to send reply", "error", err)
	}
}

// Keyboard returns the menu keyboard rows.
func (d *Dialogue) Keyboard() [][]string {
	return [][]string{
		{d.opts.Messages.ButtonViewChannels},
		{d.opts.Messages.ButtonCancel},
	}
}

// FormatChannels renders the channel list reply.
func FormatChannels(header string, channels []database.Channel) string {
	var sb strings.Builder
	sb.WriteString(header)
	for _, ch := range channels {
		sb.WriteString("\n• ")
		sb.WriteString(ch.Label())
	}
	return sb.String()
}

// command returns the bot command in text without its slash or @botname
// suffix, or "" if text is not a command.
func command(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	name := strings.Fields(text[1:])
	if len(name) == 0 {
		return ""
	}
	cmd, _, _ := strings.Cut(name[0], "@")
	return strings.ToLower(cmd)
}

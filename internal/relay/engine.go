// Package relay fans content out to every channel registered for an
// operator and prunes channels that turn out to be unreachable.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/edgard/relaybot/internal/database"
)

// ErrChannelUnreachable is the transport's classification for a destination
// that no longer exists or no longer accepts the bot. Relaying to such a
// channel removes its registration.
var ErrChannelUnreachable = errors.New("channel unreachable")

// MaxAttempts is the number of delivery attempts per (channel, item). The
// engine does not retry: a failed delivery is final.
const MaxAttempts = 1

// Sender performs the three relay actions against the messaging transport.
type Sender interface {
	Copy(ctx context.Context, toChatID int64, item Item) error
	Forward(ctx context.Context, toChatID int64, item Item) error
	SendText(ctx context.Context, chatID int64, text string) error
}

// Directory is the part of the channel directory the engine needs.
type Directory interface {
	List(ctx context.Context, ownerID int64) ([]database.Channel, error)
	Remove(ctx context.Context, ownerID, channelID int64) error
}

// Options tune the engine.
type Options struct {
	Mode Mode
	// Workers bounds how many channels are served at once. 1 processes
	// channels strictly one after another.
	Workers int
	// SendTimeout bounds each transport call. Zero means no bound.
	SendTimeout time.Duration
}

// Report summarizes one Relay call.
type Report struct {
	RelayID   string
	Channels  int
	Delivered int
	Failed    int
	Pruned    []int64
}

// Engine relays items to registered channels.
//
// Every (channel, item) pair gets MaxAttempts attempts; failed deliveries are
// logged and counted. Items to a single channel are sent in order;
// channels are served concurrently up to Options.Workers.
type Engine struct {
	dir    Directory
	sender Sender
	opts   Options
	logger *slog.Logger
}

// NewEngine creates an Engine. Zero-valued options default to copy mode and
// a single worker.
func NewEngine(dir Directory, sender Sender, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Mode == "" {
		opts.Mode = ModeCopy
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Engine{
		dir:    dir,
		sender: sender,
		opts:   opts,
		logger: logger.With("component", "relay"),
	}
}

// Relay sends every item to every channel registered for ownerID. Per
// delivery failures never abort the fan-out; only a failure to list the
// channels is returned.
func (e *Engine) Relay(ctx context.Context, ownerID int64, items []Item) (Report, error) {
	report := Report{RelayID: uuid.NewString()}
	log := e.logger.With("relay_id", report.RelayID, "owner_id", ownerID)

	if len(items) == 0 {
		return report, nil
	}

	channels, err := e.dir.List(ctx, ownerID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list channels for relay", "error", err)
		return report, fmt.Errorf("failed to list channels: %w", err)
	}
	report.Channels = len(channels)
	if len(channels) == 0 {
		log.InfoContext(ctx, "No channels registered, nothing to relay")
		return report, nil
	}

	log.InfoContext(ctx, "Relaying items", "channels", len(channels), "items", len(items), "mode", e.opts.Mode)
	startTime := time.Now()

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(e.opts.Workers)

	for _, ch := range channels {
		g.Go(func() error {
			delivered, failed, pruned := e.relayToChannel(ctx, log, ownerID, ch, items)

			mu.Lock()
			report.Delivered += delivered
			report.Failed += failed
			if pruned {
				report.Pruned = append(report.Pruned, ch.ChannelID)
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	log.InfoContext(ctx, "Relay finished",
		"delivered", report.Delivered,
		"failed", report.Failed,
		"pruned", len(report.Pruned),
		"duration", time.Since(startTime))
	return report, nil
}

// relayToChannel sends items in order to one channel. The registration is
// removed at most once, on the first unreachable classification.
func (e *Engine) relayToChannel(ctx context.Context, log *slog.Logger, ownerID int64, ch database.Channel, items []Item) (delivered, failed int, pruned bool) {
	log = log.With("channel_id", ch.ChannelID, "channel_title", ch.Title)

	for _, item := range items {
		if ctx.Err() != nil {
			failed++
			continue
		}

		var err error
		for attempt := 0; attempt < MaxAttempts; attempt++ {
			if err = e.deliver(ctx, ch.ChannelID, item); err == nil || errors.Is(err, ErrChannelUnreachable) {
				break
			}
		}
		if err == nil {
			delivered++
			continue
		}
		failed++

		if !errors.Is(err, ErrChannelUnreachable) {
			log.WarnContext(ctx, "Failed to relay item", "item", item.String(), "error", err)
			continue
		}

		log.WarnContext(ctx, "Channel unreachable", "item", item.String(), "error", err)
		if pruned {
			continue
		}
		if rmErr := e.dir.Remove(ctx, ownerID, ch.ChannelID); rmErr != nil {
			log.ErrorContext(ctx, "Failed to remove unreachable channel", "error", rmErr)
			continue
		}
		pruned = true
		log.InfoContext(ctx, "Removed unreachable channel from directory")
	}
	return delivered, failed, pruned
}

func (e *Engine) deliver(ctx context.Context, channelID int64, item Item) error {
	if e.opts.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.SendTimeout)
		defer cancel()
	}

	switch {
	case item.IsLiteral():
		return e.sender.SendText(ctx, channelID, item.Text)
	case e.opts.Mode == ModeForward:
		return e.sender.Forward(ctx, channelID, item)
	default:
		return e.sender.Copy(ctx, channelID, item)
	}
}

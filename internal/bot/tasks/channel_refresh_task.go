package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// newChannelRefreshTask re-fetches title and username of every registered
// channel. Channels the transport reports as unreachable are removed.
func newChannelRefreshTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "channel_refresh")

	return func(ctx context.Context) error {
		startTime := time.Now()

		channels, err := deps.Directory.All(ctx)
		if err != nil {
			return fmt.Errorf("failed to list channels: %w", err)
		}

		var errs []error
		refreshed, removed := 0, 0
		for _, ch := range channels {
			if ctx.Err() != nil {
				errs = append(errs, ctx.Err())
				break
			}

			gone, err := deps.Directory.Refresh(ctx, ch.ChannelID)
			switch {
			case err != nil:
				log.WarnContext(ctx, "Failed to refresh channel", "channel_id", ch.ChannelID, "error", err)
				errs = append(errs, err)
			case gone:
				log.InfoContext(ctx, "Removed unreachable channel", "channel_id", ch.ChannelID, "title", ch.Title)
				removed++
			default:
				refreshed++
			}
		}

		log.InfoContext(ctx, "Channel refresh finished",
			"channels", len(channels),
			"refreshed", refreshed,
			"removed", removed,
			"failed", len(errs),
			"duration", time.Since(startTime))

		if len(errs) > 0 {
			return fmt.Errorf("channel refresh had %d failures: %w", len(errs), errors.Join(errs...))
		}
		return nil
	}
}

package tasks

import (
	"context"
	"fmt"
	"time"
)

// newSessionExpiryTask drops operator sessions idle for longer than the
// configured TTL. Expired operators have to /start again.
func newSessionExpiryTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "session_expiry")
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return func(ctx context.Context) error {
		cutoff := now().Add(-deps.Config.Session.TTL)

		n, err := deps.Sessions.Expire(ctx, cutoff)
		if err != nil {
			log.ErrorContext(ctx, "Session expiry failed", "error", err)
			return fmt.Errorf("session expiry failed: %w", err)
		}

		log.InfoContext(ctx, "Expired idle sessions", "count", n, "cutoff", cutoff)
		return nil
	}
}

package app

import (
	"context"
	"time"

	"github.com/yungbote/superconnector-backend/internal/platform/logger"
)

type deferredProcessor interface {
	ProcessDeferred(ctx context.Context, now time.Time) (int, error)
}

// runDeferredPoller drains due quiet-hours consent requests every interval
// until ctx is done.
func runDeferredPoller(ctx context.Context, log *logger.Logger, p deferredProcessor, interval time.Duration, now func() time.Time) {
	if p == nil || interval <= 0 {
		return
	}
	if now == nil {
		now = time.Now
	}
	plog := log.With("worker", "DeferredConsentPoller")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sent, err := p.ProcessDeferred(ctx, now())
			if err != nil {
				plog.Warn("Deferred consent pass failed", "error", err)
				continue
			}
			if sent > 0 {
				plog.Info("Deferred consent requests sent", "count", sent)
			}
		}
	}
}

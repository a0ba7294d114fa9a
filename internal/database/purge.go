// internal/database/purge.go
package database

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// SchedulePeriodicPurge purges expired exports once immediately and then every
// interval until ctx is done. onPurge, when set, runs after each pass.
func SchedulePeriodicPurge(ctx context.Context, store Store, interval time.Duration, onPurge func(context.Context)) {
	purge := func() {
		if _, err := store.Purge(ctx, time.Now()); err != nil && ctx.Err() == nil {
			logrus.WithError(err).Error("Scheduled purge failed")
		}
		if onPurge != nil {
			onPurge(ctx)
		}
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()

		purge()
		for {
			select {
			case <-ctx.Done():
				logrus.Debug("Stopping periodic purge scheduler")
				return
			case <-ticker.C:
				purge()
			}
		}
	}()

	logrus.WithField("interval", interval).Info("Scheduled periodic export purging")
}

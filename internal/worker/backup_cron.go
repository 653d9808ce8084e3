package worker

// backup_cron.go
// Optional background goroutine that schedules a database backup at a fixed
// interval through the same Dispatcher the admin endpoints use.

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// StartBackupCron enqueues a backup every interval until ctx is done.
// A non-positive interval disables the schedule.
func StartBackupCron(ctx context.Context, d *Dispatcher, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Info().Dur("interval", interval).Msg("backup_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("backup_cron: shutting down")
				return
			case <-ticker.C:
				job, err := d.EnqueueBackup(ctx)
				if err != nil {
					log.Error().Err(err).Msg("backup_cron: enqueue failed")
					continue
				}
				log.Info().Str("job_id", job.ID).Msg("backup_cron: scheduled backup queued")
			}
		}
	}()
}

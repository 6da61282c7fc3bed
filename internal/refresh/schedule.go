package refresh

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// nextCronDuration returns the wait from now until the schedule next fires.
func nextCronDuration(sched cron.Schedule, now time.Time) time.Duration {
	d := sched.Next(now).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Run syncs once immediately, then on every tick of the cron schedule until
// ctx is cancelled. Failed syncs are logged and retried on the next tick.
func (s *Syncer) Run(ctx context.Context, schedule string) error {
	sched, err := cronParser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("refresh: schedule %q: %w", schedule, err)
	}

	fmt.Fprintf(s.out, "Refresh scheduled (%s)\n", schedule)
	for {
		if _, err := s.Sync(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("refresh: %v", err)
		}

		wait := nextCronDuration(sched, s.now())
		select {
		case <-ctx.Done():
			fmt.Fprintf(s.out, "Refresh stopped.\n")
			return nil
		case <-time.After(wait):
		}
	}
}

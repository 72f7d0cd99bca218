package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/homemade/nbsync/logging"
	"github.com/homemade/nbsync/metrics"
)

// Scheduler repeats a pass once or forever, with an optional delay between
// cycles. Every cycle is timed and logged under its own id.
type Scheduler struct {
	Name    string
	Forever bool
	Delay   time.Duration
}

// Run returns the first pass error. It returns nil when ctx is cancelled
// between cycles, or after one cycle when not running forever.
func (s Scheduler) Run(ctx context.Context, pass func(ctx context.Context) error) error {
	for {
		cycleID := uuid.NewString()
		log := logging.With().Str("job", s.Name).Str("cycle_id", cycleID).Logger()
		log.Info().Msg("Starting new cycle")

		start := time.Now()
		err := pass(ctx)
		duration := time.Since(start)
		metrics.CycleDuration.WithLabelValues(s.Name).Observe(duration.Seconds())

		if err != nil && ctx.Err() != nil {
			log.Info().Dur("duration", duration).Msg("Cycle interrupted")
			return nil
		}
		if err != nil {
			metrics.CyclesCompleted.WithLabelValues(s.Name, "failure").Inc()
			log.Error().Err(err).Dur("duration", duration).Msg("Cycle failed")
			return fmt.Errorf("%s cycle %s: %w", s.Name, cycleID, err)
		}
		metrics.CyclesCompleted.WithLabelValues(s.Name, "success").Inc()
		log.Info().Dur("duration", duration).Msg("Cycle done")

		if !s.Forever {
			return nil
		}
		if err = sleep(ctx, s.Delay); err != nil {
			return nil
		}
	}
}

// sleep waits for d, or returns ctx.Err() if ctx is done first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

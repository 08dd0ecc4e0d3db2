package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
)

const reapedMessage = "processing lease expired"

// Reaper periodically fails processing rows whose lease has expired. A job
// row only ends up here when the process running its pipeline died mid-run;
// without the sweep such rows would stay in processing forever with no writer.
type Reaper struct {
	Jobs     domain.JobRepository
	Lease    time.Duration
	Interval time.Duration
	Logger   zerolog.Logger
}

// Run sweeps until ctx is cancelled. One sweep happens immediately on start
// so rows orphaned by a previous crash are cleared without waiting a tick.
func (r *Reaper) Run(ctx context.Context) {
	r.sweep(ctx)
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-r.Lease)
	reaped, err := r.Jobs.FailExpired(ctx, cutoff, reapedMessage)
	if err != nil {
		r.Logger.Error().Err(err).Msg("reaper: sweep failed")
		return
	}
	if reaped > 0 {
		r.Logger.Warn().Int64("jobs", reaped).Msg("reaper: failed expired processing jobs")
	}
}

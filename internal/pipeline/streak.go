package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
)

// NextStreak applies the calendar rule to a user's streak counters: activity
// on the same day leaves the streak unchanged, activity exactly one day after
// the last increments it, and any other gap resets it to 1. Longest is raised
// when exceeded. Days are compared in UTC.
func NextStreak(streak domain.Streak, now time.Time) domain.Streak {
	next := streak
	switch {
	case streak.LastActivity == nil:
		next.Current = 1
	default:
		switch calendarDays(*streak.LastActivity, now) {
		case 0:
			// Already counted today.
		case 1:
			next.Current = streak.Current + 1
		default:
			next.Current = 1
		}
	}
	if next.Current > next.Longest {
		next.Longest = next.Current
	}
	activity := now
	next.LastActivity = &activity
	return next
}

// calendarDays returns the number of calendar-day boundaries between from and to.
func calendarDays(from, to time.Time) int {
	from = from.UTC()
	to = to.UTC()
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f) / (24 * time.Hour))
}

// StreakSubscriber consumes valuation.completed events and updates the
// owner's streak counters. Every failure is logged and swallowed so the side
// effect can never influence a job's terminal state.
type StreakSubscriber struct {
	Users  domain.UserRepository
	Bus    *Bus
	Logger zerolog.Logger
}

// Run processes events until ctx is cancelled.
func (s *StreakSubscriber) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.Bus.Events():
			s.apply(ctx, ev)
		}
	}
}

func (s *StreakSubscriber) apply(ctx context.Context, ev ValuationCompleted) {
	streak, err := s.Users.GetStreak(ctx, ev.OwnerID)
	if err != nil {
		s.Logger.Warn().Err(err).
			Str("user_id", ev.OwnerID).
			Str("job_id", ev.JobID).
			Msg("streak: read failed, skipping update")
		return
	}
	next := NextStreak(*streak, ev.CompletedAt)
	if err := s.Users.UpdateStreak(ctx, ev.OwnerID, next); err != nil {
		s.Logger.Warn().Err(err).
			Str("user_id", ev.OwnerID).
			Str("job_id", ev.JobID).
			Msg("streak: write failed, update lost")
		return
	}
	s.Logger.Debug().
		Str("user_id", ev.OwnerID).
		Int("current", next.Current).
		Int("longest", next.Longest).
		Msg("streak: updated")
}

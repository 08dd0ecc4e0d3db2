package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"server/internal/domain"
)

func dayAt(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return ts
}

func TestNextStreak(t *testing.T) {
	monday := dayAt(t, "2026-03-02T09:00:00Z")

	tests := []struct {
		name        string
		streak      domain.Streak
		now         time.Time
		wantCurrent int
		wantLongest int
	}{
		{
			name:        "first ever activity",
			streak:      domain.Streak{},
			now:         monday,
			wantCurrent: 1,
			wantLongest: 1,
		},
		{
			name:        "same day is idempotent",
			streak:      domain.Streak{Current: 3, Longest: 5, LastActivity: ptrTime(monday)},
			now:         monday.Add(8 * time.Hour),
			wantCurrent: 3,
			wantLongest: 5,
		},
		{
			name:        "next calendar day increments",
			streak:      domain.Streak{Current: 3, Longest: 5, LastActivity: ptrTime(monday)},
			now:         monday.Add(24 * time.Hour),
			wantCurrent: 4,
			wantLongest: 5,
		},
		{
			name:        "increment raises longest",
			streak:      domain.Streak{Current: 5, Longest: 5, LastActivity: ptrTime(monday)},
			now:         monday.Add(24 * time.Hour),
			wantCurrent: 6,
			wantLongest: 6,
		},
		{
			name:        "two day gap resets",
			streak:      domain.Streak{Current: 9, Longest: 9, LastActivity: ptrTime(monday)},
			now:         monday.Add(48 * time.Hour),
			wantCurrent: 1,
			wantLongest: 9,
		},
		{
			name: "day boundary just before midnight",
			// 23:50 -> 00:10 the next day is a one-day step even though
			// less than an hour has elapsed.
			streak:      domain.Streak{Current: 2, Longest: 2, LastActivity: ptrTime(dayAt(t, "2026-03-02T23:50:00Z"))},
			now:         dayAt(t, "2026-03-03T00:10:00Z"),
			wantCurrent: 3,
			wantLongest: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := NextStreak(tt.streak, tt.now)
			assert.Equal(t, tt.wantCurrent, next.Current)
			assert.Equal(t, tt.wantLongest, next.Longest)
			require.NotNil(t, next.LastActivity)
			assert.Equal(t, tt.now, *next.LastActivity)
		})
	}
}

func ptrTime(ts time.Time) *time.Time { return &ts }

type memUsers struct {
	mu      sync.Mutex
	streaks map[string]domain.Streak

	getErr    error
	updateErr error
}

func newMemUsers() *memUsers {
	return &memUsers{streaks: map[string]domain.Streak{}}
}

func (m *memUsers) GetStreak(ctx context.Context, userID string) (*domain.Streak, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	streak := m.streaks[userID]
	return &streak, nil
}

func (m *memUsers) UpdateStreak(ctx context.Context, userID string, streak domain.Streak) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	m.streaks[userID] = streak
	return nil
}

func (m *memUsers) current(userID string) domain.Streak {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streaks[userID]
}

func TestStreakSubscriberAppliesEvents(t *testing.T) {
	users := newMemUsers()
	sub := &StreakSubscriber{Users: users, Logger: zerolog.Nop()}

	sub.apply(context.Background(), ValuationCompleted{
		OwnerID:     "user-1",
		JobID:       "job-1",
		RecordID:    "rec-1",
		CompletedAt: dayAt(t, "2026-03-02T09:00:00Z"),
	})
	sub.apply(context.Background(), ValuationCompleted{
		OwnerID:     "user-1",
		JobID:       "job-2",
		RecordID:    "rec-2",
		CompletedAt: dayAt(t, "2026-03-03T09:00:00Z"),
	})

	streak := users.current("user-1")
	assert.Equal(t, 2, streak.Current)
	assert.Equal(t, 2, streak.Longest)
}

func TestStreakSubscriberSwallowsErrors(t *testing.T) {
	users := newMemUsers()
	users.getErr = errors.New("connection refused")
	sub := &StreakSubscriber{Users: users, Logger: zerolog.Nop()}

	// Must not panic or propagate: a streak failure never reaches the job.
	sub.apply(context.Background(), ValuationCompleted{OwnerID: "user-1", JobID: "job-1"})

	users.getErr = nil
	users.updateErr = errors.New("deadlock detected")
	sub.apply(context.Background(), ValuationCompleted{OwnerID: "user-1", JobID: "job-1"})

	assert.Zero(t, users.current("user-1").Current)
}

func TestStreakSubscriberRunStopsOnCancel(t *testing.T) {
	users := newMemUsers()
	bus := NewBus(4, zerolog.Nop())
	sub := &StreakSubscriber{Users: users, Bus: bus, Logger: zerolog.Nop()}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sub.Run(ctx)
		close(done)
	}()

	bus.Publish(ValuationCompleted{OwnerID: "user-1", JobID: "job-1", CompletedAt: time.Now()})
	assert.Eventually(t, func() bool {
		return users.current("user-1").Current == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("subscriber did not stop on context cancel")
	}
}

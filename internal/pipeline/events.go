package pipeline

import (
	"time"

	"github.com/rs/zerolog"
)

// ValuationCompleted is published after a valuation record has been written,
// before the owning job is finalized. Subscribers run outside the pipeline's
// failure domain.
type ValuationCompleted struct {
	OwnerID     string
	JobID       string
	RecordID    string
	ItemName    string
	CompletedAt time.Time
}

// Bus is a small in-process event channel. Publish never blocks the pipeline:
// when the buffer is full the event is dropped and logged, which is acceptable
// for best-effort side effects.
type Bus struct {
	ch     chan ValuationCompleted
	logger zerolog.Logger
}

// NewBus creates a bus with the given buffer size.
func NewBus(buffer int, logger zerolog.Logger) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{ch: make(chan ValuationCompleted, buffer), logger: logger}
}

// Publish offers an event to subscribers without blocking.
func (b *Bus) Publish(ev ValuationCompleted) {
	select {
	case b.ch <- ev:
	default:
		b.logger.Warn().
			Str("job_id", ev.JobID).
			Msg("events: buffer full, valuation.completed dropped")
	}
}

// Events exposes the subscription channel.
func (b *Bus) Events() <-chan ValuationCompleted {
	return b.ch
}

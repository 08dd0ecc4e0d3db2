package domain

import (
	"context"
	"time"
)

// JobRepository defines persistence for appraisal job records. A job row is
// mutated only by the pipeline run that owns it; MarkProcessing is the
// conditional claim that enforces the single-writer contract.
type JobRepository interface {
	Create(ctx context.Context, job *AppraisalJob) error
	// MarkProcessing transitions pending -> processing and sets started_at.
	// Returns ErrNotFound when the job does not exist or is not pending.
	MarkProcessing(ctx context.Context, jobID string) (*AppraisalJob, error)
	Complete(ctx context.Context, jobID string, summary ValuationSummary, recordID string) error
	Fail(ctx context.Context, jobID string, message string) error
	GetByID(ctx context.Context, jobID string) (*AppraisalJob, error)
	GetForOwner(ctx context.Context, jobID, ownerID string) (*AppraisalJob, error)
	ListRecentByOwner(ctx context.Context, ownerID string, since time.Time) ([]AppraisalJob, error)
	// FailExpired fails processing rows whose started_at predates cutoff and
	// returns how many were reaped.
	FailExpired(ctx context.Context, cutoff time.Time, message string) (int64, error)
}

// ValuationRepository handles persistence for durable appraisal results.
type ValuationRepository interface {
	Create(ctx context.Context, valuation *Valuation) error
	GetForOwner(ctx context.Context, id, ownerID string) (*Valuation, error)
}

// UserRepository exposes the per-user streak fields this subsystem mutates.
type UserRepository interface {
	GetStreak(ctx context.Context, userID string) (*Streak, error)
	UpdateStreak(ctx context.Context, userID string, streak Streak) error
}

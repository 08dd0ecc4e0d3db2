package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository on PostgreSQL.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewJobRepository creates a job repository backed by the shared SQL runner.
func NewJobRepository(sql infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql}
}

// Create inserts a new job record in the pending state.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.AppraisalJob) error {
	row := r.sql.QueryRow(ctx, sqlinline.QInsertJob, job.ID, job.OwnerID, job.InputImages, job.Condition)
	if err := row.Scan(&job.CreatedAt); err != nil {
		return fmt.Errorf("insert appraisal job: %w", err)
	}
	job.Status = domain.JobStatusPending
	return nil
}

// MarkProcessing claims a pending job for execution. Returns ErrNotFound when
// the row does not exist or was already claimed.
func (r *JobRepositoryPG) MarkProcessing(ctx context.Context, jobID string) (*domain.AppraisalJob, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QClaimJob, jobID)
	var job domain.AppraisalJob
	if err := row.Scan(
		&job.ID,
		&job.OwnerID,
		&job.InputImages,
		&job.Condition,
		&job.Status,
		&job.CreatedAt,
		&job.StartedAt,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("claim appraisal job: %w", err)
	}
	return &job, nil
}

// Complete transitions a processing job to completed with its result summary
// and the id of the persisted valuation record.
func (r *JobRepositoryPG) Complete(ctx context.Context, jobID string, summary domain.ValuationSummary, recordID string) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode result summary: %w", err)
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QCompleteJob, jobID, payload, recordID)
	if err != nil {
		return fmt.Errorf("complete appraisal job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Fail transitions a processing job to failed with a human-readable message.
func (r *JobRepositoryPG) Fail(ctx context.Context, jobID string, message string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QFailJob, jobID, message)
	if err != nil {
		return fmt.Errorf("fail appraisal job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.AppraisalJob, error) {
	return r.scanOne(r.sql.QueryRow(ctx, sqlinline.QSelectJob, jobID))
}

// GetForOwner fetches a job only when it belongs to the given owner.
func (r *JobRepositoryPG) GetForOwner(ctx context.Context, jobID, ownerID string) (*domain.AppraisalJob, error) {
	return r.scanOne(r.sql.QueryRow(ctx, sqlinline.QSelectJobForOwner, jobID, ownerID))
}

// ListRecentByOwner returns the owner's jobs created at or after since, newest first.
func (r *JobRepositoryPG) ListRecentByOwner(ctx context.Context, ownerID string, since time.Time) ([]domain.AppraisalJob, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QSelectRecentJobsByOwner, ownerID, since)
	if err != nil {
		return nil, fmt.Errorf("list recent jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.AppraisalJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// FailExpired fails processing rows whose started_at predates cutoff.
func (r *JobRepositoryPG) FailExpired(ctx context.Context, cutoff time.Time, message string) (int64, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QFailExpiredJobs, cutoff, message)
	if err != nil {
		return 0, fmt.Errorf("fail expired jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *JobRepositoryPG) scanOne(row rowScanner) (*domain.AppraisalJob, error) {
	job, err := scanJob(row)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

func scanJob(row rowScanner) (*domain.AppraisalJob, error) {
	var (
		job        domain.AppraisalJob
		resultJSON []byte
	)
	if err := row.Scan(
		&job.ID,
		&job.OwnerID,
		&job.InputImages,
		&job.Condition,
		&job.Status,
		&resultJSON,
		&job.RecordID,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.StartedAt,
		&job.CompletedAt,
	); err != nil {
		return nil, err
	}
	if len(resultJSON) > 0 {
		var summary domain.ValuationSummary
		if err := json.Unmarshal(resultJSON, &summary); err != nil {
			return nil, fmt.Errorf("decode result summary: %w", err)
		}
		job.Result = &summary
	}
	return &job, nil
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)

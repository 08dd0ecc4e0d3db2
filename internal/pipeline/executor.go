package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/fetch"
	"server/internal/providers/appraise"
	imageprovider "server/internal/providers/image"
)

// ImageFetcher retrieves the bytes behind trusted image references.
type ImageFetcher interface {
	FetchAll(ctx context.Context, refs []string) ([]fetch.Image, error)
}

// ObjectStore persists a canonical rendering and resolves its public URL.
type ObjectStore interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
	PublicURL(key string) string
}

// Executor advances one appraisal job through its stages to a terminal state.
// It runs a single pass per job: there is no retry and no resumption. Gating
// stages (fetch, valuation, valuation persistence) share one failure exit that
// writes status failed with the causing error; regeneration and the storage
// upload degrade to the first input image instead of failing the job.
type Executor struct {
	Jobs        domain.JobRepository
	Valuations  domain.ValuationRepository
	Fetcher     ImageFetcher
	Appraiser   appraise.Appraiser
	Regenerator imageprovider.Regenerator
	Store       ObjectStore
	Bus         *Bus
	Logger      zerolog.Logger
}

// Run executes the pipeline for jobID. It never returns an error: after the
// claim succeeds, every outcome is recorded on the job row and the caller has
// nothing to propagate to.
func (e *Executor) Run(ctx context.Context, jobID string) {
	job, err := e.Jobs.MarkProcessing(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Never legitimately created (or already claimed); nothing to do.
			e.Logger.Debug().Str("job_id", jobID).Msg("pipeline: job not claimable")
			return
		}
		e.Logger.Error().Err(err).Str("job_id", jobID).Msg("pipeline: claim failed")
		return
	}
	e.Logger.Info().
		Str("job_id", job.ID).
		Str("owner_id", job.OwnerID).
		Int("images", len(job.InputImages)).
		Msg("pipeline: started")

	images, err := e.Fetcher.FetchAll(ctx, job.InputImages)
	if err != nil {
		e.fail(ctx, job, fmt.Errorf("fetch input images: %w", err))
		return
	}

	sources := make([]appraise.Image, len(images))
	for i, img := range images {
		sources[i] = appraise.Image{Data: img.Data, MIME: img.MIME}
	}
	result, err := e.Appraiser.Appraise(ctx, sources, job.Condition)
	if err != nil {
		e.fail(ctx, job, fmt.Errorf("appraise item: %w", err))
		return
	}

	imageURL := e.canonicalImage(ctx, job, images, result.ItemName)

	valuation := &domain.Valuation{
		ID:          uuid.NewString(),
		OwnerID:     job.OwnerID,
		JobID:       job.ID,
		ItemName:    result.ItemName,
		Maker:       result.Maker,
		Era:         result.Era,
		Category:    result.Category,
		Description: result.Description,
		PriceRange:  domain.PriceRange{Low: result.PriceLow, High: result.PriceHigh},
		Currency:    result.Currency,
		Reasoning:   result.Reasoning,
		References:  result.References,
		ImageURL:    imageURL,
	}
	if err := e.Valuations.Create(ctx, valuation); err != nil {
		e.fail(ctx, job, fmt.Errorf("persist valuation: %w", err))
		return
	}

	e.Bus.Publish(ValuationCompleted{
		OwnerID:     job.OwnerID,
		JobID:       job.ID,
		RecordID:    valuation.ID,
		ItemName:    valuation.ItemName,
		CompletedAt: time.Now(),
	})

	// Detached like fail: the valuation row already exists, so losing this
	// write to a cancelled pipeline context would leave a record behind a job
	// the reaper later marks failed.
	if err := e.Jobs.Complete(context.WithoutCancel(ctx), job.ID, valuation.Summary(), valuation.ID); err != nil {
		e.Logger.Error().Err(err).Str("job_id", job.ID).Msg("pipeline: finalize failed")
		return
	}
	e.Logger.Info().
		Str("job_id", job.ID).
		Str("record_id", valuation.ID).
		Str("item_name", valuation.ItemName).
		Msg("pipeline: completed")
}

// canonicalImage regenerates a clean rendering and uploads it. Both steps are
// best-effort: either failure falls back to the first input reference.
func (e *Executor) canonicalImage(ctx context.Context, job *domain.AppraisalJob, images []fetch.Image, itemName string) string {
	fallback := job.InputImages[0]

	sources := make([]imageprovider.SourceImage, len(images))
	for i, img := range images {
		sources[i] = imageprovider.SourceImage{Data: img.Data, MIME: img.MIME}
	}
	rendering, err := e.Regenerator.Regenerate(ctx, sources, itemName)
	if err != nil {
		e.Logger.Warn().Err(err).
			Str("job_id", job.ID).
			Msg("pipeline: regeneration failed, using first input image")
		return fallback
	}

	key := fmt.Sprintf("appraisals/%s/render%s", job.ID, extensionForMIME(rendering.MIME))
	savedKey, err := e.Store.Write(ctx, key, rendering.Data)
	if err != nil {
		e.Logger.Warn().Err(err).
			Str("job_id", job.ID).
			Msg("pipeline: rendering upload failed, using first input image")
		return fallback
	}
	return e.Store.PublicURL(savedKey)
}

// fail is the single fatal exit path shared by all gating stages. The cause
// is often the pipeline context's own deadline, so the terminal write runs on
// a detached context: it must land or the row sits in processing with no
// writer until the reaper replaces the real error with its lease message.
func (e *Executor) fail(ctx context.Context, job *domain.AppraisalJob, cause error) {
	e.Logger.Error().Err(cause).Str("job_id", job.ID).Msg("pipeline: failed")
	if err := e.Jobs.Fail(context.WithoutCancel(ctx), job.ID, cause.Error()); err != nil {
		e.Logger.Error().Err(err).Str("job_id", job.ID).Msg("pipeline: failure write failed")
	}
}

func extensionForMIME(mime string) string {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

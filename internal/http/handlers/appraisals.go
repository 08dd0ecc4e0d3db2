package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"server/internal/domain"
	"server/internal/middleware"
)

const defaultCondition = "Good"

type appraisalCreateRequest struct {
	ImageReferences []string `json:"imageReferences" validate:"required,min=1,dive,trustedref"`
	Condition       string   `json:"condition" validate:"omitempty,max=200"`
}

type appraisalCreateResponse struct {
	JobID   string `json:"jobId"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type priceRangeDTO struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

type resultDTO struct {
	ItemName   string        `json:"itemName"`
	PriceRange priceRangeDTO `json:"priceRange"`
	Currency   string        `json:"currency"`
}

type jobDTO struct {
	ID           string     `json:"id"`
	Condition    string     `json:"condition"`
	InputImages  []string   `json:"inputImages"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	Result       *resultDTO `json:"result,omitempty"`
	RecordID     *string    `json:"recordId,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
}

type statusStatsDTO struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Total      int `json:"total"`
}

type newlyCompletedDTO struct {
	JobID    string  `json:"jobId"`
	RecordID string  `json:"recordId"`
	ItemName string  `json:"itemName"`
	Value    float64 `json:"value"`
	Currency string  `json:"currency"`
}

type appraisalStatusResponse struct {
	Items          []jobDTO            `json:"items"`
	Stats          statusStatsDTO      `json:"stats"`
	NewlyCompleted []newlyCompletedDTO `json:"newlyCompleted"`
}

func toJobDTO(job domain.AppraisalJob) jobDTO {
	dto := jobDTO{
		ID:           job.ID,
		Condition:    job.Condition,
		InputImages:  job.InputImages,
		Status:       string(job.Status),
		CreatedAt:    job.CreatedAt,
		StartedAt:    job.StartedAt,
		CompletedAt:  job.CompletedAt,
		RecordID:     job.RecordID,
		ErrorMessage: job.ErrorMessage,
	}
	if job.Result != nil {
		dto.Result = &resultDTO{
			ItemName: job.Result.ItemName,
			PriceRange: priceRangeDTO{
				Low:  job.Result.PriceRange.Low,
				High: job.Result.PriceRange.High,
			},
			Currency: job.Result.Currency,
		}
	}
	return dto
}

// AppraisalsCreate accepts an appraisal submission, persists a pending job
// and hands it off for background execution. The response never waits on the
// pipeline.
func (a *App) AppraisalsCreate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req appraisalCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := a.Validate.Struct(req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", validationMessage(err))
		return
	}
	if req.Condition == "" {
		req.Condition = defaultCondition
	}

	job := &domain.AppraisalJob{
		ID:          uuid.NewString(),
		OwnerID:     userID,
		InputImages: req.ImageReferences,
		Condition:   req.Condition,
	}
	if err := a.Jobs.Create(r.Context(), job); err != nil {
		a.Logger.Error().Err(err).Msg("enqueue: job insert failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to create appraisal job")
		return
	}
	a.Scheduler.Submit(job.ID)

	a.json(w, http.StatusAccepted, appraisalCreateResponse{
		JobID:   job.ID,
		Status:  string(domain.JobStatusPending),
		Message: ackMessage(middleware.LocaleFromContext(r.Context())),
	})
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			switch fe.Tag() {
			case "required", "min":
				return "imageReferences must contain at least one reference"
			case "trustedref":
				return "imageReferences must point at trusted storage"
			case "max":
				return "condition is too long"
			}
		}
	}
	return "invalid payload"
}

func ackMessage(locale string) string {
	if locale == "es" {
		return "Tasación en curso. Consulta el estado para ver el resultado."
	}
	return "Appraisal in progress. Poll status for the result."
}

// AppraisalsStatus returns the caller's recent jobs with per-status counts
// and the subset completed inside the trailing detection window.
func (a *App) AppraisalsStatus(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	now := time.Now()
	jobs, err := a.Jobs.ListRecentByOwner(r.Context(), userID, now.Add(-a.Config.StatusLookback))
	if err != nil {
		a.Logger.Error().Err(err).Msg("status: list failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load jobs")
		return
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })

	resp := appraisalStatusResponse{
		Items:          make([]jobDTO, 0, len(jobs)),
		NewlyCompleted: []newlyCompletedDTO{},
	}
	windowStart := now.Add(-a.Config.NewlyCompletedWindow)
	for _, job := range jobs {
		resp.Items = append(resp.Items, toJobDTO(job))
		switch job.Status {
		case domain.JobStatusPending:
			resp.Stats.Pending++
		case domain.JobStatusProcessing:
			resp.Stats.Processing++
		case domain.JobStatusCompleted:
			resp.Stats.Completed++
		case domain.JobStatusFailed:
			resp.Stats.Failed++
		}
		resp.Stats.Total++

		if job.Status == domain.JobStatusCompleted &&
			job.Result != nil && job.RecordID != nil &&
			job.CompletedAt != nil && !job.CompletedAt.Before(windowStart) {
			resp.NewlyCompleted = append(resp.NewlyCompleted, newlyCompletedDTO{
				JobID:    job.ID,
				RecordID: *job.RecordID,
				ItemName: job.Result.ItemName,
				Value:    job.Result.PriceRange.Midpoint(),
				Currency: job.Result.Currency,
			})
		}
	}
	a.json(w, http.StatusOK, resp)
}

// AppraisalsGet returns a single job owned by the caller.
func (a *App) AppraisalsGet(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	job, err := a.Jobs.GetForOwner(r.Context(), jobID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("status: job read failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}
	a.json(w, http.StatusOK, toJobDTO(*job))
}

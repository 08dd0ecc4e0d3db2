package domain

import "time"

// JobStatus enumerates appraisal job lifecycle states.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further status transition can occur.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// PriceRange bounds an estimated item value.
type PriceRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Midpoint returns the single representative value of the range.
func (p PriceRange) Midpoint() float64 {
	return (p.Low + p.High) / 2
}

// ValuationSummary is the compact result stored on a completed job row.
type ValuationSummary struct {
	ItemName   string     `json:"item_name"`
	PriceRange PriceRange `json:"price_range"`
	Currency   string     `json:"currency"`
}

// AppraisalJob tracks one submitted appraisal as it moves through the
// pipeline. Status is monotonic: pending -> processing -> completed|failed.
// Result and RecordID are set only on completion, ErrorMessage only on
// failure; StartedAt and CompletedAt are each written exactly once.
type AppraisalJob struct {
	ID           string
	OwnerID      string
	InputImages  []string
	Condition    string
	Status       JobStatus
	Result       *ValuationSummary
	RecordID     *string
	ErrorMessage string
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// Valuation is the durable appraisal produced by a successful job,
// independent of the job bookkeeping row. Immutable once written.
type Valuation struct {
	ID          string
	OwnerID     string
	JobID       string
	ItemName    string
	Maker       string
	Era         string
	Category    string
	Description string
	PriceRange  PriceRange
	Currency    string
	Reasoning   string
	References  []string
	ImageURL    string
	CreatedAt   time.Time
}

// Summary derives the compact form persisted on the owning job row.
func (v *Valuation) Summary() ValuationSummary {
	return ValuationSummary{
		ItemName:   v.ItemName,
		PriceRange: v.PriceRange,
		Currency:   v.Currency,
	}
}

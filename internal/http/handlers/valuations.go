package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
)

type valuationDTO struct {
	ID          string        `json:"id"`
	JobID       string        `json:"jobId"`
	ItemName    string        `json:"itemName"`
	Maker       string        `json:"maker,omitempty"`
	Era         string        `json:"era,omitempty"`
	Category    string        `json:"category,omitempty"`
	Description string        `json:"description,omitempty"`
	PriceRange  priceRangeDTO `json:"priceRange"`
	Currency    string        `json:"currency"`
	Reasoning   string        `json:"reasoning,omitempty"`
	References  []string      `json:"references,omitempty"`
	ImageURL    string        `json:"imageUrl"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// ValuationsGet returns one persisted valuation record owned by the caller.
func (a *App) ValuationsGet(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	recordID := chi.URLParam(r, "record_id")
	if recordID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "record_id required")
		return
	}
	record, err := a.Valuations.GetForOwner(r.Context(), recordID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "valuation not found")
			return
		}
		a.Logger.Error().Err(err).Str("record_id", recordID).Msg("valuation read failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load valuation")
		return
	}
	a.json(w, http.StatusOK, valuationDTO{
		ID:          record.ID,
		JobID:       record.JobID,
		ItemName:    record.ItemName,
		Maker:       record.Maker,
		Era:         record.Era,
		Category:    record.Category,
		Description: record.Description,
		PriceRange:  priceRangeDTO{Low: record.PriceRange.Low, High: record.PriceRange.High},
		Currency:    record.Currency,
		Reasoning:   record.Reasoning,
		References:  record.References,
		ImageURL:    record.ImageURL,
		CreatedAt:   record.CreatedAt,
	})
}

package handlers

import (
	"net/http"

	"server/internal/sqlinline"
)

func (a *App) StatsSummary(w http.ResponseWriter, r *http.Request) {
	row := a.SQL.QueryRow(r.Context(), sqlinline.QStatsSummary)
	var pending, processing, completed, failed, total, completed24 int64
	if err := row.Scan(&pending, &processing, &completed, &failed, &total, &completed24); err != nil {
		a.Logger.Error().Err(err).Msg("stats query failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load stats")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"pending":            pending,
		"processing":         processing,
		"completed":          completed,
		"failed":             failed,
		"total":              total,
		"completed_last_24h": completed24,
	})
}

package handlers

import (
	"net/http"
	"time"
)

type streakDTO struct {
	Current      int        `json:"current"`
	Longest      int        `json:"longest"`
	LastActivity *time.Time `json:"lastActivity,omitempty"`
}

// MeStreak returns the caller's appraisal streak counters.
func (a *App) MeStreak(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	streak, err := a.Users.GetStreak(r.Context(), userID)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("streak read failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load streak")
		return
	}
	a.json(w, http.StatusOK, streakDTO{
		Current:      streak.Current,
		Longest:      streak.Longest,
		LastActivity: streak.LastActivity,
	})
}

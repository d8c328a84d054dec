package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"triviahome/internal/cache"
	"triviahome/internal/model"
	"triviahome/internal/repository"
)

const leaderboardSize = 25

// StatsHandler serves per-user stats and the global leaderboard.
type StatsHandler struct {
	stats       repository.StatsRepo
	leaderboard cache.LeaderboardCache
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(stats repository.StatsRepo, leaderboard cache.LeaderboardCache) *StatsHandler {
	return &StatsHandler{
		stats:       stats,
		leaderboard: leaderboard,
	}
}

// Get handles GET /api/stats/{userId}. The global rank comes from the
// redis leaderboard and is omitted when unavailable.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	stats, err := h.stats.GetByUserID(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if stats == nil {
		writeError(w, http.StatusNotFound, "Stats not found")
		return
	}

	resp := struct {
		*model.UserStats
		GlobalRank int64 `json:"globalRank,omitempty"`
	}{UserStats: stats}
	if h.leaderboard != nil {
		if rank, err := h.leaderboard.GetRank(r.Context(), userID); err == nil && rank > 0 {
			resp.GlobalRank = rank
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GlobalTop handles GET /api/stats/global/top. The redis leaderboard
// is preferred; an empty or unavailable cache falls back to mongo.
func (h *StatsHandler) GlobalTop(w http.ResponseWriter, r *http.Request) {
	if h.leaderboard != nil {
		entries, err := h.leaderboard.GetTop(r.Context(), leaderboardSize)
		if err == nil && len(entries) > 0 {
			writeJSON(w, http.StatusOK, map[string]interface{}{"leaderboard": entries})
			return
		}
	}

	top, err := h.stats.TopByWins(r.Context(), leaderboardSize)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"leaderboard": top})
}

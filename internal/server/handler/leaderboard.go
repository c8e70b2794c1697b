package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/nvh2205/noti-believe/internal/domain"
)

// LeaderboardHandler serves the win-count leaderboard.
type LeaderboardHandler struct {
	users  domain.UserStore
	logger *slog.Logger
}

// NewLeaderboardHandler creates a LeaderboardHandler.
func NewLeaderboardHandler(users domain.UserStore, logger *slog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		users:  users,
		logger: logger.With(slog.String("handler", "leaderboard")),
	}
}

// Leaderboard returns the top users by win count.
// GET /api/leaderboard
func (h *LeaderboardHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	entries, err := h.users.Leaderboard(r.Context(), limit)
	if err != nil {
		h.logger.Error("leaderboard failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": entries})
}

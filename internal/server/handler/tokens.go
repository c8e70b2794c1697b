package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/nvh2205/noti-believe/internal/domain"
)

// TokenHandler serves the alerted-token record endpoints.
type TokenHandler struct {
	tokens domain.TokenStore
	logger *slog.Logger
}

// NewTokenHandler creates a TokenHandler.
func NewTokenHandler(tokens domain.TokenStore, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{
		tokens: tokens,
		logger: logger.With(slog.String("handler", "tokens")),
	}
}

// ListTokens returns recent token records, newest first.
// GET /api/tokens
func (h *TokenHandler) ListTokens(w http.ResponseWriter, r *http.Request) {
	records, err := h.tokens.ListRecent(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.Error("list tokens failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if records == nil {
		records = []domain.TokenRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tokens": records})
}

// GetToken returns the record for one contract address.
// GET /api/tokens/{ca}
func (h *TokenHandler) GetToken(w http.ResponseWriter, r *http.Request) {
	ca := r.PathValue("ca")
	rec, err := h.tokens.FindByCA(r.Context(), ca)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "token not found")
			return
		}
		h.logger.Error("get token failed",
			slog.String("ca_address", ca),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

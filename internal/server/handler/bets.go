package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nvh2205/noti-believe/internal/domain"
	"github.com/nvh2205/noti-believe/internal/server/middleware"
)

// BetLimits bounds the stake of a single bet.
type BetLimits struct {
	Min float64
	Max float64
}

// BetHandler serves the betting endpoints. All routes require a session.
type BetHandler struct {
	bets   domain.BetStore
	users  domain.UserStore
	tokens domain.TokenStore
	limits BetLimits
	logger *slog.Logger
}

// NewBetHandler creates a BetHandler.
func NewBetHandler(bets domain.BetStore, users domain.UserStore, tokens domain.TokenStore, limits BetLimits, logger *slog.Logger) *BetHandler {
	return &BetHandler{
		bets:   bets,
		users:  users,
		tokens: tokens,
		limits: limits,
		logger: logger.With(slog.String("handler", "bets")),
	}
}

// PlaceBet places an up/down wager on a token's market cap. A turn is
// consumed and the stake debited atomically before the bet row is written.
// POST /api/bets
func (h *BetHandler) PlaceBet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CAAddress string  `json:"ca_address"`
		Direction string  `json:"direction"`
		Amount    float64 `json:"amount"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.CAAddress == "" {
		writeError(w, http.StatusBadRequest, "ca_address is required")
		return
	}
	if req.Direction != domain.BetUp && req.Direction != domain.BetDown {
		writeError(w, http.StatusBadRequest, "direction must be up or down")
		return
	}
	if req.Amount < h.limits.Min || req.Amount > h.limits.Max {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("amount must be between %g and %g", h.limits.Min, h.limits.Max))
		return
	}

	user, err := h.users.FindByWallet(r.Context(), middleware.Wallet(r))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unknown user")
		return
	}

	token, err := h.tokens.FindByCA(r.Context(), req.CAAddress)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "token not found")
			return
		}
		h.logger.Error("load token failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := h.users.SpendTurn(r.Context(), user.ID, req.Amount); err != nil {
		if errors.Is(err, domain.ErrNoTurnsLeft) {
			writeError(w, http.StatusConflict, "no betting turns or insufficient balance")
			return
		}
		h.logger.Error("spend turn failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	bet, err := h.bets.Create(r.Context(), domain.Bet{
		UserID:    user.ID,
		CAAddress: req.CAAddress,
		Direction: req.Direction,
		Amount:    req.Amount,
		EntryMC:   token.MarketCap,
	})
	if err != nil {
		h.logger.Error("create bet failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("bet placed",
		slog.String("user_id", user.ID),
		slog.String("ca_address", req.CAAddress),
		slog.String("direction", req.Direction),
	)
	writeJSON(w, http.StatusCreated, bet)
}

// ListBets returns the caller's bets, newest first.
// GET /api/bets
func (h *BetHandler) ListBets(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.FindByWallet(r.Context(), middleware.Wallet(r))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unknown user")
		return
	}

	bets, err := h.bets.ListByUser(r.Context(), user.ID, parseListOpts(r))
	if err != nil {
		h.logger.Error("list bets failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if bets == nil {
		bets = []domain.Bet{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"bets": bets})
}

package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nvh2205/noti-believe/internal/crypto"
	"github.com/nvh2205/noti-believe/internal/domain"
)

// AuthHandler implements the wallet challenge/login flow. A client requests
// a nonce for its wallet, signs the challenge message with personal_sign and
// trades the signature for an opaque session token.
type AuthHandler struct {
	sessions   domain.SessionCache
	users      domain.UserStore
	nonceTTL   time.Duration
	sessionTTL time.Duration
	logger     *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(sessions domain.SessionCache, users domain.UserStore, nonceTTL, sessionTTL time.Duration, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		sessions:   sessions,
		users:      users,
		nonceTTL:   nonceTTL,
		sessionTTL: sessionTTL,
		logger:     logger.With(slog.String("handler", "auth")),
	}
}

// challengeMessage is the exact text the client must sign. The nonce makes
// every challenge single-use.
func challengeMessage(nonce string) string {
	return fmt.Sprintf("Sign this message to log in.\nNonce: %s", nonce)
}

// Challenge issues a login nonce for a wallet.
// POST /api/auth/challenge
func (h *AuthHandler) Challenge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Wallet string `json:"wallet"`
	}
	if err := decodeBody(r, &req); err != nil || req.Wallet == "" {
		writeError(w, http.StatusBadRequest, "wallet is required")
		return
	}

	nonce := uuid.NewString()
	if err := h.sessions.PutNonce(r.Context(), req.Wallet, nonce, h.nonceTTL); err != nil {
		h.logger.Error("store nonce failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": challengeMessage(nonce),
		"nonce":   nonce,
	})
}

// Login verifies a signed challenge and issues a session token. The nonce is
// consumed whether or not verification succeeds.
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Wallet    string `json:"wallet"`
		Signature string `json:"signature"`
	}
	if err := decodeBody(r, &req); err != nil || req.Wallet == "" || req.Signature == "" {
		writeError(w, http.StatusBadRequest, "wallet and signature are required")
		return
	}

	nonce, err := h.sessions.TakeNonce(r.Context(), req.Wallet)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "no pending challenge for wallet")
			return
		}
		h.logger.Error("take nonce failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	ok, err := crypto.VerifySignature(req.Wallet, challengeMessage(nonce), req.Signature)
	if err != nil || !ok {
		writeError(w, http.StatusUnauthorized, "invalid wallet signature")
		return
	}

	user, err := h.users.FindByWallet(r.Context(), req.Wallet)
	if errors.Is(err, domain.ErrNotFound) {
		user, err = h.users.Create(r.Context(), req.Wallet)
	}
	if err != nil {
		h.logger.Error("load user failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	token := uuid.NewString()
	if err := h.sessions.PutSession(r.Context(), token, req.Wallet, h.sessionTTL); err != nil {
		h.logger.Error("store session failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("wallet logged in", slog.String("wallet", req.Wallet))
	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  user,
	})
}

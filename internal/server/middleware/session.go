package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/nvh2205/noti-believe/internal/domain"
)

type contextKey string

// walletKey carries the authenticated wallet address through the request
// context.
const walletKey contextKey = "wallet"

// Session returns middleware that requires a valid Bearer session token and
// injects the resolved wallet address into the request context.
func Session(sessions domain.SessionCache) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeUnauthorized(w, "missing session token")
				return
			}

			wallet, err := sessions.WalletForSession(r.Context(), token)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					writeUnauthorized(w, "invalid or expired session")
					return
				}
				http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), walletKey, wallet)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Wallet returns the authenticated wallet address from the request context,
// or "" when the request did not pass through Session.
func Wallet(r *http.Request) string {
	wallet, _ := r.Context().Value(walletKey).(string)
	return wallet
}

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// writeUnauthorized sends a 401 response with a JSON error body.
func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}

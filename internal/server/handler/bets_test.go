package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvh2205/noti-believe/internal/domain"
	"github.com/nvh2205/noti-believe/internal/server/middleware"
)

const testWallet = "0x1111111111111111111111111111111111111111"

// betEnv wires the bet handler behind session auth, the way the server
// registers it.
type betEnv struct {
	sessions *fakeSessions
	users    *fakeUsers
	bets     *fakeBets
	place    http.Handler
	list     http.Handler
}

func newBetEnv(t *testing.T) *betEnv {
	t.Helper()
	sessions := newFakeSessions()
	sessions.sessions["session-1"] = testWallet

	users := newFakeUsers()
	users.users[testWallet] = domain.User{ID: "user-1", WalletAddress: testWallet, FreeTurns: 3, Balance: 100}

	bets := &fakeBets{}
	tokens := &fakeTokenStore{records: map[string]domain.TokenRecord{
		"ca1": {CAAddress: "ca1", MarketCap: 19800},
	}}

	h := NewBetHandler(bets, users, tokens, BetLimits{Min: 1, Max: 1000}, discard())
	auth := middleware.Session(sessions)
	return &betEnv{
		sessions: sessions,
		users:    users,
		bets:     bets,
		place:    auth(http.HandlerFunc(h.PlaceBet)),
		list:     auth(http.HandlerFunc(h.ListBets)),
	}
}

func placeBet(t *testing.T, env *betEnv, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/bets", bytes.NewReader(b))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	env.place.ServeHTTP(w, req)
	return w
}

func TestPlaceBetHappyPath(t *testing.T) {
	env := newBetEnv(t)

	w := placeBet(t, env, "session-1", map[string]any{
		"ca_address": "ca1",
		"direction":  "up",
		"amount":     10.0,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var bet domain.Bet
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bet))
	assert.Equal(t, "user-1", bet.UserID)
	assert.Equal(t, domain.BetPending, bet.Status)
	// Entry market cap captured from the token record.
	assert.Equal(t, float64(19800), bet.EntryMC)
	assert.Equal(t, []float64{10}, env.users.spendArgs)
}

func TestPlaceBetRequiresSession(t *testing.T) {
	env := newBetEnv(t)

	w := placeBet(t, env, "", map[string]any{"ca_address": "ca1", "direction": "up", "amount": 10.0})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = placeBet(t, env, "bogus", map[string]any{"ca_address": "ca1", "direction": "up", "amount": 10.0})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, env.bets.created)
}

func TestPlaceBetValidation(t *testing.T) {
	env := newBetEnv(t)

	w := placeBet(t, env, "session-1", map[string]any{"ca_address": "ca1", "direction": "sideways", "amount": 10.0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = placeBet(t, env, "session-1", map[string]any{"ca_address": "ca1", "direction": "up", "amount": 0.5})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = placeBet(t, env, "session-1", map[string]any{"ca_address": "unknown", "direction": "up", "amount": 10.0})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPlaceBetNoTurnsLeft(t *testing.T) {
	env := newBetEnv(t)
	env.users.turnsErr = domain.ErrNoTurnsLeft

	w := placeBet(t, env, "session-1", map[string]any{"ca_address": "ca1", "direction": "down", "amount": 10.0})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Empty(t, env.bets.created)
}

func TestListBetsReturnsOwnBets(t *testing.T) {
	env := newBetEnv(t)
	require.Equal(t, http.StatusCreated,
		placeBet(t, env, "session-1", map[string]any{"ca_address": "ca1", "direction": "up", "amount": 10.0}).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/bets", nil)
	req.Header.Set("Authorization", "Bearer session-1")
	w := httptest.NewRecorder()
	env.list.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Bets []domain.Bet `json:"bets"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Bets, 1)
	assert.Equal(t, "ca1", resp.Bets[0].CAAddress)
}

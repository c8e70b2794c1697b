package handler

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvh2205/noti-believe/internal/domain"
)

type fakeSessions struct {
	nonces   map[string]string
	sessions map[string]string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		nonces:   make(map[string]string),
		sessions: make(map[string]string),
	}
}

func (f *fakeSessions) PutNonce(ctx context.Context, wallet, nonce string, ttl time.Duration) error {
	f.nonces[wallet] = nonce
	return nil
}

func (f *fakeSessions) TakeNonce(ctx context.Context, wallet string) (string, error) {
	nonce, ok := f.nonces[wallet]
	if !ok {
		return "", domain.ErrNotFound
	}
	delete(f.nonces, wallet)
	return nonce, nil
}

func (f *fakeSessions) PutSession(ctx context.Context, token, wallet string, ttl time.Duration) error {
	f.sessions[token] = wallet
	return nil
}

func (f *fakeSessions) WalletForSession(ctx context.Context, token string) (string, error) {
	wallet, ok := f.sessions[token]
	if !ok {
		return "", domain.ErrNotFound
	}
	return wallet, nil
}

type fakeUsers struct {
	users     map[string]domain.User
	turnsErr  error
	spendArgs []float64
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[string]domain.User)}
}

func (f *fakeUsers) FindByWallet(ctx context.Context, wallet string) (domain.User, error) {
	u, ok := f.users[wallet]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) Create(ctx context.Context, wallet string) (domain.User, error) {
	u := domain.User{ID: "user-" + wallet[:8], WalletAddress: wallet, FreeTurns: 3}
	f.users[wallet] = u
	return u, nil
}

func (f *fakeUsers) SpendTurn(ctx context.Context, userID string, amount float64) error {
	f.spendArgs = append(f.spendArgs, amount)
	return f.turnsErr
}

func (f *fakeUsers) RecordResult(ctx context.Context, userID string, won bool, payout float64) error {
	return nil
}

func (f *fakeUsers) ResetFreeTurns(ctx context.Context, turns int) error { return nil }

func (f *fakeUsers) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	return []domain.LeaderboardEntry{
		{Rank: 1, WalletAddress: "0xabc", WinCount: 9},
	}, nil
}

type fakeBets struct {
	created []domain.Bet
}

func (f *fakeBets) Create(ctx context.Context, bet domain.Bet) (domain.Bet, error) {
	bet.ID = "bet-1"
	bet.Status = domain.BetPending
	f.created = append(f.created, bet)
	return bet, nil
}

func (f *fakeBets) ListByUser(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Bet, error) {
	return f.created, nil
}

func (f *fakeBets) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]domain.Bet, error) {
	return nil, nil
}

func (f *fakeBets) Settle(ctx context.Context, betID string, status string, settledMC float64) error {
	return nil
}

type fakeTokenStore struct {
	records map[string]domain.TokenRecord
}

func (f *fakeTokenStore) FindByCA(ctx context.Context, ca string) (domain.TokenRecord, error) {
	rec, ok := f.records[ca]
	if !ok {
		return domain.TokenRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

func (f *fakeTokenStore) FindByPair(ctx context.Context, pair string) (domain.TokenRecord, error) {
	return domain.TokenRecord{}, domain.ErrNotFound
}

func (f *fakeTokenStore) Upsert(ctx context.Context, rec domain.TokenRecord) (domain.TokenRecord, error) {
	return rec, nil
}

func (f *fakeTokenStore) SetMessageID(ctx context.Context, ca string, id int64) error { return nil }

func (f *fakeTokenStore) UpdateSnapshot(ctx context.Context, ca string, price, mc float64, info domain.SocialSnapshot) error {
	return nil
}

func (f *fakeTokenStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.TokenRecord, error) {
	var out []domain.TokenRecord
	for _, rec := range f.records {
		out = append(out, rec)
	}
	return out, nil
}

func (f *fakeTokenStore) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]domain.TokenRecord, error) {
	return nil, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func postJSON(t *testing.T, h http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(b))
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func TestChallengeAndLoginFlow(t *testing.T) {
	sessions := newFakeSessions()
	users := newFakeUsers()
	h := NewAuthHandler(sessions, users, time.Minute, time.Hour, discard())

	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	wallet := ethcrypto.PubkeyToAddress(key.PublicKey).Hex()

	w := postJSON(t, h.Challenge, map[string]string{"wallet": wallet})
	require.Equal(t, http.StatusOK, w.Code)

	var challenge struct {
		Message string `json:"message"`
		Nonce   string `json:"nonce"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &challenge))
	require.NotEmpty(t, challenge.Nonce)
	assert.Contains(t, challenge.Message, challenge.Nonce)

	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(challenge.Message), challenge.Message)
	sig, err := ethcrypto.Sign(ethcrypto.Keccak256([]byte(prefixed)), key)
	require.NoError(t, err)
	sig[64] += 27

	w = postJSON(t, h.Login, map[string]string{
		"wallet":    wallet,
		"signature": "0x" + hex.EncodeToString(sig),
	})
	require.Equal(t, http.StatusOK, w.Code)

	var login struct {
		Token string      `json:"token"`
		User  domain.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, wallet, login.User.WalletAddress)
	assert.Equal(t, wallet, sessions.sessions[login.Token])

	// The nonce is single-use.
	w = postJSON(t, h.Login, map[string]string{
		"wallet":    wallet,
		"signature": "0x" + hex.EncodeToString(sig),
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginRejectsWrongSigner(t *testing.T) {
	sessions := newFakeSessions()
	h := NewAuthHandler(sessions, newFakeUsers(), time.Minute, time.Hour, discard())

	victimKey, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	victim := ethcrypto.PubkeyToAddress(victimKey.PublicKey).Hex()

	w := postJSON(t, h.Challenge, map[string]string{"wallet": victim})
	require.Equal(t, http.StatusOK, w.Code)
	var challenge struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &challenge))

	attackerKey, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(challenge.Message), challenge.Message)
	sig, err := ethcrypto.Sign(ethcrypto.Keccak256([]byte(prefixed)), attackerKey)
	require.NoError(t, err)
	sig[64] += 27

	w = postJSON(t, h.Login, map[string]string{
		"wallet":    victim,
		"signature": "0x" + hex.EncodeToString(sig),
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, sessions.sessions)
}

func TestGetTokenNotFound(t *testing.T) {
	h := NewTokenHandler(&fakeTokenStore{records: map[string]domain.TokenRecord{}}, discard())

	req := httptest.NewRequest(http.MethodGet, "/api/tokens/missing", nil)
	req.SetPathValue("ca", "missing")
	w := httptest.NewRecorder()
	h.GetToken(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListTokens(t *testing.T) {
	store := &fakeTokenStore{records: map[string]domain.TokenRecord{
		"ca1": {CAAddress: "ca1", CoinTicker: "ONE"},
	}}
	h := NewTokenHandler(store, discard())

	req := httptest.NewRequest(http.MethodGet, "/api/tokens?limit=10", nil)
	w := httptest.NewRecorder()
	h.ListTokens(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Tokens []domain.TokenRecord `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Tokens, 1)
}

func TestLeaderboard(t *testing.T) {
	h := NewLeaderboardHandler(newFakeUsers(), discard())

	req := httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil)
	w := httptest.NewRecorder()
	h.Leaderboard(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Leaderboard, 1)
	assert.Equal(t, 9, resp.Leaderboard[0].WinCount)
}

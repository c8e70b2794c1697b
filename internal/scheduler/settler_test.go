package scheduler

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvh2205/noti-believe/internal/domain"
)

type settledBet struct {
	betID     string
	status    string
	settledMC float64
}

type fakeBetStore struct {
	pending []domain.Bet
	cutoff  time.Time
	settled []settledBet
}

func (f *fakeBetStore) Create(ctx context.Context, bet domain.Bet) (domain.Bet, error) {
	return bet, nil
}

func (f *fakeBetStore) ListByUser(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Bet, error) {
	return nil, nil
}

func (f *fakeBetStore) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]domain.Bet, error) {
	f.cutoff = cutoff
	return f.pending, nil
}

func (f *fakeBetStore) Settle(ctx context.Context, betID string, status string, settledMC float64) error {
	f.settled = append(f.settled, settledBet{betID: betID, status: status, settledMC: settledMC})
	return nil
}

type recordedResult struct {
	userID string
	won    bool
	payout float64
}

type fakeUserStore struct {
	results []recordedResult
}

func (f *fakeUserStore) FindByWallet(ctx context.Context, wallet string) (domain.User, error) {
	return domain.User{}, domain.ErrNotFound
}

func (f *fakeUserStore) Create(ctx context.Context, wallet string) (domain.User, error) {
	return domain.User{}, nil
}

func (f *fakeUserStore) SpendTurn(ctx context.Context, userID string, amount float64) error {
	return nil
}

func (f *fakeUserStore) RecordResult(ctx context.Context, userID string, won bool, payout float64) error {
	f.results = append(f.results, recordedResult{userID: userID, won: won, payout: payout})
	return nil
}

func (f *fakeUserStore) ResetFreeTurns(ctx context.Context, turns int) error { return nil }

func (f *fakeUserStore) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	return nil, nil
}

type fakeTokenLookup struct {
	records map[string]domain.TokenRecord
	findErr error
}

func (f *fakeTokenLookup) FindByCA(ctx context.Context, ca string) (domain.TokenRecord, error) {
	if f.findErr != nil {
		return domain.TokenRecord{}, f.findErr
	}
	rec, ok := f.records[ca]
	if !ok {
		return domain.TokenRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

func (f *fakeTokenLookup) FindByPair(ctx context.Context, pair string) (domain.TokenRecord, error) {
	return domain.TokenRecord{}, domain.ErrNotFound
}

func (f *fakeTokenLookup) Upsert(ctx context.Context, rec domain.TokenRecord) (domain.TokenRecord, error) {
	return rec, nil
}

func (f *fakeTokenLookup) SetMessageID(ctx context.Context, ca string, id int64) error { return nil }

func (f *fakeTokenLookup) UpdateSnapshot(ctx context.Context, ca string, price, mc float64, info domain.SocialSnapshot) error {
	return nil
}

func (f *fakeTokenLookup) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.TokenRecord, error) {
	return nil, nil
}

func (f *fakeTokenLookup) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]domain.TokenRecord, error) {
	return nil, nil
}

func testSettler(bets *fakeBetStore, users *fakeUserStore, tokens *fakeTokenLookup) *BetSettler {
	cfg := SettlerConfig{Window: time.Hour, SweepInterval: time.Minute}
	s := NewBetSettler(cfg, bets, users, tokens, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestSweepSettlesWinnersAndLosers(t *testing.T) {
	bets := &fakeBetStore{pending: []domain.Bet{
		{ID: "b1", UserID: "u1", CAAddress: "ca1", Direction: domain.BetUp, Amount: 10, EntryMC: 10000},
		{ID: "b2", UserID: "u2", CAAddress: "ca1", Direction: domain.BetDown, Amount: 5, EntryMC: 10000},
	}}
	users := &fakeUserStore{}
	tokens := &fakeTokenLookup{records: map[string]domain.TokenRecord{
		"ca1": {CAAddress: "ca1", MarketCap: 15000},
	}}
	s := testSettler(bets, users, tokens)

	require.NoError(t, s.sweep(context.Background()))

	// Sweep only considers bets older than the window.
	assert.Equal(t, time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC), bets.cutoff)

	require.Len(t, bets.settled, 2)
	assert.Equal(t, settledBet{betID: "b1", status: domain.BetWon, settledMC: 15000}, bets.settled[0])
	assert.Equal(t, settledBet{betID: "b2", status: domain.BetLost, settledMC: 15000}, bets.settled[1])

	require.Len(t, users.results, 2)
	assert.Equal(t, recordedResult{userID: "u1", won: true, payout: 20}, users.results[0])
	assert.Equal(t, recordedResult{userID: "u2", won: false, payout: 0}, users.results[1])
}

func TestSweepMissingTokenLosesUpBet(t *testing.T) {
	bets := &fakeBetStore{pending: []domain.Bet{
		{ID: "b1", UserID: "u1", CAAddress: "gone", Direction: domain.BetUp, Amount: 10, EntryMC: 10000},
	}}
	users := &fakeUserStore{}
	s := testSettler(bets, users, &fakeTokenLookup{records: map[string]domain.TokenRecord{}})

	require.NoError(t, s.sweep(context.Background()))

	require.Len(t, bets.settled, 1)
	assert.Equal(t, domain.BetLost, bets.settled[0].status)
}

func TestSweepSkipsBetOnLookupFailure(t *testing.T) {
	bets := &fakeBetStore{pending: []domain.Bet{
		{ID: "b1", UserID: "u1", CAAddress: "ca1", Direction: domain.BetUp, Amount: 10, EntryMC: 10000},
	}}
	users := &fakeUserStore{}
	s := testSettler(bets, users, &fakeTokenLookup{findErr: context.DeadlineExceeded})

	require.NoError(t, s.sweep(context.Background()))

	// A transient lookup failure leaves the bet pending for the next sweep.
	assert.Empty(t, bets.settled)
	assert.Empty(t, users.results)
}

func TestRunStopsCleanly(t *testing.T) {
	s := testSettler(&fakeBetStore{}, &fakeUserStore{}, &fakeTokenLookup{})
	s.cfg.SweepInterval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("settler did not stop")
	}
}

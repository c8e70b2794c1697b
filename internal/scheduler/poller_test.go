package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvh2205/noti-believe/internal/domain"
	"github.com/nvh2205/noti-believe/internal/platform/believe"
)

type fakeSignals struct {
	tokens []believe.SignalToken
	err    error
	calls  int
}

func (f *fakeSignals) FetchTokens(ctx context.Context, count, minFollowers int) ([]believe.SignalToken, error) {
	f.calls++
	return f.tokens, f.err
}

type fakeDedup struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func (f *fakeDedup) CheckAndMark(ctx context.Context, id string, payload []byte) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	if f.seen[id] {
		return true, nil
	}
	f.seen[id] = true
	return false, nil
}

type capturedJob struct {
	jobType string
	alert   domain.TokenAlert
	opts    domain.JobOptions
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []capturedJob
}

func (f *fakeQueue) Enqueue(ctx context.Context, jobType string, payload any, opts domain.JobOptions) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	var alert domain.TokenAlert
	if err := json.Unmarshal(b, &alert); err != nil {
		return err
	}
	f.mu.Lock()
	f.jobs = append(f.jobs, capturedJob{jobType: jobType, alert: alert, opts: opts})
	f.mu.Unlock()
	return nil
}

func (f *fakeQueue) snapshot() []capturedJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]capturedJob(nil), f.jobs...)
}

func testPoller(signals *fakeSignals, dedup *fakeDedup, q *fakeQueue) *Poller {
	cfg := PollerConfig{Interval: time.Second, Count: 50, MinFollowers: 0}
	return NewPoller(cfg, signals, dedup, q, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPollOnceEnqueuesUnseenTokens(t *testing.T) {
	signals := &fakeSignals{tokens: []believe.SignalToken{
		{CAAddress: "ca1", CoinName: "One", CoinTicker: "ONE", TwitterHandle: "@devone", Price: "$0.001", MarketCap: "$10K"},
		{CAAddress: "ca2", CoinName: "Two", CoinTicker: "TWO", TwitterInfo: json.RawMessage(`{"followers_count":900,"score":"77"}`)},
		{CAAddress: "", CoinName: "Skipped"},
	}}
	q := &fakeQueue{}
	p := testPoller(signals, &fakeDedup{}, q)

	require.NoError(t, p.pollOnce(context.Background()))

	jobs := q.snapshot()
	require.Len(t, jobs, 2)
	assert.Equal(t, domain.JobProcessToken, jobs[0].jobType)
	assert.Equal(t, 1, jobs[0].opts.Attempts)
	// Handle normalized without the @ prefix.
	assert.Equal(t, "devone", jobs[0].alert.TwitterHandle)
	assert.Equal(t, 900, jobs[1].alert.TwitterInfo.FollowersCount)
	assert.Equal(t, "77", jobs[1].alert.TwitterInfo.Score)
}

func TestPollOnceSkipsSeenTokens(t *testing.T) {
	signals := &fakeSignals{tokens: []believe.SignalToken{
		{CAAddress: "ca1", CoinTicker: "ONE"},
	}}
	q := &fakeQueue{}
	dedup := &fakeDedup{}
	p := testPoller(signals, dedup, q)

	require.NoError(t, p.pollOnce(context.Background()))
	require.NoError(t, p.pollOnce(context.Background()))

	assert.Len(t, q.snapshot(), 1)
}

func TestPollOnceDedupErrorSkipsItemOnly(t *testing.T) {
	signals := &fakeSignals{tokens: []believe.SignalToken{
		{CAAddress: "ca1", CoinTicker: "ONE"},
	}}
	q := &fakeQueue{}
	p := testPoller(signals, &fakeDedup{err: errors.New("redis down")}, q)

	require.NoError(t, p.pollOnce(context.Background()))
	assert.Empty(t, q.snapshot())
}

func TestPollOnceFetchErrorPropagates(t *testing.T) {
	signals := &fakeSignals{err: errors.New("status 503")}
	p := testPoller(signals, &fakeDedup{}, &fakeQueue{})

	assert.Error(t, p.pollOnce(context.Background()))
}

func TestRunStopsOnCancel(t *testing.T) {
	signals := &fakeSignals{}
	p := testPoller(signals, &fakeDedup{}, &fakeQueue{})
	p.cfg.Interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not stop")
	}
	assert.Greater(t, signals.calls, 0)
}

func TestNextMidnight(t *testing.T) {
	now := time.Date(2025, 6, 1, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), nextMidnight(now))

	early := time.Date(2025, 6, 1, 0, 0, 1, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), nextMidnight(early))
}

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	c, err := New(context.Background(), ClientConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c, mr
}

func TestDedupGateCheckAndMark(t *testing.T) {
	c, _ := newTestClient(t)
	gate := NewDedupGate(c, time.Minute)
	ctx := context.Background()

	seen, err := gate.CheckAndMark(ctx, "So1aaa", []byte(`{"ca":"So1aaa"}`))
	require.NoError(t, err)
	assert.False(t, seen, "first sighting must pass")

	seen, err = gate.CheckAndMark(ctx, "So1aaa", []byte(`{"ca":"So1aaa"}`))
	require.NoError(t, err)
	assert.True(t, seen, "second sighting inside the window must be suppressed")

	// Different address is independent.
	seen, err = gate.CheckAndMark(ctx, "So1bbb", nil)
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestDedupGateWindowExpiry(t *testing.T) {
	c, mr := newTestClient(t)
	gate := NewDedupGate(c, time.Minute)
	ctx := context.Background()

	_, err := gate.CheckAndMark(ctx, "So1aaa", nil)
	require.NoError(t, err)

	mr.FastForward(61 * time.Second)

	seen, err := gate.CheckAndMark(ctx, "So1aaa", nil)
	require.NoError(t, err)
	assert.False(t, seen, "the gate must reopen after the TTL lapses")
}

func TestDedupGateStoresPayload(t *testing.T) {
	c, mr := newTestClient(t)
	gate := NewDedupGate(c, time.Minute)

	_, err := gate.CheckAndMark(context.Background(), "So1ccc", []byte("payload"))
	require.NoError(t, err)

	got, err := mr.Get("dedup:token:So1ccc")
	require.NoError(t, err)
	assert.Equal(t, "payload", got)
}

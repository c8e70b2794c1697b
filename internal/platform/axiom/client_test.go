package axiom

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvh2205/noti-believe/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRefreshAccessTokenParsesSetCookie(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/refresh-access-token", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.Header.Get("Cookie"), "auth-refresh-token=refresh-cred")
		w.Header().Add("Set-Cookie", "auth-refresh-token=refresh-cred; Path=/; HttpOnly")
		w.Header().Add("Set-Cookie", "auth-access-token=fresh-token-123; Path=/; HttpOnly")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(Config{APIHost: srv.URL, PriceHost: srv.URL, RefreshToken: "refresh-cred"}, testLogger())

	var notified atomic.Value
	c.OnTokenRefresh(func(token string) { notified.Store(token) })

	token, err := c.RefreshAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh-token-123", token)
	assert.Equal(t, "fresh-token-123", c.AccessToken())
	assert.Equal(t, "fresh-token-123", notified.Load())
}

func TestRefreshAccessTokenCoalescesConcurrentCalls(t *testing.T) {
	var refreshCalls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		<-release
		w.Header().Add("Set-Cookie", "auth-access-token=shared-token; Path=/; HttpOnly")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(Config{APIHost: srv.URL, PriceHost: srv.URL, RefreshToken: "x"}, testLogger())

	const callers = 8
	tokens := make([]string, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = c.RefreshAccessToken(context.Background())
		}(i)
	}

	// Let every caller join the in-flight refresh before it completes.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), refreshCalls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "shared-token", tokens[i])
	}
}

func TestRefreshAccessTokenMissingCookie(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(Config{APIHost: srv.URL, RefreshToken: "x"}, testLogger())
	_, err := c.RefreshAccessToken(context.Background())
	assert.Error(t, err)
}

func TestGetPairInfoRetriesOnceAfter401(t *testing.T) {
	var pairCalls, refreshCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/refresh-access-token":
			refreshCalls.Add(1)
			w.Header().Add("Set-Cookie", "auth-access-token=rotated; Path=/")
		case "/pair-info":
			if pairCalls.Add(1) == 1 {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			assert.Contains(t, r.Header.Get("Cookie"), "auth-access-token=rotated")
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"pairAddress":"pair1","tokenAddress":"ca1","tokenName":"Foo","tokenTicker":"FOO","supply":1000000000,"protocol":"Virtual Curve"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient(Config{APIHost: srv.URL, PriceHost: srv.URL, RefreshToken: "x"}, testLogger())

	info, err := c.GetPairInfo(context.Background(), "pair1")
	require.NoError(t, err)
	assert.Equal(t, "Foo", info.TokenName)
	assert.Equal(t, "Virtual Curve", info.Protocol)
	assert.Equal(t, float64(1000000000), info.Supply)
	assert.Equal(t, int32(2), pairCalls.Load())
	assert.Equal(t, int32(1), refreshCalls.Load())
}

func TestGetPairInfoSecond401IsTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/refresh-access-token" {
			w.Header().Add("Set-Cookie", "auth-access-token=rotated; Path=/")
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(Config{APIHost: srv.URL, PriceHost: srv.URL, RefreshToken: "x"}, testLogger())

	_, err := c.GetPairInfo(context.Background(), "pair1")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestGetTokenPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/last-transaction", r.URL.Path)
		assert.Equal(t, "pair1", r.URL.Query().Get("pairAddress"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pairAddress":"pair1","type":"buy","priceSol":0.0000071,"priceUsd":0.0012,"createdAt":"2025-05-14T10:00:00Z"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIHost: srv.URL, PriceHost: srv.URL, RefreshToken: "x"}, testLogger())

	price, err := c.GetTokenPrice(context.Background(), "pair1")
	require.NoError(t, err)
	assert.Equal(t, "buy", price.Type)
	assert.InDelta(t, 0.0012, price.PriceUsd, 1e-9)
}

package believe

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "50", r.URL.Query().Get("count"))
		assert.Equal(t, "0", r.URL.Query().Get("min_followers"))
		_, _ = w.Write([]byte(`[
			{"_id":"1","coin_name":"Foo","coin_ticker":"FOO","ca_address":"So1aaa","price":"$0.001","marketCap":"$12K"},
			{"_id":"2","coin_name":"Bar","coin_ticker":"BAR","ca_address":"So1bbb","price":"Unknown","marketCap":"Unknown"}
		]`))
	}))
	defer srv.Close()

	c := NewSignalClient(srv.URL, slog.New(slog.NewTextHandler(io.Discard, nil)))
	tokens, err := c.FetchTokens(context.Background(), 50, 0)
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, "Foo", tokens[0].CoinName)
	assert.Equal(t, "So1bbb", tokens[1].CAAddress)
}

func TestFetchTokensBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewSignalClient(srv.URL, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := c.FetchTokens(context.Background(), 50, 0)
	assert.Error(t, err)
}

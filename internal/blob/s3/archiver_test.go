package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvh2205/noti-believe/internal/domain"
)

type fakeWriter struct {
	path        string
	data        []byte
	contentType string
	calls       int
}

func (f *fakeWriter) Put(ctx context.Context, path string, data []byte, contentType string) error {
	f.calls++
	f.path, f.data, f.contentType = path, data, contentType
	return nil
}

type fakeTokens struct {
	records []domain.TokenRecord
	err     error
	from    time.Time
	to      time.Time
}

func (f *fakeTokens) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]domain.TokenRecord, error) {
	f.from, f.to = from, to
	return f.records, f.err
}

func testArchiver(w *fakeWriter, tokens *fakeTokens) *Archiver {
	return NewArchiver(w, tokens, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestArchiveDayUploadsJSONL(t *testing.T) {
	tokens := &fakeTokens{records: []domain.TokenRecord{
		{CAAddress: "ca1", CoinTicker: "ONE"},
		{CAAddress: "ca2", CoinTicker: "TWO"},
	}}
	w := &fakeWriter{}
	a := testArchiver(w, tokens)

	day := time.Date(2025, 6, 1, 15, 30, 0, 0, time.UTC)
	n, err := a.ArchiveDay(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, "alerts/2025/06/01.jsonl", w.path)
	assert.Equal(t, "application/x-ndjson", w.contentType)
	// Query covers the full civil day.
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), tokens.from)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), tokens.to)

	scanner := bufio.NewScanner(bytes.NewReader(w.data))
	var lines int
	for scanner.Scan() {
		var rec domain.TokenRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		lines++
	}
	assert.Equal(t, 2, lines)
}

func TestArchiveDayEmptySkipsUpload(t *testing.T) {
	w := &fakeWriter{}
	a := testArchiver(w, &fakeTokens{})

	n, err := a.ArchiveDay(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, w.calls)
}

func TestArchiveDayStoreError(t *testing.T) {
	a := testArchiver(&fakeWriter{}, &fakeTokens{err: errors.New("db down")})

	_, err := a.ArchiveDay(context.Background(), time.Now())
	assert.Error(t, err)
}

func TestNextArchiveTime(t *testing.T) {
	before := time.Date(2025, 6, 1, 0, 2, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 5, 0, 0, time.UTC), nextArchiveTime(before))

	after := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 5, 0, 0, time.UTC), nextArchiveTime(after))
}

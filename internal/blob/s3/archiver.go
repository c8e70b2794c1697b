package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nvh2205/noti-believe/internal/domain"
)

// TokenArchiveStore is the read slice of the token store the archiver needs.
type TokenArchiveStore interface {
	ListCreatedBetween(ctx context.Context, from, to time.Time) ([]domain.TokenRecord, error)
}

// Archiver uploads each day's alerted tokens to blob storage as JSONL at
// alerts/YYYY/MM/DD.jsonl. Rows are never deleted from the primary store;
// the archive is a cold copy for offline analysis.
type Archiver struct {
	writer domain.BlobWriter
	tokens TokenArchiveStore
	logger *slog.Logger
	now    func() time.Time
}

// NewArchiver creates an Archiver.
func NewArchiver(writer domain.BlobWriter, tokens TokenArchiveStore, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer: writer,
		tokens: tokens,
		logger: logger.With(slog.String("component", "archiver")),
		now:    time.Now,
	}
}

// ArchiveDay uploads all tokens alerted on the given day. Returns the number
// of archived records; a day with no alerts uploads nothing.
func (a *Archiver) ArchiveDay(ctx context.Context, day time.Time) (int, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	to := from.AddDate(0, 0, 1)

	records, err := a.tokens.ListCreatedBetween(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("s3blob: list tokens for archive: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return 0, fmt.Errorf("s3blob: encode token %s: %w", rec.CAAddress, err)
		}
	}

	path := fmt.Sprintf("alerts/%s.jsonl", from.Format("2006/01/02"))
	if err := a.writer.Put(ctx, path, buf.Bytes(), "application/x-ndjson"); err != nil {
		return 0, err
	}

	a.logger.Info("day archived",
		slog.String("path", path),
		slog.Int("records", len(records)),
	)
	return len(records), nil
}

// Run archives the previous day shortly after each midnight, until ctx is
// cancelled.
func (a *Archiver) Run(ctx context.Context) error {
	for {
		next := nextArchiveTime(a.now())
		select {
		case <-ctx.Done():
			return nil // clean shutdown
		case <-time.After(time.Until(next)):
		}

		yesterday := a.now().AddDate(0, 0, -1)
		if _, err := a.ArchiveDay(ctx, yesterday); err != nil {
			a.logger.Error("archive failed", slog.String("error", err.Error()))
		}
	}
}

// nextArchiveTime returns the next 00:05 local time, giving midnight writers
// a few minutes to finish before the day is read back.
func nextArchiveTime(now time.Time) time.Time {
	y, m, d := now.Date()
	next := time.Date(y, m, d, 0, 5, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

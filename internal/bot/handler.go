// Package bot runs the Telegram long-poll loop and routes button presses
// into queue jobs.
package bot

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/nvh2205/noti-believe/internal/domain"
	"github.com/nvh2205/noti-believe/internal/notify"
	"github.com/nvh2205/noti-believe/internal/processor"
)

const (
	pollTimeoutSeconds = 30
	pollRetryDelay     = 3 * time.Second
)

// UpdateSource is the Telegram surface the bot consumes.
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int64, timeout int) ([]notify.Update, error)
	SendMessage(ctx context.Context, chatID int64, text string, keyboard *notify.InlineKeyboard) (int64, error)
	AnswerCallbackQuery(ctx context.Context, callbackID, text string) error
}

// Bot long-polls getUpdates and turns callback presses into refresh and
// insight jobs. The heavy lifting happens on the queue workers so a slow
// enrichment never stalls the poll loop.
type Bot struct {
	telegram UpdateSource
	queue    domain.JobQueue
	logger   *slog.Logger
	offset   int64
}

// New creates a Bot.
func New(telegram UpdateSource, queue domain.JobQueue, logger *slog.Logger) *Bot {
	return &Bot{
		telegram: telegram,
		queue:    queue,
		logger:   logger.With(slog.String("component", "bot")),
	}
}

// Run polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("update loop started")
	for {
		if ctx.Err() != nil {
			return nil // clean shutdown
		}

		updates, err := b.telegram.GetUpdates(ctx, b.offset, pollTimeoutSeconds)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			b.logger.Warn("getUpdates failed", slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(pollRetryDelay):
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= b.offset {
				b.offset = update.UpdateID + 1
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update notify.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

// handleCallback routes a button press by its action prefix. Unknown actions
// are acknowledged and dropped so the client never spins forever.
func (b *Bot) handleCallback(ctx context.Context, cb *notify.CallbackQuery) {
	action, caAddress, ok := strings.Cut(cb.Data, ":")
	if !ok || caAddress == "" || cb.Message == nil {
		b.logger.Warn("malformed callback data", slog.String("data", cb.Data))
		b.answer(ctx, cb.ID, "")
		return
	}

	chatID := cb.Message.Chat.ID

	switch action {
	case processor.ActionRefresh:
		b.answer(ctx, cb.ID, "Refreshing token data...")
		req := domain.RefreshRequest{
			CAAddress: caAddress,
			ChatID:    chatID,
			MessageID: cb.Message.MessageID,
		}
		if err := b.queue.Enqueue(ctx, domain.JobRefreshToken, req, domain.JobOptions{Attempts: 2}); err != nil {
			b.logger.Error("enqueue refresh failed",
				slog.String("ca_address", caAddress),
				slog.String("error", err.Error()),
			)
		}

	case processor.ActionInsight:
		b.answer(ctx, cb.ID, "")
		// The placeholder message id rides on the job so the worker can
		// replace it with the finished analysis.
		placeholderID, err := b.telegram.SendMessage(ctx, chatID, "🔍 Analyzing token, please wait...", nil)
		if err != nil {
			b.logger.Error("send insight placeholder failed",
				slog.String("ca_address", caAddress),
				slog.String("error", err.Error()),
			)
			return
		}
		req := domain.InsightRequest{
			CAAddress: caAddress,
			ChatID:    chatID,
			MessageID: placeholderID,
		}
		if err := b.queue.Enqueue(ctx, domain.JobInsightAnalysis, req, domain.JobOptions{Attempts: 2}); err != nil {
			b.logger.Error("enqueue insight failed",
				slog.String("ca_address", caAddress),
				slog.String("error", err.Error()),
			)
		}

	default:
		b.logger.Warn("unknown callback action", slog.String("action", action))
		b.answer(ctx, cb.ID, "")
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *notify.Message) {
	if !strings.HasPrefix(msg.Text, "/start") {
		b.logger.Debug("dropping unrecognized message",
			slog.Int64("chat_id", msg.Chat.ID),
			slog.String("text", msg.Text),
		)
		return
	}
	text := "👋 Welcome! This bot posts alerts for newly launched tokens.\n" +
		"Use the 🔄 Refresh and 🔍 Insight buttons under each alert."
	if _, err := b.telegram.SendMessage(ctx, msg.Chat.ID, text, nil); err != nil {
		b.logger.Warn("send welcome failed", slog.String("error", err.Error()))
	}
}

func (b *Bot) answer(ctx context.Context, callbackID, text string) {
	if err := b.telegram.AnswerCallbackQuery(ctx, callbackID, text); err != nil {
		b.logger.Warn("answer callback failed", slog.String("error", err.Error()))
	}
}

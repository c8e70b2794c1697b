package domain

import (
	"context"
	"time"
)

// Job type names carried on the token queue. Payloads are JSON.
const (
	JobProcessToken    = "process-token"
	JobProcessTokenV2  = "process-token-v2"
	JobRefreshToken    = "refresh-token"
	JobInsightAnalysis = "insight-analysis"
)

// JobOptions controls the retry policy for an enqueued job: up to Attempts
// tries, with delay BackoffBase × 2^attemptIndex between failures.
type JobOptions struct {
	Attempts    int
	BackoffBase time.Duration
}

// JobQueue is the producer side of the durable token queue.
type JobQueue interface {
	Enqueue(ctx context.Context, jobType string, payload any, opts JobOptions) error
}

// TokenAlert is the payload of process-token and process-token-v2 jobs.
// Price and MarketCap are display strings and may be UnknownValue.
type TokenAlert struct {
	CoinName      string         `json:"coin_name"`
	CoinTicker    string         `json:"coin_ticker"`
	CAAddress     string         `json:"ca_address"`
	PairAddress   string         `json:"pair_address,omitempty"`
	CreatedAt     string         `json:"created_at"`
	TwitterHandle string         `json:"twitter_handler"`
	Price         string         `json:"price"`
	MarketCap     string         `json:"marketCap"`
	Supply        float64        `json:"supply,omitempty"`
	TwitterInfo   SocialSnapshot `json:"twitter_info"`
}

// RefreshRequest is the payload of refresh-token jobs: re-enrich the token
// and edit the originally delivered message in place.
type RefreshRequest struct {
	CAAddress string `json:"ca_address"`
	ChatID    int64  `json:"chat_id"`
	MessageID int64  `json:"message_id"`
}

// InsightRequest is the payload of insight-analysis jobs. MessageID refers
// to the transient "analyzing" message that gets deleted before the analysis
// is delivered.
type InsightRequest struct {
	CAAddress string `json:"ca_address"`
	ChatID    int64  `json:"chat_id"`
	MessageID int64  `json:"message_id"`
}

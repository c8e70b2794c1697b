package believe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// SignalToken is one discovery item from the believesignal feed. The shape
// mirrors the alert payload so items can be enqueued as-is.
type SignalToken struct {
	ID            string          `json:"_id"`
	CoinName      string          `json:"coin_name"`
	CoinTicker    string          `json:"coin_ticker"`
	CAAddress     string          `json:"ca_address"`
	CreatedAt     string          `json:"created_at"`
	TwitterHandle string          `json:"twitter_handler"`
	Price         string          `json:"price"`
	MarketCap     string          `json:"marketCap"`
	TwitterInfo   json.RawMessage `json:"twitter_info,omitempty"`
}

// SignalClient polls the believesignal tokens endpoint.
type SignalClient struct {
	apiURL     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSignalClient creates a SignalClient. apiURL is the full tokens
// endpoint, e.g. "https://api.believesignal.com/tokens".
func NewSignalClient(apiURL string, logger *slog.Logger) *SignalClient {
	return &SignalClient{
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With(slog.String("component", "believe_signal")),
	}
}

// FetchTokens returns up to count recent tokens with at least minFollowers.
func (c *SignalClient) FetchTokens(ctx context.Context, count, minFollowers int) ([]SignalToken, error) {
	params := url.Values{}
	params.Set("count", strconv.Itoa(count))
	params.Set("min_followers", strconv.Itoa(minFollowers))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("believe: create signal request: %w", err)
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Origin", "https://www.believesignal.com")
	req.Header.Set("Referer", "https://www.believesignal.com/")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/135.0.0.0 Safari/537.36")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("believe: fetch signal tokens: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("believe: read signal response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("believe: signal API status %d", resp.StatusCode)
	}

	var tokens []SignalToken
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, fmt.Errorf("believe: decode signal tokens: %w", err)
	}

	c.logger.Debug("fetched signal tokens", slog.Int("count", len(tokens)))
	return tokens, nil
}

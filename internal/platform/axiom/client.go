// Package axiom is the REST client for the Axiom Trade APIs: pair metadata,
// last-transaction prices, and the access-token refresh flow.
package axiom

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nvh2205/noti-believe/internal/domain"
)

// accessTokenPattern extracts the rotated token from the Set-Cookie header
// of a refresh response.
var accessTokenPattern = regexp.MustCompile(`auth-access-token=([^;]+)`)

// Config holds the endpoints and the long-lived refresh credential.
type Config struct {
	// APIHost serves pair-info and refresh-access-token.
	APIHost string
	// PriceHost serves last-transaction.
	PriceHost string
	// RefreshToken is the long-lived credential used to mint access tokens.
	RefreshToken string
}

// Client talks to the Axiom Trade APIs. The short-lived access token is
// refreshed on demand: proactively by the feed's ticker and reactively when
// a request comes back 401. Concurrent refreshes collapse into one.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger

	mu          sync.RWMutex
	accessToken string
	onRefresh   func(token string)

	refreshGroup singleflight.Group
}

// NewClient creates a new Axiom API client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With(slog.String("component", "axiom")),
	}
}

// AccessToken returns the current short-lived access token.
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// SetAccessToken overwrites the current access token.
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
}

// OnTokenRefresh registers a callback invoked with every newly minted access
// token. The feed uses it to reconnect its socket with fresh credentials.
func (c *Client) OnTokenRefresh(fn func(token string)) {
	c.mu.Lock()
	c.onRefresh = fn
	c.mu.Unlock()
}

// RefreshAccessToken mints a new access token from the refresh credential.
// Concurrent callers share a single in-flight refresh and all receive the
// same result.
func (c *Client) RefreshAccessToken(ctx context.Context) (string, error) {
	v, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		return c.doRefresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) doRefresh(ctx context.Context) (string, error) {
	c.logger.Info("refreshing access token")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIHost+"/refresh-access-token", nil)
	if err != nil {
		return "", fmt.Errorf("axiom: create refresh request: %w", err)
	}
	c.setBrowserHeaders(req)
	req.Header.Set("Cookie", "auth-refresh-token="+c.cfg.RefreshToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("axiom: refresh request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("axiom: refresh returned status %d", resp.StatusCode)
	}

	for _, cookie := range resp.Header.Values("Set-Cookie") {
		if m := accessTokenPattern.FindStringSubmatch(cookie); m != nil {
			token := m[1]
			c.mu.Lock()
			c.accessToken = token
			fn := c.onRefresh
			c.mu.Unlock()
			if fn != nil {
				fn(token)
			}
			c.logger.Info("access token refreshed", slog.Int("token_length", len(token)))
			return token, nil
		}
	}

	return "", fmt.Errorf("axiom: no auth-access-token cookie in refresh response")
}

// GetPairInfo fetches pair metadata for a pair address.
func (c *Client) GetPairInfo(ctx context.Context, pairAddress string) (domain.PairInfo, error) {
	body, err := c.getWithAuth(ctx, c.cfg.APIHost+"/pair-info?pairAddress="+url.QueryEscape(pairAddress))
	if err != nil {
		return domain.PairInfo{}, fmt.Errorf("axiom: get pair info %s: %w", pairAddress, err)
	}

	var info APIPairInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return domain.PairInfo{}, fmt.Errorf("axiom: decode pair info: %w", err)
	}
	return info.ToDomain(), nil
}

// GetTokenPrice fetches the latest trade for a pair address.
func (c *Client) GetTokenPrice(ctx context.Context, pairAddress string) (domain.TokenPrice, error) {
	body, err := c.getWithAuth(ctx, c.cfg.PriceHost+"/last-transaction?pairAddress="+url.QueryEscape(pairAddress))
	if err != nil {
		return domain.TokenPrice{}, fmt.Errorf("axiom: get token price %s: %w", pairAddress, err)
	}

	var price APITokenPrice
	if err := json.Unmarshal(body, &price); err != nil {
		return domain.TokenPrice{}, fmt.Errorf("axiom: decode token price: %w", err)
	}
	return price.ToDomain(), nil
}

// getWithAuth performs an authenticated GET. On a 401 it refreshes the
// access token once and retries; a second 401 is terminal.
func (c *Client) getWithAuth(ctx context.Context, rawURL string) ([]byte, error) {
	body, status, err := c.doGet(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		c.logger.Warn("request unauthorized, refreshing token and retrying")
		if _, err := c.RefreshAccessToken(ctx); err != nil {
			return nil, fmt.Errorf("refresh after 401: %w", err)
		}
		body, status, err = c.doGet(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if status == http.StatusUnauthorized {
			return nil, domain.ErrUnauthorized
		}
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("unexpected status %d: %s", status, truncate(body, 200))
	}
	return body, nil
}

func (c *Client) doGet(ctx context.Context, rawURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	c.setBrowserHeaders(req)
	req.Header.Set("Cookie", fmt.Sprintf("auth-refresh-token=%s; auth-access-token=%s", c.cfg.RefreshToken, c.AccessToken()))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

// setBrowserHeaders mimics the web client; the API rejects bare requests.
func (c *Client) setBrowserHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Origin", "https://axiom.trade")
	req.Header.Set("Referer", "https://axiom.trade/")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/135.0.0.0 Safari/537.36")
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

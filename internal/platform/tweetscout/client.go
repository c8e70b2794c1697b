// Package tweetscout extracts a compact reputation score for a Twitter
// handle from the TweetScout search payload.
package tweetscout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/nvh2205/noti-believe/internal/domain"
)

// Config holds the search endpoint and the Cloudflare clearance cookie the
// free endpoint requires.
type Config struct {
	BaseURL     string
	CFClearance string
}

// Client fetches reputation data. Score lookups never fail the caller: any
// transport or parse error degrades to the documented default bundle.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new TweetScout client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 20 * time.Second},
		logger:     logger.With(slog.String("component", "tweetscout")),
	}
}

// searchPayload is the slice of the Next.js data payload the score needs.
type searchPayload struct {
	PageProps struct {
		Account accountData `json:"account"`
	} `json:"pageProps"`
}

type accountData struct {
	Number         int    `json:"number"`
	FakePercent    string `json:"fake_percent"`
	FollowersCount int    `json:"followersCount"`
	Score          struct {
		Value string `json:"value"`
	} `json:"score"`
	TopFollowers []followerGroup `json:"top_followers"`
	Followers    struct {
		Value string `json:"value"`
		Fakes string `json:"fakes"`
	} `json:"followers"`
	Usernames      []string `json:"usernames"`
	FeedItemsCount int      `json:"feed_items_count"`
}

type followerGroup struct {
	Title    string `json:"title"`
	Accounts []struct {
		Twitter string `json:"twitter"`
		Name    string `json:"name"`
		Score   string `json:"score"`
	} `json:"accounts"`
}

// GetScore fetches the reputation bundle for a Twitter handle. It always
// returns a usable TwitterScore; on any failure the defaults come back and
// the error is only logged.
func (c *Client) GetScore(ctx context.Context, username string) domain.TwitterScore {
	reqURL := fmt.Sprintf("%s/search.json?q=%s", c.cfg.BaseURL, url.QueryEscape(username))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		c.logger.Error("create score request failed", slog.String("username", username), slog.String("error", err.Error()))
		return domain.DefaultTwitterScore()
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Referer", "https://app.tweetscout.io/search?q="+url.QueryEscape(username))
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/135.0.0.0 Safari/537.36")
	if c.cfg.CFClearance != "" {
		req.Header.Set("Cookie", "cf_clearance="+c.cfg.CFClearance)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("score request failed", slog.String("username", username), slog.String("error", err.Error()))
		return domain.DefaultTwitterScore()
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode != http.StatusOK {
		c.logger.Error("score response unusable",
			slog.String("username", username),
			slog.Int("status", resp.StatusCode),
		)
		return domain.DefaultTwitterScore()
	}

	var payload searchPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.logger.Error("decoding score payload failed", slog.String("username", username), slog.String("error", err.Error()))
		return domain.DefaultTwitterScore()
	}

	return toScore(payload.PageProps.Account)
}

// toScore maps the account payload onto the domain bundle, substituting the
// documented defaults for absent fields.
func toScore(acct accountData) domain.TwitterScore {
	score := domain.TwitterScore{
		Number:         acct.Number,
		FakePercent:    acct.FakePercent,
		FollowersCount: acct.FollowersCount,
		Score:          acct.Score.Value,
		Followers: domain.FollowerStats{
			Value: acct.Followers.Value,
			Fakes: acct.Followers.Fakes,
		},
		Usernames:      acct.Usernames,
		FeedItemsCount: acct.FeedItemsCount,
	}
	if score.FakePercent == "" {
		score.FakePercent = "0.00"
	}
	if score.Score == "" {
		score.Score = "0"
	}
	if score.Followers.Value == "" {
		score.Followers.Value = "0"
	}
	if score.Followers.Fakes == "" {
		score.Followers.Fakes = "0"
	}

	// Only the Influencers group feeds the alert, capped at five entries.
	for _, group := range acct.TopFollowers {
		if group.Title != "Influencers" {
			continue
		}
		accounts := group.Accounts
		if len(accounts) > 5 {
			accounts = accounts[:5]
		}
		for _, a := range accounts {
			score.TopFollowers = append(score.TopFollowers, domain.TopFollower{
				Twitter: a.Twitter,
				Name:    a.Name,
				Score:   a.Score,
			})
		}
		break
	}

	return score
}

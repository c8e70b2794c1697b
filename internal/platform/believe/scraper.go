// Package believe scrapes token pages on believe.app and polls the
// believesignal discovery API.
package believe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/nvh2205/noti-believe/internal/domain"
)

// The coin page has no stable API, so fields are pulled out of the rendered
// text with fallback pattern chains. The ordering inside each chain matters:
// the first pattern is the specific one, the second a looser net.
var (
	launchedByPrimary  = regexp.MustCompile(`(?i)Launched by\s*@([\w_]+)`)
	launchedByFallback = regexp.MustCompile(`@([\w_]+)`)
	viewSuffix         = regexp.MustCompile(`(?i)View$`)

	createdAtPrimary  = regexp.MustCompile(`(?i)(\d+d\s+\d+h\s+\d+m\s+ago)`)
	createdAtFallback = regexp.MustCompile(`(?i)Created[^0-9]*([0-9]+[dhm]\s*[0-9]+[dhm]\s*[0-9]+[dhm])`)

	marketCapPrimary  = regexp.MustCompile(`(?i)Market\s+Cap\s*\$([0-9.]+[KMB]?)`)
	marketCapFallback = regexp.MustCompile(`(?i)Market\s+Cap[^$]*\$([0-9.]+[KMB]?)`)

	pricePrimary = regexp.MustCompile(`(?i)Price\s*\$([0-9.]+)`)
	// A long run of zeros after the decimal point is almost certainly a
	// fresh token price rather than some other dollar figure.
	priceFallback = regexp.MustCompile(`\$([0-9.]+0{3,}[0-9]*)`)

	scriptBlocks = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	htmlTags     = regexp.MustCompile(`<[^>]*>`)
)

// Scraper fetches and parses believe.app coin pages.
type Scraper struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewScraper creates a Scraper. baseURL is the coin page root, e.g.
// "https://believe.app/coin".
func NewScraper(baseURL string, logger *slog.Logger) *Scraper {
	return &Scraper{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With(slog.String("component", "believe_scraper")),
	}
}

// Scrape fetches the coin page for a token address and extracts the launch
// fields. Fields that cannot be resolved carry domain.UnknownValue; only
// transport failures return an error.
func (s *Scraper) Scrape(ctx context.Context, tokenAddress string) (domain.ScrapedToken, error) {
	pageURL := s.baseURL + "/" + tokenAddress

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return domain.ScrapedToken{}, fmt.Errorf("believe: create scrape request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/96.0.4664.110 Safari/537.36")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return domain.ScrapedToken{}, fmt.Errorf("believe: scrape %s: %w", tokenAddress, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.ScrapedToken{}, fmt.Errorf("believe: read scrape response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.ScrapedToken{}, fmt.Errorf("believe: scrape %s: status %d", tokenAddress, resp.StatusCode)
	}

	token := ParsePage(tokenAddress, string(body))
	s.logger.Debug("scraped token page",
		slog.String("token_address", tokenAddress),
		slog.String("market_cap", token.MarketCap),
		slog.String("launched_by", token.LaunchedBy),
	)
	return token, nil
}

// ParsePage extracts the launch fields from a coin page body.
func ParsePage(tokenAddress, html string) domain.ScrapedToken {
	text := pageText(html)

	return domain.ScrapedToken{
		TokenAddress: tokenAddress,
		LaunchedBy:   extractLaunchedBy(text),
		CreatedAt:    extractFirst(text, createdAtPrimary, createdAtFallback),
		MarketCap:    extractDollar(text, marketCapPrimary, marketCapFallback),
		Price:        extractDollar(text, pricePrimary, priceFallback),
	}
}

// pageText strips script/style blocks and tags, leaving the rendered text.
func pageText(html string) string {
	return htmlTags.ReplaceAllString(scriptBlocks.ReplaceAllString(html, " "), " ")
}

func extractLaunchedBy(text string) string {
	handle := domain.UnknownValue
	if m := launchedByPrimary.FindStringSubmatch(text); m != nil {
		handle = "@" + m[1]
	} else if m := launchedByFallback.FindStringSubmatch(text); m != nil {
		handle = "@" + m[1]
	}
	if handle != domain.UnknownValue {
		// The page sometimes concatenates the handle with a "View" label.
		handle = viewSuffix.ReplaceAllString(handle, "")
	}
	return handle
}

func extractFirst(text string, patterns ...*regexp.Regexp) string {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return domain.UnknownValue
}

func extractDollar(text string, patterns ...*regexp.Regexp) string {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return "$" + m[1]
		}
	}
	return domain.UnknownValue
}

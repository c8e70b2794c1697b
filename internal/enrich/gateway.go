// Package enrich aggregates the independently fallible token data sources
// behind one call: pair metadata, latest price, and social reputation.
package enrich

import (
	"context"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/nvh2205/noti-believe/internal/domain"
)

// PairSource serves pair metadata and latest-trade prices.
type PairSource interface {
	GetPairInfo(ctx context.Context, pairAddress string) (domain.PairInfo, error)
	GetTokenPrice(ctx context.Context, pairAddress string) (domain.TokenPrice, error)
}

// SocialSource serves reputation scores. It never fails; missing data comes
// back as the default bundle.
type SocialSource interface {
	GetScore(ctx context.Context, username string) domain.TwitterScore
}

// Gateway fans one enrichment request out to all sources concurrently.
type Gateway struct {
	pairs  PairSource
	social SocialSource
	logger *slog.Logger
}

// NewGateway creates a Gateway.
func NewGateway(pairs PairSource, social SocialSource, logger *slog.Logger) *Gateway {
	return &Gateway{
		pairs:  pairs,
		social: social,
		logger: logger.With(slog.String("component", "enrich")),
	}
}

// Enrich fetches price, pair metadata, and the social score for a token.
// Individual source failures degrade the result instead of failing it: the
// corresponding slice stays nil and the rest is still usable.
func (g *Gateway) Enrich(ctx context.Context, pairAddress, twitterHandle string) domain.Enrichment {
	var (
		price *domain.TokenPrice
		pair  *domain.PairInfo
		score domain.TwitterScore
	)

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		p, err := g.pairs.GetTokenPrice(egCtx, pairAddress)
		if err != nil {
			g.logger.Warn("price lookup failed",
				slog.String("pair_address", pairAddress),
				slog.String("error", err.Error()),
			)
			return nil
		}
		price = &p
		return nil
	})

	eg.Go(func() error {
		p, err := g.pairs.GetPairInfo(egCtx, pairAddress)
		if err != nil {
			g.logger.Warn("pair info lookup failed",
				slog.String("pair_address", pairAddress),
				slog.String("error", err.Error()),
			)
			return nil
		}
		pair = &p
		return nil
	})

	eg.Go(func() error {
		score = g.social.GetScore(egCtx, twitterHandle)
		return nil
	})

	// Workers swallow their own errors, so Wait only synchronizes.
	_ = eg.Wait()

	out := domain.Enrichment{Price: price, Pair: pair, Social: score}
	out.MarketCap = MarketCap(price, pair)
	return out
}

// MarketCap derives a USD market cap from the latest price and the supply,
// rounded down to a whole dollar. Zero when either side is missing.
func MarketCap(price *domain.TokenPrice, pair *domain.PairInfo) float64 {
	if price == nil || pair == nil || price.PriceUsd <= 0 || pair.Supply <= 0 {
		return 0
	}
	return math.Floor(price.PriceUsd * pair.Supply)
}

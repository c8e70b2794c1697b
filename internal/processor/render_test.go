package processor

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nvh2205/noti-believe/internal/domain"
)

func TestFormatTokenAge(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		createdAt string
		want      string
	}{
		{"one minute", "2025-06-01T11:59:00Z", "1 min ago 🔥"},
		{"minutes", "2025-06-01T11:15:00Z", "45 mins ago 🔥"},
		{"one hour", "2025-06-01T10:30:00Z", "1 hour ago"},
		{"hours", "2025-06-01T04:00:00Z", "8 hours ago"},
		{"one day", "2025-05-31T06:00:00Z", "1 day ago"},
		{"days", "2025-05-28T12:00:00Z", "4 days ago"},
		{"unparseable passes through", "2d 4h 30m ago", "2d 4h 30m ago"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatTokenAge(tc.createdAt, now))
		})
	}
}

func TestIsFreshAge(t *testing.T) {
	assert.True(t, isFreshAge("45 mins ago 🔥"))
	assert.True(t, isFreshAge("1 hour ago"))
	assert.True(t, isFreshAge("2 hours ago"))
	assert.False(t, isFreshAge("3 hours ago"))
	assert.False(t, isFreshAge("2 days ago"))
	assert.False(t, isFreshAge("2d 4h 30m ago"))
}

func TestRiskIndicator(t *testing.T) {
	assert.Equal(t, "✅", RiskIndicator("5", true))
	assert.Equal(t, "🟢", RiskIndicator("10001", false))
	assert.Equal(t, "🟡", RiskIndicator("1001", false))
	assert.Equal(t, "🟠", RiskIndicator("101", false))
	assert.Equal(t, "🔴", RiskIndicator("100", false))
	assert.Equal(t, "🔴", RiskIndicator("0", false))
	assert.Equal(t, "⚠️", RiskIndicator("Unknown", false))
}

func TestGroupDigits(t *testing.T) {
	assert.Equal(t, "0", groupDigits(0))
	assert.Equal(t, "999", groupDigits(999))
	assert.Equal(t, "1,000", groupDigits(1000))
	assert.Equal(t, "12,345,678", groupDigits(12345678))
}

func TestParseDollar(t *testing.T) {
	v, ok := ParseDollar("$0.0000198")
	assert.True(t, ok)
	assert.InDelta(t, 0.0000198, v, 1e-12)

	v, ok = ParseDollar("$19.8K")
	assert.True(t, ok)
	assert.InDelta(t, 19800, v, 1e-6)

	v, ok = ParseDollar("$1.2M")
	assert.True(t, ok)
	assert.InDelta(t, 1_200_000, v, 1e-6)

	_, ok = ParseDollar(domain.UnknownValue)
	assert.False(t, ok)

	_, ok = ParseDollar("")
	assert.False(t, ok)
}

func TestFormatUSD(t *testing.T) {
	assert.Equal(t, "$19.8K", FormatUSD(19800))
	assert.Equal(t, "$1.20M", FormatUSD(1_200_000))
	assert.Equal(t, "$2.50B", FormatUSD(2_500_000_000))
	assert.Equal(t, "$42.00", FormatUSD(42))
}

func sampleAlert() domain.TokenAlert {
	return domain.TokenAlert{
		CoinName:      "Sample Coin",
		CoinTicker:    "SMPL",
		CAAddress:     "So1SampleCA",
		PairAddress:   "pair1",
		CreatedAt:     "2025-06-01T11:30:00Z",
		TwitterHandle: "tokendev",
		Price:         "$0.0000198",
		MarketCap:     "$19.8K",
		TwitterInfo: domain.SocialSnapshot{
			Name:           "Token Dev",
			FollowersCount: 12500,
			Score:          "812",
		},
	}
}

func TestFormatAlertFresh(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	text := FormatAlert(sampleAlert(), now)

	assert.Contains(t, text, "FRESH TOKEN ALERT")
	assert.Contains(t, text, "30 mins ago 🔥")
	assert.Contains(t, text, "<code>SMPL</code>")
	assert.Contains(t, text, "<code>So1SampleCA</code>")
	assert.Contains(t, text, "12,500 🔥")
	assert.Contains(t, text, "🟢")
	assert.Contains(t, text, "https://believe.app/coin/So1SampleCA")
	assert.Contains(t, text, "https://gmgn.ai/sol/token/So1SampleCA")
	assert.Contains(t, text, "https://t.me/solana_trojanbot?start=d-oxandrein-So1SampleCA")
	assert.Contains(t, text, "This token is very new!")
}

func TestFormatAlertStale(t *testing.T) {
	now := time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC)
	text := FormatAlert(sampleAlert(), now)

	assert.Contains(t, text, "🚀 TOKEN ALERT 🚀")
	assert.NotContains(t, text, "FRESH")
	assert.Contains(t, text, "2 days ago")
}

func TestAlertKeyboard(t *testing.T) {
	kb := AlertKeyboard("So1SampleCA")
	buttons := kb.InlineKeyboard[0]

	assert.Equal(t, "refresh_token:So1SampleCA", buttons[0].CallbackData)
	assert.Equal(t, "insight_analysis:So1SampleCA", buttons[1].CallbackData)
}

func TestFormatInsight(t *testing.T) {
	rec := domain.TokenRecord{
		CoinName:     "Sample Coin",
		CoinTicker:   "SMPL",
		CAAddress:    "So1SampleCA",
		InitialPrice: 0.00001,
		InitialMC:    10000,
		TwitterInfo: domain.SocialSnapshot{
			Score:          "812",
			FollowersCount: 12500,
			FakePercent:    "3.20",
			TopFollowers:   []domain.TopFollower{{Twitter: "bigwhale", Name: "Big Whale"}},
		},
	}

	text := FormatInsight(rec, 0.00002, 20000)

	assert.Contains(t, text, "Insight: Sample Coin (SMPL)")
	assert.Contains(t, text, "+100.00%")
	assert.Contains(t, text, "📈")
	assert.Contains(t, text, "@bigwhale")
	assert.Contains(t, text, "<code>So1SampleCA</code>")

	down := FormatInsight(rec, 0.000005, 5000)
	assert.Contains(t, down, "-50.00%")
	assert.True(t, strings.Contains(down, "📉"))
}

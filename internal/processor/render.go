// Package processor consumes alert jobs and turns them into Telegram
// messages: fresh alerts, in-place refreshes, and insight analyses.
package processor

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nvh2205/noti-believe/internal/domain"
	"github.com/nvh2205/noti-believe/internal/notify"
)

// Callback action prefixes carried in inline-keyboard button data.
const (
	ActionRefresh = "refresh_token"
	ActionInsight = "insight_analysis"
)

// FormatTokenAge renders a creation timestamp as a relative age. Values that
// don't parse come back verbatim; ages under an hour get the fire marker.
func FormatTokenAge(createdAt string, now time.Time) string {
	created, err := parseTimestamp(createdAt)
	if err != nil {
		return createdAt
	}

	mins := int(now.Sub(created).Minutes())
	if mins < 0 {
		mins = 0
	}
	hours := mins / 60
	days := hours / 24

	switch {
	case mins < 60:
		return fmt.Sprintf("%d %s ago 🔥", mins, plural("min", mins))
	case hours < 24:
		return fmt.Sprintf("%d %s ago", hours, plural("hour", hours))
	default:
		return fmt.Sprintf("%d %s ago", days, plural("day", days))
	}
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("processor: unparseable timestamp %q", s)
}

func plural(unit string, n int) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}

// isFreshAge reports whether a rendered age string denotes a token under
// three hours old.
func isFreshAge(age string) bool {
	if strings.Contains(age, "min") {
		return true
	}
	if strings.Contains(age, "hour") {
		if n, err := strconv.Atoi(strings.Fields(age)[0]); err == nil {
			return n < 3
		}
	}
	return false
}

// RiskIndicator maps a launcher's follower count onto a traffic-light risk
// marker. Verified accounts short-circuit to the checkmark; an unparseable
// count is flagged rather than guessed at.
func RiskIndicator(followers string, verified bool) string {
	if verified {
		return "✅"
	}
	n, err := strconv.Atoi(strings.TrimSpace(followers))
	if err != nil {
		return "⚠️"
	}
	switch {
	case n > 10000:
		return "🟢"
	case n > 1000:
		return "🟡"
	case n > 100:
		return "🟠"
	default:
		return "🔴"
	}
}

// groupDigits renders n with comma thousands separators.
func groupDigits(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, digit := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// ParseDollar extracts the numeric value of a "$0.0000198" style display
// string. UnknownValue and malformed inputs report ok=false.
func ParseDollar(s string) (float64, bool) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	if s == "" || s == domain.UnknownValue {
		return 0, false
	}

	mult := 1.0
	switch {
	case strings.HasSuffix(s, "K"):
		mult, s = 1e3, strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		mult, s = 1e6, strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "B"):
		mult, s = 1e9, strings.TrimSuffix(s, "B")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v * mult, true
}

// FormatUSD renders a dollar figure compactly: full digits below 1K, then
// K/M/B suffixes.
func FormatUSD(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("$%.2fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("$%.2fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("$%.1fK", v/1e3)
	case v >= 1:
		return fmt.Sprintf("$%.2f", v)
	default:
		return fmt.Sprintf("$%.10g", v)
	}
}

// FormatAlert renders the token alert as Telegram HTML.
func FormatAlert(alert domain.TokenAlert, now time.Time) string {
	age := FormatTokenAge(alert.CreatedAt, now)
	fresh := isFreshAge(age)
	risk := RiskIndicator(strconv.Itoa(alert.TwitterInfo.FollowersCount), alert.TwitterInfo.IsBlueVerified)

	header := "🚀 TOKEN ALERT 🚀"
	if fresh {
		header = "🚀 🔥 FRESH TOKEN ALERT 🔥 🚀"
	}

	followers := alert.TwitterInfo.FollowersCount
	followersLine := groupDigits(followers)
	if followers > 1000 {
		followersLine += " 🔥"
	}

	name := alert.TwitterInfo.Name
	if name == "" {
		name = "N/A"
	}

	footer := "Always DYOR before investing!"
	if fresh {
		footer = "This token is very new! " + footer
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n\n", header)
	fmt.Fprintf(&b, "<b>💎 Token Info:</b>\n")
	fmt.Fprintf(&b, "  • <b>Name:</b> <b><i>%s</i></b>\n", alert.CoinName)
	fmt.Fprintf(&b, "  • <b>Ticker:</b> <code>%s</code>\n", alert.CoinTicker)
	fmt.Fprintf(&b, "  • <b>Created:</b> %s\n", age)
	fmt.Fprintf(&b, "  • <b>Price:</b> %s\n", alert.Price)
	fmt.Fprintf(&b, "  • <b>Market Cap:</b> %s\n\n", alert.MarketCap)
	fmt.Fprintf(&b, "<b>🐦 Twitter: %s</b>\n", risk)
	fmt.Fprintf(&b, "  • <b>Handle:</b> <a href=\"https://twitter.com/%s\">@%s</a>\n", alert.TwitterHandle, alert.TwitterHandle)
	fmt.Fprintf(&b, "  • <b>Name:</b> %s\n", name)
	fmt.Fprintf(&b, "  • <b>Followers:</b> %s\n\n", followersLine)
	fmt.Fprintf(&b, "<b>🔗 Links:</b>\n")
	fmt.Fprintf(&b, "  • <b>Believe:</b> <a href=\"https://believe.app/coin/%s\">View on Believe</a>\n", alert.CAAddress)
	fmt.Fprintf(&b, "  • <b>GMGN:</b> <a href=\"https://gmgn.ai/sol/token/%s\">View on GMGN Explorer</a>\n", alert.CAAddress)
	fmt.Fprintf(&b, "  • <b>Trojan:</b> <a href=\"https://t.me/solana_trojanbot?start=d-oxandrein-%s\">Security Analysis</a>\n\n", alert.CAAddress)
	fmt.Fprintf(&b, "<b>🔑 Contract Address:</b>\n<code>%s</code>\n\n", alert.CAAddress)
	fmt.Fprintf(&b, "<i>💡 %s</i>", footer)
	return b.String()
}

// AlertKeyboard builds the interactive button row attached to every alert.
func AlertKeyboard(caAddress string) *notify.InlineKeyboard {
	return &notify.InlineKeyboard{
		InlineKeyboard: [][]notify.InlineKeyboardButton{{
			{Text: "🔄 Refresh", CallbackData: ActionRefresh + ":" + caAddress},
			{Text: "🔍 Insight", CallbackData: ActionInsight + ":" + caAddress},
		}},
	}
}

// FormatInsight renders the insight analysis for a tracked token.
func FormatInsight(rec domain.TokenRecord, currentPrice, currentMC float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>🔍 Insight: %s (%s)</b>\n\n", rec.CoinName, rec.CoinTicker)

	fmt.Fprintf(&b, "<b>📈 Performance:</b>\n")
	fmt.Fprintf(&b, "  • <b>Entry Price:</b> %s\n", FormatUSD(rec.InitialPrice))
	fmt.Fprintf(&b, "  • <b>Current Price:</b> %s\n", FormatUSD(currentPrice))
	if rec.InitialPrice > 0 && currentPrice > 0 {
		change := (currentPrice - rec.InitialPrice) / rec.InitialPrice * 100
		arrow := "📈"
		if change < 0 {
			arrow = "📉"
		}
		fmt.Fprintf(&b, "  • <b>Change:</b> %s %+.2f%%\n", arrow, change)
	}
	fmt.Fprintf(&b, "  • <b>Entry MC:</b> %s\n", FormatUSD(rec.InitialMC))
	fmt.Fprintf(&b, "  • <b>Current MC:</b> %s\n\n", FormatUSD(currentMC))

	fmt.Fprintf(&b, "<b>🐦 Social:</b>\n")
	fmt.Fprintf(&b, "  • <b>Score:</b> %s\n", rec.TwitterInfo.Score)
	fmt.Fprintf(&b, "  • <b>Followers:</b> %s\n", groupDigits(rec.TwitterInfo.FollowersCount))
	fmt.Fprintf(&b, "  • <b>Fake Followers:</b> %s%%\n", rec.TwitterInfo.FakePercent)
	if len(rec.TwitterInfo.TopFollowers) > 0 {
		fmt.Fprintf(&b, "  • <b>Notable:</b> ")
		names := make([]string, 0, len(rec.TwitterInfo.TopFollowers))
		for _, f := range rec.TwitterInfo.TopFollowers {
			names = append(names, "@"+f.Twitter)
		}
		fmt.Fprintf(&b, "%s\n", strings.Join(names, ", "))
	}

	fmt.Fprintf(&b, "\n<b>🔑 Contract Address:</b>\n<code>%s</code>", rec.CAAddress)
	return b.String()
}

// Package domain defines the core types and store interfaces shared across
// the noti-believe services: discovery candidates, persisted token records,
// social snapshots, queue jobs, and the user/bet model for the HTTP API.
package domain

// UnknownValue is the sentinel rendered whenever a scraped or enriched field
// could not be resolved. Downstream formatting must never fail on it.
const UnknownValue = "Unknown"

// Candidate is a newly discovered token surfaced by the Axiom feed or the
// believesignal poll. It is ephemeral: either dropped by the dedup gate or
// serialized into a job payload.
type Candidate struct {
	TokenAddress string `json:"token_address"`
	PairAddress  string `json:"pair_address"`
	TokenName    string `json:"token_name"`
	TokenTicker  string `json:"token_ticker"`
	Protocol     string `json:"protocol"`
	CreatedAt    string `json:"created_at"`

	Website  string `json:"website,omitempty"`
	Twitter  string `json:"twitter,omitempty"`
	Telegram string `json:"telegram,omitempty"`

	Supply              float64 `json:"supply"`
	InitialLiquiditySol float64 `json:"initial_liquidity_sol"`
	DeployerAddress     string  `json:"deployer_address"`
}

// ScrapedToken is the result of the believe.app page scrape for a candidate.
// Any field that could not be extracted carries UnknownValue.
type ScrapedToken struct {
	TokenAddress string
	LaunchedBy   string
	CreatedAt    string
	MarketCap    string
	Price        string
}

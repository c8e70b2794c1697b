package domain

import "time"

// TokenRecord is the persisted snapshot of a token that has been alerted at
// least once. ca_address and pair_address are unique across records; rows
// are updated on refresh but never deleted by this subsystem.
type TokenRecord struct {
	ID            string         `json:"id"`
	CoinName      string         `json:"coin_name"`
	CoinTicker    string         `json:"coin_ticker"`
	CAAddress     string         `json:"ca_address"`
	PairAddress   string         `json:"pair_address"`
	TwitterHandle string         `json:"twitter_handler,omitempty"`
	Website       string         `json:"website,omitempty"`
	Price         float64        `json:"price"`
	InitialPrice  float64        `json:"initial_price"`
	MarketCap     float64        `json:"market_cap"`
	InitialMC     float64        `json:"initial_market_cap"`
	MessageID     int64          `json:"message_id,omitempty"`
	TwitterInfo   SocialSnapshot `json:"twitter_info"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// PairInfo is the pair/pool metadata slice of an enrichment result.
type PairInfo struct {
	PairAddress  string
	TokenAddress string
	TokenName    string
	TokenTicker  string
	Supply       float64
	Protocol     string
	Twitter      string
	Website      string
	CreatedAt    string
}

// TokenPrice is the latest-trade price slice of an enrichment result.
type TokenPrice struct {
	PairAddress string
	Type        string // "buy" or "sell"
	PriceSol    float64
	PriceUsd    float64
	CreatedAt   string
}

// Enrichment aggregates the independently fallible enrichment slices for a
// candidate. Nil slices mean the corresponding source was unavailable; the
// aggregate as a whole is always usable.
type Enrichment struct {
	Price     *TokenPrice
	Pair      *PairInfo
	Social    TwitterScore
	MarketCap float64
}

package domain

import "time"

// User is a wallet-authenticated API user. FreeTurns resets daily at
// midnight; PaidTurns are bought via packages and never reset.
type User struct {
	ID            string    `json:"id"`
	WalletAddress string    `json:"wallet_address"`
	Username      string    `json:"username,omitempty"`
	Balance       float64   `json:"balance"`
	FreeTurns     int       `json:"free_turns"`
	PaidTurns     int       `json:"paid_turns"`
	WinCount      int       `json:"win_count"`
	LossCount     int       `json:"loss_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Bet directions.
const (
	BetUp   = "up"
	BetDown = "down"
)

// Bet statuses.
const (
	BetPending = "pending"
	BetWon     = "won"
	BetLost    = "lost"
)

// Bet is an up/down wager on a token's market cap over a fixed window.
type Bet struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	CAAddress   string     `json:"ca_address"`
	Direction   string     `json:"direction"`
	Amount      float64    `json:"amount"`
	EntryMC     float64    `json:"entry_market_cap"`
	SettledMC   float64    `json:"settled_market_cap,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	SettledAt   *time.Time `json:"settled_at,omitempty"`
}

// LeaderboardEntry is one row of the win-count leaderboard.
type LeaderboardEntry struct {
	Rank          int     `json:"rank"`
	WalletAddress string  `json:"wallet_address"`
	Username      string  `json:"username,omitempty"`
	WinCount      int     `json:"win_count"`
	LossCount     int     `json:"loss_count"`
	Balance       float64 `json:"balance"`
}

package axiom

import "github.com/nvh2205/noti-believe/internal/domain"

// APIPairInfo is the pair-info response. Only the fields the pipeline uses
// are mapped; the upstream payload carries far more.
type APIPairInfo struct {
	PairAddress         string  `json:"pairAddress"`
	TokenAddress        string  `json:"tokenAddress"`
	TokenName           string  `json:"tokenName"`
	TokenTicker         string  `json:"tokenTicker"`
	Supply              float64 `json:"supply"`
	Protocol            string  `json:"protocol"`
	Twitter             string  `json:"twitter"`
	Website             string  `json:"website"`
	Telegram            string  `json:"telegram"`
	DeployerAddress     string  `json:"deployerAddress"`
	InitialLiquiditySol float64 `json:"initialLiquiditySol"`
	TokenDecimals       int     `json:"tokenDecimals"`
	OpenTrading         string  `json:"openTrading"`
	CreatedAt           string  `json:"createdAt"`
}

// ToDomain converts the API shape to the domain pair slice.
func (p *APIPairInfo) ToDomain() domain.PairInfo {
	return domain.PairInfo{
		PairAddress:  p.PairAddress,
		TokenAddress: p.TokenAddress,
		TokenName:    p.TokenName,
		TokenTicker:  p.TokenTicker,
		Supply:       p.Supply,
		Protocol:     p.Protocol,
		Twitter:      p.Twitter,
		Website:      p.Website,
		CreatedAt:    p.CreatedAt,
	}
}

// APITokenPrice is the last-transaction response.
type APITokenPrice struct {
	Signature   string  `json:"signature"`
	PairAddress string  `json:"pairAddress"`
	Type        string  `json:"type"`
	CreatedAt   string  `json:"createdAt"`
	PriceSol    float64 `json:"priceSol"`
	PriceUsd    float64 `json:"priceUsd"`
	TokenAmount float64 `json:"tokenAmount"`
	TotalUsd    float64 `json:"totalUsd"`
}

// ToDomain converts the API shape to the domain price slice.
func (p *APITokenPrice) ToDomain() domain.TokenPrice {
	return domain.TokenPrice{
		PairAddress: p.PairAddress,
		Type:        p.Type,
		PriceSol:    p.PriceSol,
		PriceUsd:    p.PriceUsd,
		CreatedAt:   p.CreatedAt,
	}
}

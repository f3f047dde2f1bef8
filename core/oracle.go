package core

import (
	"context"

	"github.com/shopspring/decimal"
)

type (
	// PriceFeed is the injected oracle collaborator. Implementations fail
	// when no live feed exists for the asset.
	PriceFeed interface {
		GetPrice(ctx context.Context, assetId string) (*Price, error)
	}

	Price struct {
		AssetId    string          `json:"assetId"`
		Price      decimal.Decimal `json:"price"`
		Confidence decimal.Decimal `json:"confidence"`
		UpdatedAt  int64           `json:"updatedAt"`
	}
)

// Validate rejects missing, non-positive, stale, or wide prices. maxAge is
// the bank-configured staleness bound in seconds.
func (p *Price) Validate(now int64, maxAge int64) error {
	if p == nil {
		return OracleError
	}
	if !p.Price.IsPositive() {
		return OracleError
	}
	if p.Confidence.IsNegative() || p.Confidence.GreaterThan(p.Price.Mul(MAX_CONF_INTERVAL)) {
		return OracleError
	}
	if now-p.UpdatedAt > maxAge {
		return OracleError
	}
	return nil
}

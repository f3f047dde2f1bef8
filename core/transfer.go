package core

import (
	"context"

	"github.com/gofrs/uuid"
)

// Transfer is the injected asset-movement collaborator. Moves are
// all-or-nothing within the host's atomic unit; the returned amount is
// what actually moved, and decimals is the asset's precision.
type Transfer interface {
	Transfer(ctx context.Context, assetId, from, to string, amount uint64) (transferred uint64, decimals int32, err error)
	Balance(ctx context.Context, assetId, account string) (uint64, error)
}

// TreasuryAccount names the custody account holding a bank's liquidity.
func TreasuryAccount(bankId uuid.UUID) string {
	return "treasury:" + bankId.String()
}

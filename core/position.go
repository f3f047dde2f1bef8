package core

import (
	"context"

	"github.com/facebookgo/clock"
	"github.com/gofrs/uuid"
	"github.com/openlend/core/utils"
)

type (
	PositionStore interface {
		CreatePosition(ctx context.Context, position *Position) error
		UpsertPosition(ctx context.Context, position *Position) error
		GetPositionById(ctx context.Context, positionId uuid.UUID) (*Position, error)
		GetPositionByOwner(ctx context.Context, owner string) (*Position, error)
	}

	// Position is one account's standing across every bank it has touched,
	// keyed by bank id rather than hardcoded per asset.
	Position struct {
		Id           uuid.UUID `json:"id"`
		Owner        string    `json:"owner"`
		QuoteAssetId string    `json:"quoteAssetId"`

		Balances map[uuid.UUID]*PositionBalance `json:"balances"`

		CreatedAt int64 `json:"createdAt"`
		UpdatedAt int64 `json:"updatedAt"`
	}

	PositionBalance struct {
		BankId uuid.UUID `json:"bankId"`

		Deposited     uint64 `json:"deposited"`
		DepositShares uint64 `json:"depositShares"`
		Borrowed      uint64 `json:"borrowed"`
		BorrowShares  uint64 `json:"borrowShares"`

		LastUpdate       int64 `json:"lastUpdate"`
		LastUpdateBorrow int64 `json:"lastUpdateBorrow"`
	}
)

func NewPosition(clk clock.Clock, owner string, quoteAssetId string) *Position {
	return &Position{
		Id:           utils.DeriveUuid(owner),
		Owner:        owner,
		QuoteAssetId: quoteAssetId,
		Balances:     make(map[uuid.UUID]*PositionBalance),
		CreatedAt:    clk.Now().Unix(),
		UpdatedAt:    clk.Now().Unix(),
	}
}

// Balance returns the per-bank entry, creating an empty one on first use.
func (p *Position) Balance(bankId uuid.UUID) *PositionBalance {
	if p.Balances == nil {
		p.Balances = make(map[uuid.UUID]*PositionBalance)
	}
	if b, ok := p.Balances[bankId]; ok {
		return b
	}
	b := &PositionBalance{BankId: bankId}
	p.Balances[bankId] = b
	return b
}

func (p *Position) Clone() *Position {
	c := *p
	c.Balances = make(map[uuid.UUID]*PositionBalance, len(p.Balances))
	for id, b := range p.Balances {
		cb := *b
		c.Balances[id] = &cb
	}
	return &c
}

// TotalDepositShares is the live voting power: the sum of deposit shares
// across all banks at the moment of the call, not a snapshot.
func (p *Position) TotalDepositShares() (uint64, error) {
	var total uint64
	for _, b := range p.Balances {
		t, err := CheckedAdd(total, b.DepositShares)
		if err != nil {
			return 0, err
		}
		total = t
	}
	return total, nil
}

func (p *Position) IsEmpty() bool {
	for _, b := range p.Balances {
		if b.Deposited != 0 || b.DepositShares != 0 || b.Borrowed != 0 || b.BorrowShares != 0 {
			return false
		}
	}
	return true
}

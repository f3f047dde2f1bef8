package core

import (
	"context"

	"github.com/facebookgo/clock"
	"github.com/gofrs/uuid"
)

type (
	FlashLoanStore interface {
		CreateFlashLoan(ctx context.Context, loan *FlashLoan) error
		GetFlashLoan(ctx context.Context, bankId uuid.UUID, borrower string) (*FlashLoan, error)
		DeleteFlashLoan(ctx context.Context, bankId uuid.UUID, borrower string) error
	}

	// FlashLoan is an uncollateralized loan that must be repaid with fee
	// inside the same accrual unit it was taken in. At most one can be
	// active per bank and borrower.
	FlashLoan struct {
		Borrower  string    `json:"borrower"`
		BankId    uuid.UUID `json:"bankId"`
		AssetId   string    `json:"assetId"`
		Amount    uint64    `json:"amount"`
		Fee       uint64    `json:"fee"`
		IsActive  bool      `json:"isActive"`
		CreatedAt int64     `json:"createdAt"`
	}
)

func NewFlashLoan(clk clock.Clock, bank *Bank, borrower string, amount uint64) (*FlashLoan, error) {
	fee, err := MulDivFloor(amount, bank.FlashLoanFee, BASIS_POINTS)
	if err != nil {
		return nil, err
	}
	return &FlashLoan{
		Borrower:  borrower,
		BankId:    bank.Id,
		AssetId:   bank.AssetId,
		Amount:    amount,
		Fee:       fee,
		IsActive:  true,
		CreatedAt: clk.Now().Unix(),
	}, nil
}

func (f *FlashLoan) TotalRepayment() (uint64, error) {
	return CheckedAdd(f.Amount, f.Fee)
}

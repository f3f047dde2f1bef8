package core

import (
	"github.com/facebookgo/clock"
)

// BankAccountWrapper pairs one bank with one position's balance in that
// bank and carries the share bookkeeping for every principal-changing
// operation. Interest must already be accrued on the bank before any of
// these run; the wrapper never touches the clock for accrual itself.
type BankAccountWrapper struct {
	clk clock.Clock

	Bank     *Bank
	Position *Position
	Balance  *PositionBalance
}

func NewBankAccountWrapper(clk clock.Clock, bank *Bank, position *Position) *BankAccountWrapper {
	return &BankAccountWrapper{
		clk:      clk,
		Bank:     bank,
		Position: position,
		Balance:  position.Balance(bank.Id),
	}
}

// Deposit mints deposit shares at the current exchange rate and moves
// user and pool totals up symmetrically.
func (ba *BankAccountWrapper) Deposit(log Log, amount uint64) error {
	shares, err := ba.Bank.DepositSharesForAmount(amount)
	if err != nil {
		return err
	}

	deposited, err := CheckedAdd(ba.Balance.Deposited, amount)
	if err != nil {
		return err
	}
	depositShares, err := CheckedAdd(ba.Balance.DepositShares, shares)
	if err != nil {
		return err
	}
	totalDeposits, err := CheckedAdd(ba.Bank.TotalDeposits, amount)
	if err != nil {
		return err
	}
	totalShares, err := CheckedAdd(ba.Bank.TotalDepositShares, shares)
	if err != nil {
		return err
	}

	ba.Balance.Deposited = deposited
	ba.Balance.DepositShares = depositShares
	ba.Balance.LastUpdate = ba.clk.Now().Unix()
	ba.Bank.TotalDeposits = totalDeposits
	ba.Bank.TotalDepositShares = totalShares

	log.Debug().
		Str("bank", ba.Bank.Name).
		Uint64("amount", amount).
		Uint64("shares", shares).
		Msg("deposit")

	return nil
}

// Withdraw burns shares for the requested amount. Two caps apply: the
// user's recorded deposited amount, and the interest-aware value of their
// shares under the current exchange rate.
func (ba *BankAccountWrapper) Withdraw(log Log, amount uint64) error {
	if amount > ba.Balance.Deposited {
		return InsufficientFunds
	}
	currentValue, err := ba.Bank.AmountForDepositShares(ba.Balance.DepositShares)
	if err != nil {
		return err
	}
	if amount > currentValue {
		return InsufficientFunds
	}

	shares, err := ba.Bank.DepositSharesToBurn(amount)
	if err != nil {
		return err
	}

	deposited, err := CheckedSub(ba.Balance.Deposited, amount)
	if err != nil {
		return err
	}
	depositShares, err := CheckedSub(ba.Balance.DepositShares, shares)
	if err != nil {
		return err
	}
	totalDeposits, err := CheckedSub(ba.Bank.TotalDeposits, amount)
	if err != nil {
		return err
	}
	totalShares, err := CheckedSub(ba.Bank.TotalDepositShares, shares)
	if err != nil {
		return err
	}

	ba.Balance.Deposited = deposited
	ba.Balance.DepositShares = depositShares
	ba.Balance.LastUpdate = ba.clk.Now().Unix()
	ba.Bank.TotalDeposits = totalDeposits
	ba.Bank.TotalDepositShares = totalShares

	log.Debug().
		Str("bank", ba.Bank.Name).
		Uint64("amount", amount).
		Uint64("shares", shares).
		Msg("withdraw")

	return nil
}

// Borrow mints borrow shares symmetrically to deposit mechanics. The
// collateral check happens upstream, where oracle prices are in scope.
func (ba *BankAccountWrapper) Borrow(log Log, amount uint64) error {
	shares, err := ba.Bank.BorrowSharesForAmount(amount)
	if err != nil {
		return err
	}

	borrowed, err := CheckedAdd(ba.Balance.Borrowed, amount)
	if err != nil {
		return err
	}
	borrowShares, err := CheckedAdd(ba.Balance.BorrowShares, shares)
	if err != nil {
		return err
	}
	totalBorrowed, err := CheckedAdd(ba.Bank.TotalBorrowed, amount)
	if err != nil {
		return err
	}
	totalShares, err := CheckedAdd(ba.Bank.TotalBorrowShares, shares)
	if err != nil {
		return err
	}

	ba.Balance.Borrowed = borrowed
	ba.Balance.BorrowShares = borrowShares
	ba.Balance.LastUpdateBorrow = ba.clk.Now().Unix()
	ba.Bank.TotalBorrowed = totalBorrowed
	ba.Bank.TotalBorrowShares = totalShares

	log.Debug().
		Str("bank", ba.Bank.Name).
		Uint64("amount", amount).
		Uint64("shares", shares).
		Msg("borrow")

	return nil
}

// OwedAmount is the user's accrued debt in asset units.
func (ba *BankAccountWrapper) OwedAmount() (uint64, error) {
	return ba.Bank.AmountForBorrowShares(ba.Balance.BorrowShares)
}

// Repay burns borrow shares for the repaid amount and moves user and pool
// totals down symmetrically. Repaying more than the accrued owed balance
// fails OverRepay.
func (ba *BankAccountWrapper) Repay(log Log, amount uint64) error {
	owed, err := ba.OwedAmount()
	if err != nil {
		return err
	}
	if amount > owed {
		return OverRepay
	}

	shares, err := ba.Bank.RepaySharesForAmount(amount)
	if err != nil {
		return err
	}

	// The recorded principal can be smaller than the accrued owed amount;
	// a repayment covering accrued interest clears principal first.
	principal := ba.Balance.Borrowed
	if amount < principal {
		principal -= amount
	} else {
		principal = 0
	}

	borrowShares, err := CheckedSub(ba.Balance.BorrowShares, shares)
	if err != nil {
		return err
	}
	totalBorrowed, err := CheckedSub(ba.Bank.TotalBorrowed, amount)
	if err != nil {
		return err
	}
	totalShares, err := CheckedSub(ba.Bank.TotalBorrowShares, shares)
	if err != nil {
		return err
	}

	ba.Balance.Borrowed = principal
	ba.Balance.BorrowShares = borrowShares
	ba.Balance.LastUpdateBorrow = ba.clk.Now().Unix()
	ba.Bank.TotalBorrowed = totalBorrowed
	ba.Bank.TotalBorrowShares = totalShares

	log.Debug().
		Str("bank", ba.Bank.Name).
		Uint64("amount", amount).
		Uint64("shares", shares).
		Msg("repay")

	return nil
}

// DepositValue is the interest-aware value of the user's deposit shares.
func (ba *BankAccountWrapper) DepositValue() (uint64, error) {
	return ba.Bank.AmountForDepositShares(ba.Balance.DepositShares)
}

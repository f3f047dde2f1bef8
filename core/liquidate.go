package core

import (
	"github.com/shopspring/decimal"
)

type LiquidateResult struct {
	CollateralBank *Bank  `json:"collateralBank"`
	DebtBank       *Bank  `json:"debtBank"`
	Borrower       string `json:"borrower"`

	HealthFactor decimal.Decimal `json:"healthFactor"`

	// LiquidationAmount is repaid by the liquidator in debt-asset units;
	// LiquidatorReward is seized for them in collateral-asset units.
	LiquidationAmount uint64 `json:"liquidationAmount"`
	LiquidatorReward  uint64 `json:"liquidatorReward"`

	RepaidShares uint64 `json:"repaidShares"`
	SeizedShares uint64 `json:"seizedShares"`
}

// ComputeHealthFactor is (collateral_value * threshold_bps) /
// (debt_value * 100). Callers must short-circuit zero debt to
// "never liquidatable" before dividing.
func ComputeHealthFactor(collateralValue, debtValue decimal.Decimal, liquidationThreshold uint64) decimal.Decimal {
	return collateralValue.
		Mul(decimal.NewFromUint64(liquidationThreshold)).
		Div(debtValue.Mul(decimal.NewFromInt(100)))
}

// PrepareLiquidation sizes a partial liquidation of the borrower's debt
// in debtBank against their collateral in collateralBank. Both banks must
// be accrued and both prices validated before calling. The repayment is
// capped by the debt bank's close factor; the reward carries the
// collateral bank's liquidation bonus.
func PrepareLiquidation(collateralBank, debtBank *Bank, borrower *Position, priceCollateral, priceDebt decimal.Decimal) (*LiquidateResult, error) {
	collateralBalance := borrower.Balance(collateralBank.Id)
	debtBalance := borrower.Balance(debtBank.Id)

	collateralAmount, err := collateralBank.AmountForDepositShares(collateralBalance.DepositShares)
	if err != nil {
		return nil, err
	}
	debtAmount, err := debtBank.AmountForBorrowShares(debtBalance.BorrowShares)
	if err != nil {
		return nil, err
	}

	collateralValue := priceCollateral.Mul(decimal.NewFromUint64(collateralAmount))
	debtValue := priceDebt.Mul(decimal.NewFromUint64(debtAmount))

	if debtValue.IsZero() {
		return nil, HealthFactorAboveOne
	}

	healthFactor := ComputeHealthFactor(collateralValue, debtValue, collateralBank.LiquidationThreshold)
	if !healthFactor.LessThan(decimal.New(1, 0)) {
		return nil, HealthFactorAboveOne
	}

	basisPoints := decimal.NewFromInt(BASIS_POINTS)

	liquidationValue := debtValue.
		Mul(decimal.NewFromUint64(debtBank.LiquidationCloseFactor)).
		Div(basisPoints)
	liquidationAmount, err := DecimalToUint64(liquidationValue.Div(priceDebt).Floor())
	if err != nil {
		return nil, err
	}
	if liquidationAmount == 0 {
		return nil, IllegalLiquidation
	}

	// Reward tracks the value actually repaid, not the pre-floor target,
	// so flooring into debt units never inflates the seizure.
	repaidValue := decimal.NewFromUint64(liquidationAmount).Mul(priceDebt)
	rewardValue := repaidValue.
		Mul(decimal.NewFromUint64(BASIS_POINTS + collateralBank.LiquidationBonus)).
		Div(basisPoints)
	liquidatorReward, err := DecimalToUint64(rewardValue.Div(priceCollateral).Floor())
	if err != nil {
		return nil, err
	}

	repaidShares, err := debtBank.RepaySharesForAmount(liquidationAmount)
	if err != nil {
		return nil, err
	}
	seizedShares, err := collateralBank.DepositSharesToBurn(liquidatorReward)
	if err != nil {
		return nil, err
	}

	return &LiquidateResult{
		CollateralBank:    collateralBank,
		DebtBank:          debtBank,
		Borrower:          borrower.Owner,
		HealthFactor:      healthFactor,
		LiquidationAmount: liquidationAmount,
		LiquidatorReward:  liquidatorReward,
		RepaidShares:      repaidShares,
		SeizedShares:      seizedShares,
	}, nil
}

// ApplyLiquidation commits the prepared seizure to the borrower's
// position and both banks. Underflow here is an invariant violation, not
// a user error: the prepared amounts were derived from these very
// balances.
func ApplyLiquidation(res *LiquidateResult, borrower *Position) error {
	collateralBalance := borrower.Balance(res.CollateralBank.Id)
	debtBalance := borrower.Balance(res.DebtBank.Id)

	borrowShares, err := CheckedSub(debtBalance.BorrowShares, res.RepaidShares)
	if err != nil {
		return err
	}
	depositShares, err := CheckedSub(collateralBalance.DepositShares, res.SeizedShares)
	if err != nil {
		return err
	}
	totalBorrowed, err := CheckedSub(res.DebtBank.TotalBorrowed, res.LiquidationAmount)
	if err != nil {
		return err
	}
	totalBorrowShares, err := CheckedSub(res.DebtBank.TotalBorrowShares, res.RepaidShares)
	if err != nil {
		return err
	}
	totalDeposits, err := CheckedSub(res.CollateralBank.TotalDeposits, res.LiquidatorReward)
	if err != nil {
		return err
	}
	totalDepositShares, err := CheckedSub(res.CollateralBank.TotalDepositShares, res.SeizedShares)
	if err != nil {
		return err
	}

	debtBalance.BorrowShares = borrowShares
	debtBalance.Borrowed = clearPrincipal(debtBalance.Borrowed, res.LiquidationAmount)
	collateralBalance.DepositShares = depositShares
	collateralBalance.Deposited = clearPrincipal(collateralBalance.Deposited, res.LiquidatorReward)

	res.DebtBank.TotalBorrowed = totalBorrowed
	res.DebtBank.TotalBorrowShares = totalBorrowShares
	res.CollateralBank.TotalDeposits = totalDeposits
	res.CollateralBank.TotalDepositShares = totalDepositShares

	// Utilization moved on both pools; the same-instant accrual that
	// follows is a no-op by construction, so the cached rates are
	// refreshed directly.
	if err := res.DebtBank.RefreshRates(); err != nil {
		return err
	}
	return res.CollateralBank.RefreshRates()
}

// clearPrincipal reduces a recorded principal by an accrued amount that
// may exceed it; interest accrues into share value, not into principal.
func clearPrincipal(principal, amount uint64) uint64 {
	if amount >= principal {
		return 0
	}
	return principal - amount
}

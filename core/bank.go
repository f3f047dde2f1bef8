package core

import (
	"context"
	"time"

	"github.com/facebookgo/clock"
	"github.com/gofrs/uuid"
	"github.com/openlend/core/utils"
	"github.com/shopspring/decimal"
)

type (
	BankStore interface {
		CreateBank(ctx context.Context, bank *Bank) error
		UpdateBank(ctx context.Context, bankId uuid.UUID, bank *Bank) error
		GetBankById(ctx context.Context, bankId uuid.UUID) (*Bank, error)
		GetBankByAssetId(ctx context.Context, assetId string) (*Bank, error)
		ListBanks(ctx context.Context) ([]*Bank, error)
	}

	// Bank is the per-asset pool ledger: aggregate deposits and borrows
	// together with the share supplies that apportion them, plus the risk
	// and rate parameters governance controls.
	Bank struct {
		Id        uuid.UUID `json:"id"`
		Authority string    `json:"authority"`
		AssetId   string    `json:"assetId"`
		Name      string    `json:"name"`

		TotalDeposits      uint64 `json:"totalDeposits"`
		TotalDepositShares uint64 `json:"totalDepositShares"`
		TotalBorrowed      uint64 `json:"totalBorrowed"`
		TotalBorrowShares  uint64 `json:"totalBorrowShares"`

		RiskConfig `json:"riskConfig"`
		RateConfig `json:"rateConfig"`

		CurrentBorrowRate uint64 `json:"currentBorrowRate"`
		CurrentSupplyRate uint64 `json:"currentSupplyRate"`

		Paused bool `json:"paused"`

		CreatedAt  int64 `json:"createdAt"`
		LastUpdate int64 `json:"lastUpdate"`
	}

	RiskConfig struct {
		LiquidationThreshold   uint64 `json:"liquidationThreshold"`
		LiquidationBonus       uint64 `json:"liquidationBonus"`
		LiquidationCloseFactor uint64 `json:"liquidationCloseFactor"`
		MaxLtv                 uint64 `json:"maxLtv"`
		FlashLoanFee           uint64 `json:"flashLoanFee"`
		OracleMaxAge           int64  `json:"oracleMaxAge"`
	}
)

func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		LiquidationThreshold:   BASIS_POINTS,
		LiquidationBonus:       DEFAULT_LIQUIDATION_BONUS,
		LiquidationCloseFactor: DEFAULT_LIQUIDATION_CLOSE_FACTOR,
		MaxLtv:                 DEFAULT_KINK_UTILIZATION,
		FlashLoanFee:           DEFAULT_FLASH_LOAN_FEE,
		OracleMaxAge:           DEFAULT_ORACLE_MAX_AGE,
	}
}

func (rc *RiskConfig) Validate() error {
	if rc.LiquidationThreshold == 0 || rc.LiquidationThreshold > BASIS_POINTS {
		return InvalidConfig
	}
	if rc.MaxLtv >= rc.LiquidationThreshold {
		return InvalidConfig
	}
	if rc.LiquidationCloseFactor > BASIS_POINTS {
		return InvalidConfig
	}
	if rc.LiquidationBonus > BASIS_POINTS {
		return InvalidConfig
	}
	if rc.OracleMaxAge <= 0 {
		return InvalidConfig
	}
	return nil
}

// Update copies non-zero fields, keeping the rest.
func (rc *RiskConfig) Update(o *RiskConfig) {
	if o.LiquidationThreshold != 0 {
		rc.LiquidationThreshold = o.LiquidationThreshold
	}
	if o.LiquidationBonus != 0 {
		rc.LiquidationBonus = o.LiquidationBonus
	}
	if o.LiquidationCloseFactor != 0 {
		rc.LiquidationCloseFactor = o.LiquidationCloseFactor
	}
	if o.MaxLtv != 0 {
		rc.MaxLtv = o.MaxLtv
	}
	if o.FlashLoanFee != 0 {
		rc.FlashLoanFee = o.FlashLoanFee
	}
	if o.OracleMaxAge != 0 {
		rc.OracleMaxAge = o.OracleMaxAge
	}
}

func NewBank(clk clock.Clock, authority, assetId, name string, riskConfig RiskConfig, rateConfig RateConfig) *Bank {
	return NewBankWithCreateTime(authority, assetId, name, riskConfig, rateConfig, clk.Now())
}

func NewBankWithCreateTime(authority, assetId, name string, riskConfig RiskConfig, rateConfig RateConfig, createTime time.Time) *Bank {
	return &Bank{
		Id:                utils.DeriveUuid(assetId),
		Authority:         authority,
		AssetId:           assetId,
		Name:              name,
		RiskConfig:        riskConfig,
		RateConfig:        rateConfig,
		CurrentBorrowRate: rateConfig.BaseRate,
		CurrentSupplyRate: 0,
		CreatedAt:         createTime.Unix(),
		LastUpdate:        createTime.Unix(),
	}
}

func (b *Bank) Clone() *Bank {
	c := *b
	return &c
}

func (b *Bank) UtilizationRate() (uint64, error) {
	return UtilizationRate(b.TotalBorrowed, b.TotalDeposits)
}

// AccrueInterest rolls the pool totals forward to now under continuous
// compounding. A zero or negative delta is a no-op, so a clock regression
// or a second call within the same atomic unit cannot double-accrue.
// Rates are recomputed from the pre-accrual totals and cached.
func (b *Bank) AccrueInterest(log Log, now int64) error {
	if b.Paused {
		return nil
	}
	timeDelta := now - b.LastUpdate
	if timeDelta <= 0 {
		return nil
	}

	if err := b.RefreshRates(); err != nil {
		return err
	}

	borrowed, err := ApplyFactor(b.TotalBorrowed, CompoundFactor(b.CurrentBorrowRate, timeDelta))
	if err != nil {
		return err
	}
	deposits, err := ApplyFactor(b.TotalDeposits, CompoundFactor(b.CurrentSupplyRate, timeDelta))
	if err != nil {
		return err
	}

	log.Debug().
		Str("bank", b.Name).
		Int64("dt", timeDelta).
		Uint64("borrowRate", b.CurrentBorrowRate).
		Uint64("supplyRate", b.CurrentSupplyRate).
		Uint64("totalBorrowed", borrowed).
		Uint64("totalDeposits", deposits).
		Msg("interest accrued")

	b.TotalBorrowed = borrowed
	b.TotalDeposits = deposits
	b.LastUpdate = now

	return nil
}

// RefreshRates recomputes the cached rates from current utilization
// without touching the totals. Used by accrual and by operations that
// change principal at an instant accrual already covered.
func (b *Bank) RefreshRates() error {
	utilization, err := b.UtilizationRate()
	if err != nil {
		return err
	}
	borrowRate, err := b.RateConfig.BorrowRate(utilization)
	if err != nil {
		return err
	}
	supplyRate, err := b.RateConfig.SupplyRate(utilization)
	if err != nil {
		return err
	}
	b.CurrentBorrowRate = borrowRate
	b.CurrentSupplyRate = supplyRate
	return nil
}

// Pause freezes the bank after one final accrual. Cached rates zero out
// and further accrual is a no-op until Resume.
func (b *Bank) Pause(log Log, now int64) error {
	if err := b.AccrueInterest(log, now); err != nil {
		return err
	}
	b.Paused = true
	b.CurrentBorrowRate = 0
	b.CurrentSupplyRate = 0
	return nil
}

// Resume recomputes the cached rates and restamps the accrual clock so
// the paused window never compounds.
func (b *Bank) Resume(now int64) error {
	b.Paused = false
	if err := b.RefreshRates(); err != nil {
		return err
	}
	b.LastUpdate = now
	return nil
}

// ------------ share conversions

// DepositSharesForAmount prices a deposit in shares. The first deposit
// into an empty pool mints shares one-for-one, pinning the initial
// exchange rate at 1.
func (b *Bank) DepositSharesForAmount(amount uint64) (uint64, error) {
	if b.TotalDeposits == 0 || b.TotalDepositShares == 0 {
		return amount, nil
	}
	return MulDivFloor(amount, b.TotalDepositShares, b.TotalDeposits)
}

func (b *Bank) AmountForDepositShares(shares uint64) (uint64, error) {
	if b.TotalDepositShares == 0 {
		return 0, nil
	}
	return MulDivFloor(shares, b.TotalDeposits, b.TotalDepositShares)
}

// DepositSharesToBurn converts a withdrawal amount into shares at the
// current exchange rate.
func (b *Bank) DepositSharesToBurn(amount uint64) (uint64, error) {
	if b.TotalDeposits == 0 {
		return 0, InsufficientFunds
	}
	return MulDivFloor(amount, b.TotalDepositShares, b.TotalDeposits)
}

func (b *Bank) BorrowSharesForAmount(amount uint64) (uint64, error) {
	if b.TotalBorrowed == 0 || b.TotalBorrowShares == 0 {
		return amount, nil
	}
	return MulDivFloor(amount, b.TotalBorrowShares, b.TotalBorrowed)
}

func (b *Bank) AmountForBorrowShares(shares uint64) (uint64, error) {
	if b.TotalBorrowShares == 0 {
		return 0, nil
	}
	return MulDivFloor(shares, b.TotalBorrowed, b.TotalBorrowShares)
}

func (b *Bank) RepaySharesForAmount(amount uint64) (uint64, error) {
	if b.TotalBorrowed == 0 {
		return 0, OverRepay
	}
	return MulDivFloor(amount, b.TotalBorrowShares, b.TotalBorrowed)
}

// DepositExchangeRate is total deposits over deposit shares, 1 for an
// empty pool. Monotonically non-decreasing across pure accrual.
func (b *Bank) DepositExchangeRate() decimal.Decimal {
	if b.TotalDepositShares == 0 {
		return decimal.New(1, 0)
	}
	return decimal.NewFromUint64(b.TotalDeposits).Div(decimal.NewFromUint64(b.TotalDepositShares))
}

func (b *Bank) BorrowExchangeRate() decimal.Decimal {
	if b.TotalBorrowShares == 0 {
		return decimal.New(1, 0)
	}
	return decimal.NewFromUint64(b.TotalBorrowed).Div(decimal.NewFromUint64(b.TotalBorrowShares))
}

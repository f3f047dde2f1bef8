package core

import (
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBank(t *testing.T) (*Bank, *clock.Mock) {
	t.Helper()
	clk := clock.NewMock()
	clk.Add(1_700_000_000 * time.Second)
	bank := NewBank(clk, "admin", "btc-asset", "BTC", DefaultRiskConfig(), DefaultRateConfig())
	return bank, clk
}

func TestNewBankDerivedId(t *testing.T) {
	bank, clk := newTestBank(t)
	again := NewBank(clk, "admin", "btc-asset", "BTC", DefaultRiskConfig(), DefaultRateConfig())

	assert.Equal(t, bank.Id, again.Id)
	assert.Equal(t, bank.BaseRate, bank.CurrentBorrowRate)
	assert.Equal(t, uint64(0), bank.CurrentSupplyRate)
}

func TestDepositSharesBootstrap(t *testing.T) {
	bank, _ := newTestBank(t)

	shares, err := bank.DepositSharesForAmount(1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), shares)

	bank.TotalDeposits = 1000
	bank.TotalDepositShares = 1000

	shares, err = bank.DepositSharesForAmount(500)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), shares)
}

func TestDepositSharesAfterAccrual(t *testing.T) {
	bank, _ := newTestBank(t)
	bank.TotalDeposits = 1100
	bank.TotalDepositShares = 1000

	// Exchange rate 1.1: a 550 deposit mints 500 shares.
	shares, err := bank.DepositSharesForAmount(550)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), shares)

	amount, err := bank.AmountForDepositShares(500)
	require.NoError(t, err)
	assert.Equal(t, uint64(550), amount)
}

func TestDepositSharesToBurnEmptyPool(t *testing.T) {
	bank, _ := newTestBank(t)
	_, err := bank.DepositSharesToBurn(100)
	assert.ErrorIs(t, err, InsufficientFunds)
}

func TestRepaySharesEmptyPool(t *testing.T) {
	bank, _ := newTestBank(t)
	_, err := bank.RepaySharesForAmount(100)
	assert.ErrorIs(t, err, OverRepay)
}

func TestAccrueInterestGrowsBothSides(t *testing.T) {
	bank, clk := newTestBank(t)
	bank.TotalDeposits = 1_000_000
	bank.TotalDepositShares = 1_000_000
	bank.TotalBorrowed = 500_000
	bank.TotalBorrowShares = 500_000

	clk.Add(365 * 24 * time.Hour)
	require.NoError(t, bank.AccrueInterest(testLog(), clk.Now().Unix()))

	assert.Greater(t, bank.TotalBorrowed, uint64(500_000))
	assert.Greater(t, bank.TotalDeposits, uint64(1_000_000))

	// Depositor interest cannot exceed borrower interest plus reserves.
	borrowerInterest := bank.TotalBorrowed - 500_000
	depositorInterest := bank.TotalDeposits - 1_000_000
	assert.LessOrEqual(t, depositorInterest, borrowerInterest)

	// Rates were recomputed from the pre-accrual utilization of 50%.
	assert.Equal(t, uint64(450), bank.CurrentBorrowRate)
	assert.Equal(t, bank.LastUpdate, clk.Now().Unix())
}

func TestAccrueInterestIdempotentAtSameInstant(t *testing.T) {
	bank, clk := newTestBank(t)
	bank.TotalDeposits = 1_000_000
	bank.TotalDepositShares = 1_000_000
	bank.TotalBorrowed = 800_000
	bank.TotalBorrowShares = 800_000

	clk.Add(time.Hour)
	now := clk.Now().Unix()
	require.NoError(t, bank.AccrueInterest(testLog(), now))

	snapshot := *bank
	require.NoError(t, bank.AccrueInterest(testLog(), now))
	assert.Equal(t, snapshot, *bank)

	// A clock regression is also a no-op.
	require.NoError(t, bank.AccrueInterest(testLog(), now-100))
	assert.Equal(t, snapshot, *bank)
}

func TestDepositExchangeRateMonotonic(t *testing.T) {
	bank, clk := newTestBank(t)
	bank.TotalDeposits = 1_000_000
	bank.TotalDepositShares = 1_000_000
	bank.TotalBorrowed = 900_000
	bank.TotalBorrowShares = 900_000

	rate := bank.DepositExchangeRate()
	for i := 0; i < 10; i++ {
		clk.Add(30 * 24 * time.Hour)
		require.NoError(t, bank.AccrueInterest(testLog(), clk.Now().Unix()))
		next := bank.DepositExchangeRate()
		assert.True(t, next.GreaterThanOrEqual(rate), "rate fell from %s to %s", rate, next)
		rate = next
	}
}

func TestPauseAndResume(t *testing.T) {
	bank, clk := newTestBank(t)
	bank.TotalDeposits = 1_000_000
	bank.TotalDepositShares = 1_000_000
	bank.TotalBorrowed = 500_000
	bank.TotalBorrowShares = 500_000

	clk.Add(time.Hour)
	require.NoError(t, bank.Pause(testLog(), clk.Now().Unix()))
	assert.Equal(t, uint64(0), bank.CurrentBorrowRate)
	assert.Equal(t, uint64(0), bank.CurrentSupplyRate)

	// Nothing compounds while paused.
	pausedBorrowed := bank.TotalBorrowed
	clk.Add(48 * time.Hour)
	require.NoError(t, bank.AccrueInterest(testLog(), clk.Now().Unix()))
	assert.Equal(t, pausedBorrowed, bank.TotalBorrowed)
	assert.Equal(t, uint64(0), bank.CurrentBorrowRate)
	assert.True(t, bank.Paused)

	clk.Add(time.Hour)
	require.NoError(t, bank.Resume(clk.Now().Unix()))
	assert.Equal(t, uint64(450), bank.CurrentBorrowRate)
	assert.Equal(t, clk.Now().Unix(), bank.LastUpdate)
}

func TestRiskConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RiskConfig)
		err    error
	}{
		{name: "defaults pass", mutate: func(*RiskConfig) {}},
		{name: "zero threshold", mutate: func(rc *RiskConfig) { rc.LiquidationThreshold = 0 }, err: InvalidConfig},
		{name: "ltv above threshold", mutate: func(rc *RiskConfig) { rc.MaxLtv = rc.LiquidationThreshold }, err: InvalidConfig},
		{name: "close factor too large", mutate: func(rc *RiskConfig) { rc.LiquidationCloseFactor = BASIS_POINTS + 1 }, err: InvalidConfig},
		{name: "bonus too large", mutate: func(rc *RiskConfig) { rc.LiquidationBonus = BASIS_POINTS + 1 }, err: InvalidConfig},
		{name: "zero oracle age", mutate: func(rc *RiskConfig) { rc.OracleMaxAge = 0 }, err: InvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultRiskConfig()
			tt.mutate(&cfg)
			if tt.err != nil {
				assert.ErrorIs(t, cfg.Validate(), tt.err)
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUtilizationRate(t *testing.T) {
	tests := []struct {
		name          string
		totalBorrowed uint64
		totalDeposits uint64
		expected      uint64
	}{
		{name: "empty pool", totalBorrowed: 0, totalDeposits: 0, expected: 0},
		{name: "idle pool", totalBorrowed: 0, totalDeposits: 1000, expected: 0},
		{name: "half borrowed", totalBorrowed: 500, totalDeposits: 1000, expected: 5000},
		{name: "fully borrowed", totalBorrowed: 1000, totalDeposits: 1000, expected: 10000},
		{name: "floors", totalBorrowed: 1, totalDeposits: 3, expected: 3333},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UtilizationRate(tt.totalBorrowed, tt.totalDeposits)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestBorrowRateKinkModel(t *testing.T) {
	rc := RateConfig{
		BaseRate:        200,
		Multiplier:      500,
		JumpMultiplier:  5000,
		KinkUtilization: 8000,
		ReserveFactor:   1000,
	}

	tests := []struct {
		name        string
		utilization uint64
		expected    uint64
	}{
		{name: "idle", utilization: 0, expected: 200},
		{name: "below kink", utilization: 4000, expected: 400},
		{name: "at kink", utilization: 8000, expected: 600},
		{name: "above kink", utilization: 9000, expected: 1100},
		{name: "fully utilized", utilization: 10000, expected: 1600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rc.BorrowRate(tt.utilization)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestSupplyRate(t *testing.T) {
	rc := RateConfig{
		BaseRate:        200,
		Multiplier:      500,
		JumpMultiplier:  5000,
		KinkUtilization: 8000,
		ReserveFactor:   1000,
	}

	// borrow rate 1100 at 90% utilization, net of 10% reserves, then
	// scaled by utilization: 1100 * 9000/10000 = 990, 990 * 9000/10000 = 891.
	got, err := rc.SupplyRate(9000)
	assert.NoError(t, err)
	assert.Equal(t, uint64(891), got)

	got, err = rc.SupplyRate(0)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0), got)
}

func TestRateConfigValidate(t *testing.T) {
	cfg := DefaultRateConfig()
	assert.NoError(t, cfg.Validate())

	cfg.KinkUtilization = 0
	assert.ErrorIs(t, cfg.Validate(), InvalidConfig)

	cfg = DefaultRateConfig()
	cfg.KinkUtilization = BASIS_POINTS + 1
	assert.ErrorIs(t, cfg.Validate(), InvalidConfig)

	cfg = DefaultRateConfig()
	cfg.ReserveFactor = BASIS_POINTS
	assert.ErrorIs(t, cfg.Validate(), InvalidConfig)
}

func TestRateConfigUpdateKeepsZeroFields(t *testing.T) {
	cfg := DefaultRateConfig()
	cfg.Update(&RateConfig{BaseRate: 300, KinkUtilization: 8500})

	assert.Equal(t, uint64(300), cfg.BaseRate)
	assert.Equal(t, uint64(8500), cfg.KinkUtilization)
	assert.Equal(t, uint64(DEFAULT_MULTIPLIER), cfg.Multiplier)
	assert.Equal(t, uint64(DEFAULT_JUMP_MULTIPLIER), cfg.JumpMultiplier)
	assert.Equal(t, uint64(DEFAULT_RESERVE_FACTOR), cfg.ReserveFactor)
}

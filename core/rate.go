package core

type RateConfig struct {
	BaseRate        uint64 `json:"baseRate"`
	Multiplier      uint64 `json:"multiplier"`
	JumpMultiplier  uint64 `json:"jumpMultiplier"`
	KinkUtilization uint64 `json:"kinkUtilization"`
	ReserveFactor   uint64 `json:"reserveFactor"`
}

func DefaultRateConfig() RateConfig {
	return RateConfig{
		BaseRate:        DEFAULT_BASE_RATE,
		Multiplier:      DEFAULT_MULTIPLIER,
		JumpMultiplier:  DEFAULT_JUMP_MULTIPLIER,
		KinkUtilization: DEFAULT_KINK_UTILIZATION,
		ReserveFactor:   DEFAULT_RESERVE_FACTOR,
	}
}

// UtilizationRate returns the borrowed fraction of the pool in basis
// points, floor-divided. An empty pool has zero utilization.
func UtilizationRate(totalBorrowed, totalDeposits uint64) (uint64, error) {
	if totalDeposits == 0 {
		return 0, nil
	}
	return MulDivFloor(totalBorrowed, BASIS_POINTS, totalDeposits)
}

// BorrowRate evaluates the kink model at the given utilization, in
// annual basis points.
func (rc *RateConfig) BorrowRate(utilization uint64) (uint64, error) {
	if utilization <= rc.KinkUtilization {
		slope, err := MulDivFloor(utilization, rc.Multiplier, BASIS_POINTS)
		if err != nil {
			return 0, err
		}
		return CheckedAdd(rc.BaseRate, slope)
	}

	normalSlope, err := MulDivFloor(rc.KinkUtilization, rc.Multiplier, BASIS_POINTS)
	if err != nil {
		return 0, err
	}
	normalRate, err := CheckedAdd(rc.BaseRate, normalSlope)
	if err != nil {
		return 0, err
	}
	jumpRate, err := MulDivFloor(utilization-rc.KinkUtilization, rc.JumpMultiplier, BASIS_POINTS)
	if err != nil {
		return 0, err
	}
	return CheckedAdd(normalRate, jumpRate)
}

// SupplyRate is the borrow rate net of reserves, scaled by utilization.
// Floor division at each step, same as BorrowRate.
func (rc *RateConfig) SupplyRate(utilization uint64) (uint64, error) {
	borrowRate, err := rc.BorrowRate(utilization)
	if err != nil {
		return 0, err
	}
	afterReserves, err := MulDivFloor(borrowRate, BASIS_POINTS-rc.ReserveFactor, BASIS_POINTS)
	if err != nil {
		return 0, err
	}
	return MulDivFloor(afterReserves, utilization, BASIS_POINTS)
}

func (rc *RateConfig) Validate() error {
	if rc.KinkUtilization == 0 || rc.KinkUtilization > BASIS_POINTS {
		return InvalidConfig
	}
	if rc.ReserveFactor >= BASIS_POINTS {
		return InvalidConfig
	}
	return nil
}

// Update copies non-zero fields from the incoming config, keeping the
// rest. Zero means "leave unchanged", matching the governance parameter
// slot convention.
func (rc *RateConfig) Update(o *RateConfig) {
	if o.BaseRate != 0 {
		rc.BaseRate = o.BaseRate
	}
	if o.Multiplier != 0 {
		rc.Multiplier = o.Multiplier
	}
	if o.JumpMultiplier != 0 {
		rc.JumpMultiplier = o.JumpMultiplier
	}
	if o.KinkUtilization != 0 {
		rc.KinkUtilization = o.KinkUtilization
	}
	if o.ReserveFactor != 0 {
		rc.ReserveFactor = o.ReserveFactor
	}
}

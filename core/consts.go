package core

import "github.com/shopspring/decimal"

const (
	BASIS_POINTS     = 10000
	SECONDS_PER_YEAR = 31_536_000

	// Default kink-model parameters applied when a bank is initialized
	// without explicit rate configuration.
	DEFAULT_BASE_RATE        = 200
	DEFAULT_MULTIPLIER       = 500
	DEFAULT_JUMP_MULTIPLIER  = 5000
	DEFAULT_KINK_UTILIZATION = 8000
	DEFAULT_RESERVE_FACTOR   = 1000

	DEFAULT_LIQUIDATION_BONUS        = 500
	DEFAULT_LIQUIDATION_CLOSE_FACTOR = 5000
	DEFAULT_FLASH_LOAN_FEE           = 30

	// Oracle prices older than this many seconds are rejected.
	DEFAULT_ORACLE_MAX_AGE = 90
)

// MAX_CONF_INTERVAL bounds the oracle confidence interval as a fraction
// of the reported price. Wider quotes are rejected.
var MAX_CONF_INTERVAL = decimal.NewFromFloat(0.05)

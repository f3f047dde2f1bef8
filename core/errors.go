package core

import "github.com/pkg/errors"

// Validation errors.
var (
	InsufficientFunds     = errors.New("insufficient funds available")
	OverBorrowableAmount  = errors.New("over borrowable amount")
	OverRepay             = errors.New("over repay amount")
	InsufficientBalance   = errors.New("insufficient balance")
	InsufficientLiquidity = errors.New("insufficient liquidity in the bank")
)

// Arithmetic and authorization errors.
var (
	MathOverflow = errors.New("math overflow")
	Unauthorized = errors.New("unauthorized access")
)

// Oracle and risk errors.
var (
	OracleError          = errors.New("oracle price error")
	HealthFactorAboveOne = errors.New("health factor is above 1, liquidation not required")
	IllegalLiquidation   = errors.New("illegal liquidation")
)

// Governance errors.
var (
	InsufficientStake       = errors.New("insufficient stake to propose or vote")
	VotingEnded             = errors.New("voting period has ended")
	VotingNotEnded          = errors.New("voting period has not ended yet")
	ProposalDefeated        = errors.New("proposal was defeated by votes")
	ProposalNotFound        = errors.New("proposal not found")
	ProposalAlreadyExists   = errors.New("proposal already exists")
	ProposalAlreadyExecuted = errors.New("proposal already executed")
	ProposalBankMismatch    = errors.New("proposal is not bound to this bank")
	AlreadyVoted            = errors.New("voter already cast a vote on this proposal")
)

// Flash loan errors.
var (
	FlashLoanNotActive              = errors.New("flash loan is not active")
	FlashLoanAlreadyActive          = errors.New("flash loan already active for this borrower")
	UnauthorizedFlashLoan           = errors.New("unauthorized to repay this flash loan")
	FlashLoanMustBeRepaidInSameUnit = errors.New("flash loan must be repaid within the same atomic unit")
	InsufficientBalanceForRepayment = errors.New("insufficient balance for repayment")
)

// Structural errors.
var (
	BankNotFound          = errors.New("bank not found")
	BankPaused            = errors.New("bank operations are paused")
	BankAlreadyExists     = errors.New("bank already exists for this asset")
	PositionNotFound      = errors.New("position not found")
	PositionAlreadyExists = errors.New("position already exists for this owner")
	InvalidConfig         = errors.New("invalid config")
)

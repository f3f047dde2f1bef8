package core

import (
	"context"

	"github.com/facebookgo/clock"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type LendingStore interface {
	BankStore
	PositionStore
	FlashLoanStore
	ProposalStore
	VoteRecordStore
}

// LendingService drives every operation against the ledger. Each call
// runs inside one atomic unit supplied by the host: load, accrue, check,
// mutate clones, commit. Stores only see fully updated aggregates.
type LendingService struct {
	clk      clock.Clock
	log      Log
	store    LendingStore
	transfer Transfer
	prices   PriceFeed

	minProposalStake uint64
	votingDuration   int64
}

func NewLendingService(
	clk clock.Clock,
	log Log,
	store LendingStore,
	transfer Transfer,
	prices PriceFeed,
	minProposalStake uint64,
	votingDuration int64,
) *LendingService {
	return &LendingService{
		clk:              clk,
		log:              log,
		store:            store,
		transfer:         transfer,
		prices:           prices,
		minProposalStake: minProposalStake,
		votingDuration:   votingDuration,
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func (s *LendingService) bankByAssetId(ctx context.Context, assetId string) (*Bank, error) {
	bank, err := s.store.GetBankByAssetId(ctx, assetId)
	if err != nil {
		if isNotFound(err) {
			return nil, BankNotFound
		}
		return nil, err
	}
	return bank.Clone(), nil
}

// activeBankByAssetId is bankByAssetId plus the pause gate used by every
// user-facing operation.
func (s *LendingService) activeBankByAssetId(ctx context.Context, assetId string) (*Bank, error) {
	bank, err := s.bankByAssetId(ctx, assetId)
	if err != nil {
		return nil, err
	}
	if bank.Paused {
		return nil, BankPaused
	}
	return bank, nil
}

func (s *LendingService) positionByOwner(ctx context.Context, owner string) (*Position, error) {
	position, err := s.store.GetPositionByOwner(ctx, owner)
	if err != nil {
		if isNotFound(err) {
			return nil, PositionNotFound
		}
		return nil, err
	}
	return position.Clone(), nil
}

func (s *LendingService) validPrice(ctx context.Context, assetId string, maxAge, now int64) (decimal.Decimal, error) {
	price, err := s.prices.GetPrice(ctx, assetId)
	if err != nil {
		return decimal.Zero, OracleError
	}
	if err := price.Validate(now, maxAge); err != nil {
		return decimal.Zero, err
	}
	return price.Price, nil
}

// availableLiquidity is the cash the pool can actually pay out. Accrual
// can push borrows past deposits, so the difference clamps at zero.
func availableLiquidity(bank *Bank) uint64 {
	if bank.TotalBorrowed >= bank.TotalDeposits {
		return 0
	}
	return bank.TotalDeposits - bank.TotalBorrowed
}

// ------------ bank lifecycle

// InitializeBank creates the pool for an asset. Zero fields in either
// config fall back to the defaults.
func (s *LendingService) InitializeBank(ctx context.Context, authority, assetId, name string, riskConfig RiskConfig, rateConfig RateConfig) (*Bank, error) {
	if authority == "" || assetId == "" {
		return nil, InvalidConfig
	}
	if _, err := s.store.GetBankByAssetId(ctx, assetId); err == nil {
		return nil, BankAlreadyExists
	} else if !isNotFound(err) {
		return nil, err
	}

	risk := DefaultRiskConfig()
	risk.Update(&riskConfig)
	if err := risk.Validate(); err != nil {
		return nil, err
	}
	rate := DefaultRateConfig()
	rate.Update(&rateConfig)
	if err := rate.Validate(); err != nil {
		return nil, err
	}

	bank := NewBank(s.clk, authority, assetId, name, risk, rate)
	if err := s.store.CreateBank(ctx, bank); err != nil {
		return nil, err
	}

	s.log.Info().Str("bank", bank.Name).Str("asset", assetId).Msg("bank initialized")
	return bank, nil
}

func (s *LendingService) InitializePosition(ctx context.Context, owner, quoteAssetId string) (*Position, error) {
	if owner == "" {
		return nil, InvalidConfig
	}
	if _, err := s.store.GetPositionByOwner(ctx, owner); err == nil {
		return nil, PositionAlreadyExists
	} else if !isNotFound(err) {
		return nil, err
	}

	position := NewPosition(s.clk, owner, quoteAssetId)
	if err := s.store.CreatePosition(ctx, position); err != nil {
		return nil, err
	}
	return position, nil
}

// AccrueBank rolls a single bank forward to now and persists it. Every
// mutating operation does this implicitly; hosts can also drive it on a
// timer to keep quoted rates fresh.
func (s *LendingService) AccrueBank(ctx context.Context, assetId string) (*Bank, error) {
	bank, err := s.bankByAssetId(ctx, assetId)
	if err != nil {
		return nil, err
	}
	if err := bank.AccrueInterest(s.log, s.clk.Now().Unix()); err != nil {
		return nil, err
	}
	if err := s.store.UpdateBank(ctx, bank.Id, bank); err != nil {
		return nil, err
	}
	return bank, nil
}

// ------------ user operations

func (s *LendingService) Deposit(ctx context.Context, owner, assetId string, amount uint64) error {
	if amount == 0 {
		return InvalidConfig
	}
	now := s.clk.Now().Unix()

	bank, err := s.activeBankByAssetId(ctx, assetId)
	if err != nil {
		return err
	}
	if err := bank.AccrueInterest(s.log, now); err != nil {
		return err
	}
	position, err := s.positionByOwner(ctx, owner)
	if err != nil {
		return err
	}

	transferred, _, err := s.transfer.Transfer(ctx, assetId, owner, TreasuryAccount(bank.Id), amount)
	if err != nil {
		return err
	}

	wrapper := NewBankAccountWrapper(s.clk, bank, position)
	if err := wrapper.Deposit(s.log, transferred); err != nil {
		return err
	}
	if err := bank.RefreshRates(); err != nil {
		return err
	}

	position.UpdatedAt = now
	if err := s.store.UpdateBank(ctx, bank.Id, bank); err != nil {
		return err
	}
	return s.store.UpsertPosition(ctx, position)
}

func (s *LendingService) Withdraw(ctx context.Context, owner, assetId string, amount uint64) error {
	if amount == 0 {
		return InvalidConfig
	}
	now := s.clk.Now().Unix()

	bank, err := s.activeBankByAssetId(ctx, assetId)
	if err != nil {
		return err
	}
	if err := bank.AccrueInterest(s.log, now); err != nil {
		return err
	}
	position, err := s.positionByOwner(ctx, owner)
	if err != nil {
		return err
	}

	liquidity := availableLiquidity(bank)

	// Balance caps report first; the pool running dry is only relevant to
	// a withdrawal the user could otherwise make.
	wrapper := NewBankAccountWrapper(s.clk, bank, position)
	if err := wrapper.Withdraw(s.log, amount); err != nil {
		return err
	}
	if amount > liquidity {
		return InsufficientLiquidity
	}
	if err := bank.RefreshRates(); err != nil {
		return err
	}

	if _, _, err := s.transfer.Transfer(ctx, assetId, TreasuryAccount(bank.Id), owner, amount); err != nil {
		return err
	}

	position.UpdatedAt = now
	if err := s.store.UpdateBank(ctx, bank.Id, bank); err != nil {
		return err
	}
	return s.store.UpsertPosition(ctx, position)
}

func (s *LendingService) Borrow(ctx context.Context, owner, assetId string, amount uint64) error {
	if amount == 0 {
		return InvalidConfig
	}
	now := s.clk.Now().Unix()

	debtBank, err := s.activeBankByAssetId(ctx, assetId)
	if err != nil {
		return err
	}
	if err := debtBank.AccrueInterest(s.log, now); err != nil {
		return err
	}
	position, err := s.positionByOwner(ctx, owner)
	if err != nil {
		return err
	}

	if amount > availableLiquidity(debtBank) {
		return InsufficientLiquidity
	}

	borrowable, err := s.borrowableValue(ctx, position, debtBank, now)
	if err != nil {
		return err
	}
	debtPrice, err := s.validPrice(ctx, assetId, debtBank.OracleMaxAge, now)
	if err != nil {
		return err
	}
	requested := debtPrice.Mul(decimal.NewFromUint64(amount))
	if requested.GreaterThan(borrowable) {
		return OverBorrowableAmount
	}

	wrapper := NewBankAccountWrapper(s.clk, debtBank, position)
	if err := wrapper.Borrow(s.log, amount); err != nil {
		return err
	}
	if err := debtBank.RefreshRates(); err != nil {
		return err
	}

	if _, _, err := s.transfer.Transfer(ctx, assetId, TreasuryAccount(debtBank.Id), owner, amount); err != nil {
		return err
	}

	position.UpdatedAt = now
	if err := s.store.UpdateBank(ctx, debtBank.Id, debtBank); err != nil {
		return err
	}
	return s.store.UpsertPosition(ctx, position)
}

// borrowableValue is the headroom left under every bank's max LTV:
// sum of deposit values scaled by each bank's max LTV, minus the sum of
// outstanding debt values, all in quote terms. debtBank is the already
// accrued clone for the asset being borrowed; other banks are accrued on
// throwaway clones for valuation only.
func (s *LendingService) borrowableValue(ctx context.Context, position *Position, debtBank *Bank, now int64) (decimal.Decimal, error) {
	borrowable := decimal.Zero
	debt := decimal.Zero

	for bankId, balance := range position.Balances {
		if balance.DepositShares == 0 && balance.BorrowShares == 0 {
			continue
		}
		bank := debtBank
		if bankId != debtBank.Id {
			stored, err := s.store.GetBankById(ctx, bankId)
			if err != nil {
				if isNotFound(err) {
					return decimal.Zero, BankNotFound
				}
				return decimal.Zero, err
			}
			bank = stored.Clone()
			if err := bank.AccrueInterest(s.log, now); err != nil {
				return decimal.Zero, err
			}
		}

		price, err := s.validPrice(ctx, bank.AssetId, bank.OracleMaxAge, now)
		if err != nil {
			return decimal.Zero, err
		}

		depositAmount, err := bank.AmountForDepositShares(balance.DepositShares)
		if err != nil {
			return decimal.Zero, err
		}
		borrowAmount, err := bank.AmountForBorrowShares(balance.BorrowShares)
		if err != nil {
			return decimal.Zero, err
		}

		depositValue := price.Mul(decimal.NewFromUint64(depositAmount))
		borrowable = borrowable.Add(depositValue.
			Mul(decimal.NewFromUint64(bank.MaxLtv)).
			Div(decimal.NewFromInt(BASIS_POINTS)))
		debt = debt.Add(price.Mul(decimal.NewFromUint64(borrowAmount)))
	}

	return borrowable.Sub(debt), nil
}

func (s *LendingService) Repay(ctx context.Context, owner, assetId string, amount uint64) error {
	if amount == 0 {
		return InvalidConfig
	}
	now := s.clk.Now().Unix()

	bank, err := s.activeBankByAssetId(ctx, assetId)
	if err != nil {
		return err
	}
	if err := bank.AccrueInterest(s.log, now); err != nil {
		return err
	}
	position, err := s.positionByOwner(ctx, owner)
	if err != nil {
		return err
	}

	wrapper := NewBankAccountWrapper(s.clk, bank, position)
	owed, err := wrapper.OwedAmount()
	if err != nil {
		return err
	}
	if amount > owed {
		return OverRepay
	}

	transferred, _, err := s.transfer.Transfer(ctx, assetId, owner, TreasuryAccount(bank.Id), amount)
	if err != nil {
		return err
	}
	if err := wrapper.Repay(s.log, transferred); err != nil {
		return err
	}
	if err := bank.RefreshRates(); err != nil {
		return err
	}

	position.UpdatedAt = now
	if err := s.store.UpdateBank(ctx, bank.Id, bank); err != nil {
		return err
	}
	return s.store.UpsertPosition(ctx, position)
}

// ------------ liquidation

// Liquidate lets any third party repay part of an unhealthy borrower's
// debt in exchange for discounted collateral.
func (s *LendingService) Liquidate(ctx context.Context, liquidator, borrower, collateralAssetId, debtAssetId string) (*LiquidateResult, error) {
	if liquidator == borrower {
		return nil, IllegalLiquidation
	}
	now := s.clk.Now().Unix()

	collateralBank, err := s.activeBankByAssetId(ctx, collateralAssetId)
	if err != nil {
		return nil, err
	}
	debtBank, err := s.activeBankByAssetId(ctx, debtAssetId)
	if err != nil {
		return nil, err
	}
	if collateralBank.Id == debtBank.Id {
		return nil, IllegalLiquidation
	}
	if err := collateralBank.AccrueInterest(s.log, now); err != nil {
		return nil, err
	}
	if err := debtBank.AccrueInterest(s.log, now); err != nil {
		return nil, err
	}

	position, err := s.positionByOwner(ctx, borrower)
	if err != nil {
		return nil, err
	}

	collateralPrice, err := s.validPrice(ctx, collateralAssetId, collateralBank.OracleMaxAge, now)
	if err != nil {
		return nil, err
	}
	debtPrice, err := s.validPrice(ctx, debtAssetId, debtBank.OracleMaxAge, now)
	if err != nil {
		return nil, err
	}

	res, err := PrepareLiquidation(collateralBank, debtBank, position, collateralPrice, debtPrice)
	if err != nil {
		return nil, err
	}

	if _, _, err := s.transfer.Transfer(ctx, debtAssetId, liquidator, TreasuryAccount(debtBank.Id), res.LiquidationAmount); err != nil {
		return nil, err
	}
	if _, _, err := s.transfer.Transfer(ctx, collateralAssetId, TreasuryAccount(collateralBank.Id), liquidator, res.LiquidatorReward); err != nil {
		return nil, err
	}

	if err := ApplyLiquidation(res, position); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("borrower", borrower).
		Str("liquidator", liquidator).
		Str("healthFactor", res.HealthFactor.String()).
		Uint64("repaid", res.LiquidationAmount).
		Uint64("seized", res.LiquidatorReward).
		Msg("position liquidated")

	position.UpdatedAt = now
	if err := s.store.UpdateBank(ctx, collateralBank.Id, collateralBank); err != nil {
		return nil, err
	}
	if err := s.store.UpdateBank(ctx, debtBank.Id, debtBank); err != nil {
		return nil, err
	}
	if err := s.store.UpsertPosition(ctx, position); err != nil {
		return nil, err
	}
	return res, nil
}

// HealthFactor reports a borrower's standing for one collateral/debt
// bank pair without mutating anything.
func (s *LendingService) HealthFactor(ctx context.Context, borrower, collateralAssetId, debtAssetId string) (decimal.Decimal, error) {
	now := s.clk.Now().Unix()

	collateralBank, err := s.bankByAssetId(ctx, collateralAssetId)
	if err != nil {
		return decimal.Zero, err
	}
	debtBank, err := s.bankByAssetId(ctx, debtAssetId)
	if err != nil {
		return decimal.Zero, err
	}
	if err := collateralBank.AccrueInterest(s.log, now); err != nil {
		return decimal.Zero, err
	}
	if err := debtBank.AccrueInterest(s.log, now); err != nil {
		return decimal.Zero, err
	}
	position, err := s.positionByOwner(ctx, borrower)
	if err != nil {
		return decimal.Zero, err
	}

	collateralPrice, err := s.validPrice(ctx, collateralAssetId, collateralBank.OracleMaxAge, now)
	if err != nil {
		return decimal.Zero, err
	}
	debtPrice, err := s.validPrice(ctx, debtAssetId, debtBank.OracleMaxAge, now)
	if err != nil {
		return decimal.Zero, err
	}

	collateralAmount, err := collateralBank.AmountForDepositShares(position.Balance(collateralBank.Id).DepositShares)
	if err != nil {
		return decimal.Zero, err
	}
	debtAmount, err := debtBank.AmountForBorrowShares(position.Balance(debtBank.Id).BorrowShares)
	if err != nil {
		return decimal.Zero, err
	}

	debtValue := debtPrice.Mul(decimal.NewFromUint64(debtAmount))
	if debtValue.IsZero() {
		return decimal.Zero, HealthFactorAboveOne
	}
	collateralValue := collateralPrice.Mul(decimal.NewFromUint64(collateralAmount))
	return ComputeHealthFactor(collateralValue, debtValue, collateralBank.LiquidationThreshold), nil
}

// ------------ flash loans

func (s *LendingService) InitiateFlashLoan(ctx context.Context, borrower, assetId string, amount uint64) (*FlashLoan, error) {
	if amount == 0 {
		return nil, InvalidConfig
	}
	now := s.clk.Now().Unix()

	bank, err := s.activeBankByAssetId(ctx, assetId)
	if err != nil {
		return nil, err
	}
	if err := bank.AccrueInterest(s.log, now); err != nil {
		return nil, err
	}

	if existing, err := s.store.GetFlashLoan(ctx, bank.Id, borrower); err == nil && existing.IsActive {
		return nil, FlashLoanAlreadyActive
	} else if err != nil && !isNotFound(err) {
		return nil, err
	}

	treasury := TreasuryAccount(bank.Id)
	liquidity, err := s.transfer.Balance(ctx, assetId, treasury)
	if err != nil {
		return nil, err
	}
	if amount > liquidity {
		return nil, InsufficientLiquidity
	}

	loan, err := NewFlashLoan(s.clk, bank, borrower, amount)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.transfer.Transfer(ctx, assetId, treasury, borrower, amount); err != nil {
		return nil, err
	}
	if err := s.store.CreateFlashLoan(ctx, loan); err != nil {
		return nil, err
	}
	if err := s.store.UpdateBank(ctx, bank.Id, bank); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("bank", bank.Name).
		Str("borrower", borrower).
		Uint64("amount", amount).
		Uint64("fee", loan.Fee).
		Msg("flash loan initiated")
	return loan, nil
}

// RepayFlashLoan settles an active flash loan with the fee. The repayment
// must land at the exact instant the loan was taken; anything later is a
// different atomic unit and the loan is irrecoverably in default.
func (s *LendingService) RepayFlashLoan(ctx context.Context, caller, assetId, borrower string) error {
	now := s.clk.Now().Unix()

	bank, err := s.activeBankByAssetId(ctx, assetId)
	if err != nil {
		return err
	}

	loan, err := s.store.GetFlashLoan(ctx, bank.Id, borrower)
	if err != nil {
		if isNotFound(err) {
			return FlashLoanNotActive
		}
		return err
	}
	if !loan.IsActive {
		return FlashLoanNotActive
	}
	if caller != loan.Borrower {
		return UnauthorizedFlashLoan
	}
	if now != loan.CreatedAt {
		return FlashLoanMustBeRepaidInSameUnit
	}

	total, err := loan.TotalRepayment()
	if err != nil {
		return err
	}
	balance, err := s.transfer.Balance(ctx, assetId, borrower)
	if err != nil {
		return err
	}
	if balance < total {
		return InsufficientBalanceForRepayment
	}

	if _, _, err := s.transfer.Transfer(ctx, assetId, borrower, TreasuryAccount(bank.Id), total); err != nil {
		return err
	}

	// The fee lands in the pool and lifts the deposit exchange rate.
	totalDeposits, err := CheckedAdd(bank.TotalDeposits, loan.Fee)
	if err != nil {
		return err
	}
	bank.TotalDeposits = totalDeposits
	if err := bank.RefreshRates(); err != nil {
		return err
	}

	if err := s.store.DeleteFlashLoan(ctx, bank.Id, borrower); err != nil {
		return err
	}
	return s.store.UpdateBank(ctx, bank.Id, bank)
}

// ------------ administration

func (s *LendingService) authorizedBank(ctx context.Context, caller, assetId string) (*Bank, error) {
	bank, err := s.bankByAssetId(ctx, assetId)
	if err != nil {
		return nil, err
	}
	if caller != bank.Authority {
		return nil, Unauthorized
	}
	return bank, nil
}

func (s *LendingService) UpdateBankRiskConfig(ctx context.Context, caller, assetId string, cfg RiskConfig) (*Bank, error) {
	bank, err := s.authorizedBank(ctx, caller, assetId)
	if err != nil {
		return nil, err
	}
	if err := bank.AccrueInterest(s.log, s.clk.Now().Unix()); err != nil {
		return nil, err
	}

	merged := bank.RiskConfig
	merged.Update(&cfg)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	bank.RiskConfig = merged

	if err := s.store.UpdateBank(ctx, bank.Id, bank); err != nil {
		return nil, err
	}
	return bank, nil
}

// UpdateBankRateConfig accrues under the old curve before the new one
// takes effect, so the change is never retroactive.
func (s *LendingService) UpdateBankRateConfig(ctx context.Context, caller, assetId string, cfg RateConfig) (*Bank, error) {
	bank, err := s.authorizedBank(ctx, caller, assetId)
	if err != nil {
		return nil, err
	}
	if err := bank.AccrueInterest(s.log, s.clk.Now().Unix()); err != nil {
		return nil, err
	}

	merged := bank.RateConfig
	merged.Update(&cfg)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	bank.RateConfig = merged
	if err := bank.RefreshRates(); err != nil {
		return nil, err
	}

	if err := s.store.UpdateBank(ctx, bank.Id, bank); err != nil {
		return nil, err
	}
	return bank, nil
}

func (s *LendingService) TransferAuthority(ctx context.Context, caller, assetId, newAuthority string) (*Bank, error) {
	if newAuthority == "" {
		return nil, InvalidConfig
	}
	bank, err := s.authorizedBank(ctx, caller, assetId)
	if err != nil {
		return nil, err
	}

	bank.Authority = newAuthority
	if err := s.store.UpdateBank(ctx, bank.Id, bank); err != nil {
		return nil, err
	}

	s.log.Info().Str("bank", bank.Name).Str("authority", newAuthority).Msg("authority transferred")
	return bank, nil
}

// EmergencyPause accrues one last time, then zeroes the cached rates so
// the pause window never earns or charges interest.
func (s *LendingService) EmergencyPause(ctx context.Context, caller, assetId string) (*Bank, error) {
	bank, err := s.authorizedBank(ctx, caller, assetId)
	if err != nil {
		return nil, err
	}
	if err := bank.Pause(s.log, s.clk.Now().Unix()); err != nil {
		return nil, err
	}
	if err := s.store.UpdateBank(ctx, bank.Id, bank); err != nil {
		return nil, err
	}

	s.log.Warn().Str("bank", bank.Name).Msg("bank paused")
	return bank, nil
}

func (s *LendingService) ResumeOperations(ctx context.Context, caller, assetId string) (*Bank, error) {
	bank, err := s.authorizedBank(ctx, caller, assetId)
	if err != nil {
		return nil, err
	}
	if err := bank.Resume(s.clk.Now().Unix()); err != nil {
		return nil, err
	}
	if err := s.store.UpdateBank(ctx, bank.Id, bank); err != nil {
		return nil, err
	}

	s.log.Info().Str("bank", bank.Name).Msg("bank resumed")
	return bank, nil
}

// ------------ governance

// CreateProposal opens a ballot for a parameter change on one bank.
// Proposer stake is measured in live deposit shares across all banks.
func (s *LendingService) CreateProposal(ctx context.Context, proposer, assetId string, proposalId uint64, typ ProposalType, params [PROPOSAL_PARAM_COUNT]uint64) (*Proposal, error) {
	position, err := s.positionByOwner(ctx, proposer)
	if err != nil {
		if errors.Is(err, PositionNotFound) {
			return nil, InsufficientStake
		}
		return nil, err
	}
	stake, err := position.TotalDepositShares()
	if err != nil {
		return nil, err
	}
	if stake < s.minProposalStake {
		return nil, InsufficientStake
	}

	if _, err := s.store.GetProposal(ctx, proposalId); err == nil {
		return nil, ProposalAlreadyExists
	} else if !isNotFound(err) {
		return nil, err
	}

	bank, err := s.bankByAssetId(ctx, assetId)
	if err != nil {
		return nil, err
	}

	proposal, err := NewProposal(s.clk, proposalId, bank, proposer, typ, params, s.votingDuration)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateProposal(ctx, proposal); err != nil {
		return nil, err
	}

	s.log.Info().
		Uint64("proposal", proposalId).
		Str("bank", bank.Name).
		Str("type", typ.String()).
		Msg("proposal created")
	return proposal, nil
}

// CastVote records one stake-weighted ballot. Voting power is the
// voter's live deposit shares at the moment of the vote.
func (s *LendingService) CastVote(ctx context.Context, voter string, proposalId uint64, voteFor bool) error {
	now := s.clk.Now().Unix()

	proposal, err := s.store.GetProposal(ctx, proposalId)
	if err != nil {
		if isNotFound(err) {
			return ProposalNotFound
		}
		return err
	}
	proposal = proposal.Clone()
	if proposal.Status(now) != ProposalStatusActive {
		return VotingEnded
	}

	if _, err := s.store.GetVoteRecord(ctx, proposalId, voter); err == nil {
		return AlreadyVoted
	} else if !isNotFound(err) {
		return err
	}

	position, err := s.positionByOwner(ctx, voter)
	if err != nil {
		if errors.Is(err, PositionNotFound) {
			return InsufficientStake
		}
		return err
	}
	power, err := position.TotalDepositShares()
	if err != nil {
		return err
	}
	if power == 0 {
		return InsufficientStake
	}

	record := &VoteRecord{
		ProposalId: proposalId,
		Voter:      voter,
		VoteFor:    voteFor,
		Power:      power,
		CreatedAt:  now,
	}
	if err := proposal.CountVote(record); err != nil {
		return err
	}
	if err := s.store.CreateVoteRecord(ctx, record); err != nil {
		return err
	}
	return s.store.UpdateProposal(ctx, proposal)
}

// ExecuteProposal applies a passed proposal to its bank. Anyone can
// execute; the vote carries the authorization.
func (s *LendingService) ExecuteProposal(ctx context.Context, assetId string, proposalId uint64) (*Bank, error) {
	now := s.clk.Now().Unix()

	proposal, err := s.store.GetProposal(ctx, proposalId)
	if err != nil {
		if isNotFound(err) {
			return nil, ProposalNotFound
		}
		return nil, err
	}
	proposal = proposal.Clone()

	bank, err := s.bankByAssetId(ctx, assetId)
	if err != nil {
		return nil, err
	}
	if bank.Id != proposal.BankId {
		return nil, ProposalBankMismatch
	}

	switch proposal.Status(now) {
	case ProposalStatusExecuted:
		return nil, ProposalAlreadyExecuted
	case ProposalStatusActive:
		return nil, VotingNotEnded
	case ProposalStatusDefeated:
		return nil, ProposalDefeated
	}

	// Settle interest under the old parameters before they change.
	if err := bank.AccrueInterest(s.log, now); err != nil {
		return nil, err
	}
	if err := proposal.Apply(bank); err != nil {
		return nil, err
	}
	if proposal.Type == ProposalTypeRateConfig {
		if err := bank.RefreshRates(); err != nil {
			return nil, err
		}
	}
	proposal.Executed = true

	if err := s.store.UpdateBank(ctx, bank.Id, bank); err != nil {
		return nil, err
	}
	if err := s.store.UpdateProposal(ctx, proposal); err != nil {
		return nil, err
	}

	s.log.Info().
		Uint64("proposal", proposalId).
		Str("bank", bank.Name).
		Str("type", proposal.Type.String()).
		Msg("proposal executed")
	return bank, nil
}

package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// memStore is an in-memory LendingStore for tests. Gets return clones so
// the service's copy-then-commit discipline is actually exercised.
type memStore struct {
	mu sync.Mutex

	banks      map[uuid.UUID]*Bank
	positions  map[string]*Position
	flashLoans map[string]*FlashLoan
	proposals  map[uint64]*Proposal
	votes      map[string]*VoteRecord
}

func newMemStore() *memStore {
	return &memStore{
		banks:      make(map[uuid.UUID]*Bank),
		positions:  make(map[string]*Position),
		flashLoans: make(map[string]*FlashLoan),
		proposals:  make(map[uint64]*Proposal),
		votes:      make(map[string]*VoteRecord),
	}
}

func flashLoanKey(bankId uuid.UUID, borrower string) string {
	return bankId.String() + "|" + borrower
}

func voteKey(proposalId uint64, voter string) string {
	return fmt.Sprintf("%d|%s", proposalId, voter)
}

func (m *memStore) CreateBank(_ context.Context, bank *Bank) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.banks[bank.Id] = bank.Clone()
	return nil
}

func (m *memStore) UpdateBank(_ context.Context, bankId uuid.UUID, bank *Bank) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.banks[bankId]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.banks[bankId] = bank.Clone()
	return nil
}

func (m *memStore) GetBankById(_ context.Context, bankId uuid.UUID) (*Bank, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bank, ok := m.banks[bankId]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return bank.Clone(), nil
}

func (m *memStore) GetBankByAssetId(_ context.Context, assetId string) (*Bank, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, bank := range m.banks {
		if bank.AssetId == assetId {
			return bank.Clone(), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memStore) ListBanks(_ context.Context) ([]*Bank, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	banks := make([]*Bank, 0, len(m.banks))
	for _, bank := range m.banks {
		banks = append(banks, bank.Clone())
	}
	return banks, nil
}

func (m *memStore) CreatePosition(_ context.Context, position *Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[position.Owner] = position.Clone()
	return nil
}

func (m *memStore) UpsertPosition(_ context.Context, position *Position) error {
	return m.CreatePosition(context.Background(), position)
}

func (m *memStore) GetPositionById(_ context.Context, positionId uuid.UUID) (*Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, position := range m.positions {
		if position.Id == positionId {
			return position.Clone(), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memStore) GetPositionByOwner(_ context.Context, owner string) (*Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	position, ok := m.positions[owner]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return position.Clone(), nil
}

func (m *memStore) CreateFlashLoan(_ context.Context, loan *FlashLoan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *loan
	m.flashLoans[flashLoanKey(loan.BankId, loan.Borrower)] = &c
	return nil
}

func (m *memStore) GetFlashLoan(_ context.Context, bankId uuid.UUID, borrower string) (*FlashLoan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	loan, ok := m.flashLoans[flashLoanKey(bankId, borrower)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *loan
	return &c, nil
}

func (m *memStore) DeleteFlashLoan(_ context.Context, bankId uuid.UUID, borrower string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.flashLoans, flashLoanKey(bankId, borrower))
	return nil
}

func (m *memStore) CreateProposal(_ context.Context, proposal *Proposal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.proposals[proposal.Id] = proposal.Clone()
	return nil
}

func (m *memStore) UpdateProposal(_ context.Context, proposal *Proposal) error {
	return m.CreateProposal(context.Background(), proposal)
}

func (m *memStore) GetProposal(_ context.Context, id uint64) (*Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	proposal, ok := m.proposals[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return proposal.Clone(), nil
}

func (m *memStore) ListProposals(_ context.Context, bankId uuid.UUID) ([]*Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	proposals := make([]*Proposal, 0)
	for _, proposal := range m.proposals {
		if proposal.BankId == bankId {
			proposals = append(proposals, proposal.Clone())
		}
	}
	return proposals, nil
}

func (m *memStore) CreateVoteRecord(_ context.Context, record *VoteRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *record
	m.votes[voteKey(record.ProposalId, record.Voter)] = &c
	return nil
}

func (m *memStore) GetVoteRecord(_ context.Context, proposalId uint64, voter string) (*VoteRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.votes[voteKey(proposalId, voter)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *record
	return &c, nil
}

// memTransfer tracks per-asset account balances and moves them
// all-or-nothing.
type memTransfer struct {
	mu       sync.Mutex
	accounts map[string]map[string]uint64
}

func newMemTransfer() *memTransfer {
	return &memTransfer{accounts: make(map[string]map[string]uint64)}
}

func (m *memTransfer) fund(assetId, account string, amount uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.accounts[assetId] == nil {
		m.accounts[assetId] = make(map[string]uint64)
	}
	m.accounts[assetId][account] += amount
}

func (m *memTransfer) Transfer(_ context.Context, assetId, from, to string, amount uint64) (uint64, int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	book := m.accounts[assetId]
	if book == nil || book[from] < amount {
		return 0, 0, InsufficientBalance
	}
	book[from] -= amount
	book[to] += amount
	return amount, 8, nil
}

func (m *memTransfer) Balance(_ context.Context, assetId, account string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.accounts[assetId] == nil {
		return 0, nil
	}
	return m.accounts[assetId][account], nil
}

// memPriceFeed serves fixed prices set by the test.
type memPriceFeed struct {
	mu     sync.Mutex
	prices map[string]*Price
}

func newMemPriceFeed() *memPriceFeed {
	return &memPriceFeed{prices: make(map[string]*Price)}
}

func (m *memPriceFeed) set(price *Price) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[price.AssetId] = price
}

func (m *memPriceFeed) GetPrice(_ context.Context, assetId string) (*Price, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	price, ok := m.prices[assetId]
	if !ok {
		return nil, OracleError
	}
	c := *price
	return &c, nil
}

type testEnv struct {
	clk      *clock.Mock
	store    *memStore
	transfer *memTransfer
	prices   *memPriceFeed
	service  *LendingService
}

func newTestEnv() *testEnv {
	clk := clock.NewMock()
	clk.Add(1_700_000_000 * time.Second)

	store := newMemStore()
	transfer := newMemTransfer()
	prices := newMemPriceFeed()

	l := zerolog.Nop()
	service := NewLendingService(clk, &l, store, transfer, prices, 1, 3600)

	return &testEnv{
		clk:      clk,
		store:    store,
		transfer: transfer,
		prices:   prices,
		service:  service,
	}
}

func testLog() Log {
	l := zerolog.Nop()
	return &l
}

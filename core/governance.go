package core

import (
	"context"

	"github.com/facebookgo/clock"
	"github.com/gofrs/uuid"
)

const PROPOSAL_PARAM_COUNT = 5

type ProposalType int

const (
	_ ProposalType = iota
	ProposalTypeRiskConfig
	ProposalTypeRateConfig
)

func (t ProposalType) String() string {
	switch t {
	case ProposalTypeRiskConfig:
		return "riskConfig"
	case ProposalTypeRateConfig:
		return "rateConfig"
	default:
		return "unknown"
	}
}

type ProposalStatus int

const (
	_ ProposalStatus = iota
	ProposalStatusActive
	ProposalStatusDefeated
	ProposalStatusPassed
	ProposalStatusExecuted
)

func (s ProposalStatus) String() string {
	switch s {
	case ProposalStatusActive:
		return "active"
	case ProposalStatusDefeated:
		return "defeated"
	case ProposalStatusPassed:
		return "passed"
	case ProposalStatusExecuted:
		return "executed"
	default:
		return "unknown"
	}
}

type (
	ProposalStore interface {
		CreateProposal(ctx context.Context, proposal *Proposal) error
		UpdateProposal(ctx context.Context, proposal *Proposal) error
		GetProposal(ctx context.Context, id uint64) (*Proposal, error)
		ListProposals(ctx context.Context, bankId uuid.UUID) ([]*Proposal, error)
	}

	VoteRecordStore interface {
		CreateVoteRecord(ctx context.Context, record *VoteRecord) error
		GetVoteRecord(ctx context.Context, proposalId uint64, voter string) (*VoteRecord, error)
	}

	// Proposal is a parameter-change ballot scoped to one bank. Params
	// are positional per Type, zero meaning keep the current value.
	Proposal struct {
		Id       uint64       `json:"id"`
		BankId   uuid.UUID    `json:"bankId"`
		Proposer string       `json:"proposer"`
		Type     ProposalType `json:"type"`

		Params [PROPOSAL_PARAM_COUNT]uint64 `json:"params"`

		VotesFor     uint64 `json:"votesFor"`
		VotesAgainst uint64 `json:"votesAgainst"`

		CreatedAt int64 `json:"createdAt"`
		EndTime   int64 `json:"endTime"`
		Executed  bool  `json:"executed"`
	}

	// VoteRecord pins one voter's ballot on one proposal; its existence
	// is what blocks a second vote.
	VoteRecord struct {
		ProposalId uint64 `json:"proposalId"`
		Voter      string `json:"voter"`
		VoteFor    bool   `json:"voteFor"`
		Power      uint64 `json:"power"`
		CreatedAt  int64  `json:"createdAt"`
	}
)

func NewProposal(clk clock.Clock, id uint64, bank *Bank, proposer string, typ ProposalType, params [PROPOSAL_PARAM_COUNT]uint64, votingDuration int64) (*Proposal, error) {
	switch typ {
	case ProposalTypeRiskConfig, ProposalTypeRateConfig:
	default:
		return nil, InvalidConfig
	}
	now := clk.Now().Unix()
	p := &Proposal{
		Id:        id,
		BankId:    bank.Id,
		Proposer:  proposer,
		Type:      typ,
		Params:    params,
		CreatedAt: now,
		EndTime:   now + votingDuration,
	}
	// Reject ballots that could never apply cleanly.
	probe := bank.Clone()
	if err := p.Apply(probe); err != nil {
		return nil, err
	}
	return p, nil
}

// Clone returns a copy safe to mutate before committing back to the store.
func (p *Proposal) Clone() *Proposal {
	c := *p
	return &c
}

// Status derives the lifecycle phase at the given instant. Voting closes
// at EndTime inclusive of nothing: a proposal with EndTime <= now is over.
func (p *Proposal) Status(now int64) ProposalStatus {
	if p.Executed {
		return ProposalStatusExecuted
	}
	if now < p.EndTime {
		return ProposalStatusActive
	}
	if p.VotesFor > p.VotesAgainst {
		return ProposalStatusPassed
	}
	return ProposalStatusDefeated
}

// Apply overlays the proposal's non-zero params onto the bank's config
// and validates the result. Positional meaning by Type:
//
//	riskConfig: threshold, bonus, closeFactor, maxLtv
//	rateConfig: base, multiplier, jump, kink, reserveFactor
func (p *Proposal) Apply(bank *Bank) error {
	switch p.Type {
	case ProposalTypeRiskConfig:
		cfg := bank.RiskConfig
		cfg.Update(&RiskConfig{
			LiquidationThreshold:   p.Params[0],
			LiquidationBonus:       p.Params[1],
			LiquidationCloseFactor: p.Params[2],
			MaxLtv:                 p.Params[3],
		})
		if err := cfg.Validate(); err != nil {
			return err
		}
		bank.RiskConfig = cfg
	case ProposalTypeRateConfig:
		cfg := bank.RateConfig
		cfg.Update(&RateConfig{
			BaseRate:        p.Params[0],
			Multiplier:      p.Params[1],
			JumpMultiplier:  p.Params[2],
			KinkUtilization: p.Params[3],
			ReserveFactor:   p.Params[4],
		})
		if err := cfg.Validate(); err != nil {
			return err
		}
		bank.RateConfig = cfg
	default:
		return InvalidConfig
	}
	return nil
}

// CountVote folds one ballot into the tallies.
func (p *Proposal) CountVote(record *VoteRecord) error {
	if record.VoteFor {
		votes, err := CheckedAdd(p.VotesFor, record.Power)
		if err != nil {
			return err
		}
		p.VotesFor = votes
		return nil
	}
	votes, err := CheckedAdd(p.VotesAgainst, record.Power)
	if err != nil {
		return err
	}
	p.VotesAgainst = votes
	return nil
}

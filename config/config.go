package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/openlend/core/core"
)

type (
	Config struct {
		Log        LogConfig        `yaml:"log"`
		Governance GovernanceConfig `yaml:"governance"`
		Banks      []BankConfig     `yaml:"banks"`
	}

	LogConfig struct {
		Level string `yaml:"level"`
	}

	GovernanceConfig struct {
		MinProposalStake      uint64 `yaml:"min_proposal_stake"`
		VotingDurationSeconds int64  `yaml:"voting_duration_seconds"`
	}

	BankConfig struct {
		AssetId   string `yaml:"asset_id"`
		Name      string `yaml:"name"`
		Authority string `yaml:"authority"`

		Risk RiskConfig `yaml:"risk"`
		Rate RateConfig `yaml:"rate"`
	}

	// RiskConfig mirrors core.RiskConfig in yaml form; zero values fall
	// back to the engine defaults.
	RiskConfig struct {
		LiquidationThreshold   uint64 `yaml:"liquidation_threshold"`
		LiquidationBonus       uint64 `yaml:"liquidation_bonus"`
		LiquidationCloseFactor uint64 `yaml:"liquidation_close_factor"`
		MaxLtv                 uint64 `yaml:"max_ltv"`
		FlashLoanFee           uint64 `yaml:"flash_loan_fee"`
		OracleMaxAge           int64  `yaml:"oracle_max_age"`
	}

	RateConfig struct {
		BaseRate        uint64 `yaml:"base_rate"`
		Multiplier      uint64 `yaml:"multiplier"`
		JumpMultiplier  uint64 `yaml:"jump_multiplier"`
		KinkUtilization uint64 `yaml:"kink_utilization"`
		ReserveFactor   uint64 `yaml:"reserve_factor"`
	}
)

func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		Governance: GovernanceConfig{
			MinProposalStake:      1,
			VotingDurationSeconds: int64(72 * time.Hour / time.Second),
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Governance.VotingDurationSeconds < 0 {
		return errors.New("governance.voting_duration_seconds must not be negative")
	}
	seen := make(map[string]bool, len(c.Banks))
	for i := range c.Banks {
		b := &c.Banks[i]
		if b.AssetId == "" {
			return errors.Errorf("banks[%d].asset_id is required", i)
		}
		if b.Authority == "" {
			return errors.Errorf("banks[%d].authority is required", i)
		}
		if seen[b.AssetId] {
			return errors.Errorf("banks[%d]: duplicate asset_id %s", i, b.AssetId)
		}
		seen[b.AssetId] = true
		riskCfg := b.CoreRiskConfig()
		if err := riskCfg.Validate(); err != nil {
			return errors.Wrapf(err, "banks[%d].risk", i)
		}
		rateCfg := b.CoreRateConfig()
		if err := rateCfg.Validate(); err != nil {
			return errors.Wrapf(err, "banks[%d].rate", i)
		}
	}
	return nil
}

// CoreRiskConfig overlays the yaml values onto the engine defaults.
func (b *BankConfig) CoreRiskConfig() core.RiskConfig {
	cfg := core.DefaultRiskConfig()
	cfg.Update(&core.RiskConfig{
		LiquidationThreshold:   b.Risk.LiquidationThreshold,
		LiquidationBonus:       b.Risk.LiquidationBonus,
		LiquidationCloseFactor: b.Risk.LiquidationCloseFactor,
		MaxLtv:                 b.Risk.MaxLtv,
		FlashLoanFee:           b.Risk.FlashLoanFee,
		OracleMaxAge:           b.Risk.OracleMaxAge,
	})
	return cfg
}

func (b *BankConfig) CoreRateConfig() core.RateConfig {
	cfg := core.DefaultRateConfig()
	cfg.Update(&core.RateConfig{
		BaseRate:        b.Rate.BaseRate,
		Multiplier:      b.Rate.Multiplier,
		JumpMultiplier:  b.Rate.JumpMultiplier,
		KinkUtilization: b.Rate.KinkUtilization,
		ReserveFactor:   b.Rate.ReserveFactor,
	})
	return cfg
}

package models

import (
	"fmt"
	"time"
)

// RiskConfig holds per-account auto-exit thresholds. Percentages are fractions (0.05 == 5%).
type RiskConfig struct {
	StopLossEnabled        bool    `yaml:"stop_loss_enabled" json:"stop_loss_enabled"`
	StopLossPct            float64 `yaml:"stop_loss_pct" json:"stop_loss_pct"`
	TakeProfitEnabled      bool    `yaml:"take_profit_enabled" json:"take_profit_enabled"`
	TakeProfitPct          float64 `yaml:"take_profit_pct" json:"take_profit_pct"`
	TrailingStopEnabled    bool    `yaml:"trailing_stop_enabled" json:"trailing_stop_enabled"`
	TrailingStopPct        float64 `yaml:"trailing_stop_pct" json:"trailing_stop_pct"`
	TimeExitEnabled        bool    `yaml:"time_exit_enabled" json:"time_exit_enabled"`
	MaxPositionHoldMinutes float64 `yaml:"max_position_hold_minutes" json:"max_position_hold_minutes"`
}

func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		StopLossPct:            0.05,
		TakeProfitPct:          0.10,
		TrailingStopPct:        0.03,
		MaxPositionHoldMinutes: 24 * 60,
	}
}

func (c RiskConfig) MaxHold() time.Duration {
	return time.Duration(c.MaxPositionHoldMinutes * float64(time.Minute))
}

func (c RiskConfig) Validate() error {
	if c.StopLossEnabled && c.StopLossPct <= 0 {
		return fmt.Errorf("%w: stop_loss_pct must be > 0", ErrInvalidRiskConfig)
	}

	if c.TakeProfitEnabled && c.TakeProfitPct <= 0 {
		return fmt.Errorf("%w: take_profit_pct must be > 0", ErrInvalidRiskConfig)
	}

	if c.TrailingStopEnabled && (c.TrailingStopPct <= 0 || c.TrailingStopPct >= 1) {
		return fmt.Errorf("%w: trailing_stop_pct must be in (0, 1)", ErrInvalidRiskConfig)
	}

	if c.TimeExitEnabled && c.MaxPositionHoldMinutes <= 0 {
		return fmt.Errorf("%w: max_position_hold_minutes must be > 0", ErrInvalidRiskConfig)
	}

	return nil
}

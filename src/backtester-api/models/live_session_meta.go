package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LiveSessionMeta describes how a live session was configured.
type LiveSessionMeta struct {
	Symbol        string          `json:"symbol" yaml:"symbol"`
	Timeframe     string          `json:"timeframe" yaml:"timeframe"`
	InitialEquity float64         `json:"initial_equity" yaml:"initial_equity"`
	PollInterval  time.Duration   `json:"poll_interval" yaml:"poll_interval"`
	Portfolio     PortfolioConfig `json:"portfolio" yaml:"portfolio"`

	// ContinueOnError keeps the loop running after a bar processing error instead of moving
	// the session to the error status.
	ContinueOnError bool `json:"continue_on_error" yaml:"continue_on_error"`
}

func (m *LiveSessionMeta) Validate() error {
	if m.Symbol == "" {
		return fmt.Errorf("LiveSessionMeta.Validate: symbol is not set")
	}

	if _, err := ParseTimeframe(m.Timeframe); err != nil {
		return fmt.Errorf("LiveSessionMeta.Validate: %w", err)
	}

	if m.InitialEquity <= 0 {
		return fmt.Errorf("LiveSessionMeta.Validate: initial equity must be > 0")
	}

	if m.PollInterval <= 0 {
		return fmt.Errorf("LiveSessionMeta.Validate: poll interval must be > 0")
	}

	if err := m.Portfolio.Validate(); err != nil {
		return fmt.Errorf("LiveSessionMeta.Validate: %w", err)
	}

	return nil
}

// LiveSessionSummary is the read-only view of a session returned by the manager.
type LiveSessionSummary struct {
	ID           uuid.UUID         `json:"id"`
	Meta         LiveSessionMeta   `json:"meta"`
	Status       LiveSessionStatus `json:"status"`
	ErrorMessage string            `json:"error_message,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	StartedAt    *time.Time        `json:"started_at"`
	StoppedAt    *time.Time        `json:"stopped_at"`
	Equity       float64           `json:"equity"`
	PositionSize float64           `json:"position_size"`
}

package eventpubsub

import (
	"time"

	"github.com/google/uuid"

	"github.com/jiaming2012/strategy-engine/src/backtester-api/models"
)

// SessionEvent is the payload published on every live session topic. Only the field that
// matches the topic is set.
type SessionEvent struct {
	SessionID uuid.UUID                `json:"session_id"`
	Symbol    string                   `json:"symbol"`
	Timestamp time.Time                `json:"timestamp"`
	Bar       *models.Bar              `json:"bar,omitempty"`
	Order     *models.Order            `json:"order,omitempty"`
	Account   *models.AccountState     `json:"account,omitempty"`
	Trade     *models.Trade            `json:"trade,omitempty"`
	Status    models.LiveSessionStatus `json:"status,omitempty"`
	Error     string                   `json:"error,omitempty"`
}

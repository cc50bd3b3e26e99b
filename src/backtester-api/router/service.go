package router

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/jiaming2012/strategy-engine/src/backtester-api/models"
	"github.com/jiaming2012/strategy-engine/src/backtester-api/services"
	"github.com/jiaming2012/strategy-engine/src/eventmodels"
)

type GetAccountResponse struct {
	Account  models.AccountState     `json:"account"`
	Position models.PositionSnapshot `json:"position"`
	Result   models.LiveResult       `json:"result"`
	Current  *models.Bar             `json:"current_bar"`
}

type StopSessionResponse struct {
	ID         uuid.UUID                `json:"id"`
	Terminated bool                     `json:"terminated"`
	Status     models.LiveSessionStatus `json:"status"`
}

func (h *sessionHandler) getSession(id uuid.UUID) (*services.LiveSession, error) {
	session, err := h.manager.GetSession(id)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			return nil, eventmodels.NewWebError(http.StatusNotFound, "session not found", err)
		}

		return nil, eventmodels.NewWebError(http.StatusInternalServerError, "failed to fetch session", err)
	}

	return session, nil
}

func (h *sessionHandler) getAccountInfo(id uuid.UUID) (*GetAccountResponse, error) {
	session, err := h.getSession(id)
	if err != nil {
		return nil, err
	}

	portfolio := session.Portfolio()

	return &GetAccountResponse{
		Account:  portfolio.GetAccountSnapshot(),
		Position: portfolio.GetPositionSnapshot(),
		Result:   session.GetResult(),
		Current:  session.CurrentBar(),
	}, nil
}

func (h *sessionHandler) getTrades(id uuid.UUID, limit int) ([]models.Trade, error) {
	session, err := h.getSession(id)
	if err != nil {
		return nil, err
	}

	return session.Portfolio().GetTradesSnapshot(limit), nil
}

func (h *sessionHandler) getEquityCurve(id uuid.UUID) ([]models.EquityPlotRecord, error) {
	session, err := h.getSession(id)
	if err != nil {
		return nil, err
	}

	return session.Portfolio().GetEquityCurve(), nil
}

func (h *sessionHandler) getRecentBars(id uuid.UUID) ([]models.Bar, error) {
	session, err := h.getSession(id)
	if err != nil {
		return nil, err
	}

	return session.RecentBars(), nil
}

func (h *sessionHandler) stopSession(id uuid.UUID) (*StopSessionResponse, error) {
	terminated, err := h.manager.StopSession(id)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			return nil, eventmodels.NewWebError(http.StatusNotFound, "session not found", err)
		}

		return nil, err
	}

	session, err := h.getSession(id)
	if err != nil {
		return nil, err
	}

	status, _ := session.Status()

	return &StopSessionResponse{
		ID:         id,
		Terminated: terminated,
		Status:     status,
	}, nil
}

func (h *sessionHandler) resetAccount(id uuid.UUID, equity float64) (*models.AccountState, error) {
	session, err := h.getSession(id)
	if err != nil {
		return nil, err
	}

	if equity <= 0 {
		equity = session.Meta().InitialEquity
	}

	if err := session.Portfolio().ResetAccount(equity); err != nil {
		return nil, eventmodels.NewWebError(http.StatusBadRequest, "failed to reset account", err)
	}

	account := session.Portfolio().GetAccountSnapshot()
	return &account, nil
}

func (h *sessionHandler) removeSession(id uuid.UUID) error {
	if err := h.manager.RemoveSession(id); err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			return eventmodels.NewWebError(http.StatusNotFound, "session not found", err)
		}

		return err
	}

	return nil
}

package router

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/strategy-engine/src/backtester-api/services"
	"github.com/jiaming2012/strategy-engine/src/eventmodels"
)

var decoder = newDecoder()

func newDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

type sessionHandler struct {
	manager *services.LiveSessionManager
}

type errorResponse struct {
	Type string `json:"type"`
	Msg  string `json:"message"`
}

func NewErrorResponse(errType string, message string) *errorResponse {
	return &errorResponse{
		Type: errType,
		Msg:  message,
	}
}

type TradesQuery struct {
	Limit int `schema:"limit"`
}

type ResetQuery struct {
	Equity float64 `schema:"equity"`
}

func setResponse(response interface{}, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(200)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		return fmt.Errorf("SetResponse: encode: %w", err)
	}

	return nil
}

func setErrorResponse(errType string, statusCode int, err error, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(eventmodels.StatusCodeOf(err, statusCode))

	resp := NewErrorResponse(errType, err.Error())
	if encodeErr := json.NewEncoder(w).Encode(resp); encodeErr != nil {
		return encodeErr
	}

	return nil
}

func parseSessionID(r *http.Request) (uuid.UUID, error) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		return uuid.Nil, eventmodels.NewWebError(http.StatusBadRequest, "invalid session id", err)
	}

	return id, nil
}

func (h *sessionHandler) handleSessions(w http.ResponseWriter, r *http.Request) {
	if err := setResponse(h.manager.ListSessions(), w); err != nil {
		log.Errorf("handleSessions: failed to set response: %v", err)
	}
}

func (h *sessionHandler) handleSession(w http.ResponseWriter, r *http.Request) {
	id, err := parseSessionID(r)
	if err != nil {
		setErrorResponse("handleSession: failed to parse session id", 400, err, w)
		return
	}

	session, err := h.getSession(id)
	if err != nil {
		setErrorResponse("handleSession: failed to get session", 500, err, w)
		return
	}

	if err := setResponse(session.Summary(), w); err != nil {
		log.Errorf("handleSession: failed to set response: %v", err)
	}
}

func (h *sessionHandler) handleAccount(w http.ResponseWriter, r *http.Request) {
	id, err := parseSessionID(r)
	if err != nil {
		setErrorResponse("handleAccount: failed to parse session id", 400, err, w)
		return
	}

	accountInfo, err := h.getAccountInfo(id)
	if err != nil {
		setErrorResponse("handleAccount: failed to get account info", 500, err, w)
		return
	}

	if err := setResponse(accountInfo, w); err != nil {
		log.Errorf("handleAccount: failed to set response: %v", err)
	}
}

func (h *sessionHandler) handleTrades(w http.ResponseWriter, r *http.Request) {
	id, err := parseSessionID(r)
	if err != nil {
		setErrorResponse("handleTrades: failed to parse session id", 400, err, w)
		return
	}

	var query TradesQuery
	if err := decoder.Decode(&query, r.URL.Query()); err != nil {
		setErrorResponse("handleTrades: failed to parse query", 400, err, w)
		return
	}

	trades, err := h.getTrades(id, query.Limit)
	if err != nil {
		setErrorResponse("handleTrades: failed to get trades", 500, err, w)
		return
	}

	response := map[string]interface{}{
		"trades": trades,
	}

	if err := setResponse(response, w); err != nil {
		log.Errorf("handleTrades: failed to set response: %v", err)
	}
}

func (h *sessionHandler) handleEquity(w http.ResponseWriter, r *http.Request) {
	id, err := parseSessionID(r)
	if err != nil {
		setErrorResponse("handleEquity: failed to parse session id", 400, err, w)
		return
	}

	curve, err := h.getEquityCurve(id)
	if err != nil {
		setErrorResponse("handleEquity: failed to get equity curve", 500, err, w)
		return
	}

	response := map[string]interface{}{
		"equity": curve,
	}

	if err := setResponse(response, w); err != nil {
		log.Errorf("handleEquity: failed to set response: %v", err)
	}
}

func (h *sessionHandler) handleBars(w http.ResponseWriter, r *http.Request) {
	id, err := parseSessionID(r)
	if err != nil {
		setErrorResponse("handleBars: failed to parse session id", 400, err, w)
		return
	}

	bars, err := h.getRecentBars(id)
	if err != nil {
		setErrorResponse("handleBars: failed to get bars", 500, err, w)
		return
	}

	response := map[string]interface{}{
		"bars": bars,
	}

	if err := setResponse(response, w); err != nil {
		log.Errorf("handleBars: failed to set response: %v", err)
	}
}

func (h *sessionHandler) handleStop(w http.ResponseWriter, r *http.Request) {
	id, err := parseSessionID(r)
	if err != nil {
		setErrorResponse("handleStop: failed to parse session id", 400, err, w)
		return
	}

	resp, err := h.stopSession(id)
	if err != nil {
		setErrorResponse("handleStop: failed to stop session", 500, err, w)
		return
	}

	if err := setResponse(resp, w); err != nil {
		log.Errorf("handleStop: failed to set response: %v", err)
	}
}

func (h *sessionHandler) handleReset(w http.ResponseWriter, r *http.Request) {
	id, err := parseSessionID(r)
	if err != nil {
		setErrorResponse("handleReset: failed to parse session id", 400, err, w)
		return
	}

	var query ResetQuery
	if err := decoder.Decode(&query, r.URL.Query()); err != nil {
		setErrorResponse("handleReset: failed to parse query", 400, err, w)
		return
	}

	account, err := h.resetAccount(id, query.Equity)
	if err != nil {
		setErrorResponse("handleReset: failed to reset account", 500, err, w)
		return
	}

	if err := setResponse(account, w); err != nil {
		log.Errorf("handleReset: failed to set response: %v", err)
	}
}

func (h *sessionHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseSessionID(r)
	if err != nil {
		setErrorResponse("handleDelete: failed to parse session id", 400, err, w)
		return
	}

	if err := h.removeSession(id); err != nil {
		setErrorResponse("handleDelete: failed to remove session", 500, err, w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetupHandler mounts the live session read API on router.
func SetupHandler(router *mux.Router, manager *services.LiveSessionManager) {
	h := &sessionHandler{manager: manager}

	router.HandleFunc("", h.handleSessions).Methods(http.MethodGet)
	router.HandleFunc("/{id}", h.handleSession).Methods(http.MethodGet)
	router.HandleFunc("/{id}", h.handleDelete).Methods(http.MethodDelete)
	router.HandleFunc("/{id}/account", h.handleAccount).Methods(http.MethodGet)
	router.HandleFunc("/{id}/trades", h.handleTrades).Methods(http.MethodGet)
	router.HandleFunc("/{id}/equity", h.handleEquity).Methods(http.MethodGet)
	router.HandleFunc("/{id}/bars", h.handleBars).Methods(http.MethodGet)
	router.HandleFunc("/{id}/stop", h.handleStop).Methods(http.MethodPost)
	router.HandleFunc("/{id}/reset", h.handleReset).Methods(http.MethodPost)
}

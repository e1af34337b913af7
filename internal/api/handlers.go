package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/talkai/tickerbot/internal/bot"
	"github.com/talkai/tickerbot/internal/database"
	"github.com/talkai/tickerbot/internal/ledger"
	"github.com/talkai/tickerbot/internal/market"
	"github.com/talkai/tickerbot/internal/models"
	"github.com/talkai/tickerbot/internal/valuation"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	db      *database.DB
	applier *ledger.Applier
	engine  *valuation.Engine
	bot     *bot.Bot
	log     zerolog.Logger
}

// NewHandler creates a new Handler
func NewHandler(db *database.DB, applier *ledger.Applier, engine *valuation.Engine, b *bot.Bot, log zerolog.Logger) *Handler {
	return &Handler{
		db:      db,
		applier: applier,
		engine:  engine,
		bot:     b,
		log:     log.With().Str("component", "api").Logger(),
	}
}

// CreateUser handles POST /users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		SlackID string `json:"slack_id"`
		TeamID  string `json:"team_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" {
		http.Error(w, "email is required", http.StatusBadRequest)
		return
	}

	user := &models.User{
		Email:   req.Email,
		Name:    req.Name,
		SlackID: req.SlackID,
		TeamID:  req.TeamID,
	}
	if err := h.db.CreateUser(user); err != nil {
		h.log.Error().Err(err).Msg("create user failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

// GetUser handles GET /users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}

	user, err := h.db.GetUserByID(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// GetPortfolio handles GET /users/{id}/portfolio
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}

	user, err := h.db.GetUserByID(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	holdings, err := h.db.GetHoldingsByUser(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"cash":     user.Cash,
		"holdings": holdings,
	})
}

// GetValue handles GET /users/{id}/value[?on=2006-01-02]
func (h *Handler) GetValue(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}

	onParam := r.URL.Query().Get("on")
	if onParam == "" {
		value, err := h.engine.CurrentValue(r.Context(), id)
		if err != nil {
			h.valueError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"value": value})
		return
	}

	on, err := time.Parse("2006-01-02", onParam)
	if err != nil {
		http.Error(w, "invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	value, err := h.engine.ValueOn(r.Context(), id, on)
	if err != nil {
		h.valueError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"on": onParam, "value": value})
}

// GetValueSeries handles GET /users/{id}/value/series[?days=7]
func (h *Handler) GetValueSeries(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}

	days := 7
	if d := r.URL.Query().Get("days"); d != "" {
		parsed, err := strconv.Atoi(d)
		if err != nil || parsed <= 0 {
			http.Error(w, "days must be a positive integer", http.StatusBadRequest)
			return
		}
		days = parsed
	}

	points, err := h.engine.ValueSeries(r.Context(), id, days)
	if err != nil {
		h.valueError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, points)
}

// GetTransactions handles GET /users/{id}/transactions[?limit=50]
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	transactions, err := h.db.GetTransactionsByUser(id, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, transactions)
}

// Buy handles POST /users/{id}/buy
func (h *Handler) Buy(w http.ResponseWriter, r *http.Request) {
	h.trade(w, r, h.applier.Buy)
}

// Sell handles POST /users/{id}/sell
func (h *Handler) Sell(w http.ResponseWriter, r *http.Request) {
	h.trade(w, r, h.applier.Sell)
}

func (h *Handler) trade(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, userID int, ticker string, quantity int64) (*ledger.Receipt, error)) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req struct {
		Ticker   string `json:"ticker"`
		Quantity int64  `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Ticker == "" {
		http.Error(w, "ticker is required", http.StatusBadRequest)
		return
	}

	receipt, err := apply(r.Context(), id, req.Ticker, req.Quantity)
	if err != nil {
		h.tradeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, receipt)
}

// GetRanking handles GET /teams/{id}/ranking
func (h *Handler) GetRanking(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	teamID := vars["id"]

	ranked, err := h.engine.RankTeam(r.Context(), teamID)
	if err != nil {
		h.valueError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ranked)
}

// ResetUser handles POST /users/{id}/reset
func (h *Handler) ResetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}

	if err := h.db.ResetUser(id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateNotifications handles PATCH /users/{id}/notifications
func (h *Handler) UpdateNotifications(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req struct {
		Frequency string `json:"frequency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	switch req.Frequency {
	case models.NotifyDaily, models.NotifyWeekly, models.NotifyOff:
	default:
		http.Error(w, "frequency must be daily, weekly or off", http.StatusBadRequest)
		return
	}

	if err := h.db.UpdateNotificationFrequency(id, req.Frequency); err != nil {
		if strings.Contains(err.Error(), "not found") {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PostMessage handles POST /messages: a resolved chat intent in, a
// platform-neutral reply out
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID      int    `json:"user_id"`
		Intent      string `json:"intent"`
		Ticker      string `json:"ticker,omitempty"`
		OtherTicker string `json:"other_ticker,omitempty"`
		Quantity    int64  `json:"quantity,omitempty"`
		On          string `json:"on,omitempty"`
		Days        int    `json:"days,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	intent, err := bot.ParseIntent(req.Intent)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	botReq := &bot.Request{
		Intent:      intent,
		UserID:      req.UserID,
		Ticker:      req.Ticker,
		OtherTicker: req.OtherTicker,
		Quantity:    req.Quantity,
		Days:        req.Days,
	}
	if req.On != "" {
		on, err := time.Parse("2006-01-02", req.On)
		if err != nil {
			http.Error(w, "invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		botReq.On = &on
	}

	reply, err := h.bot.Handle(r.Context(), botReq)
	if err != nil {
		h.log.Error().Err(err).Str("intent", req.Intent).Msg("message handling failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, reply)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (int, bool) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// tradeError maps trade failures: business rejections are 422 with a plain
// message, an unreachable oracle is 502, anything else is 500
func (h *Handler) tradeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInsufficientFunds),
		errors.Is(err, models.ErrNoPosition),
		errors.Is(err, models.ErrInvalidQuantity):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, market.ErrPriceUnavailable):
		h.log.Warn().Err(err).Msg("trade rejected, price unavailable")
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		h.log.Error().Err(err).Msg("trade failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) valueError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, market.ErrPriceUnavailable):
		h.log.Warn().Err(err).Msg("valuation failed, price unavailable")
		http.Error(w, err.Error(), http.StatusBadGateway)
	case strings.Contains(err.Error(), "not found"):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		h.log.Error().Err(err).Msg("valuation failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rl1809/bloodbank/internal/core/domain"
	"github.com/rl1809/bloodbank/internal/core/service"
	"github.com/rl1809/bloodbank/internal/port"
)

const (
	// Journal session recorded for adjustments made over HTTP.
	adminSession = -1

	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

type HTTPHandler struct {
	inventory *service.InventoryService
	journal   port.JournalRepository
}

type AdjustHTTPRequest struct {
	Type      string  `json:"type"`
	Direction string  `json:"direction"`
	Amount    float64 `json:"amount"`
}

type AdjustHTTPResponse struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Balance float64 `json:"balance,omitempty"`
}

type StockHTTPResponse struct {
	Stock map[string]float64 `json:"stock"`
	Total float64            `json:"total"`
}

type AdjustmentHTTPResponse struct {
	ID        string    `json:"id"`
	Session   int       `json:"session"`
	Type      string    `json:"type"`
	Direction string    `json:"direction"`
	Amount    float64   `json:"amount"`
	Balance   float64   `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

// NewHTTPHandler serves the admin API. journal may be nil, in which case the
// history endpoint answers 404.
func NewHTTPHandler(inventory *service.InventoryService, journal port.JournalRepository) *HTTPHandler {
	return &HTTPHandler{inventory: inventory, journal: journal}
}

// Routes registers the admin endpoints on a new mux.
func (h *HTTPHandler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.HealthCheck)
	mux.HandleFunc("/api/stock", h.Stock)
	mux.HandleFunc("/api/adjust", h.Adjust)
	mux.HandleFunc("/api/adjustments", h.Adjustments)
	return mux
}

func (h *HTTPHandler) Stock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	inv, err := h.inventory.Snapshot(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to read inventory")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	stock := make(map[string]float64, domain.TypeCount)
	for _, t := range domain.AllTypes() {
		stock[t.String()] = inv.Get(t)
	}
	writeJSON(w, http.StatusOK, StockHTTPResponse{Stock: stock, Total: inv.Total()})
}

func (h *HTTPHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req AdjustHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, AdjustHTTPResponse{
			Success: false,
			Message: "invalid request body",
		})
		return
	}

	t, err := domain.ParseBloodType(req.Type)
	direction := domain.Direction(req.Direction)
	if err != nil || !direction.Valid() || req.Amount <= 0 {
		writeJSON(w, http.StatusBadRequest, AdjustHTTPResponse{
			Success: false,
			Message: "missing or invalid fields",
		})
		return
	}

	adj, err := h.inventory.Adjust(r.Context(), adminSession, direction, t, req.Amount)
	if err != nil {
		status := http.StatusInternalServerError
		message := "internal error"

		if errors.Is(err, service.ErrInsufficientStock) {
			status = http.StatusConflict
			message = "insufficient stock"
		} else if errors.Is(err, service.ErrInvalidAmount) {
			status = http.StatusBadRequest
			message = "amount must be greater than zero"
		} else {
			log.Error().Err(err).Msg("failed to adjust stock")
		}

		writeJSON(w, status, AdjustHTTPResponse{
			Success: false,
			Message: message,
		})
		return
	}

	writeJSON(w, http.StatusOK, AdjustHTTPResponse{
		Success: true,
		Message: "stock adjusted",
		Balance: adj.Balance,
	})
}

// Adjustments lists the most recent journaled adjustments, newest first.
func (h *HTTPHandler) Adjustments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.journal == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "journal disabled"})
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = n
	}

	adjustments, err := h.journal.RecentAdjustments(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to read journal")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	resp := make([]AdjustmentHTTPResponse, 0, len(adjustments))
	for _, adj := range adjustments {
		resp = append(resp, AdjustmentHTTPResponse{
			ID:        adj.ID,
			Session:   adj.Session,
			Type:      adj.Type.String(),
			Direction: string(adj.Direction),
			Amount:    adj.Amount,
			Balance:   adj.Balance,
			CreatedAt: adj.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

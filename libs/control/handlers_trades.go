package control

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ManagedTrade describes a strategy-owned position the control plane exposes
// for monitoring and exit-strategy adjustment. Strategy authorship is out of
// this kernel's scope, so the shape is deliberately generic: ExitStrategy is
// an opaque JSON document the owning strategy defines and interprets.
type ManagedTrade struct {
	TradeID        uuid.UUID       `json:"tradeId"`
	Symbol         string          `json:"symbol"`
	Direction      string          `json:"direction"`
	EntryTimestamp time.Time       `json:"entryTimestamp"`
	ExitStrategy   json.RawMessage `json:"exitStrategy"`
}

// ManagedTradeStore is implemented by whatever strategy layer tracks
// multi-leg managed trades. The control plane depends only on this
// interface, never on a concrete strategy.
type ManagedTradeStore interface {
	ListManagedTrades(ctx context.Context) ([]ManagedTrade, error)
	UpdateExitStrategy(ctx context.Context, tradeID uuid.UUID, newStrategy json.RawMessage) error
}

// RegisterManagedTrades attaches GET /trades/managed and
// POST /trades/{id}/exit-strategy. Both respond 503 until a
// ManagedTradeStore is configured via SetManagedTradeStore.
func (s *Server) RegisterManagedTrades() {
	s.mux.HandleFunc("/trades/managed", s.handleListManagedTrades)
	s.mux.HandleFunc("/trades/", s.handleUpdateExitStrategy)
}

func (s *Server) handleListManagedTrades(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.managedTrades == nil {
		http.Error(w, "managed trade store not configured", http.StatusServiceUnavailable)
		return
	}

	trades, err := s.managedTrades.ListManagedTrades(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"trades": trades})
}

func (s *Server) handleUpdateExitStrategy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.managedTrades == nil {
		http.Error(w, "managed trade store not configured", http.StatusServiceUnavailable)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/trades/")
	path = strings.TrimSuffix(path, "/exit-strategy")
	tradeID, err := uuid.Parse(path)
	if err != nil {
		http.Error(w, "invalid trade id", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	if !json.Valid(body) {
		http.Error(w, "invalid exit strategy json", http.StatusBadRequest)
		return
	}

	if err := s.managedTrades.UpdateExitStrategy(r.Context(), tradeID, body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
}

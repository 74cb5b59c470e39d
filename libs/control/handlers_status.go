package control

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

type statusResponse struct {
	Shutdown          bool            `json:"shutdown"`
	LiquidateOnly     bool            `json:"liquidateOnly"`
	ActiveAlgorithms  int             `json:"activeAlgorithms"`
	LastTickTimestamp time.Time       `json:"lastTickTimestamp,omitzero"`
	Equity            decimal.Decimal `json:"equity"`
}

// RegisterStatus attaches GET /status, a quick health-and-exposure snapshot
// for operators and the heartbeat page.
func (s *Server) RegisterStatus() {
	s.mux.HandleFunc("/status", s.handleStatus)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	book := s.orch.Portfolio()
	resp := statusResponse{
		Shutdown:          s.isShuttingDown(),
		LiquidateOnly:     book.LiquidateOnly(),
		ActiveAlgorithms:  s.orch.ActiveAlgorithmsCount(),
		LastTickTimestamp: s.orch.LastTickAt(),
		Equity:            book.Equity(s.reportingCurrency),
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

package control

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"jax-trading-assistant/libs/core"
)

type portfolioResponse struct {
	Positions  []core.Position       `json:"positions"`
	Balances   []core.AccountBalance `json:"balances"`
	OpenOrders []core.Order          `json:"openOrders"`
	Equity     decimal.Decimal       `json:"equity"`
}

// RegisterPortfolio attaches GET /portfolio, returning the current positions,
// balances, and open orders alongside equity in the configured reporting
// currency.
func (s *Server) RegisterPortfolio() {
	s.mux.HandleFunc("/portfolio", s.handlePortfolio)
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot := s.orch.Portfolio().Snapshot()
	resp := portfolioResponse{
		OpenOrders: snapshot.OpenOrders,
		Equity:     s.orch.Portfolio().Equity(s.reportingCurrency),
	}
	for _, pos := range snapshot.Positions {
		resp.Positions = append(resp.Positions, pos)
	}
	for _, bal := range snapshot.Balances {
		resp.Balances = append(resp.Balances, bal)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

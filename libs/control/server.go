// Package control implements the live execution kernel's administrative HTTP
// surface: portfolio/status/open-order reads, a cancel-all panic button,
// managed-trade exit-strategy updates, and a streaming feed of event-bus
// activity. It is the Go analogue of the original system's gRPC control
// service — no grpc/tonic dependency appears anywhere in the pack this
// module draws from, so the surface is expressed as JSON over
// net/http.ServeMux instead, following the same Server{mux}/RegisterXxx
// idiom the rest of this codebase's HTTP layer already uses.
package control

import (
	"context"
	"errors"
	"net/http"
	"time"

	"jax-trading-assistant/libs/auth"
	"jax-trading-assistant/libs/core"
	"jax-trading-assistant/libs/eventbus"
	"jax-trading-assistant/libs/middleware"
	"jax-trading-assistant/libs/orchestrator"
)

// Server is the control plane's HTTP surface. Collaborators are wired in at
// construction; RegisterXxx methods attach individual endpoint groups to the
// mux so a caller can opt into only the endpoints it needs.
type Server struct {
	mux   *http.ServeMux
	orch  *orchestrator.Orchestrator
	bus   *eventbus.Bus
	jwt   *auth.JWTManager

	reportingCurrency core.AssetID
	shutdownRequested func() bool
	managedTrades     ManagedTradeStore
}

// NewServer returns a Server with no endpoints registered yet. jwt may be
// nil, which disables authentication entirely (used in tests and local
// development); shutdownRequested may be nil, treated as "never shutting
// down".
func NewServer(orch *orchestrator.Orchestrator, bus *eventbus.Bus, jwt *auth.JWTManager, reportingCurrency core.AssetID, shutdownRequested func() bool) *Server {
	return &Server{
		mux:               http.NewServeMux(),
		orch:              orch,
		bus:               bus,
		jwt:               jwt,
		reportingCurrency: reportingCurrency,
		shutdownRequested: shutdownRequested,
	}
}

// SetManagedTradeStore wires in the strategy-layer's managed-trade store.
// Left nil, the managed-trade endpoints respond 503, matching how this
// codebase's other handlers report an unconfigured backing store.
func (s *Server) SetManagedTradeStore(store ManagedTradeStore) {
	s.managedTrades = store
}

// RegisterAll attaches every endpoint group. Most callers want this; the
// per-group RegisterXxx methods exist for callers (and tests) that want a
// narrower surface.
func (s *Server) RegisterAll() {
	s.RegisterPortfolio()
	s.RegisterOpenOrders()
	s.RegisterStatus()
	s.RegisterCancelAll()
	s.RegisterManagedTrades()
	s.RegisterMonitor()
}

// Handler returns the assembled http.Handler: flow-ID propagation and CORS
// outermost, then JWT auth (when a JWTManager was configured), then the
// mux. Every operator request against this control plane can be traced
// end-to-end via its flow_id the same way a trade decision is.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	if s.jwt != nil {
		h = s.jwt.Middleware(h)
	}
	h = middleware.CORS(middleware.CORSConfigFromEnv())(h)
	return middleware.FlowID(h)
}

func (s *Server) isShuttingDown() bool {
	if s.shutdownRequested == nil {
		return false
	}
	return s.shutdownRequested()
}

// ListenAndServe runs the control plane until ctx is cancelled, then shuts
// the HTTP server down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"jax-trading-assistant/libs/auth"
	"jax-trading-assistant/libs/conditional"
	"jax-trading-assistant/libs/control"
	"jax-trading-assistant/libs/core"
	"jax-trading-assistant/libs/eventbus"
	"jax-trading-assistant/libs/fees"
	"jax-trading-assistant/libs/ledger"
	"jax-trading-assistant/libs/orchestrator"
	"jax-trading-assistant/libs/portfolio"
	"jax-trading-assistant/libs/ratelimit"
	"jax-trading-assistant/libs/reconcile"
	"jax-trading-assistant/libs/resilience"
	"jax-trading-assistant/libs/venue"
)

// kernelConfig is the live execution kernel's configuration surface, bound
// via viper so it can come from KERNEL_-prefixed environment variables or a
// config file, the same way fees.ScheduleConfig's mapstructure tags are
// meant to be loaded.
type kernelConfig struct {
	ControlAddr       string              `mapstructure:"control_addr"`
	ReportingCurrency string              `mapstructure:"reporting_currency"`
	Venue             string              `mapstructure:"venue"`
	Symbols           []string            `mapstructure:"symbols"`
	RateLimitPerSec   float64             `mapstructure:"rate_limit_per_second"`
	RateLimitBurst    int                 `mapstructure:"rate_limit_burst"`
	LedgerArchiveDir  string              `mapstructure:"ledger_archive_dir"`
	ReconcileInterval time.Duration       `mapstructure:"reconcile_interval"`
	JWTSecret         string              `mapstructure:"jwt_secret"`
	Fees              fees.ScheduleConfig `mapstructure:"fees"`
}

func loadKernelConfig() (kernelConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("KERNEL")
	v.AutomaticEnv()
	v.SetDefault("control_addr", ":8101")
	v.SetDefault("reporting_currency", "paper:USDT")
	v.SetDefault("venue", "paper")
	v.SetDefault("symbols", []string{"BTCUSDT"})
	v.SetDefault("rate_limit_per_second", 10.0)
	v.SetDefault("rate_limit_burst", 20)
	v.SetDefault("ledger_archive_dir", "./data/ledger")
	v.SetDefault("reconcile_interval", 30*time.Second)
	v.SetDefault("fees.default_maker_bps", decimal.NewFromInt(1))
	v.SetDefault("fees.default_taker_bps", decimal.NewFromInt(5))

	if configPath := v.GetString("config"); configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return kernelConfig{}, fmt.Errorf("kernel: read config: %w", err)
		}
	}

	var cfg kernelConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return kernelConfig{}, fmt.Errorf("kernel: unmarshal config: %w", err)
	}
	return cfg, nil
}

// kernel bundles the running live execution kernel's pieces so shutdown can
// tear them down in order.
type kernel struct {
	cfg        kernelConfig
	orch       *orchestrator.Orchestrator
	book       *portfolio.Portfolio
	client     *venue.PaperExecutionClient
	bus        *eventbus.Bus
	control    *control.Server
	ledgerRepo ledger.Repository
}

// startKernel wires the live execution kernel — paper venue client, broker
// gateway, ledger, event bus, orchestrator, reconciliation loop, and the
// control plane HTTP server — and runs it until ctx is cancelled. It runs
// alongside the legacy research/signal-generation surface already served by
// the rest of this binary; the two do not share state.
func startKernel(ctx context.Context, cfg kernelConfig) (*kernel, error) {
	exchange := core.ExchangeID(cfg.Venue)
	reportingCurrency := core.AssetID(cfg.ReportingCurrency)

	instruments := make(map[core.Symbol]core.Instrument, len(cfg.Symbols))
	for _, code := range cfg.Symbols {
		sym := core.Symbol{Venue: exchange, Code: code}
		base, quote := splitSymbol(code)
		instruments[sym] = core.Instrument{
			Symbol:       sym,
			Kind:         core.InstrumentSpot,
			BaseAsset:    core.AssetID(string(exchange) + ":" + base),
			QuoteAsset:   core.AssetID(string(exchange) + ":" + quote),
			SettleAsset:  core.AssetID(string(exchange) + ":" + quote),
			PriceTick:    decimal.New(1, -2),
			QuantityStep: decimal.New(1, -6),
			ContractSize: decimal.NewFromInt(1),
		}
	}

	feeModel := cfg.Fees.BuildModel()
	startingBalances := map[core.AssetID]core.AccountBalance{
		reportingCurrency: {Asset: reportingCurrency, Free: decimal.NewFromInt(100000), UpdatedAt: time.Now()},
	}
	client := venue.NewPaperExecutionClient(feeModel, startingBalances)

	limiter := ratelimit.Direct(ratelimit.Quota{RatePerSecond: cfg.RateLimitPerSec, Burst: cfg.RateLimitBurst})
	breaker := resilience.NewCircuitBreaker(resilience.DefaultConfig("broker-gateway"))
	gateway := orchestrator.NewBrokerGateway(client, limiter, breaker)

	book := portfolio.New(startingBalances)
	ledgerRepo := ledger.NewColumnarRepository(cfg.LedgerArchiveDir)
	sequencer, err := ledger.Bootstrap(ctx, ledgerRepo)
	if err != nil {
		return nil, fmt.Errorf("kernel: bootstrap ledger sequencer: %w", err)
	}

	bus := eventbus.New(256)
	conditionalMgr := conditional.New()

	orch := orchestrator.New(gateway, conditionalMgr, book, ledgerRepo, sequencer, bus, instruments)

	var jwtManager *auth.JWTManager
	if cfg.JWTSecret != "" {
		manager, err := auth.NewJWTManager(auth.Config{Secret: []byte(cfg.JWTSecret)})
		if err != nil {
			return nil, fmt.Errorf("kernel: build JWT manager: %w", err)
		}
		jwtManager = manager
	}

	shuttingDown := false
	srv := control.NewServer(orch, bus, jwtManager, reportingCurrency, func() bool { return shuttingDown })
	srv.RegisterAll()

	k := &kernel{cfg: cfg, orch: orch, book: book, client: client, bus: bus, control: srv, ledgerRepo: ledgerRepo}

	go func() {
		if err := srv.ListenAndServe(ctx, cfg.ControlAddr); err != nil && err != http.ErrServerClosed {
			log.Printf("kernel: control plane stopped: %v", err)
		}
	}()

	go k.runReconciliationLoop(ctx)

	log.Printf("kernel: live execution kernel listening on %s (venue=%s symbols=%v)", cfg.ControlAddr, cfg.Venue, cfg.Symbols)
	return k, nil
}

// runReconciliationLoop periodically compares the local book against the
// venue-reported state and repairs divergence, selecting on ctx.Done() the
// way every other long-lived goroutine in this process does.
func (k *kernel) runReconciliationLoop(ctx context.Context) {
	ticker := time.NewTicker(k.cfg.ReconcileInterval)
	defer ticker.Stop()

	handler := reconcile.NewRuntimeHandler(reconcile.RuntimeHandlerConfig{
		Fills:             k.client,
		Canceller:         k.client,
		Sink:              k.book,
		Orders:            k.book,
		Liquidate:         k.book,
		ReportingCurrency: core.AssetID(k.cfg.ReportingCurrency),
	})
	differ := reconcile.StateDiffer{}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			remoteOrders, err := k.client.OpenOrders(ctx)
			if err != nil {
				log.Printf("kernel: reconcile: list open orders: %v", err)
				continue
			}
			remotePositions, err := k.client.Positions(ctx)
			if err != nil {
				log.Printf("kernel: reconcile: list positions: %v", err)
				continue
			}
			remoteBalances, err := k.client.Balances(ctx)
			if err != nil {
				log.Printf("kernel: reconcile: list balances: %v", err)
				continue
			}

			local := k.book.Snapshot()
			remote := reconcile.RemoteSnapshot{OpenOrders: remoteOrders, Positions: remotePositions, Balances: remoteBalances}
			report := differ.Diff(local, remote)
			if err := handler.Handle(ctx, report); err != nil {
				log.Printf("kernel: reconcile: handle report: %v", err)
			}
		}
	}
}

func splitSymbol(code string) (base, quote string) {
	for _, quoteAsset := range []string{"USDT", "USD", "USDC", "BTC", "ETH"} {
		if strings.HasSuffix(code, quoteAsset) && len(code) > len(quoteAsset) {
			return strings.TrimSuffix(code, quoteAsset), quoteAsset
		}
	}
	return code, "USD"
}

package control

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"jax-trading-assistant/libs/conditional"
	"jax-trading-assistant/libs/core"
	"jax-trading-assistant/libs/eventbus"
	"jax-trading-assistant/libs/fees"
	"jax-trading-assistant/libs/ledger"
	"jax-trading-assistant/libs/orchestrator"
	"jax-trading-assistant/libs/portfolio"
	"jax-trading-assistant/libs/venue"
)

func testSymbol() core.Symbol { return core.Symbol{Venue: "paper", Code: "BTCUSDT"} }

type memoryLedgerRepo struct {
	entries []ledger.Entry
}

func (r *memoryLedgerRepo) Append(_ context.Context, entry ledger.Entry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memoryLedgerRepo) AppendBatch(_ context.Context, entries []ledger.Entry) error {
	r.entries = append(r.entries, entries...)
	return nil
}

func (r *memoryLedgerRepo) LatestSequence(context.Context) (uint64, error) { return 0, nil }

func (r *memoryLedgerRepo) Query(context.Context, ledger.Query) ([]ledger.Entry, error) {
	return r.entries, nil
}

func newTestServer(t *testing.T) (*Server, *orchestrator.Orchestrator, *venue.PaperExecutionClient) {
	t.Helper()
	startingBalances := map[core.AssetID]core.AccountBalance{
		"paper:USDT": {Asset: "paper:USDT", Free: decimal.NewFromInt(10000)},
	}
	client := venue.NewPaperExecutionClient(fees.Flat(decimal.Zero).BuildModel(), startingBalances)
	gateway := orchestrator.NewBrokerGateway(client, nil, nil)
	book := portfolio.New(startingBalances)
	repo := &memoryLedgerRepo{}
	seq, err := ledger.Bootstrap(context.Background(), repo)
	require.NoError(t, err)
	bus := eventbus.New(8)
	instruments := map[core.Symbol]core.Instrument{
		testSymbol(): {Symbol: testSymbol(), Kind: core.InstrumentSpot, BaseAsset: "paper:BTC", QuoteAsset: "paper:USDT"},
	}

	orch := orchestrator.New(gateway, conditional.New(), book, repo, seq, bus, instruments)
	srv := NewServer(orch, bus, nil, "paper:USDT", nil)
	return srv, orch, client
}

func primeTick(client *venue.PaperExecutionClient, price int64) {
	client.OnTick(core.Tick{Symbol: testSymbol(), Price: decimal.NewFromInt(price), Timestamp: time.Now()})
}

package control

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"jax-trading-assistant/libs/core"
	"jax-trading-assistant/libs/eventbus"
)

func TestHandleMonitorStreamsBusEvents(t *testing.T) {
	srv, _, _ := newTestServer(t)
	srv.RegisterMonitor()

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/monitor", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	// Give the handler a moment to subscribe before publishing, since Publish
	// only reaches subscribers registered at call time.
	time.Sleep(20 * time.Millisecond)
	srv.bus.Publish(eventbus.TickEvent(core.Tick{Symbol: testSymbol(), Price: decimal.NewFromInt(100), Timestamp: time.Now()}))

	scanner := bufio.NewScanner(resp.Body)
	require.True(t, scanner.Scan())

	var event eventbus.Event
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &event))
	require.Equal(t, eventbus.KindTick, event.Kind)
	require.NotNil(t, event.Tick)
	require.True(t, event.Tick.Price.Equal(decimal.NewFromInt(100)))
}

func TestHandleMonitorRejectsNonGet(t *testing.T) {
	srv, _, _ := newTestServer(t)
	srv.RegisterMonitor()

	req := httptest.NewRequest(http.MethodPost, "/monitor", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

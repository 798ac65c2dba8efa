package monitor_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/atlas-desktop/trading-backend/internal/analyzer"
	"github.com/atlas-desktop/trading-backend/internal/eventbus"
	"github.com/atlas-desktop/trading-backend/internal/monitor"
	"github.com/atlas-desktop/trading-backend/pkg/types"
	"go.uber.org/zap"
)

type fakeQueues struct{ high, low int }

func (f fakeQueues) HighQueueLen() int { return f.high }
func (f fakeQueues) LowQueueLen() int  { return f.low }

type fakeExchange struct{ fills, dropped int64 }

func (f fakeExchange) Stats() (int64, int64) { return f.fills, f.dropped }

func TestStatusEndpointServesAnalyzerSnapshot(t *testing.T) {
	m := eventbus.NewEventManager(zap.NewNop(), time.Second)
	analyzerInbox := m.NewEndpoint()
	m.Register(eventbus.DiscriminatorMarketData, analyzerInbox)
	m.Register(eventbus.DiscriminatorPortfolioInfo, analyzerInbox)
	m.Register(eventbus.DiscriminatorShutDown, analyzerInbox)
	a := analyzer.New(zap.NewNop(), analyzerInbox, nil)
	go a.Run()

	monitorInbox := m.NewEndpoint()
	m.Register(eventbus.DiscriminatorPortfolioInfo, monitorInbox)
	m.Register(eventbus.DiscriminatorShutDown, monitorInbox)

	mon := monitor.New(zap.NewNop(), monitorInbox, a, fakeQueues{high: 1, low: 2}, fakeExchange{fills: 3, dropped: 1})

	srv := httptest.NewServer(mon.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var snap types.AnalyzerSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

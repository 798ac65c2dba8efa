package analyzer_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/atlas-desktop/trading-backend/internal/analyzer"
	"github.com/atlas-desktop/trading-backend/internal/eventbus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func TestAnalyzerAccumulatesMarketAndPortfolioSeries(t *testing.T) {
	m := eventbus.NewEventManager(zap.NewNop(), time.Second)
	inbox := m.NewEndpoint()
	m.Register(eventbus.DiscriminatorMarketData, inbox)
	m.Register(eventbus.DiscriminatorPortfolioInfo, inbox)
	m.Register(eventbus.DiscriminatorShutDown, inbox)

	a := analyzer.New(zap.NewNop(), inbox, nil)
	go a.Run()
	go m.Run()

	low := m.GrantPublisher(eventbus.Low)
	high := m.GrantPublisher(eventbus.High)

	low.Publish(eventbus.NewMarketDataEvent("bar-1", "X", dec(10), dec(10), dec(10), dec(10), 100))
	time.Sleep(10 * time.Millisecond)

	p := eventbus.NewPortfolio(dec(1000))
	high.Publish(eventbus.NewPortfolioInfoEvent(p))
	time.Sleep(10 * time.Millisecond)

	snap := a.Snapshot()
	if snap.Samples != 1 {
		t.Fatalf("expected 1 asset sample, got %d", snap.Samples)
	}
	if !snap.LastAsset.Equal(dec(1000)) {
		t.Fatalf("expected last asset 1000, got %s", snap.LastAsset)
	}
	if !snap.LastMarket.Equal(dec(10)) {
		t.Fatalf("expected last market 10, got %s", snap.LastMarket)
	}
}

func TestRendererWritesChartOnceSeriesGrow(t *testing.T) {
	m := eventbus.NewEventManager(zap.NewNop(), time.Second)
	inbox := m.NewEndpoint()
	m.Register(eventbus.DiscriminatorMarketData, inbox)
	m.Register(eventbus.DiscriminatorPortfolioInfo, inbox)
	m.Register(eventbus.DiscriminatorShutDown, inbox)

	path := filepath.Join(t.TempDir(), "chart.png")
	r := analyzer.NewRenderer(zap.NewNop(), path, 320, 240)
	a := analyzer.New(zap.NewNop(), inbox, r)

	go a.Run()
	go m.Run()
	r.Start(a)
	defer r.Stop()

	low := m.GrantPublisher(eventbus.Low)
	low.Publish(eventbus.NewMarketDataEvent("bar-1", "X", dec(10), dec(10), dec(10), dec(10), 100))

	time.Sleep(1200 * time.Millisecond)

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected chart file to be rendered: %v", err)
	}
}

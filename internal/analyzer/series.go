// Package analyzer implements the Data Analyzer: an external collaborator
// that accumulates three parallel time series (benchmark close, portfolio
// asset, portfolio cash), renders a raster chart once per second off a
// mutex-guarded snapshot, and computes the performance/risk metrics table
// spec.md §4.4 calls for.
package analyzer

import (
	"sync"
	"time"

	"github.com/atlas-desktop/trading-backend/internal/eventbus"
	"github.com/atlas-desktop/trading-backend/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// point is a single time-stamped sample.
type point struct {
	timestamp string
	value     decimal.Decimal
}

// Analyzer accumulates the three series and periodically renders them.
// Each series is protected by its own mutex; the renderer always takes
// them in a fixed order (market, asset, cash) to avoid deadlock with any
// future writer that might need more than one (spec.md §5).
type Analyzer struct {
	logger *zap.Logger
	inbox  *eventbus.Endpoint

	marketMu sync.Mutex
	market   []point

	assetMu sync.Mutex
	asset   []point

	cashMu sync.Mutex
	cash   []point

	// lastTimestamp is the most recently observed MarketData timestamp.
	// PortfolioInfo samples are stamped with it rather than with wall
	// clock time or the event's own arrival time — a behavior confirmed
	// against the original Rust prototype's data_analyzer.rs and carried
	// forward as a supplemented detail spec.md itself is silent on.
	lastTimestamp string

	renderer *Renderer
}

// New constructs an Analyzer reading from inbox, which the caller must
// register against MarketData, PortfolioInfo, and ShutDown.
func New(logger *zap.Logger, inbox *eventbus.Endpoint, renderer *Renderer) *Analyzer {
	return &Analyzer{logger: logger, inbox: inbox, renderer: renderer}
}

// Run is the Analyzer's receive loop.
func (a *Analyzer) Run() {
	for {
		e, ok := a.inbox.Receive()
		if !ok {
			return
		}
		switch ev := e.(type) {
		case *eventbus.MarketDataEvent:
			a.onMarketData(ev)
		case *eventbus.PortfolioInfoEvent:
			a.onPortfolioInfo(ev)
		case *eventbus.ShutDownEvent:
			if a.renderer != nil {
				a.renderer.Stop()
			}
			return
		default:
			a.logger.Debug("analyzer ignoring unsupported event", zap.String("variant", e.Discriminator().String()))
		}
	}
}

func (a *Analyzer) onMarketData(ev *eventbus.MarketDataEvent) {
	a.lastTimestamp = ev.Timestamp

	a.marketMu.Lock()
	a.market = append(a.market, point{timestamp: ev.Timestamp, value: ev.Close})
	a.marketMu.Unlock()
}

func (a *Analyzer) onPortfolioInfo(ev *eventbus.PortfolioInfoEvent) {
	ts := a.lastTimestamp

	a.assetMu.Lock()
	a.asset = append(a.asset, point{timestamp: ts, value: ev.Portfolio.Asset})
	a.assetMu.Unlock()

	a.cashMu.Lock()
	a.cash = append(a.cash, point{timestamp: ts, value: ev.Portfolio.Cash})
	a.cashMu.Unlock()
}

// snapshot copies all three series under their locks, taken in the fixed
// market -> asset -> cash order, and releases them before returning.
func (a *Analyzer) snapshot() (market, asset, cash []point) {
	a.marketMu.Lock()
	market = append([]point(nil), a.market...)
	a.marketMu.Unlock()

	a.assetMu.Lock()
	asset = append([]point(nil), a.asset...)
	a.assetMu.Unlock()

	a.cashMu.Lock()
	cash = append([]point(nil), a.cash...)
	a.cashMu.Unlock()

	return market, asset, cash
}

// Snapshot exposes the current series and computed metrics for the
// monitor's /status endpoint. Values are decimal strings to keep the
// wire format exact.
func (a *Analyzer) Snapshot() types.AnalyzerSnapshot {
	market, asset, cash := a.snapshot()

	assetValues := valuesOf(asset)
	marketValues := valuesOf(market)

	mc := NewMetricsCalculator()
	metrics := mc.Calculate(assetValues)
	risk := mc.CalculateRiskMetrics(assetValues, marketValues)

	return types.AnalyzerSnapshot{
		Samples:     len(asset),
		Performance: metrics,
		Risk:        risk,
		LastCash:    lastValue(cash),
		LastAsset:   lastValue(asset),
		LastMarket:  lastValue(market),
		GeneratedAt: time.Now().UTC(),
	}
}

func valuesOf(points []point) []decimal.Decimal {
	out := make([]decimal.Decimal, len(points))
	for i, p := range points {
		out[i] = p.value
	}
	return out
}

func lastValue(points []point) decimal.Decimal {
	if len(points) == 0 {
		return decimal.Zero
	}
	return points[len(points)-1].value
}

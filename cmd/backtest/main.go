// Command backtest wires the Event Manager, Simulated Exchange, Strategy
// Manager, Data Analyzer, Market Data Feeder, and the operator-facing
// monitor into the pipeline spec.md §2 describes, then replays a CSV bar
// file through it end to end.
//
// Grounded on cmd/server/main.go's flag/logger/component construction
// order and its graceful-shutdown-on-signal idiom, restructured around
// the five backtesting components instead of the teacher's PhD trading
// stack.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atlas-desktop/trading-backend/internal/analyzer"
	"github.com/atlas-desktop/trading-backend/internal/eventbus"
	"github.com/atlas-desktop/trading-backend/internal/exchange"
	"github.com/atlas-desktop/trading-backend/internal/feeder"
	"github.com/atlas-desktop/trading-backend/internal/logging"
	"github.com/atlas-desktop/trading-backend/internal/monitor"
	"github.com/atlas-desktop/trading-backend/internal/strategy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		zap.NewExample().Fatal("loading config", zap.Error(err))
	}

	logger, err := logging.New(logging.Config{Path: cfg.LogPath})
	if err != nil {
		zap.NewExample().Fatal("building logger", zap.Error(err))
	}
	defer logger.Sync()

	runID := uuid.New().String()
	logger.Info("starting backtest run",
		zap.String("runID", runID),
		zap.String("symbol", cfg.Symbol),
		zap.String("dataPath", cfg.DataPath),
	)

	if err := strategy.ValidateCounts(1, len(cfg.StrategyWeights)); err != nil {
		logger.Fatal("strategy/weight count mismatch", zap.Error(err))
	}

	em := eventbus.NewEventManager(logger, cfg.IdleShutdown())

	exchangeInbox := em.NewEndpoint()
	em.Register(eventbus.DiscriminatorMarketData, exchangeInbox)
	em.Register(eventbus.DiscriminatorOrderPlace, exchangeInbox)
	em.Register(eventbus.DiscriminatorShutDown, exchangeInbox)
	exchangePublisher := em.GrantPublisher(eventbus.High)

	fee := func(notional decimal.Decimal) decimal.Decimal {
		return notional.Mul(decimal.NewFromFloat(cfg.FeeRate))
	}
	ex := exchange.NewExchange(logger, exchangeInbox, exchangePublisher, decimal.NewFromFloat(cfg.StartingCash), fee)

	stratInbox := em.NewEndpoint()
	em.Register(eventbus.DiscriminatorMarketData, stratInbox)
	em.Register(eventbus.DiscriminatorPortfolioInfo, stratInbox)
	em.Register(eventbus.DiscriminatorShutDown, stratInbox)
	stratPublisher := em.GrantPublisher(eventbus.High)

	stratMgr := strategy.NewManager(logger, stratInbox, stratPublisher)
	mac := strategy.NewMACrossover(cfg.ShortWindow, cfg.LongWindow,
		decimal.NewFromFloat(cfg.PriceFactor), decimal.NewFromFloat(cfg.VolumeFactor))
	stratMgr.AddStrategy(mac, decimal.NewFromFloat(cfg.StrategyWeights[0]))

	analyzerInbox := em.NewEndpoint()
	em.Register(eventbus.DiscriminatorMarketData, analyzerInbox)
	em.Register(eventbus.DiscriminatorPortfolioInfo, analyzerInbox)
	em.Register(eventbus.DiscriminatorShutDown, analyzerInbox)

	renderer := analyzer.NewRenderer(logger, cfg.ChartPath, analyzer.DefaultChartWidth, analyzer.DefaultChartHeight)
	dataAnalyzer := analyzer.New(logger, analyzerInbox, renderer)

	var mon *monitor.Monitor
	if cfg.MonitorAddr != "" {
		monitorInbox := em.NewEndpoint()
		em.Register(eventbus.DiscriminatorPortfolioInfo, monitorInbox)
		em.Register(eventbus.DiscriminatorShutDown, monitorInbox)
		mon = monitor.New(logger, monitorInbox, dataAnalyzer, em, ex)
	}

	lowPublisher := em.GrantPublisher(eventbus.Low)
	feed := feeder.NewFeeder(logger, cfg.Symbol, lowPublisher, time.Millisecond)

	emDone := make(chan struct{})
	go func() { em.Run(); close(emDone) }()
	go ex.Run()
	go stratMgr.Run()
	go dataAnalyzer.Run()
	renderer.Start(dataAnalyzer)

	monitorErr := make(chan error, 1)
	if mon != nil {
		mon.Start(cfg.MonitorAddr, func(err error) { monitorErr <- err })
	}

	feederErr := make(chan error, 1)
	go func() {
		f, err := os.Open(cfg.DataPath)
		if err != nil {
			feederErr <- err
			return
		}
		defer f.Close()
		feederErr <- feed.Run(f)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-feederErr:
		if err != nil {
			logger.Error("feeder terminated with a fatal error; idle-shutdown will drain the pipeline", zap.Error(err))
		}
	case err := <-monitorErr:
		logger.Error("monitor server error", zap.Error(err))
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case <-emDone:
	}

	select {
	case <-emDone:
	case <-time.After(2 * cfg.IdleShutdown()):
		logger.Warn("event manager did not terminate within the expected idle-shutdown window")
	}

	if mon != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mon.Stop(ctx); err != nil {
			logger.Error("error stopping monitor", zap.Error(err))
		}
	}

	logger.Info("backtest run finished", zap.String("runID", runID))
}

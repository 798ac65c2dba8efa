// Package monitor implements the operator-facing, read-only HTTP surface
// named in SPEC_FULL.md's DOMAIN STACK: a JSON run-status endpoint, a
// websocket broadcast of each published PortfolioInfo snapshot, and a
// Prometheus exposition endpoint. It accepts no orders, configuration
// changes, or control commands, so it does not reinstate spec.md's "live
// market connectivity" non-goal.
//
// Grounded on internal/api/server.go (mux + cors wiring) and
// internal/api/websocket.go (Hub/Client broadcast pattern), both trimmed
// from a live-trading control surface down to these three read-only
// routes.
package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/atlas-desktop/trading-backend/internal/analyzer"
	"github.com/atlas-desktop/trading-backend/internal/eventbus"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// QueueStats is satisfied by *eventbus.EventManager.
type QueueStats interface {
	HighQueueLen() int
	LowQueueLen() int
}

// ExchangeStats is satisfied by *exchange.Exchange.
type ExchangeStats interface {
	Stats() (fillsApplied, ordersDropped int64)
}

// Monitor serves GET /status, GET /ws/progress, and GET /metrics.
type Monitor struct {
	logger *zap.Logger

	router     *mux.Router
	httpServer *http.Server

	hub      *hub
	metrics  *metrics
	registry *prometheus.Registry

	analyzer *analyzer.Analyzer
	queues   QueueStats
	exchange ExchangeStats

	inbox *eventbus.Endpoint
	done  chan struct{}
}

// New constructs a Monitor. inbox must be registered by the caller
// against PortfolioInfo (and ShutDown, to stop the broadcast loop
// cleanly); it is the Monitor's only event-bus subscription.
func New(logger *zap.Logger, inbox *eventbus.Endpoint, an *analyzer.Analyzer, queues QueueStats, ex ExchangeStats) *Monitor {
	registry := prometheus.NewRegistry()

	m := &Monitor{
		logger:   logger,
		hub:      newHub(logger),
		metrics:  newMetrics(registry),
		registry: registry,
		analyzer: an,
		queues:   queues,
		exchange: ex,
		inbox:    inbox,
		done:     make(chan struct{}),
	}
	m.router = mux.NewRouter()
	m.setupRoutes()
	return m
}

// Handler returns the monitor's router directly, unwrapped by CORS —
// useful for embedding in a larger mux or for tests that don't need a
// bound listener.
func (m *Monitor) Handler() http.Handler {
	return m.router
}

func (m *Monitor) setupRoutes() {
	m.router.HandleFunc("/status", m.handleStatus).Methods(http.MethodGet)
	m.router.HandleFunc("/ws/progress", m.hub.serveWS)
	m.router.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
}

func (m *Monitor) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := m.analyzer.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		m.logger.Warn("failed to encode status response", zap.Error(err))
	}
}

// Start serves the router at addr, wrapped in the teacher's permissive
// CORS policy, and begins the background event-broadcast and
// gauge-sampling loops. It returns immediately; Serve errors are
// reported asynchronously through onError.
func (m *Monitor) Start(addr string, onError func(error)) {
	go m.hub.run()
	go m.broadcastLoop()
	go m.sampleLoop()

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}).Handler(m.router)

	m.httpServer = &http.Server{Addr: addr, Handler: handler}

	m.logger.Info("monitor listening", zap.String("addr", addr))
	go func() {
		if err := m.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			onError(err)
		}
	}()
}

// Stop gracefully shuts the HTTP server down.
func (m *Monitor) Stop(ctx context.Context) error {
	if m.httpServer == nil {
		return nil
	}
	return m.httpServer.Shutdown(ctx)
}

// broadcastLoop relays every PortfolioInfo snapshot to websocket clients
// and counts it in the dispatched-events metric, until ShutDown arrives
// or the inbox is closed.
func (m *Monitor) broadcastLoop() {
	defer close(m.done)
	for {
		e, ok := m.inbox.Receive()
		if !ok {
			return
		}
		switch ev := e.(type) {
		case *eventbus.PortfolioInfoEvent:
			m.metrics.eventsDispatched.WithLabelValues(ev.Discriminator().String()).Inc()
			payload, err := json.Marshal(ev.Portfolio)
			if err != nil {
				m.logger.Warn("failed to marshal portfolio for broadcast", zap.Error(err))
				continue
			}
			m.hub.Broadcast(payload)
		case *eventbus.ShutDownEvent:
			return
		default:
			m.metrics.eventsDispatched.WithLabelValues(e.Discriminator().String()).Inc()
		}
	}
}

// sampleLoop updates the queue-depth and fill/drop gauges once per
// second; these are polled rather than pushed since neither the Event
// Manager nor the Exchange publishes events for them.
func (m *Monitor) sampleLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			if m.queues != nil {
				m.metrics.highQueueDepth.Set(float64(m.queues.HighQueueLen()))
				m.metrics.lowQueueDepth.Set(float64(m.queues.LowQueueLen()))
			}
			if m.exchange != nil {
				fills, dropped := m.exchange.Stats()
				m.metrics.fillsApplied.Set(float64(fills))
				m.metrics.ordersDropped.Set(float64(dropped))
			}
		}
	}
}

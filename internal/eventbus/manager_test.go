package eventbus_test

import (
	"testing"
	"time"

	"github.com/atlas-desktop/trading-backend/internal/eventbus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func zeroDec() decimal.Decimal { return decimal.Zero }

func TestDispatchOrderAndShutdown(t *testing.T) {
	m := eventbus.NewEventManager(zap.NewNop(), 50*time.Millisecond)
	ep := m.Subscribe(eventbus.DiscriminatorMarketData)
	shutdownEp := m.Subscribe(eventbus.DiscriminatorShutDown)

	low := m.GrantPublisher(eventbus.Low)

	done := make(chan struct{})
	go func() {
		m.Run()
		close(done)
	}()

	for i := 0; i < 3; i++ {
		low.Publish(eventbus.NewMarketDataEvent("t", "X", zeroDec(), zeroDec(), zeroDec(), zeroDec(), 0))
	}

	for i := 0; i < 3; i++ {
		e, ok := ep.Receive()
		if !ok {
			t.Fatalf("expected event %d, endpoint closed", i)
		}
		if e.Discriminator() != eventbus.DiscriminatorMarketData {
			t.Fatalf("wrong discriminator: %v", e.Discriminator())
		}
	}

	if _, ok := shutdownEp.Receive(); !ok {
		t.Fatalf("expected shutdown event")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run() did not return after idle shutdown")
	}
}

func TestEnvelopeIDsMonotonic(t *testing.T) {
	e1 := eventbus.NewMarketDataEvent("1", "X", zeroDec(), zeroDec(), zeroDec(), zeroDec(), 0)
	e2 := eventbus.NewMarketDataEvent("2", "X", zeroDec(), zeroDec(), zeroDec(), zeroDec(), 0)
	if !(e1.EnvelopeID() < e2.EnvelopeID()) {
		t.Fatalf("expected strictly increasing envelope ids, got %d then %d", e1.EnvelopeID(), e2.EnvelopeID())
	}
}

func TestLowPriorityBackpressure(t *testing.T) {
	m := eventbus.NewEventManager(zap.NewNop(), time.Second)
	low := m.GrantPublisher(eventbus.Low)

	sent := make(chan int, 25)
	go func() {
		for i := 0; i < 25; i++ {
			low.Publish(eventbus.NewMarketDataEvent("t", "X", zeroDec(), zeroDec(), zeroDec(), zeroDec(), 0))
			sent <- i
		}
	}()

	time.Sleep(100 * time.Millisecond)
	if len(sent) < 20 {
		t.Fatalf("expected at least 20 sends to complete before blocking, got %d", len(sent))
	}
	if len(sent) > 21 {
		t.Fatalf("producer should block once 20 undelivered events are outstanding, got %d sends", len(sent))
	}
}

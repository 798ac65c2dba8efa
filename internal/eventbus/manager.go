package eventbus

import (
	"time"

	"go.uber.org/zap"
)

// State is the Event Manager's lifecycle state.
type State int

const (
	StateInit State = iota
	StateFirstLP
	StateRunning
	StateDraining
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateFirstLP:
		return "FirstLP"
	case StateRunning:
		return "Running"
	case StateDraining:
		return "Draining"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

const lowPriorityCapacity = 20

// DefaultIdleShutdown is the idle-shutdown threshold used when the
// EventManager is constructed with a non-positive value.
const DefaultIdleShutdown = 3 * time.Second

// Endpoint is a per-subscriber delivery channel. A component creates one
// with NewEndpoint and registers it against every variant it wants to
// receive via Register; registering the SAME endpoint against multiple
// variants gives the component one unified, strictly-FIFO inbox instead
// of racing between independent per-variant queues — this is how the
// reference implementation's StrategyManager and Exchange receive more
// than one event variant on a single channel.
type Endpoint struct {
	queue *unboundedQueue
}

// Receive blocks until an event is delivered or the endpoint is closed.
func (e *Endpoint) Receive() (Event, bool) {
	return e.queue.Receive()
}

// EventManager owns the subscriber registry and the two ingress queues,
// and runs the priority-aware dispatch loop described in spec.md §4.1.
type EventManager struct {
	logger *zap.Logger

	registry map[Discriminator][]*unboundedQueue

	high *unboundedQueue
	low  *boundedQueue

	idleShutdown time.Duration
	state        State
}

// NewEventManager constructs an EventManager. idleShutdown <= 0 selects
// DefaultIdleShutdown.
func NewEventManager(logger *zap.Logger, idleShutdown time.Duration) *EventManager {
	if idleShutdown <= 0 {
		idleShutdown = DefaultIdleShutdown
	}
	return &EventManager{
		logger:       logger,
		registry:     make(map[Discriminator][]*unboundedQueue),
		high:         newUnboundedQueue(),
		low:          newBoundedQueue(lowPriorityCapacity),
		idleShutdown: idleShutdown,
		state:        StateInit,
	}
}

// NewEndpoint returns a fresh, unregistered delivery endpoint.
func (m *EventManager) NewEndpoint() *Endpoint {
	return &Endpoint{queue: newUnboundedQueue()}
}

// Register appends ep to registry[variant]. Idempotence is NOT
// guaranteed — registering the same endpoint twice for one variant
// yields duplicate deliveries of that variant to it.
func (m *EventManager) Register(variant Discriminator, ep *Endpoint) {
	m.registry[variant] = append(m.registry[variant], ep.queue)
}

// Subscribe is a convenience for the common case of a fresh endpoint
// registered against a single variant.
func (m *EventManager) Subscribe(variant Discriminator) *Endpoint {
	ep := m.NewEndpoint()
	m.Register(variant, ep)
	return ep
}

// Priority selects which ingress queue a producer is granted.
type Priority int

const (
	High Priority = iota
	Low
)

// Publisher is handed to a producer via GrantPublisher; Publish on a Low
// publisher blocks while the low-priority queue is full.
type Publisher struct {
	priority Priority
	m        *EventManager
}

// Publish enqueues e on the granted priority class.
func (p *Publisher) Publish(e Event) {
	if p.priority == High {
		p.m.high.Send(e)
		return
	}
	p.m.low.Send(e)
}

// GrantPublisher hands the producer a reference to the ingress queue for
// the requested priority class.
func (m *EventManager) GrantPublisher(priority Priority) *Publisher {
	return &Publisher{priority: priority, m: m}
}

// Run is the dispatch loop. It blocks until the first low-priority event
// arrives, then alternates draining the high-priority queue and taking
// one low-priority event per iteration, resetting an idle-shutdown timer
// on every dispatch, until the timer elapses with neither queue yielding
// work — at which point it dispatches a ShutDown event and returns.
func (m *EventManager) Run() {
	m.state = StateInit

	first := m.low.Receive()
	m.state = StateFirstLP
	m.dispatch(first)
	m.state = StateRunning

	deadline := time.Now().Add(m.idleShutdown)

	for {
		worked := false

		for {
			e, ok := m.high.TryReceive()
			if !ok {
				break
			}
			m.dispatch(e)
			deadline = time.Now().Add(m.idleShutdown)
			worked = true
		}

		if e, ok := m.low.TryReceive(); ok {
			m.dispatch(e)
			deadline = time.Now().Add(m.idleShutdown)
			worked = true
		}

		if !worked && time.Now().After(deadline) {
			m.state = StateDraining
			m.dispatch(NewShutDownEvent())
			m.state = StateTerminated
			return
		}

		if !worked {
			time.Sleep(time.Millisecond)
		}
	}
}

// dispatch looks up registry[variant(event)] and sends the event to each
// registered endpoint in registration order. No per-endpoint copy is
// made: every endpoint receives the same event instance. A variant
// with no subscribers is logged at warn; it is not an error.
func (m *EventManager) dispatch(e Event) {
	endpoints, ok := m.registry[e.Discriminator()]
	if !ok || len(endpoints) == 0 {
		m.logger.Warn("no subscribers for event variant",
			zap.String("variant", e.Discriminator().String()),
			zap.Uint64("envelope_id", e.EnvelopeID()),
		)
		return
	}
	for _, q := range endpoints {
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.logger.Error("send to subscriber failed",
						zap.String("variant", e.Discriminator().String()),
						zap.Any("panic", r),
					)
				}
			}()
			q.Send(e)
		}()
	}
}

// State reports the Event Manager's current lifecycle state.
func (m *EventManager) State() State { return m.state }

// HighQueueLen and LowQueueLen report the current ingress depth of each
// priority class, for observability only (e.g. the monitor's Prometheus
// gauges); neither is used by the dispatch loop itself.
func (m *EventManager) HighQueueLen() int { return m.high.Len() }
func (m *EventManager) LowQueueLen() int  { return m.low.Len() }

// Package listen runs one decoder listener per configured connection
// descriptor (UDP bind, outbound TCP, or ZMQ subscribe), pushing every
// received line into the shared queue and tracking per-listener health.
package listen

import (
	"sync"
	"time"

	"acarshub/internal/config"
	"acarshub/internal/queue"
)

// Sink is the subset of queue.Queue a listener needs; an interface so
// listener tests can supply a fake.
type Sink interface {
	Push(item queue.Item)
}

// Status is the connection health for one listener, read by the status
// emitter.
type Status struct {
	Enabled            bool
	Connected          bool
	LastMessageAt      time.Time
	ConsecutiveFailures int
}

// StatusTracker is a concurrency-safe Status holder, one per listener.
type StatusTracker struct {
	mu     sync.RWMutex
	status Status
}

func newStatusTracker(enabled bool) *StatusTracker {
	return &StatusTracker{status: Status{Enabled: enabled}}
}

func (t *StatusTracker) setConnected(connected bool) {
	t.mu.Lock()
	t.status.Connected = connected
	t.mu.Unlock()
}

func (t *StatusTracker) recordMessage(at time.Time) {
	t.mu.Lock()
	t.status.LastMessageAt = at
	t.status.ConsecutiveFailures = 0
	t.mu.Unlock()
}

func (t *StatusTracker) recordFailure() {
	t.mu.Lock()
	t.status.ConsecutiveFailures++
	t.mu.Unlock()
}

// Snapshot returns a copy of the current status.
func (t *StatusTracker) Snapshot() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// Listener is a single running decoder connection.
type Listener struct {
	Decoder config.DecoderType
	Desc    config.Descriptor
	Status  *StatusTracker

	stop chan struct{}
	done chan struct{}
}

func newListener(decoder config.DecoderType, desc config.Descriptor) *Listener {
	return &Listener{
		Decoder: decoder,
		Desc:    desc,
		Status:  newStatusTracker(true),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Stop signals the listener's run loop to exit and waits for it to finish.
func (l *Listener) Stop() {
	close(l.stop)
	<-l.done
}

// Manager owns every running listener, one per configured descriptor.
type Manager struct {
	listeners []*Listener
}

// Start launches one listener goroutine per enabled decoder's descriptors,
// pushing into sink.
func Start(cfg config.Config, sink Sink) *Manager {
	mgr := &Manager{}
	for _, decoder := range config.AllDecoders {
		dc, ok := cfg.Decoders[decoder]
		if !ok || !dc.Enabled {
			continue
		}
		for _, desc := range dc.Connections {
			l := newListener(decoder, desc)
			mgr.listeners = append(mgr.listeners, l)
			go l.run(sink)
		}
	}
	return mgr
}

// Stop stops every running listener.
func (m *Manager) Stop() {
	for _, l := range m.listeners {
		l.Stop()
	}
}

// Statuses returns every listener's current status keyed by decoder type,
// one entry per descriptor in configuration order, for the status emitter.
func (m *Manager) Statuses() map[config.DecoderType][]Status {
	out := make(map[config.DecoderType][]Status)
	for _, l := range m.listeners {
		out[l.Decoder] = append(out[l.Decoder], l.Status.Snapshot())
	}
	return out
}

func (l *Listener) run(sink Sink) {
	defer close(l.done)
	switch l.Desc.ListenType {
	case config.ListenUDP:
		l.runUDP(sink)
	case config.ListenTCP:
		l.runTCP(sink)
	case config.ListenZMQ:
		l.runZMQ(sink)
	}
}

func (l *Listener) push(sink Sink, raw []byte) {
	sink.Push(queue.Item{Decoder: string(l.Decoder), Raw: append([]byte(nil), raw...)})
	l.Status.recordMessage(time.Now())
}

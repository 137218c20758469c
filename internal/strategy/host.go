/*
Package strategy hosts trading strategies and fans their signals out to a
single callback.

The host lives on the market data thread: ProcessOrderBook runs after each
book update and every registered strategy sees the update in registration
order. Nothing in this package is safe for concurrent use.
*/
package strategy

import (
	"main/internal/book"
	"main/internal/schema"
)

// Strategy is one trading strategy evaluated per book update.
type Strategy interface {
	// Initialize runs once when the host starts.
	Initialize()
	// ProcessUpdate inspects an updated book and returns zero or more signals.
	ProcessUpdate(b *book.Book) []schema.Signal
	// Name identifies the strategy in logs.
	Name() string
}

// SignalFunc receives every signal a strategy produces.
type SignalFunc func(schema.Signal)

// Host owns the registered strategies and the signal sink.
type Host struct {
	strategies []Strategy
	onSignal   SignalFunc
	running    bool
}

// NewHost returns an empty, stopped host.
func NewHost() *Host {
	return &Host{}
}

// Register appends a strategy. Registration order is evaluation order.
func (h *Host) Register(s Strategy) {
	h.strategies = append(h.strategies, s)
}

// SetSignalCallback installs the sink signals are forwarded to.
func (h *Host) SetSignalCallback(fn SignalFunc) {
	h.onSignal = fn
}

// Names lists the registered strategies in registration order.
func (h *Host) Names() []string {
	names := make([]string, len(h.strategies))
	for i, s := range h.strategies {
		names[i] = s.Name()
	}
	return names
}

// Start initializes every strategy and begins forwarding updates. Starting a
// running host does nothing; a stopped host re-initializes on restart.
func (h *Host) Start() {
	if h.running {
		return
	}
	h.running = true
	for _, s := range h.strategies {
		s.Initialize()
	}
}

// Stop halts update forwarding. Registered strategies keep their state.
func (h *Host) Stop() {
	h.running = false
}

// ProcessOrderBook hands an updated book to each strategy in registration
// order and forwards every produced signal, in the order produced, to the
// callback. A stopped host ignores updates.
func (h *Host) ProcessOrderBook(b *book.Book) {
	if !h.running {
		return
	}
	for _, s := range h.strategies {
		signals := s.ProcessUpdate(b)
		if h.onSignal == nil {
			continue
		}
		for _, sig := range signals {
			h.onSignal(sig)
		}
	}
}

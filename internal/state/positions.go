// Package state tracks signed net positions per symbol from fills.
package state

import (
	"sort"

	"main/internal/schema"
)

// Positions accumulates net positions keyed by symbol. Buys add, sells
// subtract. Not safe for concurrent use; callers serialize access.
type Positions struct {
	bySymbol map[string]int64
}

// NewPositions creates an empty position book.
func NewPositions() *Positions {
	return &Positions{bySymbol: make(map[string]int64)}
}

// ApplyFill folds one fill into the book and returns the new net
// position for the symbol.
func (p *Positions) ApplyFill(symbol string, side schema.Side, qty schema.Quantity) int64 {
	delta := int64(qty)
	if side == schema.SideSell {
		delta = -delta
	}
	p.bySymbol[symbol] += delta
	return p.bySymbol[symbol]
}

// ApplyReport folds the executed quantity of a report into the book.
// Reports that carry no fill leave the position unchanged.
func (p *Positions) ApplyReport(r *schema.ExecutionReport) int64 {
	if r.ExecQuantity == 0 {
		return p.bySymbol[r.Symbol]
	}
	return p.ApplyFill(r.Symbol, r.Side, r.ExecQuantity)
}

// Position returns the signed net position for a symbol, zero when the
// symbol has never traded.
func (p *Positions) Position(symbol string) int64 {
	return p.bySymbol[symbol]
}

// Count returns the number of symbols that have traded.
func (p *Positions) Count() int {
	return len(p.bySymbol)
}

// Entry is one symbol's net position.
type Entry struct {
	Symbol   string
	Position int64
}

// Snapshot returns every position sorted by symbol.
func (p *Positions) Snapshot() []Entry {
	out := make([]Entry, 0, len(p.bySymbol))
	for sym, pos := range p.bySymbol {
		out = append(out, Entry{Symbol: sym, Position: pos})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

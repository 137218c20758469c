package book

import (
	"sort"

	"main/internal/schema"
)

// DefaultLevels is the number of price slots per side.
const DefaultLevels = 256

// Book tracks resting orders for one symbol in fixed arrays of bucketed
// price levels. A price maps to slot uint64(price) % slots, so the mapping
// is deterministic and side-stable; two prices sharing a slot merge their
// aggregates and the slot reports the price most recently stored there.
// Best bid and ask are memoized and refreshed by a full scan of the
// mutated side after every change.
//
// Book never matches orders against each other and is not safe for
// concurrent use.
type Book struct {
	symbol string
	bids   []schema.Level
	asks   []schema.Level
	orders map[schema.OrderID]schema.Order

	bestBid    schema.Price
	bestAsk    schema.Price
	hasBestBid bool
	hasBestAsk bool
}

// New returns an empty book for symbol with DefaultLevels slots per side.
func New(symbol string) *Book {
	return NewWithLevels(symbol, DefaultLevels)
}

// NewWithLevels returns an empty book with a custom slot count per side.
// Counts below 1 fall back to DefaultLevels.
func NewWithLevels(symbol string, levels int) *Book {
	if levels < 1 {
		levels = DefaultLevels
	}
	return &Book{
		symbol: symbol,
		bids:   make([]schema.Level, levels),
		asks:   make([]schema.Level, levels),
		orders: make(map[schema.OrderID]schema.Order),
	}
}

// Quotes is a point-in-time snapshot of a book's best prices.
type Quotes struct {
	Bid    schema.Price
	Ask    schema.Price
	HasBid bool
	HasAsk bool
}

// Symbol returns the symbol this book tracks.
func (b *Book) Symbol() string { return b.symbol }

// Quotes returns the current best-price snapshot.
func (b *Book) Quotes() Quotes {
	return Quotes{Bid: b.bestBid, Ask: b.bestAsk, HasBid: b.hasBestBid, HasAsk: b.hasBestAsk}
}

// AddOrder inserts an order and refreshes the best price of its side. A
// zero OriginalQuantity is taken from Quantity. Reusing a live id is a
// caller violation: the registry keeps the newest order while the slot
// keeps both contributions.
func (b *Book) AddOrder(o schema.Order) {
	if o.OriginalQuantity == 0 {
		o.OriginalQuantity = o.Quantity
	}
	lvl := b.level(o.Side, o.Price)
	lvl.Price = o.Price
	lvl.Quantity += o.Quantity
	b.orders[o.ID] = o
	b.refresh(o.Side)
}

// ModifyOrder replaces the remaining quantity of a resting order, leaving
// OriginalQuantity untouched. It returns false when the id is unknown.
func (b *Book) ModifyOrder(id schema.OrderID, qty schema.Quantity) bool {
	o, ok := b.orders[id]
	if !ok {
		return false
	}
	lvl := b.level(o.Side, o.Price)
	lvl.Quantity = subQty(lvl.Quantity, o.Quantity) + qty
	o.Quantity = qty
	b.orders[id] = o
	b.refresh(o.Side)
	return true
}

// CancelOrder removes a resting order. It returns false when the id is
// unknown.
func (b *Book) CancelOrder(id schema.OrderID) bool {
	o, ok := b.orders[id]
	if !ok {
		return false
	}
	lvl := b.level(o.Side, o.Price)
	lvl.Quantity = subQty(lvl.Quantity, o.Quantity)
	delete(b.orders, id)
	b.refresh(o.Side)
	return true
}

// ExecuteOrder reduces a resting order by an executed quantity. It returns
// false when the id is unknown or qty exceeds the remaining quantity.
// Orders reaching zero remaining are dropped.
func (b *Book) ExecuteOrder(id schema.OrderID, qty schema.Quantity) bool {
	o, ok := b.orders[id]
	if !ok || qty > o.Quantity {
		return false
	}
	lvl := b.level(o.Side, o.Price)
	lvl.Quantity = subQty(lvl.Quantity, qty)
	o.Quantity -= qty
	if o.Quantity == 0 {
		delete(b.orders, id)
	} else {
		b.orders[id] = o
	}
	b.refresh(o.Side)
	return true
}

// BestBid returns the highest resting bid price, when one exists.
func (b *Book) BestBid() (schema.Price, bool) { return b.bestBid, b.hasBestBid }

// BestAsk returns the lowest resting ask price, when one exists.
func (b *Book) BestAsk() (schema.Price, bool) { return b.bestAsk, b.hasBestAsk }

// Spread returns ask minus bid when both sides are populated. A crossed
// book makes it negative.
func (b *Book) Spread() (schema.Price, bool) {
	if !b.hasBestBid || !b.hasBestAsk {
		return 0, false
	}
	return b.bestAsk - b.bestBid, true
}

// MidPrice returns (bid+ask)/2 with integer division when both sides are
// populated.
func (b *Book) MidPrice() (schema.Price, bool) {
	if !b.hasBestBid || !b.hasBestAsk {
		return 0, false
	}
	return (b.bestBid + b.bestAsk) / 2, true
}

// Depth counts the non-empty levels on each side.
func (b *Book) Depth() (bids, asks int) {
	for i := range b.bids {
		if b.bids[i].Quantity > 0 {
			bids++
		}
	}
	for i := range b.asks {
		if b.asks[i].Quantity > 0 {
			asks++
		}
	}
	return bids, asks
}

// Levels returns up to max non-empty levels for side, best price first:
// descending for buys, ascending for sells.
func (b *Book) Levels(side schema.Side, max int) []schema.Level {
	if max <= 0 {
		return nil
	}
	src := b.bids
	if side == schema.SideSell {
		src = b.asks
	}
	out := make([]schema.Level, 0, max)
	for i := range src {
		if src[i].Quantity > 0 {
			out = append(out, src[i])
		}
	}
	if side == schema.SideBuy {
		sort.Slice(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	}
	if len(out) > max {
		out = out[:max]
	}
	return out
}

// Order returns a copy of a resting order.
func (b *Book) Order(id schema.OrderID) (schema.Order, bool) {
	o, ok := b.orders[id]
	return o, ok
}

// OrderCount returns the number of resting orders.
func (b *Book) OrderCount() int { return len(b.orders) }

func (b *Book) level(side schema.Side, price schema.Price) *schema.Level {
	idx := uint64(price) % uint64(len(b.bids))
	if side == schema.SideBuy {
		return &b.bids[idx]
	}
	return &b.asks[idx]
}

func (b *Book) refresh(side schema.Side) {
	if side == schema.SideBuy {
		b.bestBid, b.hasBestBid = bestOf(b.bids, true)
	} else {
		b.bestAsk, b.hasBestAsk = bestOf(b.asks, false)
	}
}

func bestOf(levels []schema.Level, wantMax bool) (schema.Price, bool) {
	var best schema.Price
	found := false
	for i := range levels {
		if levels[i].Quantity == 0 {
			continue
		}
		p := levels[i].Price
		if !found || (wantMax && p > best) || (!wantMax && p < best) {
			best, found = p, true
		}
	}
	return best, found
}

func subQty(a, b schema.Quantity) schema.Quantity {
	if b >= a {
		return 0
	}
	return a - b
}

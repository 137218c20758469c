/*
Package feed generates synthetic market data for the simulator.

Prices follow a bounded random walk per symbol, order ids increase
monotonically, and mutation messages target the most recently issued id so
a meaningful share of them land on live orders.
*/
package feed

import (
	"math/rand"
	"time"

	"github.com/yanun0323/errors"

	"main/internal/codec"
	"main/internal/schema"
)

// ErrNoSymbols reports a generator configured without symbols.
var ErrNoSymbols = errors.New("feed: no symbols")

// Config controls the generated stream.
type Config struct {
	// Symbols is the tradable universe. Required.
	Symbols []string
	// BasePrice is each symbol's walk origin in price units, default 10000.
	BasePrice schema.Price
	// PriceStep bounds a single walk move, default 10.
	PriceStep schema.Price
	// MaxQuantity bounds order quantities, default 1000.
	MaxQuantity uint32
	// Seed fixes the stream; zero derives a seed from the clock.
	Seed int64
}

func (c Config) withDefaults() Config {
	if c.BasePrice <= 0 {
		c.BasePrice = 10_000
	}
	if c.PriceStep <= 0 {
		c.PriceStep = 10
	}
	if c.MaxQuantity == 0 {
		c.MaxQuantity = 1000
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UTC().UnixNano()
	}
	return c
}

// Generator produces a reproducible stream of market data messages.
type Generator struct {
	cfg         Config
	rng         *rand.Rand
	symbolBytes [][]byte
	prices      []schema.Price
	minPrice    schema.Price
	maxPrice    schema.Price
	lastID      schema.OrderID
}

// New builds a generator. The symbol set must not be empty.
func New(cfg Config) (*Generator, error) {
	if len(cfg.Symbols) == 0 {
		return nil, ErrNoSymbols
	}
	cfg = cfg.withDefaults()

	g := &Generator{
		cfg:         cfg,
		rng:         rand.New(rand.NewSource(cfg.Seed)),
		symbolBytes: make([][]byte, len(cfg.Symbols)),
		prices:      make([]schema.Price, len(cfg.Symbols)),
		minPrice:    cfg.BasePrice - cfg.BasePrice/10,
		maxPrice:    cfg.BasePrice + cfg.BasePrice/10,
	}
	if g.minPrice < 1 {
		g.minPrice = 1
	}
	for i, sym := range cfg.Symbols {
		g.symbolBytes[i] = []byte(sym)
		g.prices[i] = cfg.BasePrice
	}
	return g, nil
}

// Next produces one message and the symbol it belongs to.
func (g *Generator) Next() (schema.MarketDataMessage, string) {
	msg, idx := g.next()
	return msg, g.cfg.Symbols[idx]
}

// AppendBatch encodes n messages onto dst and returns the extended buffer.
func (g *Generator) AppendBatch(dst []byte, n int) []byte {
	for i := 0; i < n; i++ {
		msg, idx := g.next()
		dst = codec.Append(dst, &msg, g.symbolBytes[idx])
	}
	return dst
}

func (g *Generator) next() (schema.MarketDataMessage, int) {
	idx := g.rng.Intn(len(g.cfg.Symbols))
	price := g.walk(idx)
	qty := schema.Quantity(1 + g.rng.Int63n(int64(g.cfg.MaxQuantity)))

	msg := schema.MarketDataMessage{
		Timestamp: schema.Timestamp(time.Now().UnixNano()),
	}

	// Half the stream adds orders so the books stay populated.
	switch r := g.rng.Intn(100); {
	case r < 50:
		g.lastID++
		msg.Type = schema.MsgAddOrder
		msg.AddOrder = schema.AddOrderData{
			OrderID:  g.lastID,
			Price:    price,
			Quantity: qty,
			Side:     schema.Side(g.rng.Intn(2)),
		}
	case r < 65:
		msg.Type = schema.MsgModifyOrder
		msg.ModifyOrder = schema.ModifyOrderData{
			OrderID:     g.targetID(),
			NewQuantity: qty,
		}
	case r < 80:
		msg.Type = schema.MsgCancelOrder
		msg.CancelOrder = schema.CancelOrderData{OrderID: g.targetID()}
	case r < 90:
		msg.Type = schema.MsgExecuteOrder
		msg.ExecuteOrder = schema.ExecuteOrderData{
			OrderID:      g.targetID(),
			ExecQuantity: qty,
			ExecPrice:    price,
		}
	default:
		msg.Type = schema.MsgTrade
		msg.Trade = schema.TradeData{
			Price:         price,
			Quantity:      qty,
			AggressorSide: schema.Side(g.rng.Intn(2)),
		}
	}
	return msg, idx
}

// walk advances the symbol's price by a bounded step and clamps it to the
// band around the base price.
func (g *Generator) walk(idx int) schema.Price {
	step := g.cfg.PriceStep
	delta := schema.Price(g.rng.Int63n(int64(2*step+1))) - step
	p := g.prices[idx] + delta
	if p < g.minPrice {
		p = g.minPrice
	}
	if p > g.maxPrice {
		p = g.maxPrice
	}
	g.prices[idx] = p
	return p
}

// targetID is the id mutation messages aim at: the most recently issued
// order, or 1 before any order exists.
func (g *Generator) targetID() schema.OrderID {
	if g.lastID == 0 {
		return 1
	}
	return g.lastID
}

/*
Package risk gates strategy signals with static pre-trade limits before
they reach the execution engine. Every zero-valued limit is disabled, so
an empty Config allows everything.
*/
package risk

import (
	"time"

	"main/internal/schema"
)

const maxInt64 = int64(^uint64(0) >> 1)

// Reason explains why a signal was denied.
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonKillSwitch
	ReasonRateLimit
	ReasonMaxQuantity
	ReasonMaxNotional
	ReasonPriceBand
	ReasonPositionLimit
)

var reasonNames = [...]string{
	ReasonNone:          "NONE",
	ReasonKillSwitch:    "KILL_SWITCH",
	ReasonRateLimit:     "RATE_LIMIT",
	ReasonMaxQuantity:   "MAX_QUANTITY",
	ReasonMaxNotional:   "MAX_NOTIONAL",
	ReasonPriceBand:     "PRICE_BAND",
	ReasonPositionLimit: "POSITION_LIMIT",
}

func (r Reason) String() string {
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return "UNKNOWN"
}

// Config defines static pre-trade limits. A zero value disables its check.
type Config struct {
	KillSwitch           bool
	MaxOrderQty          schema.Quantity
	MaxOrderNotional     schema.Notional
	MaxPosition          int64
	MaxPriceDeviationBps int64
	OrderRateLimit       int
	OrderRateWindow      time.Duration
}

// View carries the state a decision depends on. Now defaults to the
// current time when zero; ReferencePrice zero skips the price band check.
type View struct {
	Position       int64
	ReferencePrice schema.Price
	Now            int64
}

// Decision is the outcome of evaluating one signal.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Engine applies pre-trade checks to strategy signals. Not safe for
// concurrent use.
type Engine struct {
	cfg             Config
	rateWindowStart int64
	rateCount       int
}

// NewEngine creates an engine with static limits.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Evaluate checks a signal against the configured limits, in a fixed
// order: kill switch, order rate, quantity, price band, notional, then
// position. The first violated limit decides.
func (e *Engine) Evaluate(sig schema.Signal, view View) Decision {
	now := view.Now
	if now == 0 {
		now = time.Now().UTC().UnixNano()
	}

	if e.cfg.KillSwitch {
		return Decision{Reason: ReasonKillSwitch}
	}

	if e.cfg.OrderRateLimit > 0 && e.cfg.OrderRateWindow > 0 {
		window := int64(e.cfg.OrderRateWindow)
		if e.rateWindowStart == 0 || now-e.rateWindowStart >= window {
			e.rateWindowStart = now
			e.rateCount = 0
		}
		e.rateCount++
		if e.rateCount > e.cfg.OrderRateLimit {
			return Decision{Reason: ReasonRateLimit}
		}
	}

	if e.cfg.MaxOrderQty > 0 && sig.Quantity > e.cfg.MaxOrderQty {
		return Decision{Reason: ReasonMaxQuantity}
	}

	if e.cfg.MaxPriceDeviationBps > 0 && sig.Price > 0 && view.ReferencePrice > 0 {
		diff := absInt64(int64(sig.Price) - int64(view.ReferencePrice))
		if exceedsDeviation(diff, int64(view.ReferencePrice), e.cfg.MaxPriceDeviationBps) {
			return Decision{Reason: ReasonPriceBand}
		}
	}

	notional, overflow := mulNotional(sig.Price, sig.Quantity)
	if overflow {
		return Decision{Reason: ReasonMaxNotional}
	}
	if e.cfg.MaxOrderNotional > 0 && notional > e.cfg.MaxOrderNotional {
		return Decision{Reason: ReasonMaxNotional}
	}

	if e.cfg.MaxPosition > 0 {
		next := view.Position
		if sig.Type == schema.SignalBuy {
			next += int64(sig.Quantity)
		} else {
			next -= int64(sig.Quantity)
		}
		if absInt64(next) > e.cfg.MaxPosition {
			return Decision{Reason: ReasonPositionLimit}
		}
	}

	return Decision{Allowed: true, Reason: ReasonNone}
}

func mulNotional(price schema.Price, qty schema.Quantity) (schema.Notional, bool) {
	p := int64(price)
	q := int64(qty)
	if p == 0 || q == 0 {
		return 0, false
	}
	if p < 0 {
		p = -p
	}
	if p > maxInt64/q {
		return 0, true
	}
	return schema.Notional(int64(price) * q), false
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// exceedsDeviation reports whether diff/ref is strictly above bps basis
// points, avoiding overflow in the cross-multiplication.
func exceedsDeviation(diff, ref, bps int64) bool {
	if diff <= 0 || ref <= 0 || bps <= 0 {
		return false
	}
	if diff > maxInt64/10_000 {
		return true
	}
	if ref > maxInt64/bps {
		return true
	}
	return diff*10_000 > ref*bps
}

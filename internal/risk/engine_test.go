package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/schema"
)

func buy(qty schema.Quantity, price schema.Price) schema.Signal {
	return schema.Signal{Type: schema.SignalBuy, Symbol: "AAPL", Price: price, Quantity: qty}
}

func sell(qty schema.Quantity, price schema.Price) schema.Signal {
	return schema.Signal{Type: schema.SignalSell, Symbol: "AAPL", Price: price, Quantity: qty}
}

func TestEmptyConfigAllows(t *testing.T) {
	e := NewEngine(Config{})
	d := e.Evaluate(buy(1_000_000, 1_000_000), View{Position: 1 << 40})
	require.True(t, d.Allowed)
	require.Equal(t, ReasonNone, d.Reason)
}

func TestKillSwitchDeniesEverything(t *testing.T) {
	e := NewEngine(Config{KillSwitch: true})
	d := e.Evaluate(buy(1, 1), View{})
	require.False(t, d.Allowed)
	require.Equal(t, ReasonKillSwitch, d.Reason)
}

func TestMaxOrderQty(t *testing.T) {
	e := NewEngine(Config{MaxOrderQty: 100})
	assert.True(t, e.Evaluate(buy(100, 10), View{}).Allowed)

	d := e.Evaluate(buy(101, 10), View{})
	require.False(t, d.Allowed)
	assert.Equal(t, ReasonMaxQuantity, d.Reason)
}

func TestMaxNotional(t *testing.T) {
	e := NewEngine(Config{MaxOrderNotional: 50_000})
	assert.True(t, e.Evaluate(buy(100, 500), View{}).Allowed)

	d := e.Evaluate(buy(100, 501), View{})
	require.False(t, d.Allowed)
	assert.Equal(t, ReasonMaxNotional, d.Reason)
}

func TestNotionalOverflowDenies(t *testing.T) {
	e := NewEngine(Config{})
	d := e.Evaluate(buy(3, schema.Price(maxInt64/2)), View{})
	require.False(t, d.Allowed)
	assert.Equal(t, ReasonMaxNotional, d.Reason)
}

func TestPriceBand(t *testing.T) {
	e := NewEngine(Config{MaxPriceDeviationBps: 50})
	view := View{ReferencePrice: 10_000}

	assert.True(t, e.Evaluate(buy(1, 10_050), view).Allowed)
	assert.True(t, e.Evaluate(buy(1, 9_950), view).Allowed)

	d := e.Evaluate(buy(1, 10_051), view)
	require.False(t, d.Allowed)
	assert.Equal(t, ReasonPriceBand, d.Reason)
	assert.False(t, e.Evaluate(sell(1, 9_949), view).Allowed)

	// Without a reference price the band cannot be applied.
	assert.True(t, e.Evaluate(buy(1, 99_999), View{}).Allowed)
}

func TestPositionLimit(t *testing.T) {
	e := NewEngine(Config{MaxPosition: 1_000})
	assert.True(t, e.Evaluate(buy(100, 10), View{Position: 900}).Allowed)

	d := e.Evaluate(buy(101, 10), View{Position: 900})
	require.False(t, d.Allowed)
	assert.Equal(t, ReasonPositionLimit, d.Reason)

	// Selling down a long reduces exposure and passes.
	assert.True(t, e.Evaluate(sell(500, 10), View{Position: 900}).Allowed)
	// Shorts are capped symmetrically.
	assert.False(t, e.Evaluate(sell(101, 10), View{Position: -900}).Allowed)
}

func TestOrderRateLimit(t *testing.T) {
	e := NewEngine(Config{OrderRateLimit: 2, OrderRateWindow: time.Second})
	t0 := time.Now().UnixNano()

	assert.True(t, e.Evaluate(buy(1, 1), View{Now: t0}).Allowed)
	assert.True(t, e.Evaluate(buy(1, 1), View{Now: t0 + 1}).Allowed)

	d := e.Evaluate(buy(1, 1), View{Now: t0 + 2})
	require.False(t, d.Allowed)
	assert.Equal(t, ReasonRateLimit, d.Reason)

	// The next window starts a fresh count.
	assert.True(t, e.Evaluate(buy(1, 1), View{Now: t0 + int64(time.Second)}).Allowed)
}

func TestReasonString(t *testing.T) {
	tests := []struct {
		reason Reason
		want   string
	}{
		{ReasonNone, "NONE"},
		{ReasonKillSwitch, "KILL_SWITCH"},
		{ReasonRateLimit, "RATE_LIMIT"},
		{ReasonMaxQuantity, "MAX_QUANTITY"},
		{ReasonMaxNotional, "MAX_NOTIONAL"},
		{ReasonPriceBand, "PRICE_BAND"},
		{ReasonPositionLimit, "POSITION_LIMIT"},
		{Reason(200), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.reason.String(); got != tt.want {
			t.Fatalf("Reason(%d).String() = %q, want %q", tt.reason, got, tt.want)
		}
	}
}

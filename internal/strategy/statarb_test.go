package strategy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/book"
	"main/internal/schema"
)

func quoted(symbol string, bid, ask schema.Price) *book.Book {
	b := book.New(symbol)
	b.AddOrder(schema.Order{ID: 1, Price: bid, Quantity: 1, Side: schema.SideBuy, Symbol: symbol})
	b.AddOrder(schema.Order{ID: 2, Price: ask, Quantity: 1, Side: schema.SideSell, Symbol: symbol})
	return b
}

// fill runs enough flat updates through both symbols to fill their windows.
func fill(s *StatArb, symbols []string, window int) {
	for i := 0; i < window; i++ {
		for _, sym := range symbols {
			s.ProcessUpdate(quoted(sym, 99, 101)) // mid 100
		}
	}
}

func TestStatArbNoSignalsUntilWindowFull(t *testing.T) {
	s := NewStatArb([]string{"A", "B"}, 1.5, 4)
	s.Initialize()

	for i := 0; i < 3; i++ {
		assert.Nil(t, s.ProcessUpdate(quoted("B", 99, 101)))
		assert.Nil(t, s.ProcessUpdate(quoted("A", 99, 101)))
	}
	// Fourth round fills both windows but the flat series has zero variance.
	assert.Nil(t, s.ProcessUpdate(quoted("B", 99, 101)))
	assert.Nil(t, s.ProcessUpdate(quoted("A", 99, 101)))
}

func TestStatArbSellOnRichRatio(t *testing.T) {
	s := NewStatArb([]string{"A", "B"}, 1.5, 4)
	s.Initialize()
	fill(s, []string{"B", "A"}, 4)

	// A jumps to 130 against a flat B: ratios [1,1,1,1.3] give z = sqrt(3).
	signals := s.ProcessUpdate(quoted("A", 129, 131))
	require.Len(t, signals, 1)

	sig := signals[0]
	assert.Equal(t, schema.SignalSell, sig.Type)
	assert.Equal(t, "A", sig.Symbol)
	assert.Equal(t, schema.Price(130), sig.Price)
	assert.Equal(t, schema.Quantity(100), sig.Quantity)
	assert.InDelta(t, math.Sqrt(3)/3, sig.Confidence, 1e-9)
	assert.NotZero(t, sig.Timestamp)
}

func TestStatArbBuyOnCheapRatio(t *testing.T) {
	s := NewStatArb([]string{"A", "B"}, 1.5, 4)
	s.Initialize()
	fill(s, []string{"B", "A"}, 4)

	signals := s.ProcessUpdate(quoted("A", 69, 71))
	require.Len(t, signals, 1)
	assert.Equal(t, schema.SignalBuy, signals[0].Type)
	assert.Equal(t, schema.Price(70), signals[0].Price)
}

func TestStatArbOneSignalPerPair(t *testing.T) {
	s := NewStatArb([]string{"A", "B", "C"}, 1.5, 4)
	s.Initialize()
	fill(s, []string{"B", "C", "A"}, 4)

	signals := s.ProcessUpdate(quoted("A", 129, 131))
	require.Len(t, signals, 2, "one signal per counterpart symbol")
	for _, sig := range signals {
		assert.Equal(t, schema.SignalSell, sig.Type)
		assert.Equal(t, "A", sig.Symbol)
	}
}

func TestStatArbIgnoresUntrackedAndOneSided(t *testing.T) {
	s := NewStatArb([]string{"A", "B"}, 1.5, 4)
	s.Initialize()

	assert.Nil(t, s.ProcessUpdate(quoted("ZZZ", 99, 101)))

	oneSided := book.New("A")
	oneSided.AddOrder(schema.Order{ID: 1, Price: 100, Quantity: 1, Side: schema.SideBuy, Symbol: "A"})
	assert.Nil(t, s.ProcessUpdate(oneSided))
}

func TestStatArbDefaults(t *testing.T) {
	s := NewStatArb([]string{"A"}, 0, 1)
	assert.Equal(t, DefaultZScoreThreshold, s.threshold)
	assert.Equal(t, DefaultWindowSize, s.window)
}

func TestStatArbWindowSlides(t *testing.T) {
	s := NewStatArb([]string{"A", "B"}, 1.5, 4)
	s.Initialize()
	fill(s, []string{"B", "A"}, 4)

	// Push the A window to [100,100,130,130]: the latest ratio is no longer
	// an outlier of its own window once the spike repeats.
	require.Len(t, s.ProcessUpdate(quoted("A", 129, 131)), 1)
	signals := s.ProcessUpdate(quoted("A", 129, 131))

	// histA [100,100,130,130] vs histB [100,100,100,100]:
	// ratios [1,1,1.3,1.3], mean 1.15, stddev 0.15, z = 1.0 < 1.5.
	assert.Empty(t, signals)
}

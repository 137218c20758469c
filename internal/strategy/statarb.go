package strategy

import (
	"math"
	"time"

	"main/internal/book"
	"main/internal/schema"
)

const (
	// DefaultZScoreThreshold is the |z| above which a pair is considered
	// dislocated.
	DefaultZScoreThreshold = 2.0
	// DefaultWindowSize is the number of mid prices kept per symbol.
	DefaultWindowSize = 100

	statArbQuantity = 100
)

// StatArb trades mean reversion of pairwise price ratios. For every update
// to a tracked symbol it z-scores the symbol's latest price ratio versus
// each other tracked symbol over the shared window; a ratio more than the
// threshold away from its mean emits a signal against the dislocation.
type StatArb struct {
	symbols   []string
	threshold float64
	window    int
	history   map[string][]float64
}

// NewStatArb builds the strategy for the given symbol universe. A threshold
// of zero or below and a window below two fall back to the defaults.
func NewStatArb(symbols []string, threshold float64, window int) *StatArb {
	if threshold <= 0 {
		threshold = DefaultZScoreThreshold
	}
	if window < 2 {
		window = DefaultWindowSize
	}
	return &StatArb{symbols: symbols, threshold: threshold, window: window}
}

// Initialize resets the per-symbol price history.
func (s *StatArb) Initialize() {
	s.history = make(map[string][]float64, len(s.symbols))
	for _, sym := range s.symbols {
		s.history[sym] = make([]float64, 0, s.window+1)
	}
}

// Name implements Strategy.
func (s *StatArb) Name() string { return "StatisticalArbitrage" }

// ProcessUpdate records the book's mid price and emits one signal per
// dislocated pair. Books outside the universe and books without a two-sided
// market are ignored. No signals are produced until the symbol's window is
// full.
func (s *StatArb) ProcessUpdate(b *book.Book) []schema.Signal {
	symbol := b.Symbol()
	hist, ok := s.history[symbol]
	if !ok {
		return nil
	}
	mid, ok := b.MidPrice()
	if !ok {
		return nil
	}

	hist = append(hist, float64(mid))
	if len(hist) > s.window {
		copy(hist, hist[1:])
		hist = hist[:s.window]
	}
	s.history[symbol] = hist

	if len(hist) < s.window {
		return nil
	}

	var signals []schema.Signal
	for _, other := range s.symbols {
		if other == symbol {
			continue
		}
		z := s.zScore(symbol, other)
		if math.Abs(z) <= s.threshold {
			continue
		}
		typ := schema.SignalBuy
		if z > 0 {
			typ = schema.SignalSell
		}
		signals = append(signals, schema.Signal{
			Type:       typ,
			Symbol:     symbol,
			Price:      mid,
			Quantity:   statArbQuantity,
			Confidence: math.Min(math.Abs(z)/(2*s.threshold), 1),
			Timestamp:  schema.Timestamp(time.Now().UnixNano()),
		})
	}
	return signals
}

// zScore measures how far the latest sym1/sym2 price ratio sits from the
// ratio's mean over the overlapping tail of both histories, in population
// standard deviations. Degenerate inputs score zero.
func (s *StatArb) zScore(sym1, sym2 string) float64 {
	p1, p2 := s.history[sym1], s.history[sym2]
	n := len(p1)
	if len(p2) < n {
		n = len(p2)
	}
	if n < 2 {
		return 0
	}
	off1, off2 := len(p1)-n, len(p2)-n

	var sum float64
	for i := 0; i < n; i++ {
		sum += p1[off1+i] / p2[off2+i]
	}
	mean := sum / float64(n)

	var sq float64
	for i := 0; i < n; i++ {
		d := p1[off1+i]/p2[off2+i] - mean
		sq += d * d
	}
	stddev := math.Sqrt(sq / float64(n))
	if stddev == 0 {
		return 0
	}

	current := p1[len(p1)-1] / p2[len(p2)-1]
	return (current - mean) / stddev
}

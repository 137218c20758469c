package schema

// SignalType describes the direction of a strategy signal.
type SignalType uint8

const (
	SignalBuy SignalType = iota
	SignalSell
)

func (t SignalType) String() string {
	if t == SignalBuy {
		return "BUY"
	}
	return "SELL"
}

// Signal is a trading intent produced by a strategy. Confidence is in
// [0, 1]; price and quantity are the strategy's suggestion, not a binding
// reservation.
type Signal struct {
	Type       SignalType
	Symbol     string
	Price      Price
	Quantity   Quantity
	Confidence float64
	Timestamp  Timestamp
}

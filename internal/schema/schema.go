package schema

// Price is a fixed-point price in ticks. The tick scale is defined by
// configuration.
type Price int64

// Quantity is a count of units. Fills never exceed the remaining quantity
// of an order.
type Quantity uint32

// OrderID identifies an order. Zero is never issued.
type OrderID uint64

// Notional is a price-quantity product in tick units.
type Notional int64

// Timestamp is a nanosecond reading. The origin is unspecified; only
// differences are meaningful.
type Timestamp uint64

// Side describes order direction. Values are part of the wire format.
type Side uint8

const (
	SideBuy  Side = 0
	SideSell Side = 1
)

// MessageType discriminates market data messages. Values are part of the
// wire format.
type MessageType uint8

const (
	MsgAddOrder     MessageType = 1
	MsgModifyOrder  MessageType = 2
	MsgCancelOrder  MessageType = 3
	MsgExecuteOrder MessageType = 4
	MsgTrade        MessageType = 5
	MsgSnapshot     MessageType = 6
	MsgHeartbeat    MessageType = 7
)

// AddOrderData is the payload for MsgAddOrder.
type AddOrderData struct {
	OrderID  OrderID
	Price    Price
	Quantity Quantity
	Side     Side
}

// ModifyOrderData is the payload for MsgModifyOrder.
type ModifyOrderData struct {
	OrderID     OrderID
	NewQuantity Quantity
}

// CancelOrderData is the payload for MsgCancelOrder.
type CancelOrderData struct {
	OrderID OrderID
}

// ExecuteOrderData is the payload for MsgExecuteOrder.
type ExecuteOrderData struct {
	OrderID      OrderID
	ExecQuantity Quantity
	ExecPrice    Price
}

// TradeData is the payload for MsgTrade.
type TradeData struct {
	Price         Price
	Quantity      Quantity
	AggressorSide Side
}

// MarketDataMessage is one decoded wire message. Only the payload arm named
// by Type is meaningful; MsgSnapshot and MsgHeartbeat carry the header
// alone. The symbol travels beside the message as a borrowed byte slice,
// never inside it.
type MarketDataMessage struct {
	Timestamp Timestamp
	Type      MessageType

	AddOrder     AddOrderData
	ModifyOrder  ModifyOrderData
	CancelOrder  CancelOrderData
	ExecuteOrder ExecuteOrderData
	Trade        TradeData
}

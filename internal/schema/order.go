package schema

// Order is a live order tracked by a book. Quantity is the remaining open
// quantity; OriginalQuantity never changes after insertion.
type Order struct {
	ID               OrderID
	Price            Price
	Quantity         Quantity
	OriginalQuantity Quantity
	Side             Side
	Timestamp        Timestamp
	Symbol           string
}

// Level aggregates resting quantity at one price.
type Level struct {
	Price    Price
	Quantity Quantity
}

// OrderStatus tracks the lifecycle of a simulated order.
type OrderStatus uint8

const (
	StatusNew OrderStatus = iota
	StatusPending
	StatusPartiallyFilled
	StatusFilled
	StatusCanceled
	StatusRejected
)

var orderStatusNames = [...]string{
	StatusNew:             "NEW",
	StatusPending:         "PENDING",
	StatusPartiallyFilled: "PARTIALLY_FILLED",
	StatusFilled:          "FILLED",
	StatusCanceled:        "CANCELED",
	StatusRejected:        "REJECTED",
}

func (s OrderStatus) String() string {
	if int(s) < len(orderStatusNames) {
		return orderStatusNames[s]
	}
	return "UNKNOWN"
}

// ExecutionReport is a snapshot of one execution event for an order.
// ExecQuantity is the quantity filled by this event alone; LeavesQuantity
// is what remains open after it.
type ExecutionReport struct {
	OrderID        OrderID
	Symbol         string
	Status         OrderStatus
	Side           Side
	ExecQuantity   Quantity
	LeavesQuantity Quantity
	Price          Price
	Timestamp      Timestamp
}

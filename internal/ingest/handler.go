package ingest

import (
	"sort"

	"github.com/yanun0323/logs"

	"main/internal/book"
	"main/internal/codec"
	"main/internal/ringbuf"
	"main/internal/schema"
)

// DefaultBufferSize is the staging ring capacity used when none is
// configured.
const DefaultBufferSize = 1 << 20

// Callback receives every message for a subscribed symbol, after the
// message has been applied to the symbol's book. Both arguments are views
// owned by the handler and are valid only for the duration of the call;
// callbacks must not retain them and must not mutate the handler.
type Callback func(msg *schema.MarketDataMessage, symbol []byte)

// Stats counts handler activity.
type Stats struct {
	Messages uint64 // complete messages processed
	Applied  uint64 // messages that mutated a book
	Ignored  uint64 // unknown symbols and failed id lookups
	Bytes    uint64 // bytes consumed as complete messages
}

// Handler turns a raw market data byte stream into order book updates and
// subscriber callbacks. It owns one book per subscribed symbol. Handler is
// not safe for concurrent use.
type Handler struct {
	books     map[string]*book.Book
	callbacks map[string][]Callback
	ring      *ringbuf.Buffer
	carry     []byte
	scratch   []byte
	stats     Stats
}

// NewHandler returns a handler whose staging ring holds bufferSize bytes.
// Sizes too small for a single message fall back to DefaultBufferSize.
func NewHandler(bufferSize int) *Handler {
	if bufferSize <= codec.HeaderSize+codec.MaxSymbolLen {
		bufferSize = DefaultBufferSize
	}
	return &Handler{
		books:     make(map[string]*book.Book),
		callbacks: make(map[string][]Callback),
		ring:      ringbuf.New(bufferSize),
	}
}

// Subscribe registers cb for symbol, creating the symbol's book on first
// subscription. A nil cb creates the book without registering a callback.
func (h *Handler) Subscribe(symbol string, cb Callback) {
	if _, ok := h.books[symbol]; !ok {
		h.books[symbol] = book.New(symbol)
		logs.Infof("market data: subscribed %s", symbol)
	}
	if cb != nil {
		h.callbacks[symbol] = append(h.callbacks[symbol], cb)
	}
}

// Unsubscribe drops every callback for symbol. The book stays, so resting
// state survives a later re-subscription.
func (h *Handler) Unsubscribe(symbol string) {
	delete(h.callbacks, symbol)
}

// Book returns the order book for symbol when one exists.
func (h *Handler) Book(symbol string) (*book.Book, bool) {
	b, ok := h.books[symbol]
	return b, ok
}

// BestQuotes returns the best-price snapshot for symbol, satisfying the
// execution engine's book lookup. Like every other method it requires
// external synchronization when called from another goroutine.
func (h *Handler) BestQuotes(symbol string) (book.Quotes, bool) {
	b, ok := h.books[symbol]
	if !ok {
		return book.Quotes{}, false
	}
	return b.Quotes(), true
}

// Symbols returns the subscribed symbols in sorted order.
func (h *Handler) Symbols() []string {
	out := make([]string, 0, len(h.books))
	for s := range h.books {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Stats returns a snapshot of the processing counters.
func (h *Handler) Stats() Stats { return h.stats }

// ProcessBuffer decodes every complete message in data in order, applying
// each to its book and then firing the symbol's callbacks in registration
// order. It returns the number of bytes consumed by this call. A trailing
// incomplete message is not consumed; the caller re-presents it once more
// bytes arrive.
func (h *Handler) ProcessBuffer(data []byte) int {
	consumed := 0
	for consumed < len(data) {
		msg, symbol, size, ok := codec.Decode(data[consumed:])
		if !ok {
			break
		}
		h.dispatch(&msg, symbol)
		h.stats.Bytes += uint64(size)
		consumed += size
	}
	return consumed
}

// BufferWrite stages raw bytes for ProcessPending and returns how many
// fit. The staging ring decouples producers that deliver partial messages
// from parsing.
func (h *Handler) BufferWrite(p []byte) int {
	return h.ring.Write(p)
}

// ProcessPending drains staged bytes and processes every complete message,
// carrying a partial tail across calls. It returns the bytes consumed from
// the message stream by this call.
func (h *Handler) ProcessPending() int {
	processed := 0
	for {
		avail := h.ring.ReadAvailable()
		if avail == 0 {
			return processed
		}
		need := len(h.carry) + avail
		if cap(h.scratch) < need {
			h.scratch = make([]byte, need)
		}
		h.scratch = h.scratch[:need]
		n := copy(h.scratch, h.carry)
		h.ring.Read(h.scratch[n:])
		consumed := h.ProcessBuffer(h.scratch)
		processed += consumed
		h.carry = append(h.carry[:0], h.scratch[consumed:]...)
	}
}

func (h *Handler) dispatch(msg *schema.MarketDataMessage, symbol []byte) {
	h.stats.Messages++
	h.apply(msg, symbol)
	for _, cb := range h.callbacks[string(symbol)] {
		cb(msg, symbol)
	}
}

// apply mutates the symbol's book. Trades, snapshots, heartbeats and
// unknown types reach callbacks but never touch a book; messages for
// symbols without a book are counted and dropped.
func (h *Handler) apply(msg *schema.MarketDataMessage, symbol []byte) {
	b, ok := h.books[string(symbol)]
	if !ok {
		h.stats.Ignored++
		return
	}
	switch msg.Type {
	case schema.MsgAddOrder:
		b.AddOrder(schema.Order{
			ID:               msg.AddOrder.OrderID,
			Price:            msg.AddOrder.Price,
			Quantity:         msg.AddOrder.Quantity,
			OriginalQuantity: msg.AddOrder.Quantity,
			Side:             msg.AddOrder.Side,
			Timestamp:        msg.Timestamp,
			Symbol:           b.Symbol(),
		})
		h.stats.Applied++
	case schema.MsgModifyOrder:
		h.count(b.ModifyOrder(msg.ModifyOrder.OrderID, msg.ModifyOrder.NewQuantity))
	case schema.MsgCancelOrder:
		h.count(b.CancelOrder(msg.CancelOrder.OrderID))
	case schema.MsgExecuteOrder:
		h.count(b.ExecuteOrder(msg.ExecuteOrder.OrderID, msg.ExecuteOrder.ExecQuantity))
	}
}

func (h *Handler) count(applied bool) {
	if applied {
		h.stats.Applied++
	} else {
		h.stats.Ignored++
	}
}

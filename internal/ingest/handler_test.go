package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/codec"
	"main/internal/schema"
)

func addMsg(ts schema.Timestamp, id schema.OrderID, price schema.Price, qty schema.Quantity, side schema.Side) *schema.MarketDataMessage {
	return &schema.MarketDataMessage{
		Timestamp: ts,
		Type:      schema.MsgAddOrder,
		AddOrder:  schema.AddOrderData{OrderID: id, Price: price, Quantity: qty, Side: side},
	}
}

func TestProcessBufferAppliesAndConsumes(t *testing.T) {
	h := NewHandler(0)
	h.Subscribe("MSFT", nil)

	batch := codec.Append(nil, addMsg(1, 1, 10_000, 5, schema.SideBuy), []byte("MSFT"))
	batch = codec.Append(batch, &schema.MarketDataMessage{
		Timestamp:   2,
		Type:        schema.MsgModifyOrder,
		ModifyOrder: schema.ModifyOrderData{OrderID: 1, NewQuantity: 8},
	}, []byte("MSFT"))
	batch = codec.Append(batch, &schema.MarketDataMessage{
		Timestamp:   3,
		Type:        schema.MsgCancelOrder,
		CancelOrder: schema.CancelOrderData{OrderID: 1},
	}, []byte("MSFT"))
	whole := len(batch)

	// A truncated fourth message must not be consumed or applied.
	tail := codec.Append(nil, addMsg(4, 9, 10_100, 2, schema.SideBuy), []byte("MSFT"))
	batch = append(batch, tail[:len(tail)-1]...)

	consumed := h.ProcessBuffer(batch)
	require.Equal(t, whole, consumed)

	st := h.Stats()
	assert.Equal(t, uint64(3), st.Messages)
	assert.Equal(t, uint64(3), st.Applied)
	assert.Equal(t, uint64(0), st.Ignored)

	b, ok := h.Book("MSFT")
	require.True(t, ok)
	assert.Equal(t, 0, b.OrderCount())

	// Re-presenting the tail with its missing byte completes the message.
	consumed = h.ProcessBuffer(tail)
	require.Equal(t, len(tail), consumed)
	o, ok := b.Order(9)
	require.True(t, ok)
	assert.Equal(t, schema.Quantity(2), o.Quantity)
}

func TestCallbacksSeeUpdatedBook(t *testing.T) {
	h := NewHandler(0)
	h.Subscribe("AAPL", nil)
	b, _ := h.Book("AAPL")

	var observed []schema.Price
	h.Subscribe("AAPL", func(msg *schema.MarketDataMessage, symbol []byte) {
		require.Equal(t, "AAPL", string(symbol))
		bid, ok := b.BestBid()
		require.True(t, ok, "callback must observe the applied update")
		observed = append(observed, bid)
	})

	data := codec.Append(nil, addMsg(1, 1, 10_000, 5, schema.SideBuy), []byte("AAPL"))
	data = codec.Append(data, addMsg(2, 2, 10_020, 5, schema.SideBuy), []byte("AAPL"))
	h.ProcessBuffer(data)

	require.Equal(t, []schema.Price{10_000, 10_020}, observed)
}

func TestCallbackRegistrationOrder(t *testing.T) {
	h := NewHandler(0)
	var order []string
	h.Subscribe("AAPL", func(*schema.MarketDataMessage, []byte) { order = append(order, "first") })
	h.Subscribe("AAPL", func(*schema.MarketDataMessage, []byte) { order = append(order, "second") })

	data := codec.Append(nil, &schema.MarketDataMessage{Timestamp: 1, Type: schema.MsgHeartbeat}, []byte("AAPL"))
	h.ProcessBuffer(data)

	require.Equal(t, []string{"first", "second"}, order)
}

func TestNonBookTypesDoNotMutate(t *testing.T) {
	h := NewHandler(0)
	h.Subscribe("AAPL", nil)
	b, _ := h.Book("AAPL")

	var calls int
	h.Subscribe("AAPL", func(*schema.MarketDataMessage, []byte) { calls++ })

	data := codec.Append(nil, &schema.MarketDataMessage{
		Timestamp: 1,
		Type:      schema.MsgTrade,
		Trade:     schema.TradeData{Price: 10_000, Quantity: 3, AggressorSide: schema.SideBuy},
	}, []byte("AAPL"))
	data = codec.Append(data, &schema.MarketDataMessage{Timestamp: 2, Type: schema.MsgSnapshot}, []byte("AAPL"))
	data = codec.Append(data, &schema.MarketDataMessage{Timestamp: 3, Type: schema.MsgHeartbeat}, []byte("AAPL"))

	consumed := h.ProcessBuffer(data)
	require.Equal(t, len(data), consumed)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 0, b.OrderCount())
	if bids, asks := b.Depth(); bids != 0 || asks != 0 {
		t.Fatalf("depth changed: (%d, %d)", bids, asks)
	}
}

func TestUnknownSymbolConsumedAndIgnored(t *testing.T) {
	h := NewHandler(0)
	h.Subscribe("AAPL", nil)

	data := codec.Append(nil, addMsg(1, 1, 10_000, 5, schema.SideBuy), []byte("ZZZ"))
	consumed := h.ProcessBuffer(data)

	require.Equal(t, len(data), consumed)
	st := h.Stats()
	assert.Equal(t, uint64(1), st.Messages)
	assert.Equal(t, uint64(1), st.Ignored)
	_, ok := h.Book("ZZZ")
	assert.False(t, ok, "messages must not create books")
}

func TestFailedLookupsIgnored(t *testing.T) {
	h := NewHandler(0)
	h.Subscribe("AAPL", nil)

	data := codec.Append(nil, &schema.MarketDataMessage{
		Timestamp:   1,
		Type:        schema.MsgCancelOrder,
		CancelOrder: schema.CancelOrderData{OrderID: 404},
	}, []byte("AAPL"))
	h.ProcessBuffer(data)

	st := h.Stats()
	assert.Equal(t, uint64(1), st.Ignored)
	assert.Equal(t, uint64(0), st.Applied)
}

func TestUnsubscribeKeepsBook(t *testing.T) {
	h := NewHandler(0)
	var calls int
	h.Subscribe("AAPL", func(*schema.MarketDataMessage, []byte) { calls++ })
	b, _ := h.Book("AAPL")

	h.Unsubscribe("AAPL")
	data := codec.Append(nil, addMsg(1, 1, 10_000, 5, schema.SideBuy), []byte("AAPL"))
	h.ProcessBuffer(data)

	assert.Equal(t, 0, calls)
	assert.Equal(t, 1, b.OrderCount(), "book still applies after unsubscribe")

	again, ok := h.Book("AAPL")
	require.True(t, ok)
	assert.Same(t, b, again)
}

func TestBufferedPathReassemblesSplitMessages(t *testing.T) {
	h := NewHandler(1024)
	h.Subscribe("AAPL", nil)
	b, _ := h.Book("AAPL")

	data := codec.Append(nil, addMsg(1, 1, 10_000, 5, schema.SideBuy), []byte("AAPL"))
	data = codec.Append(data, addMsg(2, 2, 10_010, 3, schema.SideBuy), []byte("AAPL"))

	split := codec.MessageSize(4) / 2
	require.Equal(t, split, h.BufferWrite(data[:split]))
	require.Equal(t, 0, h.ProcessPending(), "half a message must not process")

	require.Equal(t, len(data)-split, h.BufferWrite(data[split:]))
	require.Equal(t, len(data), h.ProcessPending())

	assert.Equal(t, 2, b.OrderCount())
	bid, ok := b.BestBid()
	require.True(t, ok)
	assert.Equal(t, schema.Price(10_010), bid)
}

func TestSymbols(t *testing.T) {
	h := NewHandler(0)
	h.Subscribe("MSFT", nil)
	h.Subscribe("AAPL", nil)
	h.Subscribe("MSFT", nil)
	require.Equal(t, []string{"AAPL", "MSFT"}, h.Symbols())
}

func BenchmarkProcessBuffer(b *testing.B) {
	h := NewHandler(0)
	h.Subscribe("AAPL", nil)
	data := codec.Append(nil, addMsg(1, 1, 10_000, 5, schema.SideBuy), []byte("AAPL"))
	data = codec.Append(data, &schema.MarketDataMessage{
		Timestamp:   2,
		Type:        schema.MsgCancelOrder,
		CancelOrder: schema.CancelOrderData{OrderID: 1},
	}, []byte("AAPL"))
	b.ReportAllocs()
	for b.Loop() {
		h.ProcessBuffer(data)
	}
}

package codec

import (
	"encoding/binary"

	"main/internal/schema"
)

// Wire layout, little-endian, packed:
//
//	offset 0   timestamp  uint64
//	offset 8   type       uint8
//	offset 9   symbol_len uint8
//	offset 10  payload    PayloadSize bytes (one variant, zero padded)
//	offset 31  symbol     symbol_len bytes of ASCII
//
// Every message occupies HeaderSize+symbol_len bytes regardless of which
// variant it carries.
const (
	offTimestamp = 0
	offType      = 8
	offSymbolLen = 9
	offPayload   = 10

	// PayloadSize is the size of the variant block, fixed to the largest
	// arm (add order: id, price, quantity, side).
	PayloadSize = 21

	// HeaderSize is the fixed portion preceding the symbol bytes.
	HeaderSize = offPayload + PayloadSize

	// MaxSymbolLen is the longest encodable symbol.
	MaxSymbolLen = 255
)

// MessageSize returns the encoded size of a message carrying a symbol of
// the given length.
func MessageSize(symbolLen int) int { return HeaderSize + symbolLen }

// Append encodes msg followed by symbol onto dst and returns the extended
// slice. Symbols longer than MaxSymbolLen are truncated.
func Append(dst []byte, msg *schema.MarketDataMessage, symbol []byte) []byte {
	if len(symbol) > MaxSymbolLen {
		symbol = symbol[:MaxSymbolLen]
	}
	var fixed [HeaderSize]byte
	binary.LittleEndian.PutUint64(fixed[offTimestamp:], uint64(msg.Timestamp))
	fixed[offType] = byte(msg.Type)
	fixed[offSymbolLen] = byte(len(symbol))
	p := fixed[offPayload:]
	switch msg.Type {
	case schema.MsgAddOrder:
		binary.LittleEndian.PutUint64(p[0:8], uint64(msg.AddOrder.OrderID))
		binary.LittleEndian.PutUint64(p[8:16], uint64(msg.AddOrder.Price))
		binary.LittleEndian.PutUint32(p[16:20], uint32(msg.AddOrder.Quantity))
		p[20] = byte(msg.AddOrder.Side)
	case schema.MsgModifyOrder:
		binary.LittleEndian.PutUint64(p[0:8], uint64(msg.ModifyOrder.OrderID))
		binary.LittleEndian.PutUint32(p[8:12], uint32(msg.ModifyOrder.NewQuantity))
	case schema.MsgCancelOrder:
		binary.LittleEndian.PutUint64(p[0:8], uint64(msg.CancelOrder.OrderID))
	case schema.MsgExecuteOrder:
		binary.LittleEndian.PutUint64(p[0:8], uint64(msg.ExecuteOrder.OrderID))
		binary.LittleEndian.PutUint32(p[8:12], uint32(msg.ExecuteOrder.ExecQuantity))
		binary.LittleEndian.PutUint64(p[12:20], uint64(msg.ExecuteOrder.ExecPrice))
	case schema.MsgTrade:
		binary.LittleEndian.PutUint64(p[0:8], uint64(msg.Trade.Price))
		binary.LittleEndian.PutUint32(p[8:12], uint32(msg.Trade.Quantity))
		p[12] = byte(msg.Trade.AggressorSide)
	}
	dst = append(dst, fixed[:]...)
	return append(dst, symbol...)
}

// Decode parses the next message from src. It returns the decoded message,
// the symbol bytes borrowed from src, and the total encoded size. ok is
// false when src holds less than one complete message; nothing is consumed
// in that case. Unknown type values still decode; only the payload arm
// named by the type byte is populated.
func Decode(src []byte) (msg schema.MarketDataMessage, symbol []byte, size int, ok bool) {
	if len(src) < HeaderSize {
		return schema.MarketDataMessage{}, nil, 0, false
	}
	size = HeaderSize + int(src[offSymbolLen])
	if len(src) < size {
		return schema.MarketDataMessage{}, nil, 0, false
	}
	msg.Timestamp = schema.Timestamp(binary.LittleEndian.Uint64(src[offTimestamp:]))
	msg.Type = schema.MessageType(src[offType])
	p := src[offPayload:HeaderSize]
	switch msg.Type {
	case schema.MsgAddOrder:
		msg.AddOrder.OrderID = schema.OrderID(binary.LittleEndian.Uint64(p[0:8]))
		msg.AddOrder.Price = schema.Price(binary.LittleEndian.Uint64(p[8:16]))
		msg.AddOrder.Quantity = schema.Quantity(binary.LittleEndian.Uint32(p[16:20]))
		msg.AddOrder.Side = schema.Side(p[20])
	case schema.MsgModifyOrder:
		msg.ModifyOrder.OrderID = schema.OrderID(binary.LittleEndian.Uint64(p[0:8]))
		msg.ModifyOrder.NewQuantity = schema.Quantity(binary.LittleEndian.Uint32(p[8:12]))
	case schema.MsgCancelOrder:
		msg.CancelOrder.OrderID = schema.OrderID(binary.LittleEndian.Uint64(p[0:8]))
	case schema.MsgExecuteOrder:
		msg.ExecuteOrder.OrderID = schema.OrderID(binary.LittleEndian.Uint64(p[0:8]))
		msg.ExecuteOrder.ExecQuantity = schema.Quantity(binary.LittleEndian.Uint32(p[8:12]))
		msg.ExecuteOrder.ExecPrice = schema.Price(binary.LittleEndian.Uint64(p[12:20]))
	case schema.MsgTrade:
		msg.Trade.Price = schema.Price(binary.LittleEndian.Uint64(p[0:8]))
		msg.Trade.Quantity = schema.Quantity(binary.LittleEndian.Uint32(p[8:12]))
		msg.Trade.AggressorSide = schema.Side(p[12])
	}
	return msg, src[HeaderSize:size], size, true
}

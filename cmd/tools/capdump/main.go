// Command capdump prints the frames of a feed capture, optionally
// decoding the market data messages inside each one.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"main/internal/capture"
	"main/internal/codec"
	"main/internal/schema"
)

func main() {
	dir := flag.String("dir", "testdata/capture", "Capture directory")
	prefix := flag.String("prefix", "", "Segment file prefix (default: feed)")
	speed := flag.Float64("speed", 0, "Playback speed (1=recorded pace, 0=no pacing)")
	noChecksum := flag.Bool("no-checksum", false, "Disable checksum validation")
	maxPayload := flag.Int("max-payload", 0, "Max payload size in bytes (0=unlimited)")
	decode := flag.Bool("decode", false, "Decode the messages in each frame")
	flag.Parse()

	pb, err := capture.NewPlayback(capture.PlaybackConfig{
		Dir:             *dir,
		FilePrefix:      *prefix,
		Speed:           *speed,
		DisableChecksum: *noChecksum,
		MaxPayloadSize:  *maxPayload,
	})
	if err != nil {
		log.Fatalf("playback init failed: %v", err)
	}

	var index int
	err = pb.Run(context.Background(), func(frame capture.Frame, payload []byte) error {
		index++
		fmt.Printf("%06d seq=%d count=%d wall=%s len=%d\n",
			index, frame.Seq, frame.Count, wallString(frame.WallTime), len(payload))
		if *decode {
			printMessages(payload)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("playback run failed: %v", err)
	}
}

func wallString(nanos int64) string {
	if nanos == 0 {
		return "-"
	}
	return time.Unix(0, nanos).UTC().Format(time.RFC3339Nano)
}

func printMessages(payload []byte) {
	for len(payload) > 0 {
		msg, symbol, size, ok := codec.Decode(payload)
		if !ok {
			fmt.Printf("  truncated message, %d bytes left\n", len(payload))
			return
		}
		payload = payload[size:]
		switch msg.Type {
		case schema.MsgAddOrder:
			fmt.Printf("  add id=%d side=%s price=%d qty=%d symbol=%s\n",
				msg.AddOrder.OrderID, sideName(msg.AddOrder.Side), msg.AddOrder.Price, msg.AddOrder.Quantity, symbol)
		case schema.MsgModifyOrder:
			fmt.Printf("  modify id=%d qty=%d symbol=%s\n",
				msg.ModifyOrder.OrderID, msg.ModifyOrder.NewQuantity, symbol)
		case schema.MsgCancelOrder:
			fmt.Printf("  cancel id=%d symbol=%s\n", msg.CancelOrder.OrderID, symbol)
		case schema.MsgExecuteOrder:
			fmt.Printf("  execute id=%d price=%d qty=%d symbol=%s\n",
				msg.ExecuteOrder.OrderID, msg.ExecuteOrder.ExecPrice, msg.ExecuteOrder.ExecQuantity, symbol)
		case schema.MsgTrade:
			fmt.Printf("  trade price=%d qty=%d aggressor=%s symbol=%s\n",
				msg.Trade.Price, msg.Trade.Quantity, sideName(msg.Trade.AggressorSide), symbol)
		case schema.MsgSnapshot:
			fmt.Printf("  snapshot symbol=%s\n", symbol)
		case schema.MsgHeartbeat:
			fmt.Printf("  heartbeat symbol=%s\n", symbol)
		default:
			fmt.Printf("  unknown type=%d symbol=%s\n", msg.Type, symbol)
		}
	}
}

func sideName(s schema.Side) string {
	switch s {
	case schema.SideBuy:
		return "buy"
	case schema.SideSell:
		return "sell"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

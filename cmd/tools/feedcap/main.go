// Command feedcap generates a synthetic market data stream and writes it
// to capture segments for later replay.
package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"main/internal/capture"
	"main/internal/feed"
	"main/internal/ops"
	"main/internal/schema"
)

func main() {
	dir := flag.String("dir", "testdata/capture", "Capture directory")
	symbolList := flag.String("symbols", "AAPL,MSFT,GOOG,AMZN,FB", "Comma separated symbols")
	messages := flag.Int("messages", 100_000, "Number of messages to generate")
	batch := flag.Int("batch", 64, "Messages per capture frame")
	basePrice := flag.String("base-price", "100.00", "Base price as a decimal")
	priceScale := flag.Int("price-scale", 2, "Decimal places per price tick")
	priceStep := flag.Int64("price-step", 0, "Largest single walk move, 0 uses the default")
	maxQty := flag.Uint64("max-qty", 1000, "Largest order quantity")
	seed := flag.Int64("seed", 0, "Generator seed, 0 derives one from the clock")
	prefix := flag.String("prefix", capture.DefaultFilePrefix, "Segment file prefix")
	segmentMaxBytes := flag.Int64("segment-max-bytes", 0, "Segment rotation size, 0 uses the default")
	interval := flag.Duration("interval", 0, "Delay between frames")
	flag.Parse()

	if *messages <= 0 {
		log.Fatalf("messages must be > 0")
	}
	if *batch <= 0 {
		log.Fatalf("batch must be > 0")
	}
	symbols := splitSymbols(*symbolList)
	if len(symbols) == 0 {
		log.Fatalf("no symbols given")
	}
	base, err := decimal.NewFromString(*basePrice)
	if err != nil {
		log.Fatalf("invalid base price: %v", err)
	}

	gen, err := feed.New(feed.Config{
		Symbols:     symbols,
		BasePrice:   ops.PriceFromDecimal(base, int32(*priceScale)),
		PriceStep:   schema.Price(*priceStep),
		MaxQuantity: uint32(*maxQty),
		Seed:        *seed,
	})
	if err != nil {
		log.Fatalf("generator init failed: %v", err)
	}

	writer, err := capture.NewWriter(capture.Config{
		Dir:             *dir,
		FilePrefix:      *prefix,
		SegmentMaxBytes: *segmentMaxBytes,
		CopyPayload:     true,
	})
	if err != nil {
		log.Fatalf("capture init failed: %v", err)
	}
	if err := writer.Start(context.Background()); err != nil {
		log.Fatalf("capture start failed: %v", err)
	}

	frames := (*messages + *batch - 1) / *batch
	buf := make([]byte, 0, *batch*64)
	written := 0
	start := time.Now()
	for i := 0; i < frames; i++ {
		n := *batch
		if remaining := *messages - written; n > remaining {
			n = remaining
		}
		buf = gen.AppendBatch(buf[:0], n)
		frame := capture.Frame{Seq: uint64(i + 1), Count: uint32(n)}
		for {
			err := writer.TryAppend(frame, buf)
			if err == nil {
				break
			}
			if err == capture.ErrQueueFull {
				time.Sleep(time.Millisecond)
				continue
			}
			log.Fatalf("capture append failed: %v", err)
		}
		written += n
		if *interval > 0 && i < frames-1 {
			time.Sleep(*interval)
		}
	}

	if err := writer.Close(); err != nil {
		log.Fatalf("capture close failed: %v", err)
	}
	log.Printf("captured %d messages in %d frames to %s in %s",
		written, frames, *dir, time.Since(start).Round(time.Millisecond))
}

func splitSymbols(list string) []string {
	parts := strings.Split(list, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

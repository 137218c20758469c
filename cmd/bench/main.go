package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/grafana/pyroscope-go"

	"main/internal/alog"
	"main/internal/book"
	"main/internal/codec"
	"main/internal/feed"
	"main/internal/ingest"
	"main/internal/obs"
	"main/internal/ringbuf"
	"main/internal/schema"
	"main/internal/slab"
	"main/internal/spsc"
)

var benchSymbols = []string{"AAPL", "MSFT", "GOOG", "AMZN", "FB"}

// sink keeps measured reads from being optimized away.
var sink uint64

func main() {
	iterations := flag.Int("iterations", 100_000, "Measured iterations per benchmark")
	warmup := flag.Int("warmup", 10_000, "Unmeasured warmup iterations per benchmark")
	batch := flag.Int("batch", 64, "Messages per batch in the end-to-end benchmark")
	seed := flag.Int64("seed", 1, "Seed for generated workloads")
	logPath := flag.String("log", "benchmark.log", "Benchmark log file")
	pyroAddr := flag.String("pyroscope", "", "Pyroscope server address (empty disables profiling)")
	flag.Parse()

	if *iterations <= 0 || *warmup < 0 || *batch <= 0 {
		log.Fatalf("invalid counts: iterations=%d warmup=%d batch=%d", *iterations, *warmup, *batch)
	}

	if *pyroAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "trading.bench",
			ServerAddress:   *pyroAddr,
			Tags: map[string]string{
				"binary": "bench",
			},
			Logger: emptyLogger{},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			log.Fatalf("pyroscope start failed: %v", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	logger, err := alog.New(alog.Config{Path: *logPath, Level: alog.LevelInfo})
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	logger.Start()
	logger.Infof("starting benchmarks: iterations=%d warmup=%d seed=%d", *iterations, *warmup, *seed)

	b := bench{iterations: *iterations, warmup: *warmup, seed: *seed}
	b.orderBook()
	b.wireCodec()
	b.queue()
	b.pool()
	b.ring()
	b.endToEnd(*batch)
	b.timekeeperOverhead()

	logger.Infof("benchmarks complete")
	logger.Stop()
}

type bench struct {
	iterations int
	warmup     int
	seed       int64
}

func (b bench) total() int { return b.warmup + b.iterations }

func (b bench) keeper() *obs.Timekeeper { return obs.NewTimekeeper(b.iterations) }

func (b bench) orderBook() {
	rng := rand.New(rand.NewSource(b.seed))
	orders := make([]schema.Order, b.total())
	for i := range orders {
		side := schema.SideBuy
		if rng.Intn(2) == 1 {
			side = schema.SideSell
		}
		orders[i] = schema.Order{
			ID:        schema.OrderID(i + 1),
			Price:     schema.Price(9_000 + rng.Intn(2_001)),
			Quantity:  schema.Quantity(1 + rng.Intn(100)),
			Side:      side,
			Timestamp: schema.Timestamp(time.Now().UnixNano()),
			Symbol:    "AAPL",
		}
	}

	bk := book.New("AAPL")

	tk := b.keeper()
	for i, o := range orders {
		if i < b.warmup {
			bk.AddOrder(o)
			continue
		}
		tk.Start()
		bk.AddOrder(o)
		tk.Stop()
	}
	printResults("book.AddOrder", tk)

	tk = b.keeper()
	for i := 0; i < b.total(); i++ {
		if i < b.warmup {
			readQuotes(bk)
			continue
		}
		tk.Start()
		readQuotes(bk)
		tk.Stop()
	}
	printResults("book.BestBid/BestAsk", tk)

	tk = b.keeper()
	for i := range orders {
		if i < b.warmup {
			bk.CancelOrder(orders[i].ID)
			continue
		}
		tk.Start()
		bk.CancelOrder(orders[i].ID)
		tk.Stop()
	}
	printResults("book.CancelOrder", tk)
}

func readQuotes(bk *book.Book) {
	bid, _ := bk.BestBid()
	ask, _ := bk.BestAsk()
	sink += uint64(bid) + uint64(ask)
}

func (b bench) wireCodec() {
	gen, err := feed.New(feed.Config{Symbols: benchSymbols, Seed: b.seed})
	if err != nil {
		log.Fatalf("feed init failed: %v", err)
	}
	buf := gen.AppendBatch(nil, 4096)

	tk := b.keeper()
	off := 0
	for i := 0; i < b.total(); i++ {
		if off >= len(buf) {
			off = 0
		}
		if i < b.warmup {
			_, _, size, _ := codec.Decode(buf[off:])
			off += size
			continue
		}
		tk.Start()
		msg, _, size, _ := codec.Decode(buf[off:])
		tk.Stop()
		sink += uint64(msg.Timestamp)
		off += size
	}
	printResults("codec.Decode", tk)
}

func (b bench) queue() {
	q := spsc.New[uint64](1024)

	pushTK := b.keeper()
	popTK := b.keeper()
	for i := 0; i < b.total(); i++ {
		if i < b.warmup {
			q.TryPush(uint64(i))
			if got, ok := q.TryPop(); ok {
				sink += got
			}
			continue
		}
		pushTK.Start()
		q.TryPush(uint64(i))
		pushTK.Stop()

		popTK.Start()
		got, _ := q.TryPop()
		popTK.Stop()
		sink += got
	}
	printResults("spsc.TryPush", pushTK)
	printResults("spsc.TryPop", popTK)
}

func (b bench) pool() {
	p := slab.New[schema.ExecutionReport](0)

	acquireTK := b.keeper()
	releaseTK := b.keeper()
	for i := 0; i < b.total(); i++ {
		if i < b.warmup {
			p.Release(p.Acquire())
			continue
		}
		acquireTK.Start()
		r := p.Acquire()
		acquireTK.Stop()
		r.OrderID = schema.OrderID(i)

		releaseTK.Start()
		p.Release(r)
		releaseTK.Stop()
	}
	printResults("slab.Acquire", acquireTK)
	printResults("slab.Release", releaseTK)
}

func (b bench) ring() {
	rb := ringbuf.New(1 << 20)
	frame := make([]byte, 64)
	out := make([]byte, 64)

	writeTK := b.keeper()
	readTK := b.keeper()
	for i := 0; i < b.total(); i++ {
		if i < b.warmup {
			rb.Write(frame)
			rb.Read(out)
			continue
		}
		writeTK.Start()
		rb.Write(frame)
		writeTK.Stop()

		readTK.Start()
		rb.Read(out)
		readTK.Stop()
	}
	printResults("ringbuf.Write", writeTK)
	printResults("ringbuf.Read", readTK)
	sink += uint64(out[0])
}

func (b bench) endToEnd(batch int) {
	gen, err := feed.New(feed.Config{Symbols: benchSymbols, Seed: b.seed})
	if err != nil {
		log.Fatalf("feed init failed: %v", err)
	}
	handler := ingest.NewHandler(1 << 20)
	for _, sym := range benchSymbols {
		handler.Subscribe(sym, nil)
	}

	batches := b.iterations / batch
	if batches == 0 {
		batches = 1
	}
	warmupBatches := b.warmup / batch

	tk := obs.NewTimekeeper(batches)
	buf := make([]byte, 0, batch*64)
	for i := 0; i < warmupBatches+batches; i++ {
		buf = gen.AppendBatch(buf[:0], batch)
		if i < warmupBatches {
			handler.ProcessBuffer(buf)
			continue
		}
		tk.Start()
		handler.ProcessBuffer(buf)
		tk.Stop()
	}
	printResults(fmt.Sprintf("ingest.ProcessBuffer (%d-message batches)", batch), tk)
	sink += handler.Stats().Applied
}

func (b bench) timekeeperOverhead() {
	inner := obs.NewTimekeeper(b.total())
	tk := b.keeper()
	for i := 0; i < b.total(); i++ {
		if i < b.warmup {
			inner.Start()
			inner.Stop()
			continue
		}
		tk.Start()
		inner.Start()
		inner.Stop()
		tk.Stop()
	}
	printResults("obs.Timekeeper Start/Stop", tk)
}

func printResults(name string, tk *obs.Timekeeper) {
	fmt.Printf("Benchmark: %s\n", name)
	fmt.Printf("  iterations: %d\n", tk.Count())
	fmt.Printf("  min:    %12s\n", tk.Min())
	fmt.Printf("  mean:   %12s\n", tk.Mean())
	fmt.Printf("  median: %12s\n", tk.Median())
	fmt.Printf("  p90:    %12s\n", tk.Percentile(0.9))
	fmt.Printf("  p99:    %12s\n", tk.Percentile(0.99))
	fmt.Printf("  p99.9:  %12s\n", tk.Percentile(0.999))
	fmt.Printf("  max:    %12s\n", tk.Max())
	fmt.Println()
}

type emptyLogger struct{}

func (emptyLogger) Infof(_ string, _ ...interface{})  {}
func (emptyLogger) Debugf(_ string, _ ...interface{}) {}
func (emptyLogger) Errorf(_ string, _ ...interface{}) {}

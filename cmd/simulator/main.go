package main

import (
	"context"
	"flag"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/pkg/sys"

	"main/internal/alog"
	"main/internal/book"
	"main/internal/capture"
	"main/internal/exec"
	"main/internal/feed"
	"main/internal/ingest"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/risk"
	"main/internal/schema"
	"main/internal/state"
	"main/internal/strategy"
)

// Recognized keys and their defaults. A -config file and prefixed
// environment variables override these in that order.
var configDefaults = map[string]string{
	"market_data.buffer_size":             "1048576",
	"market_data.symbols":                 "AAPL,MSFT,GOOG,AMZN,FB",
	"strategy.stat_arb.z_score_threshold": "2.0",
	"strategy.stat_arb.window_size":       "100",
	"execution.latency_us":                "100",
	"execution.retry_limit":               "0",
	"execution.seed":                      "0",
	"feed.base_price":                     "100.00",
	"feed.price_scale":                    "2",
	"feed.seed":                           "0",
	"feed.max_quantity":                   "1000",
	"capture.dir":                         "",
	"capture.segment_max_bytes":           "0",
	"capture.flush_interval":              "100ms",
	"capture.speed":                       "0",
	"risk.kill_switch":                    "false",
	"risk.max_order_qty":                  "0",
	"risk.max_order_notional":             "0",
	"risk.max_position":                   "0",
	"risk.max_price_deviation_bps":        "0",
	"risk.order_rate_limit":               "0",
	"risk.order_rate_window":              "1s",
	"log.file":                            "trading_simulator.log",
	"log.level":                           "info",
	"simulator.messages":                  "100000",
	"simulator.batch_size":                "64",
	"simulator.report_every":              "10000",
	"simulator.throttle":                  "0s",
}

func main() {
	configPath := flag.String("config", "", "Path to key=value config file")
	envPrefix := flag.String("env-prefix", "SIM_", "Prefix for config overrides from the environment")
	replayDir := flag.String("replay", "", "Replay a captured feed directory instead of generating one")
	flag.Parse()

	cfg, err := loadConfig(*configPath, *envPrefix)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if err := run(cfg, *replayDir); err != nil {
		log.Fatalf("simulator failed: %v", err)
	}
}

func run(cfg *ops.Config, replayDir string) error {
	symbols := cfg.GetDefault("market_data.symbols", "").StringList()
	if len(symbols) == 0 {
		return errors.New("no symbols configured")
	}

	logger, err := alog.New(alog.Config{
		Path:  cfg.GetDefault("log.file", "").String(),
		Level: alog.ParseLevel(cfg.GetDefault("log.level", "").String()),
	})
	if err != nil {
		return err
	}
	logger.Start()
	defer logger.Stop()

	logger.Infof("trading simulator starting: %d symbols: %v", len(symbols), symbols)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-sys.Shutdown():
			cancel()
		case <-ctx.Done():
		}
	}()

	handler := ingest.NewHandler(int(cfg.GetDefault("market_data.buffer_size", "").Uint64()))
	books := &lockedBooks{handler: handler}

	host := strategy.NewHost()
	host.Register(strategy.NewStatArb(
		symbols,
		cfg.GetDefault("strategy.stat_arb.z_score_threshold", "").Float(),
		cfg.GetDefault("strategy.stat_arb.window_size", "").Int(),
	))

	engine := exec.New(books, exec.Config{
		Latency:    time.Duration(cfg.GetDefault("execution.latency_us", "").Int64()) * time.Microsecond,
		RetryLimit: cfg.GetDefault("execution.retry_limit", "").Int(),
		Seed:       cfg.GetDefault("execution.seed", "").Int64(),
	})

	tracker := newReportTracker(logger)
	engine.SetReportCallback(tracker.onReport)

	gate := risk.NewEngine(riskConfig(cfg))

	var signals, denied uint64
	host.SetSignalCallback(func(sig schema.Signal) {
		signals++
		// The callback runs on the market data thread with the book lock
		// already held, so quotes are read straight off the handler.
		view := risk.View{Position: tracker.position(sig.Symbol)}
		if b, ok := handler.Book(sig.Symbol); ok {
			view.ReferencePrice = midPrice(b)
		}
		if d := gate.Evaluate(sig, view); !d.Allowed {
			denied++
			logger.Warnf("signal denied: reason=%s type=%s symbol=%s price=%d quantity=%d",
				d.Reason, sig.Type, sig.Symbol, sig.Price, sig.Quantity)
			return
		}
		logger.Infof("signal: type=%s symbol=%s price=%d quantity=%d confidence=%.3f",
			sig.Type, sig.Symbol, sig.Price, sig.Quantity, sig.Confidence)
		start := time.Now()
		id := engine.Submit(sig)
		tracker.track(id, start)
	})

	// Books first, then the per-book update callbacks that drive strategies.
	for _, sym := range symbols {
		handler.Subscribe(sym, nil)
	}
	for _, sym := range symbols {
		b, _ := handler.Book(sym)
		handler.Subscribe(sym, func(*schema.MarketDataMessage, []byte) {
			host.ProcessOrderBook(b)
		})
	}

	var gen *feed.Generator
	if replayDir == "" {
		gen, err = feed.New(feed.Config{
			Symbols: symbols,
			BasePrice: ops.PriceFromDecimal(
				cfg.GetDefault("feed.base_price", "").Decimal(),
				int32(cfg.GetDefault("feed.price_scale", "").Int()),
			),
			MaxQuantity: uint32(cfg.GetDefault("feed.max_quantity", "").Uint64()),
			Seed:        cfg.GetDefault("feed.seed", "").Int64(),
		})
		if err != nil {
			return err
		}
	}

	var (
		total       = int(cfg.GetDefault("simulator.messages", "").Uint64())
		batchSize   = cfg.GetDefault("simulator.batch_size", "").Int()
		reportEvery = cfg.GetDefault("simulator.report_every", "").Int()
		throttle    = cfg.GetDefault("simulator.throttle", "").Duration()
	)
	if batchSize <= 0 {
		batchSize = 64
	}

	tkCap := total/batchSize + 1
	if replayDir != "" {
		// Frame count is unknown until the capture is read.
		tkCap = 0
	}

	sim := &simulator{
		logger:      logger,
		books:       books,
		tracker:     tracker,
		tk:          obs.NewTimekeeper(tkCap),
		symbols:     symbols,
		batchSize:   batchSize,
		reportEvery: reportEvery,
		throttle:    throttle,
	}

	if dir := cfg.GetDefault("capture.dir", "").String(); dir != "" && replayDir == "" {
		w, err := capture.NewWriter(capture.Config{
			Dir:             dir,
			SegmentMaxBytes: cfg.GetDefault("capture.segment_max_bytes", "").Int64(),
			FlushInterval:   cfg.GetDefault("capture.flush_interval", "").Duration(),
			CopyPayload:     true,
		})
		if err != nil {
			return err
		}
		// Background context: shutdown drains through Close, not cancellation.
		if err := w.Start(context.Background()); err != nil {
			return err
		}
		sim.writer = w
		logger.Infof("capturing feed to %s", dir)
	}

	host.Start()
	engine.Start()
	logger.Infof("engines started: strategies=%v", host.Names())

	var runErr error
	if replayDir != "" {
		logger.Infof("replaying captured feed from %s", replayDir)
		runErr = sim.replay(ctx, capture.PlaybackConfig{
			Dir:   replayDir,
			Speed: cfg.GetDefault("capture.speed", "").Float(),
		})
	} else {
		sim.generate(ctx, gen, total)
	}

	engine.Stop()
	host.Stop()

	if sim.writer != nil {
		if err := sim.writer.Close(); err != nil {
			logger.Errorf("capture close: %+v", err)
		}
	}

	st := engine.Stats()
	hs := handler.Stats()
	logger.Infof("simulation complete: processed=%d applied=%d ignored=%d signals=%d denied=%d",
		sim.processed, hs.Applied, hs.Ignored, signals, denied)
	logger.Stop()

	log.Printf("simulator: messages=%d signals=%d denied=%d orders=%d filled=%d partials=%d canceled=%d rejected=%d",
		sim.processed, signals, denied, st.Submitted, st.Filled, st.Partials, st.Canceled, st.Rejected)
	log.Printf("simulator: batch latency: %s", sim.tk.Summary())
	if snap := tracker.latency.Snapshot(); snap.Count > 0 {
		log.Printf("simulator: report round-trip: count=%d min=%s avg=%s max=%s",
			snap.Count, snap.Min, snap.Avg, snap.Max)
	}
	for _, e := range tracker.snapshotPositions() {
		log.Printf("simulator: position %s: %+d", e.Symbol, e.Position)
	}
	if sim.captureSeq > 0 {
		log.Printf("simulator: captured %d frames, dropped %d", sim.captureSeq-uint64(sim.captureDrops), sim.captureDrops)
	}
	if d := logger.Dropped(); d > 0 {
		log.Printf("simulator: dropped %d log entries", d)
	}
	return runErr
}

// simulator drives batches from a generator or a capture through the
// handler and records progress.
type simulator struct {
	logger  *alog.Logger
	books   *lockedBooks
	tracker *reportTracker
	tk      *obs.Timekeeper
	symbols []string
	writer  *capture.Writer

	batchSize   int
	reportEvery int
	throttle    time.Duration

	processed    int
	lastReport   int
	captureSeq   uint64
	captureDrops int
}

func (s *simulator) generate(ctx context.Context, gen *feed.Generator, total int) {
	buf := make([]byte, 0, s.batchSize*64)
	for s.processed < total {
		if ctx.Err() != nil {
			s.logger.Infof("shutdown signal received after %d messages", s.processed)
			return
		}
		buf = gen.AppendBatch(buf[:0], s.batchSize)
		s.processBatch(buf, s.batchSize)
		if s.throttle > 0 {
			time.Sleep(s.throttle)
		}
	}
}

func (s *simulator) replay(ctx context.Context, cfg capture.PlaybackConfig) error {
	pb, err := capture.NewPlayback(cfg)
	if err != nil {
		return err
	}
	err = pb.Run(ctx, func(f capture.Frame, payload []byte) error {
		s.processBatch(payload, int(f.Count))
		return nil
	})
	if err != nil && ctx.Err() != nil {
		s.logger.Infof("shutdown signal received after %d messages", s.processed)
		return nil
	}
	return err
}

func (s *simulator) processBatch(buf []byte, count int) {
	s.tk.Start()
	s.books.process(buf)
	s.tk.Stop()
	s.processed += count

	if s.writer != nil {
		s.captureSeq++
		if err := s.writer.TryAppend(capture.Frame{Seq: s.captureSeq, Count: uint32(count)}, buf); err != nil {
			s.captureDrops++
		}
	}

	if s.reportEvery > 0 && s.processed-s.lastReport >= s.reportEvery {
		s.lastReport = s.processed
		s.logger.Infof("processed %d messages, batch latency: %s", s.processed, s.tk.Summary())
		s.books.do(func(h *ingest.Handler) { s.logBooks(h) })
	}
}

func (s *simulator) logBooks(h *ingest.Handler) {
	for _, sym := range s.symbols {
		b, ok := h.Book(sym)
		if !ok {
			continue
		}
		bids, asks := b.Depth()
		spread := "N/A"
		if sp, ok := b.Spread(); ok {
			spread = strconv.FormatInt(int64(sp), 10)
		}
		s.logger.Infof("%s order book: bid=%s (%d), ask=%s (%d), spread=%s, orders=%d",
			sym, fmtPrice(b.BestBid()), bids, fmtPrice(b.BestAsk()), asks, spread, b.OrderCount())
	}
}

func loadConfig(path, envPrefix string) (*ops.Config, error) {
	cfg := ops.New()
	for key, value := range configDefaults {
		cfg.Set(key, value)
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
		log.Printf("loaded configuration from %s", path)
	}
	if n := cfg.FromEnvironment(envPrefix); n > 0 {
		log.Printf("applied %d environment overrides", n)
	}
	return cfg, nil
}

func riskConfig(cfg *ops.Config) risk.Config {
	return risk.Config{
		KillSwitch:           cfg.GetDefault("risk.kill_switch", "").Bool(),
		MaxOrderQty:          schema.Quantity(cfg.GetDefault("risk.max_order_qty", "").Uint64()),
		MaxOrderNotional:     schema.Notional(cfg.GetDefault("risk.max_order_notional", "").Int64()),
		MaxPosition:          cfg.GetDefault("risk.max_position", "").Int64(),
		MaxPriceDeviationBps: cfg.GetDefault("risk.max_price_deviation_bps", "").Int64(),
		OrderRateLimit:       cfg.GetDefault("risk.order_rate_limit", "").Int(),
		OrderRateWindow:      cfg.GetDefault("risk.order_rate_window", "").Duration(),
	}
}

// midPrice derives the risk reference from the touch. Either side alone
// serves when the book is one-sided.
func midPrice(b *book.Book) schema.Price {
	if mid, ok := b.MidPrice(); ok {
		return mid
	}
	if bid, ok := b.BestBid(); ok {
		return bid
	}
	if ask, ok := b.BestAsk(); ok {
		return ask
	}
	return 0
}

// lockedBooks serializes the execution worker's quote lookups against the
// market data thread's buffer processing.
type lockedBooks struct {
	mu      sync.Mutex
	handler *ingest.Handler
}

func (l *lockedBooks) BestQuotes(symbol string) (book.Quotes, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.handler.BestQuotes(symbol)
}

func (l *lockedBooks) process(data []byte) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.handler.ProcessBuffer(data)
}

func (l *lockedBooks) do(fn func(*ingest.Handler)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.handler)
}

// reportTracker logs execution reports, folds fills into positions and
// measures submit-to-terminal round trips. Reports arrive on the engine
// worker; submissions happen on the market data thread, and a terminal
// can land before track runs.
type reportTracker struct {
	logger  *alog.Logger
	latency obs.LatencyStats

	mu        sync.Mutex
	submitted map[schema.OrderID]time.Time
	terminal  map[schema.OrderID]time.Time
	positions *state.Positions
}

func newReportTracker(logger *alog.Logger) *reportTracker {
	return &reportTracker{
		logger:    logger,
		submitted: make(map[schema.OrderID]time.Time),
		terminal:  make(map[schema.OrderID]time.Time),
		positions: state.NewPositions(),
	}
}

func (t *reportTracker) track(id schema.OrderID, start time.Time) {
	t.mu.Lock()
	if done, ok := t.terminal[id]; ok {
		delete(t.terminal, id)
		t.mu.Unlock()
		t.latency.Observe(done.Sub(start))
		return
	}
	t.submitted[id] = start
	t.mu.Unlock()
}

func (t *reportTracker) position(symbol string) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.positions.Position(symbol)
}

func (t *reportTracker) snapshotPositions() []state.Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.positions.Snapshot()
}

func (t *reportTracker) onReport(r *schema.ExecutionReport) {
	t.logger.Infof("execution report: id=%d status=%s price=%d exec_qty=%d leaves_qty=%d symbol=%s",
		r.OrderID, r.Status, r.Price, r.ExecQuantity, r.LeavesQuantity, r.Symbol)

	if r.ExecQuantity > 0 {
		t.mu.Lock()
		pos := t.positions.ApplyReport(r)
		t.mu.Unlock()
		t.logger.Infof("position update: symbol=%s net=%+d", r.Symbol, pos)
	}

	switch r.Status {
	case schema.StatusFilled, schema.StatusCanceled, schema.StatusRejected:
	default:
		return
	}

	now := time.Now()
	t.mu.Lock()
	start, ok := t.submitted[r.OrderID]
	if ok {
		delete(t.submitted, r.OrderID)
	} else {
		t.terminal[r.OrderID] = now
	}
	t.mu.Unlock()
	if ok {
		t.latency.Observe(now.Sub(start))
	}
}

func fmtPrice(p schema.Price, ok bool) string {
	if !ok {
		return "N/A"
	}
	return strconv.FormatInt(int64(p), 10)
}

/*
Package exec simulates order execution against the market data handler's
books. Submitted signals become orders worked by a single background
goroutine: an order whose price crosses the touch fills fully at the
touched price, anything else fills in random partial slices until it
completes. Reports reach the installed callback in submission-consistent
order per id: NEW, any number of PARTIALLY_FILLED, then exactly one of
FILLED, CANCELED or REJECTED.
*/
package exec

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/book"
	"main/internal/schema"
	"main/internal/slab"
)

// BookSource resolves a symbol to its book's current best prices. The
// market data handler is the usual source; wrappers add locking when
// market data and execution run on different goroutines.
type BookSource interface {
	BestQuotes(symbol string) (book.Quotes, bool)
}

// ReportFunc receives execution reports. The pointer is pool-backed and
// valid only for the duration of the call.
type ReportFunc func(*schema.ExecutionReport)

// Stats counts engine activity.
type Stats struct {
	Submitted uint64
	Partials  uint64
	Filled    uint64
	Canceled  uint64
	Rejected  uint64
}

type pendingOrder struct {
	order   schema.Order
	retries int
}

// Engine is the simulated execution venue. Configure the callback and rng
// hook before Start. Stop leaves any queued orders unprocessed.
type Engine struct {
	cfg      Config
	books    BookSource
	onReport ReportFunc
	rng      *rand.Rand

	mu      sync.Mutex
	cond    *sync.Cond
	pending map[schema.OrderID]*pendingOrder
	queue   []schema.OrderID
	running bool
	wg      sync.WaitGroup

	nextID atomic.Uint64

	poolMu  sync.Mutex
	reports *slab.Pool[schema.ExecutionReport]

	submitted atomic.Uint64
	partials  atomic.Uint64
	filled    atomic.Uint64
	canceled  atomic.Uint64
	rejected  atomic.Uint64
}

// New returns an engine drawing quotes from books.
func New(books BookSource, cfg Config) *Engine {
	cfg = cfg.withDefaults()
	e := &Engine{
		cfg:     cfg,
		books:   books,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		pending: make(map[schema.OrderID]*pendingOrder),
		reports: slab.New[schema.ExecutionReport](cfg.ReportPoolBlock),
	}
	e.cond = sync.NewCond(&e.mu)
	return e
}

// SetReportCallback installs the report sink. Install before Start.
func (e *Engine) SetReportCallback(cb ReportFunc) { e.onReport = cb }

// SetRand replaces the fill randomness so tests can pin the partial-fill
// draws. Install before Start.
func (e *Engine) SetRand(r *rand.Rand) {
	if r != nil {
		e.rng = r
	}
}

// Start spawns the worker goroutine. Idempotent.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}
	e.running = true
	e.wg.Add(1)
	go e.work()
	logs.Info("execution engine started")
}

// Stop wakes and joins the worker, leaving queued orders unprocessed.
// Idempotent.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.cond.Broadcast()
	e.mu.Unlock()
	e.wg.Wait()
	logs.Info("execution engine stopped")
}

// Submit translates a strategy signal into a simulated order and returns
// its id. The NEW report fires synchronously on the caller's goroutine
// before the worker can observe the order, so it always precedes the
// order's other reports.
func (e *Engine) Submit(sig schema.Signal) schema.OrderID {
	id := schema.OrderID(e.nextID.Add(1))
	side := schema.SideBuy
	if sig.Type == schema.SignalSell {
		side = schema.SideSell
	}
	o := schema.Order{
		ID:               id,
		Price:            sig.Price,
		Quantity:         sig.Quantity,
		OriginalQuantity: sig.Quantity,
		Side:             side,
		Timestamp:        sig.Timestamp,
		Symbol:           sig.Symbol,
	}
	e.submitted.Add(1)
	e.emit(&o, schema.StatusNew, 0, o.Quantity, o.Price)

	e.mu.Lock()
	e.pending[id] = &pendingOrder{order: o}
	e.queue = append(e.queue, id)
	e.cond.Signal()
	e.mu.Unlock()
	return id
}

// Cancel removes a not-yet-worked order and emits a CANCELED report with
// the remaining quantity as leaves. It returns false when the id is
// unknown or the worker already owns the order.
func (e *Engine) Cancel(id schema.OrderID) bool {
	e.mu.Lock()
	p, ok := e.pending[id]
	if !ok || !e.queuedLocked(id) {
		e.mu.Unlock()
		return false
	}
	o := p.order
	delete(e.pending, id)
	e.mu.Unlock()

	e.canceled.Add(1)
	e.emit(&o, schema.StatusCanceled, 0, o.Quantity, o.Price)
	return true
}

// Status reports the observed lifecycle stage of an order: StatusRejected
// when the id is not pending, StatusFilled while the worker owns it,
// StatusPending at the head of the queue, StatusNew while queued behind
// other orders.
func (e *Engine) Status(id schema.OrderID) schema.OrderStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.pending[id]; !ok {
		return schema.StatusRejected
	}
	for i, q := range e.queue {
		if q == id {
			if i == 0 {
				return schema.StatusPending
			}
			return schema.StatusNew
		}
	}
	return schema.StatusFilled
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Submitted: e.submitted.Load(),
		Partials:  e.partials.Load(),
		Filled:    e.filled.Load(),
		Canceled:  e.canceled.Load(),
		Rejected:  e.rejected.Load(),
	}
}

func (e *Engine) queuedLocked(id schema.OrderID) bool {
	for _, q := range e.queue {
		if q == id {
			return true
		}
	}
	return false
}

func (e *Engine) work() {
	defer e.wg.Done()
	for {
		e.mu.Lock()
		for e.running && len(e.queue) == 0 {
			e.cond.Wait()
		}
		if !e.running {
			e.mu.Unlock()
			return
		}
		id := e.queue[0]
		e.queue = e.queue[1:]
		p, ok := e.pending[id]
		var o schema.Order
		var retries int
		if ok {
			o = p.order
			retries = p.retries
		}
		e.mu.Unlock()
		if !ok {
			// Canceled between enqueue and pop.
			continue
		}
		e.simulate(o, retries)
	}
}

// simulate works one order snapshot. Terminal reports are emitted while
// the entry is still pending, so a status query from inside the callback
// observes FILLED and a racing cancel fails.
func (e *Engine) simulate(o schema.Order, retries int) {
	if o.Quantity == 0 {
		// An earlier partial consumed the full quantity.
		e.filled.Add(1)
		e.emit(&o, schema.StatusFilled, 0, 0, o.Price)
		e.drop(o.ID)
		return
	}

	quotes, ok := e.books.BestQuotes(o.Symbol)
	if !ok {
		e.rejected.Add(1)
		e.emit(&o, schema.StatusRejected, 0, o.Quantity, o.Price)
		e.drop(o.ID)
		return
	}

	fillable := false
	fillPrice := o.Price
	if o.Side == schema.SideBuy {
		if quotes.HasAsk && o.Price >= quotes.Ask {
			fillable, fillPrice = true, quotes.Ask
		}
	} else {
		if quotes.HasBid && o.Price <= quotes.Bid {
			fillable, fillPrice = true, quotes.Bid
		}
	}

	time.Sleep(e.cfg.Latency)

	if fillable {
		e.filled.Add(1)
		e.emit(&o, schema.StatusFilled, o.Quantity, 0, fillPrice)
		e.drop(o.ID)
		return
	}

	if e.cfg.RetryLimit > 0 && retries >= e.cfg.RetryLimit {
		e.filled.Add(1)
		e.emit(&o, schema.StatusFilled, o.Quantity, 0, o.Price)
		e.drop(o.ID)
		return
	}

	part := schema.Quantity(e.rng.Int63n(int64(o.Quantity)) + 1)
	e.partials.Add(1)
	e.emit(&o, schema.StatusPartiallyFilled, part, o.Quantity-part, o.Price)

	e.mu.Lock()
	if p, ok := e.pending[o.ID]; ok {
		p.order.Quantity -= part
		p.retries++
		e.queue = append(e.queue, o.ID)
		e.cond.Signal()
	}
	e.mu.Unlock()
}

func (e *Engine) drop(id schema.OrderID) {
	e.mu.Lock()
	delete(e.pending, id)
	e.mu.Unlock()
}

func (e *Engine) emit(o *schema.Order, status schema.OrderStatus, exec, leaves schema.Quantity, price schema.Price) {
	cb := e.onReport
	if cb == nil {
		return
	}
	e.poolMu.Lock()
	rep := e.reports.Create(schema.ExecutionReport{
		OrderID:        o.ID,
		Symbol:         o.Symbol,
		Status:         status,
		Side:           o.Side,
		ExecQuantity:   exec,
		LeavesQuantity: leaves,
		Price:          price,
		Timestamp:      schema.Timestamp(time.Now().UnixNano()),
	})
	e.poolMu.Unlock()

	cb(rep)

	e.poolMu.Lock()
	e.reports.Destroy(rep)
	e.poolMu.Unlock()
}

/*
Package obs holds the simulator's measurement helpers: a single-threaded
sample collector for latency percentiles and an atomic aggregate for
cross-goroutine counters.
*/
package obs

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// DefaultMaxSamples bounds a timekeeper that was built with no explicit cap.
const DefaultMaxSamples = 1_000_000

// Timekeeper collects duration samples up to a fixed cap and answers
// order-statistic queries over them. Storage is reserved up front so Record
// never allocates. Not safe for concurrent use.
type Timekeeper struct {
	samples []time.Duration
	max     int
	sorted  bool
	started time.Time
}

// NewTimekeeper reserves room for up to maxSamples samples. A cap of zero or
// below falls back to DefaultMaxSamples.
func NewTimekeeper(maxSamples int) *Timekeeper {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	return &Timekeeper{
		samples: make([]time.Duration, 0, maxSamples),
		max:     maxSamples,
	}
}

// Record stores one sample. Samples past the cap are discarded.
func (t *Timekeeper) Record(d time.Duration) {
	if len(t.samples) < t.max {
		t.samples = append(t.samples, d)
		t.sorted = false
	}
}

// Start marks the beginning of a measured section.
func (t *Timekeeper) Start() {
	t.started = time.Now()
}

// Stop records the time elapsed since Start and returns it.
func (t *Timekeeper) Stop() time.Duration {
	d := time.Since(t.started)
	t.Record(d)
	return d
}

// Count returns the number of stored samples.
func (t *Timekeeper) Count() int { return len(t.samples) }

// Clear discards every sample.
func (t *Timekeeper) Clear() {
	t.samples = t.samples[:0]
	t.sorted = true
}

// Min returns the smallest sample, zero when empty.
func (t *Timekeeper) Min() time.Duration {
	if len(t.samples) == 0 {
		return 0
	}
	t.sortSamples()
	return t.samples[0]
}

// Max returns the largest sample, zero when empty.
func (t *Timekeeper) Max() time.Duration {
	if len(t.samples) == 0 {
		return 0
	}
	t.sortSamples()
	return t.samples[len(t.samples)-1]
}

// Sum returns the total of all samples.
func (t *Timekeeper) Sum() time.Duration {
	var sum time.Duration
	for _, d := range t.samples {
		sum += d
	}
	return sum
}

// Mean returns the truncated average, zero when empty.
func (t *Timekeeper) Mean() time.Duration {
	if len(t.samples) == 0 {
		return 0
	}
	return t.Sum() / time.Duration(len(t.samples))
}

// Median returns the middle sample, averaging the two middles for an even
// count.
func (t *Timekeeper) Median() time.Duration {
	n := len(t.samples)
	if n == 0 {
		return 0
	}
	t.sortSamples()
	mid := n / 2
	if n%2 == 0 {
		return (t.samples[mid-1] + t.samples[mid]) / 2
	}
	return t.samples[mid]
}

// Percentile returns the nearest-rank percentile for p in [0, 1].
func (t *Timekeeper) Percentile(p float64) time.Duration {
	n := len(t.samples)
	if n == 0 {
		return 0
	}
	t.sortSamples()
	idx := int(math.Ceil(p*float64(n))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return t.samples[idx]
}

// Bucket is one histogram bin starting at Start.
type Bucket struct {
	Start time.Duration
	Count uint64
}

// Histogram partitions the samples into bins of equal width between the
// minimum and maximum sample. All-equal samples collapse into a single
// bucket; an empty timekeeper yields nil.
func (t *Timekeeper) Histogram(bins int) []Bucket {
	if len(t.samples) == 0 {
		return nil
	}
	if bins <= 0 {
		bins = 20
	}
	lo, hi := t.Min(), t.Max()
	if lo == hi {
		return []Bucket{{Start: lo, Count: uint64(len(t.samples))}}
	}
	width := (hi-lo)/time.Duration(bins) + 1
	out := make([]Bucket, bins)
	for i := range out {
		out[i].Start = lo + time.Duration(i)*width
	}
	for _, d := range t.samples {
		bin := int((d - lo) / width)
		if bin >= bins {
			bin = bins - 1
		}
		out[bin].Count++
	}
	return out
}

// Summary renders the headline statistics as a single log-friendly line.
func (t *Timekeeper) Summary() string {
	if len(t.samples) == 0 {
		return "samples=0"
	}
	return fmt.Sprintf("samples=%d min=%s max=%s mean=%s p50=%s p90=%s p99=%s p99.9=%s",
		t.Count(), t.Min(), t.Max(), t.Mean(),
		t.Percentile(0.5), t.Percentile(0.9), t.Percentile(0.99), t.Percentile(0.999))
}

func (t *Timekeeper) sortSamples() {
	if t.sorted {
		return
	}
	sort.Slice(t.samples, func(i, j int) bool { return t.samples[i] < t.samples[j] })
	t.sorted = true
}

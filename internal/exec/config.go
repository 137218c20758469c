package exec

import "time"

// Config controls the execution simulation.
type Config struct {
	// Latency is the artificial delay applied before each simulation
	// outcome, emulating a venue round-trip. Zero or negative selects the
	// default.
	Latency time.Duration

	// RetryLimit caps partial-fill rounds per order; once reached the
	// remainder fills at the order price. Zero keeps retrying until the
	// random draw completes the order.
	RetryLimit int

	// Seed seeds the fill randomness. Zero derives a seed from the clock.
	Seed int64

	// ReportPoolBlock is the slot count per execution report pool block.
	// Zero or negative selects the default.
	ReportPoolBlock int
}

func (c Config) withDefaults() Config {
	if c.Latency <= 0 {
		c.Latency = 100 * time.Microsecond
	}
	if c.RetryLimit < 0 {
		c.RetryLimit = 0
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UTC().UnixNano()
	}
	if c.ReportPoolBlock <= 0 {
		c.ReportPoolBlock = 256
	}
	return c
}

/*
Package ops loads and serves runtime configuration.

Config files are plain key=value lines. Lines starting with '#' and lines
without an '=' are skipped; keys and values are trimmed; later keys
overwrite earlier ones. Typed accessors never fail: malformed numbers read
as zero, matching the file format's forgiving contract.
*/
package ops

import (
	"bufio"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"main/internal/schema"
)

// Value is one configuration value with typed views over the raw string.
type Value struct {
	raw string
}

// String returns the raw value.
func (v Value) String() string { return v.raw }

// Int parses the value as a base-10 int, zero on error.
func (v Value) Int() int {
	n, err := strconv.Atoi(v.raw)
	if err != nil {
		return 0
	}
	return n
}

// Int64 parses the value as a base-10 int64, zero on error.
func (v Value) Int64() int64 {
	n, err := strconv.ParseInt(v.raw, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Uint64 parses the value as a base-10 uint64, zero on error.
func (v Value) Uint64() uint64 {
	n, err := strconv.ParseUint(v.raw, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Float parses the value as a float64, zero on error.
func (v Value) Float() float64 {
	f, err := strconv.ParseFloat(v.raw, 64)
	if err != nil {
		return 0
	}
	return f
}

// Bool is true for "true", "yes" and "1", case-insensitive.
func (v Value) Bool() bool {
	switch strings.ToLower(v.raw) {
	case "true", "yes", "1":
		return true
	}
	return false
}

// Duration parses the value with time.ParseDuration, zero on error.
func (v Value) Duration() time.Duration {
	d, err := time.ParseDuration(v.raw)
	if err != nil {
		return 0
	}
	return d
}

// StringList splits the value on commas and trims each item. An empty value
// yields nil.
func (v Value) StringList() []string {
	if v.raw == "" {
		return nil
	}
	items := strings.Split(v.raw, ",")
	for i, item := range items {
		items[i] = strings.Trim(item, " \t")
	}
	return items
}

// Decimal parses the value as an arbitrary-precision decimal, zero on error.
func (v Value) Decimal() decimal.Decimal {
	d, err := decimal.NewFromString(v.raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ListenerFunc observes writes to a watched key.
type ListenerFunc func(Value)

// Config is a flat key/value store with per-key change listeners. It is not
// safe for concurrent use.
type Config struct {
	values    map[string]string
	listeners map[string][]ListenerFunc
}

// New returns an empty config.
func New() *Config {
	return &Config{
		values:    make(map[string]string),
		listeners: make(map[string][]ListenerFunc),
	}
}

// Load reads a key=value file into a fresh config.
func Load(path string) (*Config, error) {
	c := New()
	if err := c.LoadFile(path); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFile merges a key=value file into the config. Existing keys are
// overwritten and listeners fire per parsed line.
func (c *Config) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open config").With("path", path)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			continue
		}
		key := strings.Trim(line[:eq], " \t")
		if key == "" {
			continue
		}
		c.Set(key, strings.Trim(line[eq+1:], " \t"))
	}
	if err := sc.Err(); err != nil {
		return errors.Wrap(err, "read config").With("path", path)
	}
	return nil
}

// Get returns the value for key and whether it is present.
func (c *Config) Get(key string) (Value, bool) {
	raw, ok := c.values[key]
	if !ok {
		return Value{}, false
	}
	return Value{raw: raw}, true
}

// GetDefault returns the value for key, or a value wrapping fallback when
// the key is absent.
func (c *Config) GetDefault(key, fallback string) Value {
	if raw, ok := c.values[key]; ok {
		return Value{raw: raw}
	}
	return Value{raw: fallback}
}

// Set stores a value and notifies the key's listeners in registration order.
func (c *Config) Set(key, value string) {
	c.values[key] = value
	for _, fn := range c.listeners[key] {
		fn(Value{raw: value})
	}
}

// Has reports whether key is present.
func (c *Config) Has(key string) bool {
	_, ok := c.values[key]
	return ok
}

// Keys returns every present key, sorted.
func (c *Config) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for key := range c.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Watch registers a listener for writes to key.
func (c *Config) Watch(key string, fn ListenerFunc) {
	c.listeners[key] = append(c.listeners[key], fn)
}

// Unwatch drops every listener registered for key.
func (c *Config) Unwatch(key string) {
	delete(c.listeners, key)
}

// FromEnvironment overrides present keys from environment variables and
// returns how many were overridden. A key maps to prefix plus its uppercased
// name with dots replaced by underscores, so with prefix "SIM_" the key
// "feed.seed" reads from SIM_FEED_SEED. Only keys already present are
// considered.
func (c *Config) FromEnvironment(prefix string) int {
	overridden := 0
	for _, key := range c.Keys() {
		env, ok := os.LookupEnv(prefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
		if !ok {
			continue
		}
		c.Set(key, env)
		overridden++
	}
	return overridden
}

// PriceFromDecimal converts a decimal quote to fixed-point price units at
// the given scale, rounding half away from zero.
func PriceFromDecimal(d decimal.Decimal, scale int32) schema.Price {
	return schema.Price(d.Shift(scale).Round(0).IntPart())
}

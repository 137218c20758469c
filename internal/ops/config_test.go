package ops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/schema"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sim.conf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTypedValues(t *testing.T) {
	path := writeConfig(t, `# trading simulator configuration
market_data.buffer_size = 1048576
market_data.symbols = AAPL, MSFT ,GOOG
strategy.stat_arb.z_score_threshold = 2.5
execution.latency_us = 250
feed.base_price = 100.25
log.level=debug
bad.number = abc
flag.on = YES
flush.interval = 150ms
`)

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, uint64(1048576), c.GetDefault("market_data.buffer_size", "0").Uint64())
	assert.Equal(t, []string{"AAPL", "MSFT", "GOOG"}, c.GetDefault("market_data.symbols", "").StringList())
	assert.Equal(t, 2.5, c.GetDefault("strategy.stat_arb.z_score_threshold", "0").Float())
	assert.Equal(t, 250, c.GetDefault("execution.latency_us", "0").Int())
	assert.Equal(t, "debug", c.GetDefault("log.level", "info").String())
	assert.Equal(t, 0, c.GetDefault("bad.number", "7").Int(), "malformed numbers read as zero")
	assert.True(t, c.GetDefault("flag.on", "false").Bool())
	assert.Equal(t, 150*time.Millisecond, c.GetDefault("flush.interval", "0s").Duration())

	base := c.GetDefault("feed.base_price", "0").Decimal()
	assert.True(t, base.Equal(decimal.RequireFromString("100.25")), "got %s", base)
}

func TestLoadSkipsCommentsBlanksAndMalformedLines(t *testing.T) {
	path := writeConfig(t, `# only noise below

no equals here
 = value without key
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, c.Keys())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.conf"))
	assert.Error(t, err)
}

func TestLaterKeysOverwrite(t *testing.T) {
	path := writeConfig(t, "key = first\nkey = second\n")
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "second", c.GetDefault("key", "").String())
}

func TestGetHasKeys(t *testing.T) {
	c := New()
	c.Set("b.two", "2")
	c.Set("a.one", "1")

	v, ok := c.Get("a.one")
	require.True(t, ok)
	assert.Equal(t, 1, v.Int())

	_, ok = c.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, "fallback", c.GetDefault("missing", "fallback").String())

	assert.True(t, c.Has("b.two"))
	assert.False(t, c.Has("missing"))
	assert.Equal(t, []string{"a.one", "b.two"}, c.Keys())
}

func TestWatchFiresInOrder(t *testing.T) {
	c := New()
	var got []string
	c.Watch("k", func(v Value) { got = append(got, "first:"+v.String()) })
	c.Watch("k", func(v Value) { got = append(got, "second:"+v.String()) })
	c.Watch("other", func(Value) { got = append(got, "other") })

	c.Set("k", "x")
	assert.Equal(t, []string{"first:x", "second:x"}, got)

	c.Unwatch("k")
	c.Set("k", "y")
	assert.Equal(t, []string{"first:x", "second:x"}, got)
}

func TestFromEnvironment(t *testing.T) {
	c := New()
	c.Set("feed.seed", "0")
	c.Set("log.level", "info")

	t.Setenv("SIM_FEED_SEED", "42")
	n := c.FromEnvironment("SIM_")

	assert.Equal(t, 1, n)
	assert.Equal(t, uint64(42), c.GetDefault("feed.seed", "0").Uint64())
	assert.Equal(t, "info", c.GetDefault("log.level", "").String())
}

func TestStringListEdgeCases(t *testing.T) {
	assert.Nil(t, Value{}.StringList())
	assert.Equal(t, []string{"one"}, Value{raw: "one"}.StringList())
	assert.Equal(t, []string{"a", "", "b"}, Value{raw: "a,,b"}.StringList())
}

func TestPriceFromDecimal(t *testing.T) {
	tests := []struct {
		in    string
		scale int32
		want  schema.Price
	}{
		{"100.25", 2, 10025},
		{"123.456", 2, 12346},
		{"0.005", 2, 1},
		{"-1.5", 0, -2},
	}
	for _, tt := range tests {
		got := PriceFromDecimal(decimal.RequireFromString(tt.in), tt.scale)
		if got != tt.want {
			t.Fatalf("PriceFromDecimal(%s, %d) = %d, want %d", tt.in, tt.scale, got, tt.want)
		}
	}
}

package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/book"
	"main/internal/schema"
)

type scripted struct {
	name    string
	emit    []schema.Signal
	inits   int
	updates []string
}

func (s *scripted) Initialize() { s.inits++ }

func (s *scripted) ProcessUpdate(b *book.Book) []schema.Signal {
	s.updates = append(s.updates, b.Symbol())
	return s.emit
}

func (s *scripted) Name() string { return s.name }

func TestHostForwardsInOrder(t *testing.T) {
	s1 := &scripted{name: "one", emit: []schema.Signal{{Price: 1}}}
	s2 := &scripted{name: "two", emit: []schema.Signal{{Price: 2}, {Price: 3}}}

	h := NewHost()
	h.Register(s1)
	h.Register(s2)
	require.Equal(t, []string{"one", "two"}, h.Names())

	var got []schema.Price
	h.SetSignalCallback(func(sig schema.Signal) { got = append(got, sig.Price) })

	b := book.New("AAPL")
	h.ProcessOrderBook(b)
	assert.Empty(t, s1.updates, "stopped host must not forward updates")

	h.Start()
	assert.Equal(t, 1, s1.inits)
	assert.Equal(t, 1, s2.inits)

	h.ProcessOrderBook(b)
	assert.Equal(t, []string{"AAPL"}, s1.updates)
	assert.Equal(t, []string{"AAPL"}, s2.updates)
	assert.Equal(t, []schema.Price{1, 2, 3}, got)

	h.Stop()
	h.ProcessOrderBook(b)
	assert.Equal(t, []string{"AAPL"}, s1.updates)
}

func TestHostStartIdempotentRestartReinitializes(t *testing.T) {
	s := &scripted{name: "one"}
	h := NewHost()
	h.Register(s)

	h.Start()
	h.Start()
	assert.Equal(t, 1, s.inits)

	h.Stop()
	h.Start()
	assert.Equal(t, 2, s.inits)
}

func TestHostWithoutCallback(t *testing.T) {
	h := NewHost()
	h.Register(&scripted{name: "one", emit: []schema.Signal{{Price: 1}}})
	h.Start()
	h.ProcessOrderBook(book.New("AAPL")) // must not panic
}

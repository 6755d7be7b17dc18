package testfixtures

import (
	"fmt"
	"sync"

	"github.com/example/meeting-calendar/internal/links"
)

// IDGenerator hands out predictable row identifiers such as "session-3".
type IDGenerator struct {
	mu      sync.Mutex
	prefix  string
	counter uint64
}

// NewIDGenerator returns a generator for prefix, "id" when empty.
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

// Next returns the next identifier in the sequence.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("%s-%d", g.prefix, g.counter)
}

// NextFunc matches the idGenerator parameter of the application services.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

// Reset rewinds the sequence so the next identifier ends in 1.
func (g *IDGenerator) Reset() {
	g.mu.Lock()
	g.counter = 0
	g.mu.Unlock()
}

// LinkIdentifiers produces redirect identifiers with the public shape
// ("lnk-001-tst-fix", "lnk-002-tst-fix", ...) so tests can predict link paths.
type LinkIdentifiers struct {
	mu      sync.Mutex
	counter uint64
}

// Next returns the next identifier. The sequence wraps after 999.
func (l *LinkIdentifiers) Next() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counter = l.counter%999 + 1
	identifier := fmt.Sprintf("lnk-%03d-tst-fix", l.counter)
	if !links.ValidIdentifier(identifier) {
		return "", links.ErrInvalidIdentifier
	}
	return identifier, nil
}

// PathFor returns the redirect path the n-th identifier resolves under.
func (l *LinkIdentifiers) PathFor(n int) string {
	return links.Path(fmt.Sprintf("lnk-%03d-tst-fix", n))
}

package real

import (
	"sync"

	"github.com/joeycumines/detsim"
)

// Book resolves a logical detsim.Address to the "host:port" it is
// reachable at for UDP and TCP - the real backend's counterpart to the
// simulator's implicit global addressing (every Address is reachable
// from NewSystem() with no setup), since real sockets need an actual
// network endpoint.
type Book struct {
	mu      sync.RWMutex
	entries map[detsim.Address]string
}

// NewBook returns an empty Book.
func NewBook() *Book {
	return &Book{entries: make(map[detsim.Address]string)}
}

// Set records addr's network endpoint.
func (b *Book) Set(addr detsim.Address, netAddr string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[addr] = netAddr
}

// Lookup returns addr's network endpoint, if known.
func (b *Book) Lookup(addr detsim.Address) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	netAddr, ok := b.entries[addr]
	return netAddr, ok
}

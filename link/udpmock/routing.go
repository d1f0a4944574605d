package udpmock

import (
	"net/netip"
	"sync"

	"mock-link/link"

	"github.com/pkg/errors"
)

type route struct {
	enabled bool
	handler link.Handler
}

// routingTable maps a sender address to the handler of its packets.
// A single RWMutex guards the whole table, so a writer on one address
// blocks dispatch for every address.
type routingTable struct {
	routes map[netip.AddrPort]route
	mu     sync.RWMutex
}

func newRoutingTable() *routingTable {
	return &routingTable{routes: make(map[netip.AddrPort]route)}
}

// register inserts an enabled route for addr, replacing any existing one.
func (t *routingTable) register(addr netip.AddrPort, handler link.Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes[addr] = route{enabled: true, handler: handler}
}

// setEnabledLocked assumes t.mu is held for writing.
// Routes are only toggled through the interface that registered them,
// so a missing route is a programming error.
func (t *routingTable) setEnabledLocked(addr netip.AddrPort, enabled bool) {
	r, ok := t.routes[addr]
	if !ok {
		panic(errors.Errorf("udpmock: interface for %s has no routing entry", addr))
	}
	r.enabled = enabled
	t.routes[addr] = r
}

type dispatchResult uint8

const (
	dispatchDelivered dispatchResult = iota
	dispatchUnknownSender
	dispatchDisabled
)

// dispatch hands a copy of payload to the handler registered for from.
// The handler runs with the read lock held, which makes the enabled check
// and the delivery atomic against Enable and Disable. Handlers therefore
// must not register, enable or disable routes of the same listener.
func (t *routingTable) dispatch(from netip.AddrPort, payload []byte) dispatchResult {
	t.mu.RLock()
	defer t.mu.RUnlock()

	r, ok := t.routes[from]
	if !ok {
		return dispatchUnknownSender
	}
	if !r.enabled {
		return dispatchDisabled
	}

	pkt := make(link.Packet, len(payload))
	copy(pkt, payload)
	r.handler(pkt)

	return dispatchDelivered
}

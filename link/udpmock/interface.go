package udpmock

import (
	"net/netip"
	"sync/atomic"

	"mock-link/link"
	"mock-link/lib/metrics"
)

// Interface is a simulated link from a listener to one remote address.
//
// Routing entries are never removed: an interface can be disabled but
// stays registered for the lifetime of its listener.
type Interface struct {
	listener *Listener
	remote   netip.AddrPort

	// enabled caches the state this interface last wrote to the table.
	// Send consults only this cache. Several interfaces created for the
	// same remote address share one routing entry, so their caches can
	// disagree with each other and with the table.
	enabled atomic.Bool
}

var _ link.Interface = (*Interface)(nil)

// NewInterface registers handler for packets from remote, replacing any
// handler registered for it before, and returns an enabled interface.
func NewInterface(l *Listener, remote netip.AddrPort, handler link.Handler) *Interface {
	remote = normalize(remote)
	l.table.register(remote, handler)

	i := &Interface{listener: l, remote: remote}
	i.enabled.Store(true)

	return i
}

func (i *Interface) RemoteAddr() netip.AddrPort { return i.remote }

// Enabled reports the cached state, not the routing table's.
func (i *Interface) Enabled() bool { return i.enabled.Load() }

// Send writes pkt as one datagram to the remote address.
// It fails with [link.ErrDisabledInterface] without writing anything if the
// interface is disabled. Socket errors are returned as is.
func (i *Interface) Send(pkt link.Packet) error {
	m := i.listener.metrics

	if !i.enabled.Load() {
		m.RecordSendError(metrics.SendDisabled)
		return link.ErrDisabledInterface
	}

	if _, err := i.listener.conn.WriteToUDPAddrPort(pkt, i.remote); err != nil {
		m.RecordSendError(metrics.SendTransport)
		return err
	}

	m.RecordSent(len(pkt))
	return nil
}

// UpdateRecvHandler replaces the handler and enables the routing entry.
// The cached state used by Send is left untouched.
func (i *Interface) UpdateRecvHandler(handler link.Handler) {
	i.listener.table.register(i.remote, handler)
}

func (i *Interface) Enable()  { i.setEnabled(true) }
func (i *Interface) Disable() { i.setEnabled(false) }

// setEnabled waits for in-flight dispatches, including running handlers,
// to finish. It panics if the routing entry is missing.
func (i *Interface) setEnabled(enabled bool) {
	t := i.listener.table

	t.mu.Lock()
	defer t.mu.Unlock()

	i.enabled.Store(enabled)
	t.setEnabledLocked(i.remote, enabled)
}

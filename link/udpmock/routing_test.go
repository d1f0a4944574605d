package udpmock

import (
	"net/netip"
	"sync"
	"testing"

	"mock-link/link"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoutingTableDispatch(t *testing.T) {
	known := netip.MustParseAddrPort("127.0.0.1:1")
	disabled := netip.MustParseAddrPort("127.0.0.1:2")
	unknown := netip.MustParseAddrPort("127.0.0.1:3")

	var got []link.Packet
	table := newRoutingTable()
	table.register(known, func(pkt link.Packet) { got = append(got, pkt) })
	table.register(disabled, func(pkt link.Packet) { t.Fatal("disabled route invoked") })

	table.mu.Lock()
	table.setEnabledLocked(disabled, false)
	table.mu.Unlock()

	testcases := []struct {
		desc     string
		from     netip.AddrPort
		expected dispatchResult
	}{
		{desc: "enabled", from: known, expected: dispatchDelivered},
		{desc: "disabled", from: disabled, expected: dispatchDisabled},
		{desc: "unknown", from: unknown, expected: dispatchUnknownSender},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.expected, table.dispatch(tc.from, []byte("payload")))
		})
	}

	require.Len(t, got, 1)
	assert.Equal(t, link.Packet("payload"), got[0])
}

func TestRoutingTableDispatchCopies(t *testing.T) {
	from := netip.MustParseAddrPort("127.0.0.1:1")

	var got link.Packet
	table := newRoutingTable()
	table.register(from, func(pkt link.Packet) { got = pkt })

	buf := []byte("original")
	table.dispatch(from, buf[:4])
	copy(buf, "mutated!")

	assert.Equal(t, link.Packet("orig"), got)
}

func TestRoutingTableRegisterReplaces(t *testing.T) {
	addr := netip.MustParseAddrPort("127.0.0.1:1")

	var first, second int
	table := newRoutingTable()
	table.register(addr, func(link.Packet) { first++ })

	table.mu.Lock()
	table.setEnabledLocked(addr, false)
	table.mu.Unlock()

	table.register(addr, func(link.Packet) { second++ })

	assert.Equal(t, dispatchDelivered, table.dispatch(addr, nil))
	assert.Zero(t, first)
	assert.Equal(t, 1, second)
	assert.Len(t, table.routes, 1)
}

func TestRoutingTableSetEnabledMissing(t *testing.T) {
	table := newRoutingTable()

	assert.Panics(t, func() {
		table.setEnabledLocked(netip.MustParseAddrPort("127.0.0.1:1"), true)
	})
}

func TestRoutingTableHandlerHoldsReadLock(t *testing.T) {
	addr := netip.MustParseAddrPort("127.0.0.1:1")

	entered := make(chan struct{})
	release := make(chan struct{})

	table := newRoutingTable()
	table.register(addr, func(link.Packet) {
		close(entered)
		<-release
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		table.dispatch(addr, nil)
	}()
	<-entered

	// A writer must wait for the running handler.
	assert.False(t, table.mu.TryLock())

	close(release)
	wg.Wait()

	require.True(t, table.mu.TryLock())
	table.mu.Unlock()
}

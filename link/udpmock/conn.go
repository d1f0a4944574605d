package udpmock

import (
	"net"
	"net/netip"
)

// PacketConn is the datagram socket shared by a listener's workers and
// interfaces. It must be safe for concurrent use; *net.UDPConn is.
// Once closed, reads must fail with [net.ErrClosed].
type PacketConn interface {
	ReadFromUDPAddrPort(b []byte) (n int, addr netip.AddrPort, err error)
	WriteToUDPAddrPort(b []byte, addr netip.AddrPort) (int, error)
	LocalAddr() net.Addr
	Close() error
}

var _ PacketConn = (*net.UDPConn)(nil)

func listenUDP(addr netip.AddrPort) (*net.UDPConn, error) {
	network := "udp"
	if addr.Addr().Is4() {
		network = "udp4"
	}
	return net.ListenUDP(network, net.UDPAddrFromAddrPort(addr))
}

// normalize unmaps IPv4-mapped IPv6 addresses so that a sender seen through
// a dual-stack socket matches the IPv4 address it was registered under.
func normalize(addr netip.AddrPort) netip.AddrPort {
	return netip.AddrPortFrom(addr.Addr().Unmap(), addr.Port())
}

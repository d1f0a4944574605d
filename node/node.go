// Package node runs one simulated host: a listener plus one interface per
// configured peer.
package node

import (
	"log/slog"
	"net/netip"
	"slices"
	"sync"

	"mock-link/config"
	"mock-link/lib/logging"
	"mock-link/lib/metrics"
	"mock-link/link"
	"mock-link/link/udpmock"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

var (
	ErrUnknownPeer   = errors.New("unknown peer")
	ErrDuplicatePeer = errors.New("duplicate peer")
)

// PacketFunc receives packets delivered by the interface of peer.
// It runs on a listener worker and must not enable or disable peers.
type PacketFunc func(peer string, pkt link.Packet)

type Node struct {
	listener *udpmock.Listener
	onPacket PacketFunc

	ifaces map[string]*udpmock.Interface
	mu     sync.RWMutex

	logger *slog.Logger
}

func New(
	cfg *config.Config,
	logger *slog.Logger,
	clock clock.Clock,
	m *metrics.Metrics,
	onPacket PacketFunc,
) (*Node, error) {
	opts := cfg.ListenerOptions()
	opts.Metrics = m

	l, err := udpmock.NewListener(cfg.ListenAddr(), cfg.Workers, logger, clock, opts)
	if err != nil {
		return nil, err
	}

	n := &Node{
		listener: l,
		onPacket: onPacket,
		ifaces:   make(map[string]*udpmock.Interface, len(cfg.Peers)),
		logger:   logger.With(logging.KeyLocalAddr, l.LocalAddr().String()),
	}

	for _, peer := range cfg.Peers {
		if err := n.AddPeer(peer.Name, peer.Addr(), !peer.Disabled); err != nil {
			_ = l.Close()
			return nil, err
		}
	}

	return n, nil
}

// AddPeer creates the interface to a peer.
// Its routing entry replaces any entry for the same address.
func (n *Node) AddPeer(name string, addr netip.AddrPort, enabled bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.ifaces[name]; ok {
		return errors.Wrapf(ErrDuplicatePeer, "%q", name)
	}

	iface := udpmock.NewInterface(n.listener, addr, func(pkt link.Packet) {
		n.onPacket(name, pkt)
	})
	if !enabled {
		iface.Disable()
	}
	n.ifaces[name] = iface

	n.logger.Info("interface created",
		logging.KeyPeer, name,
		logging.KeyRemoteAddr, iface.RemoteAddr().String(),
		"enabled", enabled,
	)

	return nil
}

func (n *Node) LocalAddr() netip.AddrPort { return n.listener.LocalAddr() }

// Peers returns the configured peer names in sorted order.
func (n *Node) Peers() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	names := make([]string, 0, len(n.ifaces))
	for name := range n.ifaces {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (n *Node) Send(peer string, pkt link.Packet) error {
	iface, err := n.iface(peer)
	if err != nil {
		return err
	}
	return errors.Wrapf(iface.Send(pkt), "sending to %s", peer)
}

func (n *Node) Enable(peer string) error  { return n.setEnabled(peer, true) }
func (n *Node) Disable(peer string) error { return n.setEnabled(peer, false) }

func (n *Node) Enabled(peer string) (bool, error) {
	iface, err := n.iface(peer)
	if err != nil {
		return false, err
	}
	return iface.Enabled(), nil
}

func (n *Node) setEnabled(peer string, enabled bool) error {
	iface, err := n.iface(peer)
	if err != nil {
		return err
	}

	if enabled {
		iface.Enable()
	} else {
		iface.Disable()
	}
	n.logger.Info("interface toggled", logging.KeyPeer, peer, "enabled", enabled)

	return nil
}

func (n *Node) iface(peer string) (*udpmock.Interface, error) {
	n.mu.RLock()
	iface, ok := n.ifaces[peer]
	n.mu.RUnlock()

	if !ok {
		return nil, errors.Wrapf(ErrUnknownPeer, "%q", peer)
	}
	return iface, nil
}

func (n *Node) Close() error {
	return n.listener.Close()
}

// Package link defines the data-link layer contract that simulated links
// implement for the layers above them.
package link

import "github.com/pkg/errors"

// Packet is an opaque link-layer payload.
// Its boundaries are the datagram boundaries of the underlying link.
type Packet []byte

// Handler receives inbound packets.
// It may be invoked from any goroutine.
type Handler func(pkt Packet)

type Interface interface {
	// Send sends the packet to the remote end of the link.
	Send(pkt Packet) error
	// UpdateRecvHandler replaces the handler of inbound packets.
	// It also re-enables the interface for receiving.
	UpdateRecvHandler(handler Handler)

	Enable()
	Disable()
}

// ErrDisabledInterface is returned by Send on a disabled interface.
var ErrDisabledInterface = errors.New("link-layer interface has been disabled")

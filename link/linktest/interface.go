// Package linktest provides a test suite shared by link.Interface
// implementations.
package linktest

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"mock-link/link"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/suite"
)

// InterfaceSuite exercises a pair of interfaces linked to each other.
// Packets sent by I1 must reach the handler of I2 and vice versa.
//
// Embedding suites must call SetupTest first, then create I1 and I2 with
// handlers from Deliver(R1) and Deliver(R2).
type InterfaceSuite struct {
	suite.Suite
	I1, I2 link.Interface
	R1, R2 chan link.Packet
	Clock  clock.Clock

	// Timeout bounds every wait for a packet.
	Timeout time.Duration
	// Quiet is how long a handler must stay silent to count as not invoked.
	Quiet time.Duration
}

func (s *InterfaceSuite) SetupTest() {
	s.R1 = make(chan link.Packet, 128)
	s.R2 = make(chan link.Packet, 128)
	s.Clock = clock.New() // Use real-time timer for now.
	s.Timeout = time.Second
	s.Quiet = 100 * time.Millisecond
}

// Deliver returns a handler that forwards packets to c without blocking.
func (s *InterfaceSuite) Deliver(c chan link.Packet) link.Handler {
	return func(pkt link.Packet) {
		select {
		case c <- pkt:
		default:
		}
	}
}

func (s *InterfaceSuite) Receive(c <-chan link.Packet) link.Packet {
	select {
	case pkt := <-c:
		return pkt
	case <-s.Clock.After(s.Timeout):
		s.FailNow("timeout exceeded waiting for packet")
		return nil
	}
}

func (s *InterfaceSuite) RequireSilent(c <-chan link.Packet) {
	select {
	case pkt := <-c:
		s.FailNow("unexpected packet", "%q", pkt)
	case <-s.Clock.After(s.Quiet):
	}
}

func (s *InterfaceSuite) TestExchange() {
	const toI2, toI1 = "Hey Josh!", "Hey Cody!"

	s.Require().NoError(s.I1.Send(link.Packet(toI2)))
	s.Require().NoError(s.I2.Send(link.Packet(toI1)))

	s.Equal(link.Packet(toI1), s.Receive(s.R1))
	s.Equal(link.Packet(toI2), s.Receive(s.R2))
}

func (s *InterfaceSuite) TestEmptyPacket() {
	s.Require().NoError(s.I1.Send(link.Packet{}))
	s.Empty(s.Receive(s.R2))
}

func (s *InterfaceSuite) TestLargePacket() {
	data := bytes.Repeat([]byte("0123456789abcdef"), 2048) // 32 KiB

	s.Require().NoError(s.I1.Send(data))
	s.Equal(link.Packet(data), s.Receive(s.R2))
}

func (s *InterfaceSuite) TestDisabledCannotSend() {
	s.I1.Disable()

	err := s.I1.Send(link.Packet("nope"))
	s.ErrorIs(err, link.ErrDisabledInterface)
	s.RequireSilent(s.R2)

	s.I1.Enable()

	s.Require().NoError(s.I1.Send(link.Packet("yes")))
	s.Equal(link.Packet("yes"), s.Receive(s.R2))
}

func (s *InterfaceSuite) TestDisabledDoesNotReceive() {
	s.I1.Disable()

	s.Require().NoError(s.I2.Send(link.Packet("dropped")))
	s.RequireSilent(s.R1)

	s.I1.Enable()

	s.Require().NoError(s.I2.Send(link.Packet("delivered")))
	s.Equal(link.Packet("delivered"), s.Receive(s.R1))
}

func (s *InterfaceSuite) TestEnableDisableIdempotent() {
	s.I1.Disable()
	s.I1.Disable()
	s.ErrorIs(s.I1.Send(link.Packet("x")), link.ErrDisabledInterface)

	s.I1.Enable()
	s.I1.Enable()
	s.Require().NoError(s.I1.Send(link.Packet("x")))
	s.Equal(link.Packet("x"), s.Receive(s.R2))
}

func (s *InterfaceSuite) TestUpdateRecvHandler() {
	replaced := make(chan link.Packet, 1)
	s.I1.UpdateRecvHandler(s.Deliver(replaced))

	s.Require().NoError(s.I2.Send(link.Packet("to the new handler")))
	s.Equal(link.Packet("to the new handler"), s.Receive(replaced))
	s.RequireSilent(s.R1)
}

func (s *InterfaceSuite) TestConcurrentSends() {
	const N = 32

	var wg sync.WaitGroup
	for n := range N {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.NoError(s.I1.Send(link.Packet(fmt.Sprintf("packet %d", n))))
		}()
	}
	wg.Wait()

	// Workers may deliver in any order.
	expected := make([]string, 0, N)
	got := make([]string, 0, N)
	for n := range N {
		expected = append(expected, fmt.Sprintf("packet %d", n))
		got = append(got, string(s.Receive(s.R2)))
	}
	s.ElementsMatch(expected, got)
}

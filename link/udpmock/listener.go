// Package udpmock implements a mock link layer over a single UDP socket.
//
// A [Listener] owns the socket and a pool of receive workers. Each
// [Interface] is a simulated point-to-point link to one remote address:
// packets arriving from that address are handed to the interface's handler,
// and packets sent through the interface go to that address.
//
// Packets read by different workers are dispatched in no particular order.
package udpmock

import (
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"runtime/debug"
	"sync"
	"time"

	"mock-link/lib/logging"
	"mock-link/lib/metrics"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

const DefaultRecvBufferSize = 64 * 1024

type Options struct {
	// RecvBufferSize is the size of each worker's receive buffer.
	// Longer datagrams are truncated. Defaults to DefaultRecvBufferSize.
	RecvBufferSize int
	// RecvRetryBackoff is how long a worker sleeps after a failed read.
	// Zero retries immediately.
	RecvRetryBackoff time.Duration

	// Metrics defaults to a set of unregistered collectors.
	Metrics *metrics.Metrics
}

func (o Options) validate() error {
	if o.RecvBufferSize < 0 {
		return errors.Errorf("receive buffer size must not be negative, got %d", o.RecvBufferSize)
	}
	if o.RecvRetryBackoff < 0 {
		return errors.Errorf("receive retry backoff must not be negative, got %s", o.RecvRetryBackoff)
	}
	return nil
}

// Listener receives every datagram sent to its local address and routes it
// to the interface registered for the sender.
//
// A *Listener is a shared handle: interfaces keep a pointer to it,
// and all of them use the same socket, routing table and workers.
type Listener struct {
	conn  PacketConn
	table *routingTable

	logger  *slog.Logger
	clock   clock.Clock
	metrics *metrics.Metrics
	opts    Options

	// recvErrLog throttles receive failure logs.
	recvErrLog rate.Sometimes

	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// NewListener binds addr and starts workers goroutines reading from it.
// Port 0 picks a free port; see [Listener.LocalAddr].
// It panics if workers is zero or opts is invalid.
func NewListener(
	addr netip.AddrPort,
	workers uint,
	logger *slog.Logger,
	clock clock.Clock,
	opts Options,
) (*Listener, error) {
	if workers == 0 {
		panic("udpmock: listener needs at least one worker")
	}
	if err := opts.validate(); err != nil {
		panic(err)
	}

	conn, err := listenUDP(addr)
	if err != nil {
		return nil, errors.Wrap(err, "binding listener socket")
	}

	return newListener(conn, workers, logger, clock, opts), nil
}

func newListener(
	conn PacketConn,
	workers uint,
	logger *slog.Logger,
	clock clock.Clock,
	opts Options,
) *Listener {
	if opts.RecvBufferSize == 0 {
		opts.RecvBufferSize = DefaultRecvBufferSize
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(nil)
	}

	l := &Listener{
		conn:       conn,
		table:      newRoutingTable(),
		clock:      clock,
		metrics:    opts.Metrics,
		opts:       opts,
		recvErrLog: rate.Sometimes{First: 1, Interval: time.Second},
	}
	l.logger = logger.With(logging.KeyLocalAddr, l.LocalAddr().String())

	l.wg.Add(int(workers))
	for worker := range workers {
		go l.serve(worker)
	}

	l.logger.Info("listener started", "workers", workers)

	return l
}

// LocalAddr returns the bound address, including an OS-assigned port.
func (l *Listener) LocalAddr() netip.AddrPort {
	udpAddr, ok := l.conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return netip.AddrPort{}
	}
	return normalize(udpAddr.AddrPort())
}

// Close closes the socket and waits for every worker to return.
// It must not be called from a receive handler.
func (l *Listener) Close() error {
	l.closeOnce.Do(func() {
		l.closeErr = l.conn.Close()
		l.wg.Wait()
		l.logger.Info("listener closed")
	})
	return l.closeErr
}

// serve runs until the socket is closed. Any other read failure is
// logged and retried.
func (l *Listener) serve(worker uint) {
	defer l.wg.Done()

	logger := l.logger.With(logging.KeyWorker, worker)
	buf := make([]byte, l.opts.RecvBufferSize)

	for {
		n, from, err := l.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}

			l.metrics.RecordReceiveError()
			l.recvErrLog.Do(func() {
				logger.Warn("failed to receive packet", logging.KeyError, err.Error())
			})

			if l.opts.RecvRetryBackoff > 0 {
				l.clock.Sleep(l.opts.RecvRetryBackoff)
			}
			continue
		}

		l.metrics.RecordReceived(n)
		l.handle(logger, normalize(from), buf[:n])
	}
}

func (l *Listener) handle(logger *slog.Logger, from netip.AddrPort, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			l.metrics.RecordHandlerPanic()
			logger.Error("receive handler panicked",
				logging.KeyRemoteAddr, from.String(),
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()

	switch l.table.dispatch(from, payload) {
	case dispatchDelivered:
		l.metrics.RecordDelivered()
	case dispatchUnknownSender:
		l.metrics.RecordDropped(metrics.DropUnknownSender)
		logger.Debug("dropped packet from unknown sender",
			logging.KeyRemoteAddr, from.String(), logging.KeyLength, len(payload))
	case dispatchDisabled:
		l.metrics.RecordDropped(metrics.DropDisabled)
		logger.Debug("dropped packet for disabled interface",
			logging.KeyRemoteAddr, from.String(), logging.KeyLength, len(payload))
	}
}

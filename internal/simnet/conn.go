// Package simnet is an in-process transport: it delivers ordered message
// streams between nodes over Go channels rather than real sockets,
// implementing the channel-based node.Conn contract the router depends on.
package simnet

import (
	"sync"
	"sync/atomic"

	"github.com/tolelom/powmesh/chain"
	"github.com/tolelom/powmesh/node"
)

// connBuffer bounds how many un-delivered chains simnet will buffer per
// direction before Send starts reporting failure. The router's own
// internal channels are unbounded; this bound exists purely to keep the
// simulator itself from growing without limit when a test deliberately
// stops draining one side.
const connBuffer = 64

// conn is one endpoint of a bidirectional link: send delivers to the
// peer's recv. Two conns built by newConnPair share their channels
// crosswise (a.send == b.recv and vice versa) and hold a reference to each
// other so that closing one side is visible to the other's Send — without
// that cross-reference, closing only this conn's own outbound channel
// would leave the peer draining it forever and Send would never observe a
// failure.
type conn struct {
	send chan *chain.Chain
	recv chan *chain.Chain
	peer *conn

	mu     sync.Mutex // orders this conn's own Send/Close, never the peer's
	closed atomic.Bool
}

// newConnPair builds two conns wired to each other.
func newConnPair() (a, b *conn) {
	ab := make(chan *chain.Chain, connBuffer) // a -> b
	ba := make(chan *chain.Chain, connBuffer) // b -> a
	a = &conn{send: ab, recv: ba}
	b = &conn{send: ba, recv: ab}
	a.peer = b
	b.peer = a
	return a, b
}

// Send implements node.Conn: a non-blocking best-effort send that reports
// false once either side of the link has closed or the buffer is
// saturated (the router only distinguishes success from failure, so a full
// buffer is treated the same as a dead peer).
func (c *conn) Send(ch *chain.Chain) bool {
	if c.peer.closed.Load() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return false
	}
	select {
	case c.send <- ch:
		return true
	default:
		return false
	}
}

// Recv implements node.Conn.
func (c *conn) Recv() <-chan *chain.Chain {
	return c.recv
}

// Close marks this endpoint dead and closes the channel the peer reads
// from, simulating peer death. The peer's own Send calls start failing
// immediately via the peer.closed check above, rather than only after it
// happens to fill a buffer.
func (c *conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return
	}
	c.closed.Store(true)
	close(c.send)
}

var _ node.Conn = (*conn)(nil)

package node

import "github.com/tolelom/powmesh/chain"

// Conn is the peer connection interface consumed from the transport
// layer. Transport, framing, and real network I/O are out of scope for
// this package — a concrete implementation (e.g. internal/simnet) is
// supplied by the caller of Run.
type Conn interface {
	// Send is a non-blocking best-effort send. It returns false if the
	// peer is closed; true does not guarantee delivery, only acceptance.
	Send(c *chain.Chain) bool
	// Recv streams chains from the peer in FIFO order. The channel is
	// closed when the peer disconnects.
	Recv() <-chan *chain.Chain
}

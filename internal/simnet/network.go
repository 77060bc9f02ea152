package simnet

import (
	"sync"

	"github.com/tolelom/powmesh/node"
)

// Endpoint is the node.Conn returned for one side of a Link, with an
// additional Close so callers (tests, the graph builder) can simulate a
// peer disconnecting.
type Endpoint interface {
	node.Conn
	Close()
}

// Network is a simple in-process connection fabric: it hands each node a
// stream of accepted connections (node.Conn) and lets a test or demo CLI
// decide the peer graph by calling Link.
type Network struct {
	mu    sync.Mutex
	conns map[uint32]chan node.Conn
}

// NewNetwork creates an empty fabric.
func NewNetwork() *Network {
	return &Network{conns: make(map[uint32]chan node.Conn)}
}

// Register returns the inbound connection stream for nodeID, creating it
// on first use. Pass this directly as the conns argument to Node.Run.
func (net *Network) Register(nodeID uint32) <-chan node.Conn {
	return net.streamFor(nodeID)
}

func (net *Network) streamFor(nodeID uint32) chan node.Conn {
	net.mu.Lock()
	defer net.mu.Unlock()
	ch, ok := net.conns[nodeID]
	if !ok {
		ch = make(chan node.Conn, 16)
		net.conns[nodeID] = ch
	}
	return ch
}

// Link connects a and b bidirectionally: each node's registered inbound
// stream receives a NewPeer connection for the other. The two returned
// Endpoints let a caller force either side closed to simulate peer death.
func (net *Network) Link(a, b uint32) (toA, toB Endpoint) {
	chA := net.streamFor(a)
	chB := net.streamFor(b)

	ca, cb := newConnPair()
	chA <- ca
	chB <- cb
	return ca, cb
}

// FullMesh links every pair of the given node IDs exactly once.
func (net *Network) FullMesh(nodeIDs []uint32) {
	for i := 0; i < len(nodeIDs); i++ {
		for j := i + 1; j < len(nodeIDs); j++ {
			net.Link(nodeIDs[i], nodeIDs[j])
		}
	}
}

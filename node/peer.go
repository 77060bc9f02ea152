package node

import "github.com/tolelom/powmesh/chain"

// peerRecord is the router's exclusively-owned view of one connected peer:
// its send capability, the last chain we successfully sent it, and whether
// its outbound side has gone stale. Peer records live from first NewPeer
// acceptance until a send failure prunes them at the end of the current
// propagate() call.
type peerRecord struct {
	conn           Conn
	lastKnownChain *chain.Chain
	closed         bool
}

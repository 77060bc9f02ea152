// Package node implements the per-node router: a single-threaded serial
// merge of three event sources — newly accepted peer connections, chains
// mined locally, and chains relayed by peers — that applies the
// propagation rule without any locks. All router state (current chain,
// peer set) is touched by exactly one goroutine, the Run loop in node.go.
//
// Error handling policy:
//
//	Kind                          Source            Handling
//	invalid block / bad linkage   validate          log + drop, never fatal
//	peer send failure             propagate         mark peer closed, never fatal
//	peer receive error            inbound forwarder fatal for that peer's inbound stream only
//	miner→router send failure     (n/a, see below)  router owns both channel ends for the
//	                                                 node's lifetime, so this cannot occur
package node

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tolelom/powmesh/chain"
)

// handleNewPeer bootstraps a freshly accepted connection: send our current
// best chain immediately; only insert the peer (and start translating its
// inbound chains into RemoteChain events) if that send succeeds. A send
// failure here means the connection is already dead, so it is dropped
// without ever being inserted.
func (n *Node) handleNewPeer(conn Conn) {
	if !conn.Send(n.currentChain) {
		n.log.Info().Msg("new peer send failed on connect, dropping")
		return
	}
	id := uuid.NewString()
	n.peers[id] = &peerRecord{conn: conn, lastKnownChain: n.currentChain}
	n.metrics.PeerCount.Set(float64(len(n.peers)))
	n.publishPeerCount()

	go n.forwardInbound(conn)
}

// forwardInbound translates every chain a peer sends us into a RemoteChain
// event on the merged stream. It never touches router state directly — it
// only enqueues onto n.remote, which the single router goroutine drains.
// When the peer's receive side closes, this goroutine simply exits; the
// outbound side is pruned separately, the next time propagate() hits a
// send failure.
func (n *Node) forwardInbound(conn Conn) {
	for c := range conn.Recv() {
		n.remote.In() <- c
	}
}

// handleMinedChain processes a chain produced locally by the miner.
func (n *Node) handleMinedChain(c *chain.Chain) {
	n.propagate(c)
}

// handleRemoteChain validates a chain received from a peer before ever
// touching local state. A peer's malformed send must never corrupt the
// router: on validation failure the chain is logged and dropped.
func (n *Node) handleRemoteChain(c *chain.Chain) {
	if err := n.validate(c); err != nil {
		n.log.Info().Err(err).Msg("rejecting invalid chain from peer")
		return
	}
	n.propagate(c)
}

// validate checks c via chain.Validate, memoizing by head hash so a chain
// re-broadcast by multiple peers (the normal gossip case) is only fully
// walked once.
func (n *Node) validate(c *chain.Chain) error {
	if _, ok := n.validated[c.Head().Hash]; ok {
		return nil
	}
	if err := c.Validate(); err != nil {
		return err
	}
	n.validated[c.Head().Hash] = struct{}{}
	return nil
}

// propagate drives convergence across the mesh:
//  1. Forward c to every peer whose last-known chain it beats; advance
//     that peer's last-known chain on success, mark it closed on failure.
//  2. Prune closed peers.
//  3. If c beats our own current chain, preempt the miner and adopt c.
//  4. Else if c ties our current chain's height with a different head,
//     log a natural-fork observation and keep our own chain (first-seen
//     wins among equal-height chains).
//  5. Otherwise c is weaker: silently drop.
//
// Peers are notified BEFORE the miner is preempted so that a late mined
// block extending the old tip, observed right after this call, is still
// propagated to peers whose last-known chain has already advanced —
// avoiding a redundant send to peers who are already past that point.
func (n *Node) propagate(c *chain.Chain) {
	for id, p := range n.peers {
		if !c.StrongerThan(p.lastKnownChain) {
			continue
		}
		if p.conn.Send(c) {
			p.lastKnownChain = c
		} else {
			p.closed = true
			n.log.Info().Str("peer", id).Msg("peer send failed, marking closed")
		}
	}
	for id, p := range n.peers {
		if p.closed {
			delete(n.peers, id)
		}
	}
	n.metrics.PeerCount.Set(float64(len(n.peers)))
	n.publishPeerCount()

	switch {
	case c.StrongerThan(n.currentChain):
		n.preempt.In() <- c
		n.currentChain = c
		n.metrics.ChainHeight.Set(float64(c.Height()))
		n.currentChainPublished.Store(c)
	case c.Height() == n.currentChain.Height() && c.Head().Hash != n.currentChain.Head().Hash:
		n.metrics.ForksObserved.Inc()
		n.log.Info().
			Uint64("height", c.Height()).
			Msg("natural fork observed, keeping first-seen chain")
	default:
		// Weaker chain: silent drop.
	}
}

// publishPeerCount snapshots the peer set size for lock-free concurrent
// reads via Node.PeerCount. Only the router goroutine calls this.
func (n *Node) publishPeerCount() {
	n.peerCountPublished.Store(int64(len(n.peers)))
}

// newLogger builds the router's component logger from a base logger.
func newLogger(base zerolog.Logger, nodeID uint32) zerolog.Logger {
	return base.With().Str("component", "router").Uint32("node_id", nodeID).Logger()
}

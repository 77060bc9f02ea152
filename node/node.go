package node

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tolelom/powmesh/chain"
	"github.com/tolelom/powmesh/internal/chanutil"
	"github.com/tolelom/powmesh/internal/metrics"
	"github.com/tolelom/powmesh/miner"
)

// Node is one participant in the mesh: the router plus the mining engine
// it owns and talks to over two unbounded channels.
//
// currentChain and peerCount are additionally published through atomics so
// that external observers (tests, the demo CLI, metrics scraping) can read
// them without racing the single router goroutine that owns peers and the
// authoritative currentChain value during Run.
type Node struct {
	id           uint32
	currentChain *chain.Chain
	peers        map[string]*peerRecord
	validated    map[chain.Hash]struct{}

	currentChainPublished atomic.Pointer[chain.Chain]
	peerCountPublished    atomic.Int64

	preempt *chanutil.Unbounded[*chain.Chain] // router -> miner
	mined   *chanutil.Unbounded[*chain.Chain] // miner -> router
	remote  *chanutil.Unbounded[*chain.Chain] // peer forwarders -> router

	engine  *miner.Engine
	log     zerolog.Logger
	metrics *metrics.Collector
}

// New builds a node identified by id, mining on top of genesis, attempting
// a mine every miningDelay (miningDelay <= 0 disables mining, modeling an
// "infinite" mining delay). mc may be nil, in which case a collector
// registered on a private throwaway registry is created, so metrics calls
// are always safe and never reach a shared registry.
func New(id uint32, genesis *chain.Chain, miningDelay time.Duration, log zerolog.Logger, mc *metrics.Collector) *Node {
	if mc == nil {
		mc = metrics.NewCollector(nil, "unlabeled")
	}
	preempt := chanutil.NewUnbounded[*chain.Chain]()
	mined := chanutil.NewUnbounded[*chain.Chain]()

	routerLog := newLogger(log, id)
	engine := miner.New(id, genesis, miningDelay, preempt.Out(), mined.In(), log, mc)

	n := &Node{
		id:           id,
		currentChain: genesis,
		peers:        make(map[string]*peerRecord),
		validated:    map[chain.Hash]struct{}{genesis.Head().Hash: {}},
		preempt:      preempt,
		mined:        mined,
		remote:       chanutil.NewUnbounded[*chain.Chain](),
		engine:       engine,
		log:          routerLog,
		metrics:      mc,
	}
	mc.ChainHeight.Set(float64(genesis.Height()))
	n.currentChainPublished.Store(genesis)
	return n
}

// CurrentChain returns the node's current best chain. Safe to call
// concurrently with a live Run loop — it reads the atomically published
// snapshot rather than the router goroutine's working copy.
func (n *Node) CurrentChain() *chain.Chain { return n.currentChainPublished.Load() }

// PeerCount returns the current size of the peer set. Like CurrentChain,
// this reads an atomically published snapshot safe for concurrent use.
func (n *Node) PeerCount() int { return int(n.peerCountPublished.Load()) }

// Run merges conns (newly accepted peer connections), mined chains, and
// relayed chains into one serial event loop until ctx is cancelled.
// Closing conns only stops accepting new peers; there is no other explicit
// cancellation inside the router, so full shutdown is driven by ctx.
func (n *Node) Run(ctx context.Context, conns <-chan Conn) error {
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		n.engine.Run(ctx)
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return eg.Wait()
		case c, ok := <-conns:
			if !ok {
				conns = nil
				continue
			}
			n.handleNewPeer(c)
		case c, ok := <-n.mined.Out():
			if !ok {
				continue
			}
			n.handleMinedChain(c)
		case c, ok := <-n.remote.Out():
			if !ok {
				continue
			}
			n.handleRemoteChain(c)
		}
	}
}

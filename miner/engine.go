// Package miner implements the cooperative nonce-search loop: a
// single-goroutine state machine that tries nonces against a target chain
// and can be preempted mid-search by a taller chain arriving from the
// router. The engine never shares mutable state with the router — the only
// coupling is the preemption-in / mined-chain-out channel pair — so a
// miner-vs-router view of "current chain" can diverge harmlessly; the
// router re-checks strength itself whenever a mined chain arrives.
package miner

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tolelom/powmesh/chain"
	"github.com/tolelom/powmesh/internal/metrics"
)

// DefaultTick is the default interval between mining attempts.
const DefaultTick = 10 * time.Millisecond

// Engine is one node's mining loop.
type Engine struct {
	nodeID uint32
	tick   time.Duration

	preempt <-chan *chain.Chain
	out     chan<- *chain.Chain

	target *chain.Chain
	nonce  uint64

	log     zerolog.Logger
	metrics *metrics.Collector
}

// New creates an Engine that starts mining on top of target. A tick of
// zero or less disables mining entirely (the engine still honors
// preemption updates but never attempts a nonce on its own). mc may be
// nil, in which case mining proceeds without publishing the blocks-mined
// counter.
func New(nodeID uint32, target *chain.Chain, tick time.Duration, preempt <-chan *chain.Chain, out chan<- *chain.Chain, log zerolog.Logger, mc *metrics.Collector) *Engine {
	return &Engine{
		nodeID:  nodeID,
		tick:    tick,
		preempt: preempt,
		out:     out,
		target:  target,
		log:     log.With().Str("component", "miner").Uint32("node_id", nodeID).Logger(),
		metrics: mc,
	}
}

// Run merges the preemption stream and the mining tick into one serial
// event sequence until ctx is cancelled. If the preemption channel closes,
// the engine stops listening to it and keeps mining at its current target.
// Dropping the output consumer (ctx cancellation from the router side)
// stops emissions; the engine has no timeout on individual attempts.
func (e *Engine) Run(ctx context.Context) {
	var ticker *time.Ticker
	var tickC <-chan time.Time
	if e.tick > 0 {
		ticker = time.NewTicker(e.tick)
		defer ticker.Stop()
		tickC = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-e.preempt:
			if !ok {
				// No further preemption updates; keep mining at the
				// current target rather than stopping.
				e.preempt = nil
				continue
			}
			e.onPreempt(update)
		case <-tickC:
			e.attempt(ctx)
		}
	}
}

// onPreempt replaces the target only if update is strictly taller. Equal
// heights do NOT preempt — the engine stays with what it was mining,
// letting equal-height races resolve naturally at the router.
func (e *Engine) onPreempt(update *chain.Chain) {
	if update.Height() <= e.target.Height() {
		return
	}
	e.target = update
	e.nonce = 0
	e.log.Debug().Uint64("height", update.Height()).Msg("preempted to taller chain")
}

// attempt increments the nonce, builds a candidate block on top of the
// current target, and emits the extended chain if it satisfies proof of
// work. A failing attempt is dropped silently — this is the normal case.
func (e *Engine) attempt(ctx context.Context) {
	e.nonce++
	head := e.target.Head()
	b := chain.Block{
		NodeID:       e.nodeID,
		Nonce:        e.nonce,
		PreviousHash: head.Hash,
	}
	b.Hash = chain.ComputeHash(b.NodeID, b.Nonce, b.PreviousHash, e.target.Difficulty())

	extended, err := e.target.Extend(b)
	if err != nil {
		return
	}
	if e.metrics != nil {
		e.metrics.BlocksMined.Inc()
	}
	select {
	case e.out <- extended:
	case <-ctx.Done():
	}
}

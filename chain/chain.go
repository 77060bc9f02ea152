// Package chain implements the proof-of-work block and chain model:
// immutable chain linkage, the hash-below-target validity predicate, and
// the longest-chain comparison rule. Chains are persistent and immutable —
// extension always returns a new Chain referencing the prior one as tail,
// so shared tails across forks are the norm and no chain is ever mutated
// after construction.
package chain

import "errors"

// ErrInvalidLinkage is returned by Extend when the candidate block's
// PreviousHash does not match the chain's current head hash.
var ErrInvalidLinkage = errors.New("chain: block previous hash does not match tip")

// ErrInvalidPoW is returned by Extend when the candidate block fails the
// proof-of-work predicate (hash >= difficulty, or the stored hash does not
// match recomputation).
var ErrInvalidPoW = errors.New("chain: block does not satisfy proof of work")

// Chain is a persistent singly-linked list of blocks, head first. Height 0
// is genesis. Difficulty is fixed at construction and constant along the
// whole chain.
type Chain struct {
	head       Block
	tail       *Chain // nil for genesis
	difficulty Difficulty
	height     uint64
}

// Genesis constructs a height-0 chain under difficulty d.
func Genesis(d Difficulty) *Chain {
	return &Chain{
		head:       genesisBlock(d),
		tail:       nil,
		difficulty: d,
		height:     0,
	}
}

// Reconstruct rebuilds a Chain from its wire-form fields without
// validating them — this is what a peer-facing deserializer does when a
// chain arrives over the transport collaborator as bytes rather than a
// shared in-process reference. The caller MUST call Validate (or
// ValidateHead) before trusting the result; Reconstruct itself performs no
// proof-of-work or linkage check.
func Reconstruct(head Block, tail *Chain, difficulty Difficulty) *Chain {
	height := uint64(0)
	if tail != nil {
		height = tail.height + 1
	}
	return &Chain{head: head, tail: tail, difficulty: difficulty, height: height}
}

// Extend validates b against c (linkage to c's head hash, then proof of
// work under c's difficulty) and, on success, returns a new chain of
// height+1 with c as tail. c itself is never mutated.
func (c *Chain) Extend(b Block) (*Chain, error) {
	if b.PreviousHash != c.head.Hash {
		return nil, ErrInvalidLinkage
	}
	if !b.IsValid(c.difficulty) {
		return nil, ErrInvalidPoW
	}
	return &Chain{
		head:       b,
		tail:       c,
		difficulty: c.difficulty,
		height:     c.height + 1,
	}, nil
}

// Head returns the chain's most recent block.
func (c *Chain) Head() Block { return c.head }

// Height returns the number of blocks after genesis (genesis is 0).
func (c *Chain) Height() uint64 { return c.height }

// Difficulty returns the chain's fixed difficulty target.
func (c *Chain) Difficulty() Difficulty { return c.difficulty }

// Tail returns the chain this one extends, or nil for genesis.
func (c *Chain) Tail() *Chain { return c.tail }

// IsGenesis reports whether c has no tail.
func (c *Chain) IsGenesis() bool { return c.tail == nil }

// StrongerThan reports whether c is strictly taller than other. Equal
// heights are NOT stronger — this is the natural-fork tolerance rule: two
// chains of equal height are left alone rather than arbitrarily preferred.
func (c *Chain) StrongerThan(other *Chain) bool {
	return c.height > other.height
}

// Validate recursively verifies every block in c: head linkage to
// tail.head.Hash and proof of work under c's difficulty, all the way back
// to genesis. Genesis itself is trusted (exempt from the PoW check, as
// Genesis always is). Callers that only need to trust a single hop (e.g.
// because the tail was already validated and cached) can call
// ValidateHead instead.
func (c *Chain) Validate() error {
	if c.IsGenesis() {
		return nil
	}
	if err := c.ValidateHead(); err != nil {
		return err
	}
	return c.tail.Validate()
}

// ValidateHead verifies only c's head block against c's tail, without
// recursing further. This is the minimum check needed to trust a single
// hop; Validate builds on it to verify the whole chain.
func (c *Chain) ValidateHead() error {
	if c.IsGenesis() {
		return nil
	}
	if c.head.PreviousHash != c.tail.head.Hash {
		return ErrInvalidLinkage
	}
	if !c.head.IsValid(c.difficulty) {
		return ErrInvalidPoW
	}
	return nil
}

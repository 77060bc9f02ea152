package chain

// Block is a fixed-size header: who mined it, the nonce that satisfied
// proof of work, the block's own hash, and a reference to its predecessor.
// Blocks carry no transaction payload.
type Block struct {
	NodeID       uint32
	Nonce        uint64
	Hash         Hash
	PreviousHash Hash
}

// IsValid reports whether b satisfies proof of work under difficulty AND
// that its stored hash is exactly what H(node_id, nonce, previous_hash,
// difficulty) recomputes. The stored hash is never trusted on its own —
// storing it only lets callers index/compare chains by head hash cheaply.
func (b Block) IsValid(difficulty Difficulty) bool {
	if !b.Hash.Under(difficulty) {
		return false
	}
	return ComputeHash(b.NodeID, b.Nonce, b.PreviousHash, difficulty) == b.Hash
}

// genesisBlock builds the sentinel genesis block for difficulty d: node_id
// 0xFFFFFFFF, nonce 0, and a self-referential previous_hash (previous_hash
// == hash). Genesis is exempt from the IsValid proof-of-work predicate —
// its hash is a fixed point of the hash input layout, not a mined value.
func genesisBlock(d Difficulty) Block {
	var zero Hash
	h := ComputeHash(GenesisNodeID, 0, zero, d)
	return Block{
		NodeID:       GenesisNodeID,
		Nonce:        0,
		Hash:         h,
		PreviousHash: h,
	}
}

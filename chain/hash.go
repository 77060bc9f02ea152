package chain

import (
	"crypto/sha256"
	"encoding/binary"
)

// Hash is a 256-bit SHA-256 digest.
type Hash [32]byte

// Difficulty is a 256-bit unsigned target, compared byte-wise big-endian.
type Difficulty [32]byte

// GenesisNodeID is the sentinel node identifier used only by the genesis
// block. node_id is a 32-bit big-endian value in both the block header and
// the hash input.
const GenesisNodeID uint32 = 0xFFFFFFFF

// hashInputSize is the fixed 76-byte buffer: nonce(8) || node_id(4) ||
// previous_hash(32) || difficulty(32). This layout is part of the
// cross-node wire/compat contract and must never change.
const hashInputSize = 8 + 4 + 32 + 32

// ComputeHash derives a block's hash from its mutable fields plus the
// chain's difficulty. It is pure and deterministic: identical inputs always
// yield an identical digest.
func ComputeHash(nodeID uint32, nonce uint64, previousHash Hash, difficulty Difficulty) Hash {
	var buf [hashInputSize]byte
	binary.BigEndian.PutUint64(buf[0:8], nonce)
	binary.BigEndian.PutUint32(buf[8:12], nodeID)
	copy(buf[12:44], previousHash[:])
	copy(buf[44:76], difficulty[:])
	return sha256.Sum256(buf[:])
}

// Less reports whether h is strictly less than other under a byte-wise
// big-endian unsigned compare.
func (h Hash) Less(other Hash) bool {
	for i := range h {
		if h[i] != other[i] {
			return h[i] < other[i]
		}
	}
	return false
}

// Under reports whether h satisfies the proof-of-work predicate against d:
// h < d, byte-wise big-endian unsigned.
func (h Hash) Under(d Difficulty) bool {
	return h.Less(Hash(d))
}

// MinDifficulty is the loosest possible target (all-ones): every hash is
// valid against it.
func MinDifficulty() Difficulty {
	var d Difficulty
	for i := range d {
		d[i] = 0xFF
	}
	return d
}

// Increase tightens the difficulty: locate the first non-zero byte and
// halve it (integer division); if that halving produces zero, the next
// byte is set to 0x7F. This yields a roughly geometric tightening and is
// strictly monotone for any non-zero target — Increase() then always yields
// a lower target. The all-zero target has no non-zero byte and is returned
// unchanged.
func (d Difficulty) Increase() Difficulty {
	next := d
	for i := range next {
		if next[i] == 0 {
			continue
		}
		next[i] /= 2
		if next[i] == 0 && i+1 < len(next) {
			next[i+1] = 0x7F
		}
		break
	}
	return next
}

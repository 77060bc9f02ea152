package chain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// mine is a small test helper that brute-forces a valid block extending c
// for the given node id. It is only used by tests, never by the miner
// engine, which has its own preemptible loop.
func mine(t *testing.T, c *Chain, nodeID uint32) Block {
	t.Helper()
	for nonce := uint64(0); ; nonce++ {
		b := Block{NodeID: nodeID, Nonce: nonce, PreviousHash: c.Head().Hash}
		b.Hash = ComputeHash(nodeID, nonce, b.PreviousHash, c.Difficulty())
		if b.IsValid(c.Difficulty()) {
			return b
		}
	}
}

func TestGenesisHeightAndSelfReference(t *testing.T) {
	g := Genesis(MinDifficulty())
	require.Equal(t, uint64(0), g.Height())
	require.Equal(t, g.Head().Hash, g.Head().PreviousHash)
	require.True(t, g.IsGenesis())
	require.NoError(t, g.Validate())
}

func TestExtendSucceedsAndSetsHeight(t *testing.T) {
	g := Genesis(MinDifficulty())
	b := mine(t, g, 1)
	c, err := g.Extend(b)
	require.NoError(t, err)
	require.Equal(t, uint64(1), c.Height())
	require.Equal(t, g.Head().Hash, c.Head().PreviousHash)
	require.Equal(t, g, c.Tail())
	require.NoError(t, c.Validate())
}

func TestExtendRejectsWrongLinkage(t *testing.T) {
	g := Genesis(MinDifficulty())
	other := Genesis(MinDifficulty())
	b := mine(t, other, 1)
	_, err := g.Extend(b)
	require.ErrorIs(t, err, ErrInvalidLinkage)
}

func TestExtendRejectsBadPoW(t *testing.T) {
	// A near-impossible difficulty (only the all-zero hash would satisfy
	// it) makes it deterministic that nonce 0 fails the PoW predicate.
	var tight Difficulty
	tight[31] = 1
	g := Genesis(tight)
	prev := g.Head().Hash
	h := ComputeHash(1, 0, prev, tight)
	require.False(t, h.Under(tight))
	b := Block{NodeID: 1, Nonce: 0, PreviousHash: prev, Hash: h}
	_, err := g.Extend(b)
	require.ErrorIs(t, err, ErrInvalidPoW)
}

func TestExtendRejectsTamperedHash(t *testing.T) {
	g := Genesis(MinDifficulty())
	b := mine(t, g, 1)
	b.Hash[0] ^= 0x01 // flip one bit
	_, err := g.Extend(b)
	require.Error(t, err)
}

func TestStrongerThanIrreflexiveAndEqualHeightNeither(t *testing.T) {
	g := Genesis(MinDifficulty())
	a, err := g.Extend(mine(t, g, 1))
	require.NoError(t, err)
	b, err := g.Extend(mine(t, g, 2))
	require.NoError(t, err)

	require.False(t, a.StrongerThan(a))
	require.False(t, a.StrongerThan(b))
	require.False(t, b.StrongerThan(a))
}

func TestStrongerThanHeight(t *testing.T) {
	g := Genesis(MinDifficulty())
	a, err := g.Extend(mine(t, g, 1))
	require.NoError(t, err)
	aa, err := a.Extend(mine(t, a, 1))
	require.NoError(t, err)

	require.True(t, aa.StrongerThan(a))
	require.False(t, a.StrongerThan(aa))
}

func TestHashDeterministic(t *testing.T) {
	var prev Hash
	d := MinDifficulty()
	h1 := ComputeHash(7, 42, prev, d)
	h2 := ComputeHash(7, 42, prev, d)
	require.Equal(t, h1, h2)
}

func TestDifficultyIncreaseMonotone(t *testing.T) {
	d := MinDifficulty()
	for i := 0; i < 10; i++ {
		next := d.Increase()
		require.True(t, Hash(next).Less(Hash(d)), "increase #%d must strictly lower the target", i)
		d = next
	}
}

func TestDifficultyIncreaseByteEqualsOneHalvesToZero(t *testing.T) {
	var d Difficulty
	d[0] = 1
	next := d.Increase()
	require.Equal(t, byte(0), next[0])
	require.Equal(t, byte(0x7F), next[1])
}

func TestNonceWrapDoesNotPanic(t *testing.T) {
	var prev Hash
	d := MinDifficulty()
	require.NotPanics(t, func() {
		ComputeHash(1, ^uint64(0), prev, d)
	})
	// The carry from incrementing past all-0xFF is plain uint64 wraparound;
	// Go's unsigned overflow is well-defined and silent, so this is really
	// checking that ComputeHash's encoding doesn't special-case it either.
	wrapped := ^uint64(0) + 1
	require.Equal(t, uint64(0), wrapped)
}

func TestDifficultyStatistical(t *testing.T) {
	d := MinDifficulty().Increase().Increase().Increase()
	var prev Hash
	const trials = 100_000
	count := 0
	for nonce := uint64(0); nonce < trials; nonce++ {
		h := ComputeHash(1, nonce, prev, d)
		if h.Under(d) {
			count++
		}
	}
	require.Greater(t, count, trials/9)
	require.Less(t, count, trials/7)
}

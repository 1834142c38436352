package games

import (
	"math/rand/v2"
	"sync"
)

// Roller draws uniform game outcomes. One instance is shared by all
// in-flight rounds; the PCG source is not safe for concurrent use, so
// every draw runs under the mutex.
type Roller struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRoller returns a Roller seeded from the shared generator.
func NewRoller() *Roller {
	return NewSeededRoller(rand.Uint64(), rand.Uint64())
}

// NewSeededRoller returns a deterministic Roller for tests.
func NewSeededRoller(seed1, seed2 uint64) *Roller {
	return &Roller{rnd: rand.New(rand.NewPCG(seed1, seed2))}
}

// FlipCoin draws heads or tails.
func (r *Roller) FlipCoin() Side {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rnd.IntN(2) == 0 {
		return Heads
	}

	return Tails
}

// RollDie draws 1..6.
func (r *Roller) RollDie() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.rnd.IntN(6) + 1
}

// SpinWheel draws 0..36.
func (r *Roller) SpinWheel() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.rnd.IntN(37)
}

// SpinReels draws three independent symbols.
func (r *Roller) SpinReels() [3]Symbol {
	r.mu.Lock()
	defer r.mu.Unlock()

	var reels [3]Symbol
	for i := range reels {
		reels[i] = Symbols[r.rnd.IntN(len(Symbols))]
	}

	return reels
}

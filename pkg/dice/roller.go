// Package dice provides the die rolls used by combat. Rollers are injected into the
// engine so tests can replay a fixed sequence.
package dice

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

// Roller rolls a single die with the given number of sides, returning 1..sides.
type Roller interface {
	Roll(sides int) int
}

// Random is a Roller backed by a PCG generator. It is safe for concurrent use.
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom returns a Random roller. A zero seed picks a random one.
func NewRandom(seed uint64) *Random {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Random{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (r *Random) Roll(sides int) int {
	if sides < 1 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return 1 + r.rng.IntN(sides)
}

// Sequence replays fixed rolls in order. It panics when exhausted or when a roll does
// not fit the die, which surfaces badly written tests immediately.
type Sequence struct {
	mu    sync.Mutex
	rolls []int
	next  int
}

func NewSequence(rolls ...int) *Sequence {
	return &Sequence{rolls: rolls}
}

func (s *Sequence) Roll(sides int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.rolls) {
		panic(fmt.Sprintf("dice: sequence exhausted after %d rolls", len(s.rolls)))
	}
	r := s.rolls[s.next]
	if r < 1 || r > sides {
		panic(fmt.Sprintf("dice: roll %d does not fit a d%d", r, sides))
	}
	s.next++
	return r
}

// Remaining returns how many rolls are left.
func (s *Sequence) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rolls) - s.next
}

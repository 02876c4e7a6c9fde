// Package primality implements the Miller–Rabin probable-prime test.
//
// The round count is an explicit security knob. With k rounds a composite is
// accepted with probability at most 4^-k; the default of 5 is far below what
// production key sizes call for.
package primality

import (
	"fmt"
	"math/big"

	"rsagen/internal/entropy"
	"rsagen/internal/modarith"
)

const DefaultRounds = 5

// Sampling selects how Miller–Rabin bases are drawn from [2, n-2].
type Sampling int

const (
	// SampleUniform draws bases uniformly by rejection sampling.
	SampleUniform Sampling = iota
	// SampleLegacy64 draws a 64-bit value with its top bit set and reduces it
	// modulo n-3 before adding 2. Biased when n is large relative to 2^64.
	SampleLegacy64
)

func (s Sampling) String() string {
	switch s {
	case SampleUniform:
		return "uniform"
	case SampleLegacy64:
		return "legacy64"
	default:
		return fmt.Sprintf("Sampling(%d)", int(s))
	}
}

// Valid reports whether s is one of the defined sampling modes.
func (s Sampling) Valid() bool {
	return s == SampleUniform || s == SampleLegacy64
}

// ParseSampling maps a name produced by String back to a Sampling.
func ParseSampling(name string) (Sampling, error) {
	switch name {
	case "uniform", "":
		return SampleUniform, nil
	case "legacy64":
		return SampleLegacy64, nil
	}
	return 0, fmt.Errorf("primality: unknown base sampling %q", name)
}

var (
	one   = big.NewInt(1)
	two   = big.NewInt(2)
	three = big.NewInt(3)
)

// Tester runs Miller–Rabin rounds with bases drawn from a Generator.
type Tester struct {
	gen      *entropy.Generator
	rounds   int
	sampling Sampling
}

type Option func(*Tester)

// WithRounds sets the number of Miller–Rabin rounds. Values below 1 are ignored.
func WithRounds(k int) Option {
	return func(t *Tester) {
		if k > 0 {
			t.rounds = k
		}
	}
}

func WithSampling(s Sampling) Option {
	return func(t *Tester) {
		t.sampling = s
	}
}

func New(gen *entropy.Generator, opts ...Option) *Tester {
	t := &Tester{
		gen:      gen,
		rounds:   DefaultRounds,
		sampling: SampleUniform,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tester) Rounds() int { return t.rounds }

func (t *Tester) Sampling() Sampling { return t.sampling }

// ProbablyPrime reports whether n passes every Miller–Rabin round.
// A false result is definitive; a true result is probable. The only errors
// come from the entropy source.
func (t *Tester) ProbablyPrime(n *big.Int) (bool, error) {
	if n.Cmp(one) <= 0 {
		return false, nil
	}
	if n.Cmp(two) == 0 || n.Cmp(three) == 0 {
		return true, nil
	}
	if n.Bit(0) == 0 {
		return false, nil
	}

	// n-1 = d * 2^s with d odd
	nMinus1 := new(big.Int).Sub(n, one)
	d := new(big.Int).Set(nMinus1)
	s := 0
	for d.Bit(0) == 0 {
		d.Rsh(d, 1)
		s++
	}

	for i := 0; i < t.rounds; i++ {
		a, err := t.base(n)
		if err != nil {
			return false, fmt.Errorf("primality: draw base: %w", err)
		}
		if !passesRound(a, d, s, n, nMinus1) {
			return false, nil
		}
	}
	return true, nil
}

// passesRound reports whether base a fails to witness the compositeness of n.
func passesRound(a, d *big.Int, s int, n, nMinus1 *big.Int) bool {
	x := modarith.PowMod(a, d, n)
	if x.Cmp(one) == 0 || x.Cmp(nMinus1) == 0 {
		return true
	}

	for j := 0; j < s-1; j++ {
		x.Mul(x, x)
		x.Mod(x, n)
		if x.Cmp(nMinus1) == 0 {
			return true
		}
	}
	return false
}

// base returns a Miller–Rabin base in [2, n-2] for odd n >= 5.
func (t *Tester) base(n *big.Int) (*big.Int, error) {
	span := new(big.Int).Sub(n, three)

	var r *big.Int
	var err error
	switch t.sampling {
	case SampleLegacy64:
		r, err = t.gen.Bits(64)
		if err == nil {
			r.Mod(r, span)
		}
	default:
		r, err = t.gen.Below(span)
	}
	if err != nil {
		return nil, err
	}
	return r.Add(r, two), nil
}

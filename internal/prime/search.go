// Package prime searches for probable primes of a given bit length.
package prime

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/rs/zerolog"

	"rsagen/internal/entropy"
)

const DefaultMaxAttempts = 1 << 16

var ErrSearchExhausted = errors.New("prime: no probable prime found within the attempt limit")

// Tester decides whether a candidate is a probable prime.
type Tester interface {
	ProbablyPrime(n *big.Int) (bool, error)
}

// Searcher draws candidates and returns the first one the Tester accepts.
// Rejected candidates are discarded; every draw is independent.
type Searcher struct {
	gen         *entropy.Generator
	tester      Tester
	maxAttempts int
	log         zerolog.Logger
}

type Option func(*Searcher)

// WithMaxAttempts bounds the number of candidates drawn per search.
// Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Searcher) {
		s.log = l
	}
}

func NewSearcher(gen *entropy.Generator, tester Tester, opts ...Option) *Searcher {
	s := &Searcher{
		gen:         gen,
		tester:      tester,
		maxAttempts: DefaultMaxAttempts,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Prime returns a probable prime drawn at the given bit length. It stops
// early when ctx is cancelled and returns ErrSearchExhausted once the
// attempt limit is reached.
func (s *Searcher) Prime(ctx context.Context, bits int) (*big.Int, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		candidate, err := s.gen.Bits(bits)
		if err != nil {
			return nil, fmt.Errorf("prime: draw candidate: %w", err)
		}

		ok, err := s.tester.ProbablyPrime(candidate)
		if err != nil {
			return nil, fmt.Errorf("prime: test candidate: %w", err)
		}
		if ok {
			s.log.Debug().
				Int("bits", bits).
				Int("attempts", attempt).
				Msg("probable prime found")
			return candidate, nil
		}
	}

	return nil, fmt.Errorf("%w: %d candidates of %d bits", ErrSearchExhausted, s.maxAttempts, bits)
}

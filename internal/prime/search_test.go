package prime

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/require"

	"rsagen/internal/entropy"
	"rsagen/internal/primality"
)

type rejectAll struct{ calls int }

func (r *rejectAll) ProbablyPrime(*big.Int) (bool, error) {
	r.calls++
	return false, nil
}

type failingTester struct{ err error }

func (f failingTester) ProbablyPrime(*big.Int) (bool, error) {
	return false, f.err
}

func TestPrime(t *testing.T) {
	gen := entropy.System()
	s := NewSearcher(gen, primality.New(gen, primality.WithRounds(20)))

	for _, bits := range []int{8, 16, 64, 256} {
		p, err := s.Prime(context.Background(), bits)
		require.NoError(t, err)
		require.Equal(t, bits, p.BitLen())
		require.True(t, p.ProbablyPrime(20), "%s is not prime", p)
	}
}

func TestPrimeIndependentDraws(t *testing.T) {
	gen := entropy.System()
	s := NewSearcher(gen, primality.New(gen))

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		p, err := s.Prime(context.Background(), 128)
		require.NoError(t, err)
		seen[p.String()] = true
	}
	require.Greater(t, len(seen), 1)
}

func TestPrimeDeterministicEntropy(t *testing.T) {
	// 0x80 | 0x00 = 128 (even), then 0x83 = 131 (prime)
	gen := entropy.New(bytes.NewReader([]byte{0x00, 0x83}))
	tester := primality.New(entropy.System(), primality.WithRounds(10))

	p, err := NewSearcher(gen, tester).Prime(context.Background(), 8)
	require.NoError(t, err)
	require.Equal(t, int64(131), p.Int64())
}

func TestPrimeErrors(t *testing.T) {
	t.Run("attempt limit", func(t *testing.T) {
		tester := &rejectAll{}
		s := NewSearcher(entropy.System(), tester, WithMaxAttempts(25))

		_, err := s.Prime(context.Background(), 64)
		require.ErrorIs(t, err, ErrSearchExhausted)
		require.Equal(t, 25, tester.calls)
	})

	t.Run("entropy unavailable", func(t *testing.T) {
		gen := entropy.New(iotest.ErrReader(errors.New("starved")))
		s := NewSearcher(gen, &rejectAll{})

		_, err := s.Prime(context.Background(), 64)
		require.ErrorIs(t, err, entropy.ErrUnavailable)
	})

	t.Run("tester error", func(t *testing.T) {
		boom := errors.New("boom")
		s := NewSearcher(entropy.System(), failingTester{err: boom})

		_, err := s.Prime(context.Background(), 64)
		require.ErrorIs(t, err, boom)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		tester := &rejectAll{}
		_, err := NewSearcher(entropy.System(), tester).Prime(ctx, 64)
		require.ErrorIs(t, err, context.Canceled)
		require.Zero(t, tester.calls)
	})

	t.Run("invalid bit length", func(t *testing.T) {
		_, err := NewSearcher(entropy.System(), &rejectAll{}).Prime(context.Background(), 0)
		require.ErrorIs(t, err, entropy.ErrInvalidBitLength)
	})
}

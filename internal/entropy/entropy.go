// Package entropy turns an external byte source into arbitrary-precision
// random integers.
package entropy

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
)

var (
	ErrUnavailable      = errors.New("entropy: source unavailable")
	ErrInvalidBitLength = errors.New("entropy: bit length must be positive")
	ErrInvalidBound     = errors.New("entropy: upper bound must be positive")
)

// Generator draws random integers from a byte source. It is as safe for
// concurrent use as the reader it wraps.
type Generator struct {
	r io.Reader
}

func New(r io.Reader) *Generator {
	return &Generator{r: r}
}

// System returns a Generator backed by the operating system CSPRNG.
func System() *Generator {
	return New(rand.Reader)
}

func (g *Generator) Reader() io.Reader {
	return g.r
}

// Bits returns a random integer with its most significant bit set.
//
// It reads ceil(bits/8) bytes and forces only the top bit of the first one,
// so the result is exactly bits long when bits is a multiple of 8. For other
// lengths it is 8*ceil(bits/8) bits long; no mask is applied afterwards.
func (g *Generator) Bits(bits int) (*big.Int, error) {
	if bits <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBitLength, bits)
	}

	buf := make([]byte, (bits+7)/8)
	if _, err := io.ReadFull(g.r, buf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	buf[0] |= 0x80

	return new(big.Int).SetBytes(buf), nil
}

// Below returns a uniformly distributed integer in [0, max).
func (g *Generator) Below(max *big.Int) (*big.Int, error) {
	if max == nil || max.Sign() <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidBound, max)
	}

	n, err := rand.Int(g.r, max)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return n, nil
}

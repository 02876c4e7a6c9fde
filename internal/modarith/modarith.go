// Package modarith implements the modular arithmetic behind key generation:
// square-and-multiply exponentiation, the extended Euclidean algorithm and
// modular inverses over math/big integers.
package modarith

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	ErrNoInverse      = errors.New("modarith: modular inverse does not exist")
	ErrInvalidModulus = errors.New("modarith: modulus must be positive")
)

var (
	zero = big.NewInt(0)
	one  = big.NewInt(1)
)

// PowMod returns base^exp mod m using right-to-left binary exponentiation.
//
// The base is reduced modulo m before iterating so no intermediate exceeds
// m^2. x^0 is 1 for every x and every modulus, matching the usual definition.
// PowMod panics if m < 1 or exp < 0.
func PowMod(base, exp, m *big.Int) *big.Int {
	if m.Sign() <= 0 {
		panic("modarith: PowMod with modulus < 1")
	}
	if exp.Sign() < 0 {
		panic("modarith: PowMod with negative exponent")
	}

	result := big.NewInt(1)
	if exp.Sign() == 0 {
		return result
	}

	b := new(big.Int).Mod(base, m)
	result.Mod(result, m) // 1 mod 1 == 0
	for i := 0; i < exp.BitLen(); i++ {
		if exp.Bit(i) == 1 {
			result.Mul(result, b)
			result.Mod(result, m)
		}
		b.Mul(b, b)
		b.Mod(b, m)
	}
	return result
}

// ExtGCD returns g = gcd(a, b) and Bézout coefficients x, y such that
// a*x + b*y = g. The inputs must be non-negative and are not modified.
//
// The coefficient recurrence runs in a loop, so call depth does not grow
// with the size of the operands.
func ExtGCD(a, b *big.Int) (g, x, y *big.Int) {
	oldR, r := new(big.Int).Set(a), new(big.Int).Set(b)
	oldS, s := big.NewInt(1), big.NewInt(0)
	oldT, t := big.NewInt(0), big.NewInt(1)

	q := new(big.Int)
	tmp := new(big.Int)
	for r.Sign() != 0 {
		q.Quo(oldR, r) // truncating

		// (oldR, r) = (r, oldR - q*r), and likewise for s and t
		tmp.Mul(q, r)
		oldR, r = r, oldR.Sub(oldR, tmp)

		tmp.Mul(q, s)
		oldS, s = s, oldS.Sub(oldS, tmp)

		tmp.Mul(q, t)
		oldT, t = t, oldT.Sub(oldT, tmp)
	}

	return oldR, oldS, oldT
}

// ModInverse returns the unique d in [0, m) with a*d ≡ 1 (mod m).
// It returns ErrNoInverse when gcd(a, m) != 1.
func ModInverse(a, m *big.Int) (*big.Int, error) {
	if m.Sign() <= 0 {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidModulus, m)
	}
	// every number is congruent to 0 modulo 1
	if m.Cmp(one) == 0 {
		return big.NewInt(0), nil
	}

	reduced := new(big.Int).Mod(a, m)
	g, x, _ := ExtGCD(reduced, m)
	if g.Cmp(one) != 0 {
		return nil, fmt.Errorf("%w: gcd(%s, %s) = %s", ErrNoInverse, a, m, g)
	}

	// x lies in (-m, m), one correction is enough
	if x.Sign() < 0 {
		x.Add(x, m)
	}
	return x, nil
}

// Coprime reports whether gcd(a, b) == 1, via ExtGCD.
func Coprime(a, b *big.Int) bool {
	g, _, _ := ExtGCD(a, b)
	return g.Cmp(one) == 0
}

// GCD returns gcd(a, b) using the binary (Stein) algorithm. The inputs must
// be non-negative and are not modified.
func GCD(a, b *big.Int) *big.Int {
	if a.Sign() == 0 {
		return new(big.Int).Set(b)
	}
	if b.Sign() == 0 {
		return new(big.Int).Set(a)
	}

	u, v := new(big.Int).Set(a), new(big.Int).Set(b)

	// Count the common factors of 2
	shift := u.TrailingZeroBits()
	if vz := v.TrailingZeroBits(); vz < shift {
		shift = vz
	}
	u.Rsh(u, u.TrailingZeroBits())

	for v.Cmp(zero) != 0 {
		v.Rsh(v, v.TrailingZeroBits())
		// both odd, subtract the smaller from the larger
		if u.Cmp(v) > 0 {
			u, v = v, u
		}
		v.Sub(v, u)
	}

	return u.Lsh(u, shift)
}

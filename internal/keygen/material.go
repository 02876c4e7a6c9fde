package keygen

import (
	"fmt"
	"math/big"

	"rsagen/internal/modarith"
)

// KeyMaterial holds an RSA key pair and the values it was derived from.
//
// N = P*Q and PhiN = (P-1)(Q-1). D is the inverse of E modulo PhiN.
// LambdaN = PhiN / gcd(P-1, Q-1) is the Carmichael function of N and DLambda
// the inverse of E modulo LambdaN, the smaller private exponent that works
// equally well.
type KeyMaterial struct {
	P, Q *big.Int
	N    *big.Int
	PhiN *big.Int
	E    *big.Int
	D    *big.Int

	GCDPQ   *big.Int
	LambdaN *big.Int
	DLambda *big.Int

	// Number of prime pairs drawn before E was coprime to PhiN.
	Attempts int
}

func totient(p, q *big.Int) *big.Int {
	// Eulers Totient -- ϕ(n) = (p−1)(q−1)
	return new(big.Int).Mul(new(big.Int).Sub(p, one), new(big.Int).Sub(q, one))
}

// carmichael fills in the lambda(n) fields of k. E must already be coprime
// to PhiN, which makes it coprime to every divisor of PhiN.
func (k *KeyMaterial) carmichael() error {
	k.GCDPQ = modarith.GCD(new(big.Int).Sub(k.P, one), new(big.Int).Sub(k.Q, one))
	k.LambdaN = new(big.Int).Quo(k.PhiN, k.GCDPQ)

	dl, err := modarith.ModInverse(k.E, k.LambdaN)
	if err != nil {
		return fmt.Errorf("%w: inverse of e modulo lambda(n): %w", ErrInconsistent, err)
	}
	k.DLambda = dl
	return nil
}

// Validate re-checks every invariant of the key material.
func (k *KeyMaterial) Validate() error {
	if k.P == nil || k.Q == nil || k.N == nil || k.PhiN == nil || k.E == nil || k.D == nil {
		return fmt.Errorf("%w: missing component", ErrInvalidKeyMaterial)
	}

	if new(big.Int).Mul(k.P, k.Q).Cmp(k.N) != 0 {
		return fmt.Errorf("%w: n != p*q", ErrInvalidKeyMaterial)
	}
	if totient(k.P, k.Q).Cmp(k.PhiN) != 0 {
		return fmt.Errorf("%w: phi(n) != (p-1)(q-1)", ErrInvalidKeyMaterial)
	}
	if !modarith.Coprime(k.E, k.PhiN) {
		return fmt.Errorf("%w: gcd(e, phi(n)) != 1", ErrInvalidKeyMaterial)
	}
	if k.D.Sign() < 0 || k.D.Cmp(k.PhiN) >= 0 {
		return fmt.Errorf("%w: d outside [0, phi(n))", ErrInvalidKeyMaterial)
	}
	if !inverses(k.E, k.D, k.PhiN) {
		return fmt.Errorf("%w: e*d mod phi(n) != 1", ErrInvalidKeyMaterial)
	}

	if k.LambdaN != nil {
		if k.GCDPQ == nil {
			return fmt.Errorf("%w: lambda(n) without gcd(p-1, q-1)", ErrInvalidKeyMaterial)
		}
		if new(big.Int).Mul(k.LambdaN, k.GCDPQ).Cmp(k.PhiN) != 0 {
			return fmt.Errorf("%w: lambda(n)*gcd(p-1, q-1) != phi(n)", ErrInvalidKeyMaterial)
		}
		if k.DLambda == nil || !inverses(k.E, k.DLambda, k.LambdaN) {
			return fmt.Errorf("%w: e*d mod lambda(n) != 1", ErrInvalidKeyMaterial)
		}
	}
	return nil
}

func inverses(a, b, m *big.Int) bool {
	prod := new(big.Int).Mul(a, b)
	return prod.Mod(prod, m).Cmp(one) == 0
}

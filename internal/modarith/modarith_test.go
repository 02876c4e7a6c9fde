package modarith

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func randInt(t *testing.T, bits int) *big.Int {
	t.Helper()
	n, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), uint(bits)))
	require.NoError(t, err)
	return n
}

func TestPowMod(t *testing.T) {
	t.Run("known values", func(t *testing.T) {
		tests := []struct {
			base, exp, mod, want int64
		}{
			{2, 10, 1000, 24},
			{3, 200, 13, 9},
			{4, 13, 497, 445},
			{7, 1, 5, 2},
			{0, 5, 7, 0},
			{10, 3, 10, 0},
		}
		for _, tt := range tests {
			got := PowMod(big.NewInt(tt.base), big.NewInt(tt.exp), big.NewInt(tt.mod))
			require.Equal(t, tt.want, got.Int64(), "%d^%d mod %d", tt.base, tt.exp, tt.mod)
		}
	})

	t.Run("zero exponent is one", func(t *testing.T) {
		for _, m := range []int64{1, 2, 3, 97, 1 << 40} {
			for _, a := range []int64{0, 1, 5, 1 << 50} {
				got := PowMod(big.NewInt(a), big.NewInt(0), big.NewInt(m))
				require.Equal(t, int64(1), got.Int64(), "%d^0 mod %d", a, m)
			}
		}
	})

	t.Run("modulus one is zero", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			a := randInt(t, 128)
			b := new(big.Int).Add(randInt(t, 64), big.NewInt(1))
			require.Equal(t, 0, PowMod(a, b, big.NewInt(1)).Sign())
		}
	})

	t.Run("matches math/big", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			base := randInt(t, 600)
			exp := randInt(t, 512)
			mod := new(big.Int).Add(randInt(t, 512), big.NewInt(1))

			want := new(big.Int).Exp(base, exp, mod)
			require.Equal(t, 0, want.Cmp(PowMod(base, exp, mod)))
		}
	})

	t.Run("inputs untouched", func(t *testing.T) {
		base, exp, mod := big.NewInt(123456), big.NewInt(789), big.NewInt(1000)
		PowMod(base, exp, mod)
		require.Equal(t, int64(123456), base.Int64())
		require.Equal(t, int64(789), exp.Int64())
		require.Equal(t, int64(1000), mod.Int64())
	})

	t.Run("invalid arguments panic", func(t *testing.T) {
		require.Panics(t, func() { PowMod(big.NewInt(2), big.NewInt(3), big.NewInt(0)) })
		require.Panics(t, func() { PowMod(big.NewInt(2), big.NewInt(-1), big.NewInt(7)) })
	})
}

func TestExtGCD(t *testing.T) {
	check := func(t *testing.T, a, b *big.Int) {
		t.Helper()
		g, x, y := ExtGCD(a, b)

		want := new(big.Int).GCD(nil, nil, a, b)
		require.Equal(t, 0, want.Cmp(g), "gcd(%s, %s)", a, b)

		// a*x + b*y == g
		lhs := new(big.Int).Mul(a, x)
		lhs.Add(lhs, new(big.Int).Mul(b, y))
		require.Equal(t, 0, lhs.Cmp(g), "bezout for (%s, %s)", a, b)
	}

	pairs := [][2]int64{
		{48, 18}, {18, 48}, {240, 46}, {17, 5}, {3, 220}, {3, 60},
		{0, 9}, {9, 0}, {1, 1}, {0, 0}, {65537, 1 << 40},
	}
	for _, p := range pairs {
		check(t, big.NewInt(p[0]), big.NewInt(p[1]))
	}

	for i := 0; i < 50; i++ {
		check(t, randInt(t, 1024), randInt(t, 1024))
	}
	check(t, randInt(t, 2048), big.NewInt(0))

	t.Run("inputs untouched", func(t *testing.T) {
		a, b := big.NewInt(48), big.NewInt(18)
		g, _, _ := ExtGCD(a, b)
		require.Equal(t, int64(6), g.Int64())
		require.Equal(t, int64(48), a.Int64())
		require.Equal(t, int64(18), b.Int64())
	})
}

func TestModInverse(t *testing.T) {
	t.Run("known values", func(t *testing.T) {
		tests := []struct {
			a, m, want int64
		}{
			{3, 220, 147},
			{3, 110, 37},
			{17, 3120, 2753},
			{1, 7, 1},
			{10, 17, 12},
			{20, 17, 6}, // a larger than m
		}
		for _, tt := range tests {
			d, err := ModInverse(big.NewInt(tt.a), big.NewInt(tt.m))
			require.NoError(t, err)
			require.Equal(t, tt.want, d.Int64(), "inverse of %d mod %d", tt.a, tt.m)
		}
	})

	t.Run("coprime pairs", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			m := new(big.Int).Add(randInt(t, 1024), big.NewInt(2))
			a := randInt(t, 1024)
			if !Coprime(a, m) {
				continue
			}

			d, err := ModInverse(a, m)
			require.NoError(t, err)
			require.True(t, d.Sign() >= 0 && d.Cmp(m) < 0, "inverse out of range")

			prod := new(big.Int).Mul(a, d)
			require.Equal(t, int64(1), prod.Mod(prod, m).Int64())
		}
	})

	t.Run("no inverse", func(t *testing.T) {
		for _, p := range [][2]int64{{3, 60}, {4, 8}, {0, 5}, {10, 10}} {
			_, err := ModInverse(big.NewInt(p[0]), big.NewInt(p[1]))
			require.ErrorIs(t, err, ErrNoInverse, "%d mod %d", p[0], p[1])
		}
	})

	t.Run("modulus one", func(t *testing.T) {
		d, err := ModInverse(big.NewInt(42), big.NewInt(1))
		require.NoError(t, err)
		require.Equal(t, 0, d.Sign())
	})

	t.Run("invalid modulus", func(t *testing.T) {
		_, err := ModInverse(big.NewInt(3), big.NewInt(0))
		require.ErrorIs(t, err, ErrInvalidModulus)
		_, err = ModInverse(big.NewInt(3), big.NewInt(-7))
		require.ErrorIs(t, err, ErrInvalidModulus)
	})
}

func TestCoprime(t *testing.T) {
	require.True(t, Coprime(big.NewInt(3), big.NewInt(220)))
	require.False(t, Coprime(big.NewInt(3), big.NewInt(60)))
	require.True(t, Coprime(big.NewInt(1), big.NewInt(0)))
}

// TestGCD ensures the binary gcd agrees with math/big.
func TestGCD(t *testing.T) {
	a := big.NewInt(48)
	b := big.NewInt(18)
	require.Equal(t, int64(6), GCD(a, b).Int64())
	require.Equal(t, int64(48), a.Int64())
	require.Equal(t, int64(18), b.Int64())

	require.Equal(t, int64(9), GCD(big.NewInt(0), big.NewInt(9)).Int64())
	require.Equal(t, int64(9), GCD(big.NewInt(9), big.NewInt(0)).Int64())
	require.Equal(t, int64(2), GCD(big.NewInt(10), big.NewInt(22)).Int64())

	for i := 0; i < 50; i++ {
		x, y := randInt(t, 512), randInt(t, 512)
		// share a power of two to exercise the shift
		x.Lsh(x, 5)
		y.Lsh(y, 3)
		want := new(big.Int).GCD(nil, nil, x, y)
		require.Equal(t, 0, want.Cmp(GCD(x, y)))
	}
}

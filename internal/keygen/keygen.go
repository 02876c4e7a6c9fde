// Package keygen drives RSA key generation: two independent prime searches,
// the modulus and totient, a coprimality check against the public exponent
// and the derivation of the private exponent.
package keygen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"rsagen/internal/entropy"
	"rsagen/internal/modarith"
	"rsagen/internal/prime"
	"rsagen/internal/primality"
)

const (
	DefaultPublicExponent    = 3
	DefaultPrimeBits         = 1024
	DefaultMaxCoprimeRetries = 64

	// Below this many rounds a warning is logged for primes of 512 bits or more.
	recommendedRounds = 20
)

var one = big.NewInt(1)

// Config holds the security knobs of a generation. Every field is explicit;
// DefaultConfig returns the reference values.
type Config struct {
	PublicExponent    *big.Int
	PrimeBits         int
	Rounds            int
	Sampling          primality.Sampling
	MaxPrimeAttempts  int
	MaxCoprimeRetries int
	// Search p and q concurrently. The entropy reader must be safe for
	// concurrent use; readers other than crypto/rand are wrapped with a mutex.
	Parallel bool
}

func DefaultConfig() Config {
	return Config{
		PublicExponent:    big.NewInt(DefaultPublicExponent),
		PrimeBits:         DefaultPrimeBits,
		Rounds:            primality.DefaultRounds,
		Sampling:          primality.SampleUniform,
		MaxPrimeAttempts:  prime.DefaultMaxAttempts,
		MaxCoprimeRetries: DefaultMaxCoprimeRetries,
	}
}

func (c Config) Validate() error {
	switch {
	case c.PublicExponent == nil:
		return fmt.Errorf("%w: public exponent not set", ErrInvalidConfig)
	case c.PublicExponent.Cmp(one) <= 0:
		return fmt.Errorf("%w: public exponent must be greater than 1, got %s", ErrInvalidConfig, c.PublicExponent)
	case c.PublicExponent.Bit(0) == 0:
		// phi(n) is even for odd primes, so an even e is never coprime to it
		return fmt.Errorf("%w: public exponent must be odd, got %s", ErrInvalidConfig, c.PublicExponent)
	case c.PrimeBits <= 0:
		return fmt.Errorf("%w: prime bit length must be positive, got %d", ErrInvalidConfig, c.PrimeBits)
	case c.Rounds <= 0:
		return fmt.Errorf("%w: primality rounds must be positive, got %d", ErrInvalidConfig, c.Rounds)
	case !c.Sampling.Valid():
		return fmt.Errorf("%w: unknown base sampling %s", ErrInvalidConfig, c.Sampling)
	case c.MaxPrimeAttempts <= 0:
		return fmt.Errorf("%w: max prime attempts must be positive, got %d", ErrInvalidConfig, c.MaxPrimeAttempts)
	case c.MaxCoprimeRetries <= 0:
		return fmt.Errorf("%w: max coprime retries must be positive, got %d", ErrInvalidConfig, c.MaxCoprimeRetries)
	}
	return nil
}

// PrimeSource yields probable primes of a bit length. prime.Searcher is the
// production implementation; tests inject fixed primes.
type PrimeSource interface {
	Prime(ctx context.Context, bits int) (*big.Int, error)
}

type Generator struct {
	cfg     Config
	primes  PrimeSource
	entropy io.Reader
	log     zerolog.Logger
}

type Option func(*Generator)

// WithPrimeSource replaces the entropy-backed prime search.
func WithPrimeSource(ps PrimeSource) Option {
	return func(g *Generator) {
		g.primes = ps
	}
}

// WithEntropy sets the byte source used by the default prime search.
func WithEntropy(r io.Reader) Option {
	return func(g *Generator) {
		g.entropy = r
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(g *Generator) {
		g.log = l
	}
}

func New(cfg Config, opts ...Option) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	g := &Generator{
		cfg: cfg,
		log: zerolog.Nop(),
	}
	g.cfg.PublicExponent = new(big.Int).Set(cfg.PublicExponent)
	for _, opt := range opts {
		opt(g)
	}

	if g.primes == nil {
		gen := entropy.System()
		if g.entropy != nil {
			gen = entropy.New(g.entropy)
		}
		if cfg.Parallel {
			gen = entropy.New(entropy.Locked(gen.Reader()))
		}

		tester := primality.New(gen,
			primality.WithRounds(cfg.Rounds),
			primality.WithSampling(cfg.Sampling),
		)
		g.primes = prime.NewSearcher(gen, tester,
			prime.WithMaxAttempts(cfg.MaxPrimeAttempts),
			prime.WithLogger(g.log),
		)
	}

	if cfg.Rounds < recommendedRounds && cfg.PrimeBits >= 512 {
		g.log.Warn().
			Int("rounds", cfg.Rounds).
			Int("prime_bits", cfg.PrimeBits).
			Msg("primality round count is below what this key size calls for")
	}
	if cfg.PrimeBits%8 != 0 {
		g.log.Warn().
			Int("prime_bits", cfg.PrimeBits).
			Int("actual_bits", (cfg.PrimeBits+7)/8*8).
			Msg("prime bit length is not a multiple of 8, candidates are rounded up to whole bytes")
	}

	return g, nil
}

// Config returns the validated configuration. The returned exponent is a
// copy; mutating it does not affect the generator.
func (g *Generator) Config() Config {
	cfg := g.cfg
	cfg.PublicExponent = new(big.Int).Set(g.cfg.PublicExponent)
	return cfg
}

// Generate runs the state machine until it produces a key or a retry bound
// is hit. The result is all-or-nothing: on error no key material is returned.
func (g *Generator) Generate(ctx context.Context) (*KeyMaterial, error) {
	e := g.cfg.PublicExponent

	var (
		p, q, n, phi *big.Int
		attempts     int
		err          error
	)

	state := StateSearchingPrimes
	for {
		switch state {
		case StateSearchingPrimes:
			if attempts == g.cfg.MaxCoprimeRetries {
				return nil, &RetryError{Stage: StateCheckingCoprimality, Attempts: attempts}
			}
			attempts++

			g.log.Debug().Stringer("state", state).Int("attempt", attempts).Msg("searching primes")
			p, q, err = g.primePair(ctx)
			if err != nil {
				if errors.Is(err, prime.ErrSearchExhausted) {
					return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
				}
				return nil, fmt.Errorf("keygen: %w", err)
			}

			// n = p * q
			n = new(big.Int).Mul(p, q)
			phi = totient(p, q)
			state = StateCheckingCoprimality

		case StateCheckingCoprimality:
			if !modarith.Coprime(e, phi) {
				g.log.Info().
					Int("attempt", attempts).
					Str("e", e.String()).
					Msg("public exponent not coprime to phi(n), re-sampling primes")
				state = StateSearchingPrimes
				continue
			}
			state = StateDerivingKey

		case StateDerivingKey:
			g.log.Debug().Stringer("state", state).Int("attempt", attempts).Msg("deriving private exponent")
			d, err := modarith.ModInverse(e, phi)
			if err != nil {
				return nil, fmt.Errorf("%w: inverse of e modulo phi(n): %w", ErrInconsistent, err)
			}

			km := &KeyMaterial{
				P:        p,
				Q:        q,
				N:        n,
				PhiN:     phi,
				E:        new(big.Int).Set(e),
				D:        d,
				Attempts: attempts,
			}
			if err := km.carmichael(); err != nil {
				return nil, err
			}
			return km, nil
		}
	}
}

// primePair draws p and q independently. No distinctness check is made.
func (g *Generator) primePair(ctx context.Context) (p, q *big.Int, err error) {
	bits := g.cfg.PrimeBits

	if !g.cfg.Parallel {
		if p, err = g.primes.Prime(ctx, bits); err != nil {
			return nil, nil, err
		}
		if q, err = g.primes.Prime(ctx, bits); err != nil {
			return nil, nil, err
		}
		return p, q, nil
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		p, err = g.primes.Prime(ctx, bits)
		return err
	})
	eg.Go(func() error {
		var err error
		q, err = g.primes.Prime(ctx, bits)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}
	return p, q, nil
}

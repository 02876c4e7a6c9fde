package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"rsagen/internal/keygen"
	"rsagen/internal/prime"
	"rsagen/internal/primality"
)

type Config struct {
	// Key generation
	PublicExponent    string // decimal, or hex with a 0x prefix
	PrimeBits         int
	Rounds            int
	Sampling          string // "uniform" or "legacy64"
	MaxPrimeAttempts  int
	MaxCoprimeRetries int
	Parallel          bool

	// Logging
	LogLevel string
	LogFile  string
}

// Load reads a .env file if one exists, then the environment. Malformed
// numbers fall back to their defaults with a warning.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		PublicExponent:    getEnv("RSAGEN_PUBLIC_EXPONENT", strconv.Itoa(keygen.DefaultPublicExponent)),
		PrimeBits:         mustParseInt("RSAGEN_PRIME_BITS", keygen.DefaultPrimeBits),
		Rounds:            mustParseInt("RSAGEN_ROUNDS", primality.DefaultRounds),
		Sampling:          getEnv("RSAGEN_SAMPLING", primality.SampleUniform.String()),
		MaxPrimeAttempts:  mustParseInt("RSAGEN_MAX_PRIME_ATTEMPTS", prime.DefaultMaxAttempts),
		MaxCoprimeRetries: mustParseInt("RSAGEN_MAX_COPRIME_RETRIES", keygen.DefaultMaxCoprimeRetries),
		Parallel:          mustParseBool("RSAGEN_PARALLEL", false),

		LogLevel: getEnv("RSAGEN_LOG_LEVEL", "info"),
		LogFile:  getEnv("RSAGEN_LOG_FILE", ""),
	}
}

// Keygen converts the loaded values into a keygen.Config.
func (c Config) Keygen() (keygen.Config, error) {
	e, err := ParseInt(c.PublicExponent)
	if err != nil {
		return keygen.Config{}, fmt.Errorf("public exponent: %w", err)
	}
	sampling, err := primality.ParseSampling(c.Sampling)
	if err != nil {
		return keygen.Config{}, err
	}

	return keygen.Config{
		PublicExponent:    e,
		PrimeBits:         c.PrimeBits,
		Rounds:            c.Rounds,
		Sampling:          sampling,
		MaxPrimeAttempts:  c.MaxPrimeAttempts,
		MaxCoprimeRetries: c.MaxCoprimeRetries,
		Parallel:          c.Parallel,
	}, nil
}

// ParseInt parses a decimal integer, or a hex one with a 0x prefix.
func ParseInt(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	return n, nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func mustParseInt(key string, defaultVal int) int {
	str := os.Getenv(key)
	if str == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(str)
	if err != nil {
		log.Warn().Str("key", key).Str("value", str).Int("default", defaultVal).Msg("invalid integer, using default")
		return defaultVal
	}
	return i
}

func mustParseBool(key string, defaultVal bool) bool {
	str := os.Getenv(key)
	if str == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(str)
	if err != nil {
		log.Warn().Str("key", key).Str("value", str).Bool("default", defaultVal).Msg("invalid boolean, using default")
		return defaultVal
	}
	return b
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"rsagen/internal/config"
	"rsagen/internal/entropy"
	"rsagen/internal/keygen"
	"rsagen/internal/logger"
	"rsagen/internal/modarith"
	"rsagen/internal/prime"
	"rsagen/internal/primality"
	"rsagen/internal/report"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := newApp(config.Load(), os.Stdout, os.Stderr)
	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(cfg config.Config, stdout, stderr io.Writer) *cli.App {
	seedFlags := []cli.Flag{
		&cli.StringFlag{
			Name:  "seed",
			Usage: "Passphrase for a reproducible entropy stream (testing only)",
		},
		&cli.StringFlag{
			Name:  "salt",
			Usage: "Salt mixed into the --seed passphrase",
			Value: "rsagen",
		},
	}
	primeFlags := []cli.Flag{
		&cli.IntFlag{
			Name:    "rounds",
			Aliases: []string{"k"},
			Usage:   "Miller-Rabin rounds per candidate",
			Value:   cfg.Rounds,
		},
		&cli.StringFlag{
			Name:  "sampling",
			Usage: "Miller-Rabin base sampling: uniform or legacy64",
			Value: cfg.Sampling,
		},
	}

	return &cli.App{
		Name:      "rsagen",
		Usage:     "Generate RSA key material from scratch",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (trace, debug, info, warn, error)",
				Value: cfg.LogLevel,
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Also write logs to this file, rotated",
				Value: cfg.LogFile,
			},
		},
		Before: func(cCtx *cli.Context) error {
			return logger.Init(logger.Options{
				Level: cCtx.String("log-level"),
				File:  cCtx.String("log-file"),
				Out:   cCtx.App.ErrWriter,
			})
		},
		After: func(cCtx *cli.Context) error {
			return logger.Close()
		},
		Commands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "Generate an RSA key pair",
				Flags: concat([]cli.Flag{
					&cli.StringFlag{
						Name:    "exponent",
						Aliases: []string{"e"},
						Usage:   "Public exponent (decimal or 0x-prefixed hex)",
						Value:   cfg.PublicExponent,
					},
					&cli.IntFlag{
						Name:    "bits",
						Aliases: []string{"b"},
						Usage:   "Bit length of each prime",
						Value:   cfg.PrimeBits,
					},
					&cli.IntFlag{
						Name:  "max-prime-attempts",
						Usage: "Candidates drawn per prime before giving up",
						Value: cfg.MaxPrimeAttempts,
					},
					&cli.IntFlag{
						Name:  "max-coprime-retries",
						Usage: "Prime pairs drawn before giving up on coprimality",
						Value: cfg.MaxCoprimeRetries,
					},
					&cli.BoolFlag{
						Name:  "parallel",
						Usage: "Search p and q concurrently",
						Value: cfg.Parallel,
					},
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Append the report to this file",
					},
					&cli.BoolFlag{
						Name:  "hex",
						Usage: "Print numbers in hexadecimal",
					},
				}, primeFlags, seedFlags),
				Action: generateKey,
			},
			{
				Name:  "prime",
				Usage: "Search for a single probable prime",
				Flags: concat([]cli.Flag{
					&cli.IntFlag{
						Name:    "bits",
						Aliases: []string{"b"},
						Usage:   "Bit length of the prime",
						Value:   cfg.PrimeBits,
					},
					&cli.IntFlag{
						Name:  "max-attempts",
						Usage: "Candidates drawn before giving up",
						Value: cfg.MaxPrimeAttempts,
					},
					&cli.BoolFlag{
						Name:  "hex",
						Usage: "Print the prime in hexadecimal",
					},
				}, primeFlags, seedFlags),
				Action: searchPrime,
			},
			{
				Name:      "isprime",
				Usage:     "Run the Miller-Rabin test on a number",
				ArgsUsage: "<n>",
				Flags:     primeFlags,
				Action:    testPrime,
			},
			{
				Name:      "inverse",
				Usage:     "Compute the modular inverse of a modulo m",
				ArgsUsage: "<a> <m>",
				Action:    modInverse,
			},
		},
	}
}

func concat(groups ...[]cli.Flag) []cli.Flag {
	var flags []cli.Flag
	for _, g := range groups {
		flags = append(flags, g...)
	}
	return flags
}

// entropyReader returns the seeded stream when --seed is set, else crypto/rand.
func entropyReader(cCtx *cli.Context) (io.Reader, bool, error) {
	seed := cCtx.String("seed")
	if seed == "" {
		return entropy.System().Reader(), false, nil
	}
	r, err := entropy.NewSeeded(seed, cCtx.String("salt"))
	if err != nil {
		return nil, false, err
	}
	return r, true, nil
}

func testerOptions(cCtx *cli.Context) ([]primality.Option, error) {
	sampling, err := primality.ParseSampling(cCtx.String("sampling"))
	if err != nil {
		return nil, err
	}
	return []primality.Option{
		primality.WithRounds(cCtx.Int("rounds")),
		primality.WithSampling(sampling),
	}, nil
}

func generateKey(cCtx *cli.Context) error {
	cfg := config.Config{
		PublicExponent:    cCtx.String("exponent"),
		PrimeBits:         cCtx.Int("bits"),
		Rounds:            cCtx.Int("rounds"),
		Sampling:          cCtx.String("sampling"),
		MaxPrimeAttempts:  cCtx.Int("max-prime-attempts"),
		MaxCoprimeRetries: cCtx.Int("max-coprime-retries"),
		Parallel:          cCtx.Bool("parallel"),
	}
	kcfg, err := cfg.Keygen()
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	log := logger.Logger.With().Str("run_id", runID).Logger()

	r, seeded, err := entropyReader(cCtx)
	if err != nil {
		return err
	}
	if seeded && kcfg.Parallel {
		return errors.New("--seed and --parallel cannot be combined: parallel search makes the draw order nondeterministic")
	}

	g, err := keygen.New(kcfg, keygen.WithEntropy(r), keygen.WithLogger(log))
	if err != nil {
		return err
	}

	kcfg = g.Config()
	log.Info().
		Int("prime_bits", kcfg.PrimeBits).
		Str("e", kcfg.PublicExponent.String()).
		Int("rounds", kcfg.Rounds).
		Stringer("sampling", kcfg.Sampling).
		Bool("parallel", kcfg.Parallel).
		Bool("seeded", seeded).
		Msg("generating key")

	start := time.Now()
	km, err := g.Generate(cCtx.Context)
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}
	elapsed := time.Since(start)

	log.Info().
		Int("modulus_bits", km.N.BitLen()).
		Int("attempts", km.Attempts).
		Dur("elapsed", elapsed).
		Msg("key generated")

	opts := report.Options{Hex: cCtx.Bool("hex"), Elapsed: elapsed, RunID: runID}
	if err := report.Write(cCtx.App.Writer, km, opts); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if out := cCtx.String("out"); out != "" {
		if err := report.AppendFile(out, km, opts); err != nil {
			return err
		}
		log.Info().Str("path", out).Msg("report appended")
	}
	return nil
}

func searchPrime(cCtx *cli.Context) error {
	r, _, err := entropyReader(cCtx)
	if err != nil {
		return err
	}
	topts, err := testerOptions(cCtx)
	if err != nil {
		return err
	}

	gen := entropy.New(r)
	s := prime.NewSearcher(gen, primality.New(gen, topts...),
		prime.WithMaxAttempts(cCtx.Int("max-attempts")),
		prime.WithLogger(logger.Logger),
	)

	p, err := s.Prime(cCtx.Context, cCtx.Int("bits"))
	if err != nil {
		return fmt.Errorf("failed to find prime: %w", err)
	}

	if cCtx.Bool("hex") {
		fmt.Fprintf(cCtx.App.Writer, "0x%s\n", p.Text(16))
	} else {
		fmt.Fprintln(cCtx.App.Writer, p.String())
	}
	return nil
}

func testPrime(cCtx *cli.Context) error {
	if cCtx.NArg() != 1 {
		return fmt.Errorf("expected exactly one number, got %d arguments", cCtx.NArg())
	}
	n, err := config.ParseInt(cCtx.Args().First())
	if err != nil {
		return err
	}
	topts, err := testerOptions(cCtx)
	if err != nil {
		return err
	}

	ok, err := primality.New(entropy.System(), topts...).ProbablyPrime(n)
	if err != nil {
		return err
	}

	verdict := "composite"
	if ok {
		verdict = "probably prime"
	}
	fmt.Fprintf(cCtx.App.Writer, "%s: %s\n", n, verdict)
	return nil
}

func modInverse(cCtx *cli.Context) error {
	if cCtx.NArg() != 2 {
		return fmt.Errorf("expected <a> <m>, got %d arguments", cCtx.NArg())
	}
	a, err := config.ParseInt(cCtx.Args().Get(0))
	if err != nil {
		return err
	}
	m, err := config.ParseInt(cCtx.Args().Get(1))
	if err != nil {
		return err
	}

	d, err := modarith.ModInverse(a, m)
	if err != nil {
		return fmt.Errorf("inverse of %s mod %s: %w", a, m, err)
	}

	fmt.Fprintln(cCtx.App.Writer, d.String())
	return nil
}

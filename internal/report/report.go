// Package report renders generated key material as text.
package report

import (
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
	"time"

	"rsagen/internal/keygen"
)

type Options struct {
	Hex     bool
	Elapsed time.Duration
	RunID   string
}

// Write prints every component of km to w.
func Write(w io.Writer, km *keygen.KeyMaterial, opts Options) error {
	num := func(n *big.Int) string {
		if n == nil {
			return "-"
		}
		if opts.Hex {
			return "0x" + n.Text(16)
		}
		return n.String()
	}

	var b strings.Builder
	if opts.RunID != "" {
		fmt.Fprintf(&b, "run:\t%s\n", opts.RunID)
	}
	fmt.Fprintf(&b, "first prime (p):\t%s\n", num(km.P))
	fmt.Fprintf(&b, "second prime (q):\t%s\n", num(km.Q))
	nBits := 0
	if km.N != nil {
		nBits = km.N.BitLen()
	}
	fmt.Fprintf(&b, "modulus (n, %d bits):\t%s\n", nBits, num(km.N))
	b.WriteString("-----------------------------\n")
	fmt.Fprintf(&b, "phi(n):\t%s\n", num(km.PhiN))
	fmt.Fprintf(&b, "gcd(p-1, q-1):\t%s\n", num(km.GCDPQ))
	fmt.Fprintf(&b, "lambda(n):\t%s\n", num(km.LambdaN))
	fmt.Fprintf(&b, "public exponent (e):\t%s\n", num(km.E))
	fmt.Fprintf(&b, "private exponent (d):\t%s\n", num(km.D))
	fmt.Fprintf(&b, "private exponent mod lambda(n) (d_lambda):\t%s\n", num(km.DLambda))
	if cmp := Compare(km); cmp != "" {
		fmt.Fprintf(&b, "%s\n", cmp)
	}
	b.WriteString("+++++++++++++++++++++++++++++\n")
	fmt.Fprintf(&b, "prime pairs drawn:\t%d\n", km.Attempts)
	if opts.Elapsed > 0 {
		fmt.Fprintf(&b, "generation time:\t%s\n", opts.Elapsed)
	}
	b.WriteString("=============================\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// Compare describes how d relates to d_lambda.
func Compare(km *keygen.KeyMaterial) string {
	if km.D == nil || km.DLambda == nil {
		return ""
	}
	switch km.D.Cmp(km.DLambda) {
	case 1:
		return "d is greater than d_lambda"
	case -1:
		return "d is less than d_lambda"
	default:
		return "d is equal to d_lambda"
	}
}

// AppendFile appends the report to path, creating it if needed.
func AppendFile(path string, km *keygen.KeyMaterial, opts Options) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open report file: %w", err)
	}

	if err := Write(f, km, opts); err != nil {
		f.Close()
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return f.Close()
}

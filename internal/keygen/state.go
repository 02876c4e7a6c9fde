package keygen

import "fmt"

// State is a step of the key generation state machine.
//
//	SearchingPrimes -> CheckingCoprimality -> DerivingKey
//	       ^                   |
//	       +---- not coprime --+
type State int

const (
	StateSearchingPrimes State = iota
	StateCheckingCoprimality
	StateDerivingKey
)

func (s State) String() string {
	switch s {
	case StateSearchingPrimes:
		return "searching_primes"
	case StateCheckingCoprimality:
		return "checking_coprimality"
	case StateDerivingKey:
		return "deriving_key"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

package consensus

import (
	"errors"
	"fmt"

	"go.melnet.tech/stf/types"
)

// Errors returned when a batch of transactions is invalid.
var (
	ErrDuplicateTx     = errors.New("duplicate transaction")
	ErrMalformedTx     = errors.New("malformed transaction")
	ErrUnbalancedInOut = errors.New("unbalanced inputs and outputs")
	ErrCoinLocked      = errors.New("coin is locked by an active stake")
	ErrInvalidMelPoW   = errors.New("invalid mint proof")
)

// An InsufficientFeesError is returned when a transaction's fee is below the
// minimum.
type InsufficientFeesError struct {
	Required types.CoinValue
}

func (e *InsufficientFeesError) Error() string {
	return fmt.Sprintf("insufficient fees: at least %d required", e.Required)
}

// A NonexistentCoinError is returned when a transaction spends a coin that
// does not exist.
type NonexistentCoinError struct {
	ID types.CoinID
}

func (e *NonexistentCoinError) Error() string {
	return fmt.Sprintf("nonexistent coin %v", e.ID)
}

// A NonexistentScriptError is returned when a transaction spends a coin
// without supplying the covenant matching the coin's covenant hash.
type NonexistentScriptError struct {
	Hash types.Address
}

func (e *NonexistentScriptError) Error() string {
	return fmt.Sprintf("missing covenant for %v", e.Hash)
}

// A ViolatesScriptError is returned when a covenant does not authorize a
// spend, or faults while evaluating it.
type ViolatesScriptError struct {
	Hash types.Address
}

func (e *ViolatesScriptError) Error() string {
	return fmt.Sprintf("spend violates covenant %v", e.Hash)
}

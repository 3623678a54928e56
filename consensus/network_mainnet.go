package consensus

import "go.melnet.tech/stf/types"

// Economic constants shared by all networks.
const (
	// StakeEpoch is the number of blocks in a staking epoch.
	StakeEpoch = 200000

	// mainnetMinDoscAge is the minimum age, in blocks, of the coin a mint
	// proof is bound to. Shorter intervals cannot be timed reliably.
	mainnetMinDoscAge = 100

	// legacyStakeHeight is the height below which stake transactions on the
	// public networks are accepted without being checked or registered.
	legacyStakeHeight = 500000
)

// A Network specifies the fixed parameters of a ledger: its identity, and the
// heights at which rule changes activate.
type Network struct {
	ID types.NetID `json:"id"`

	// MinDoscAge is the minimum age of a mint proof's input coin.
	MinDoscAge uint64 `json:"minDoscAge"`
	// LegacyStakeHeight disables stake validation below the given height.
	LegacyStakeHeight uint64 `json:"legacyStakeHeight"`

	// TIP-901 changes the fee multiplier adjustment.
	Tip901 struct {
		Height uint64 `json:"height"`
	} `json:"tip901"`
	// TIP-906 tracks the number of coins held by each covenant hash.
	Tip906 struct {
		Height uint64 `json:"height"`
	} `json:"tip906"`
	// TIP-910 adds the SHA3 mint proof scheme and revises the reward curve.
	Tip910 struct {
		Height uint64 `json:"height"`
	} `json:"tip910"`
}

// Mainnet returns the parameters of the production network.
func Mainnet() *Network {
	n := &Network{
		ID:                types.NetIDMainnet,
		MinDoscAge:        mainnetMinDoscAge,
		LegacyStakeHeight: legacyStakeHeight,
	}
	n.Tip901.Height = 42700
	n.Tip906.Height = 900000
	n.Tip910.Height = 1400000
	return n
}

// Custom returns the parameters of a private network. All rule changes are
// active from genesis, and mint proofs have no minimum age.
func Custom(id types.NetID) *Network {
	return &Network{ID: id}
}

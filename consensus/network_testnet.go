package consensus

import "go.melnet.tech/stf/types"

// Testnet returns the parameters of the public test network. Mint proofs
// have no minimum age there, so that they can be exercised at low heights.
func Testnet() *Network {
	n := &Network{
		ID:                types.NetIDTestnet,
		LegacyStakeHeight: legacyStakeHeight,
	}
	n.Tip901.Height = 0
	n.Tip906.Height = 148000
	n.Tip910.Height = 500000
	return n
}

package wallet

import (
	"go.melnet.tech/stf/melvm"
	"go.melnet.tech/stf/types"
)

// StandardCovenant returns the standard covenant for a single Ed25519 key.
func StandardCovenant(pub types.PublicKey) melvm.Covenant {
	return melvm.StdEd25519PK(pub)
}

// StandardAddress returns the standard address for an Ed25519 key.
func StandardAddress(pub types.PublicKey) types.Address {
	return StandardCovenant(pub).Hash()
}

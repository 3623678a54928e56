package melvm

import "go.melnet.tech/stf/types"

// Heap slots holding the read-only bindings of a spend.
const (
	BindTransaction uint16 = iota
	BindTxHash
	BindParentID
	BindParentData
	BindHeight
	BindSpenderIndex
	BindLastHeader
)

// CovenantEnv is the context in which a coin is spent.
type CovenantEnv struct {
	ParentID     types.CoinID
	ParentCDH    types.CoinDataHeight
	SpenderIndex uint8
	// Height is the height of the ledger state the spend is applied to.
	Height     uint64
	LastHeader types.Header
}

// Bindings returns the values bound for covenants evaluated against txn in
// env, indexed by heap slot.
func (env CovenantEnv) Bindings(txn *types.Transaction) []Value {
	return []Value{
		BindTransaction:  TransactionValue(txn),
		BindTxHash:       hashValue(txn.HashNoSigs()),
		BindParentID:     coinIDValue(env.ParentID),
		BindParentData:   coinDataHeightValue(env.ParentCDH),
		BindHeight:       NewInt(env.Height),
		BindSpenderIndex: NewInt(uint64(env.SpenderIndex)),
		BindLastHeader:   HeaderValue(env.LastHeader),
	}
}

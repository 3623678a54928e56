package wallet

import (
	"testing"

	"go.melnet.tech/stf/melvm"
	"go.melnet.tech/stf/types"
	"lukechampine.com/frand"
)

func TestStandardCovenant(t *testing.T) {
	key := types.GeneratePrivateKey()
	c := StandardCovenant(key.PublicKey())
	if StandardAddress(key.PublicKey()) != c.Hash() {
		t.Fatal("address does not match covenant hash")
	} else if StandardAddress(types.GeneratePrivateKey().PublicKey()) == c.Hash() {
		t.Fatal("distinct keys share an address")
	}

	txn := types.Transaction{Data: frand.Bytes(16), Covenants: [][]byte{c}}
	env := melvm.CovenantEnv{}
	if c.Check(&txn, env) {
		t.Fatal("unsigned transaction accepted")
	}
	txn.SignEd25519(key)
	if !c.Check(&txn, env) {
		t.Fatal("signed transaction rejected")
	}
	h := txn.HashNoSigs()
	txn.Sigs[0] = types.GeneratePrivateKey().SignMessage(h[:])
	if c.Check(&txn, env) {
		t.Fatal("transaction signed by wrong key accepted")
	}
}

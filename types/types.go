// Package types defines the essential types of the ledger.
package types

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"lukechampine.com/frand"
)

const (
	// MaxInputs is the maximum number of inputs a transaction may spend.
	MaxInputs = 255

	// MaxOutputs is the maximum number of outputs a transaction may create.
	// Output indices must fit in a CoinID's uint8 index.
	MaxOutputs = 255

	// MaxCovenants is the maximum number of covenants a transaction may carry.
	MaxCovenants = 255

	// MaxCovenantSize is the maximum encoded size of a single covenant.
	MaxCovenantSize = 65536

	// MaxAdditionalData is the maximum size of a coin's additional data.
	MaxAdditionalData = 16384

	// MaxTxData is the maximum size of a transaction's opaque payload.
	MaxTxData = 1 << 20
)

// A Hash256 is a generic 256-bit cryptographic hash.
type Hash256 [32]byte

// A TxHash is the hash of a transaction with its signatures stripped.
type TxHash Hash256

// An Address is the hash of a covenant script. Coins are locked to the
// Address of the covenant that must authorize their spending.
type Address Hash256

// CoinDestroyAddress is the designated burn destination. Outputs sent to it
// are never inserted into the coin set.
var CoinDestroyAddress Address

// A PublicKey is an Ed25519 public key.
type PublicKey [32]byte

// VerifyMessage verifies that sig is a valid signature of msg by pk.
func (pk PublicKey) VerifyMessage(msg, sig []byte) bool {
	return len(sig) == ed25519.SignatureSize && ed25519.Verify(pk[:], msg, sig)
}

// A PrivateKey is an Ed25519 private key.
type PrivateKey []byte

// PublicKey returns the PublicKey corresponding to priv.
func (priv PrivateKey) PublicKey() (pk PublicKey) {
	copy(pk[:], priv[32:])
	return
}

// SignMessage signs msg with priv.
func (priv PrivateKey) SignMessage(msg []byte) []byte {
	return ed25519.Sign(ed25519.PrivateKey(priv), msg)
}

// NewPrivateKeyFromSeed calculates a private key from a seed.
func NewPrivateKeyFromSeed(seed []byte) PrivateKey {
	return PrivateKey(ed25519.NewKeyFromSeed(seed))
}

// GeneratePrivateKey creates a new private key from a secure entropy source.
func GeneratePrivateKey() PrivateKey {
	seed := make([]byte, ed25519.SeedSize)
	frand.Read(seed)
	pk := NewPrivateKeyFromSeed(seed)
	for i := range seed {
		seed[i] = 0
	}
	return pk
}

// A NetID identifies a ledger network.
type NetID uint8

// Known networks.
const (
	NetIDTestnet  NetID = 0x01
	NetIDCustom02 NetID = 0x02
	NetIDCustom03 NetID = 0x03
	NetIDCustom04 NetID = 0x04
	NetIDCustom05 NetID = 0x05
	NetIDCustom06 NetID = 0x06
	NetIDCustom07 NetID = 0x07
	NetIDCustom08 NetID = 0x08
	NetIDMainnet  NetID = 0xff
)

// String implements fmt.Stringer.
func (n NetID) String() string {
	switch n {
	case NetIDMainnet:
		return "mainnet"
	case NetIDTestnet:
		return "testnet"
	default:
		return fmt.Sprintf("custom%02d", uint8(n))
	}
}

// A TxKind distinguishes the consensus rules a transaction is subject to.
type TxKind uint8

// Transaction kinds. Swap and liquidity kinds are reserved; they pass through
// the special-rule pass unchecked.
const (
	TxKindNormal        TxKind = 0x00
	TxKindStake         TxKind = 0x10
	TxKindDoscMint      TxKind = 0x50
	TxKindSwap          TxKind = 0x51
	TxKindLiqDeposit    TxKind = 0x52
	TxKindLiqWithdrawal TxKind = 0x53
	TxKindFaucet        TxKind = 0xff
)

// String implements fmt.Stringer.
func (k TxKind) String() string {
	switch k {
	case TxKindNormal:
		return "Normal"
	case TxKindStake:
		return "Stake"
	case TxKindDoscMint:
		return "DoscMint"
	case TxKindSwap:
		return "Swap"
	case TxKindLiqDeposit:
		return "LiqDeposit"
	case TxKindLiqWithdrawal:
		return "LiqWithdrawal"
	case TxKindFaucet:
		return "Faucet"
	default:
		return fmt.Sprintf("TxKind(%#x)", uint8(k))
	}
}

// A DenomKind is the unit family of a Denom.
type DenomKind uint8

// Denomination kinds.
const (
	DenomKindMel DenomKind = iota
	DenomKindSym
	DenomKindErg
	DenomKindNewCoin
	DenomKindCustom
)

// A Denom is the unit a coin's value is measured in. Denom is comparable and
// may be used as a map key.
type Denom struct {
	Kind DenomKind
	// TxHash is the defining transaction of a custom denomination. It is the
	// zero hash for every other kind.
	TxHash TxHash
}

// Fixed denominations.
var (
	// DenomMel is the native unit in which fees are paid.
	DenomMel = Denom{Kind: DenomKindMel}
	// DenomSym is the staking unit.
	DenomSym = Denom{Kind: DenomKindSym}
	// DenomErg is the unit minted by proof-of-work.
	DenomErg = Denom{Kind: DenomKindErg}
	// DenomNewCoin marks outputs that create a new custom denomination. It is
	// replaced by CustomDenom(txhash) when the outputs are applied.
	DenomNewCoin = Denom{Kind: DenomKindNewCoin}
)

// CustomDenom returns the custom denomination defined by the transaction h.
func CustomDenom(h TxHash) Denom {
	return Denom{Kind: DenomKindCustom, TxHash: h}
}

// String implements fmt.Stringer.
func (d Denom) String() string {
	switch d.Kind {
	case DenomKindMel:
		return "MEL"
	case DenomKindSym:
		return "SYM"
	case DenomKindErg:
		return "ERG"
	case DenomKindNewCoin:
		return "(NEWCUSTOM)"
	case DenomKindCustom:
		return "CUSTOM-" + hex.EncodeToString(d.TxHash[:])
	default:
		return fmt.Sprintf("Denom(%d)", d.Kind)
	}
}

// less orders denominations deterministically.
func (d Denom) less(o Denom) bool {
	if d.Kind != o.Kind {
		return d.Kind < o.Kind
	}
	return bytes.Compare(d.TxHash[:], o.TxHash[:]) < 0
}

// SortedDenoms returns the keys of m in a deterministic order.
func SortedDenoms[V any](m map[Denom]V) []Denom {
	ds := make([]Denom, 0, len(m))
	for d := range m {
		ds = append(ds, d)
	}
	sort.Slice(ds, func(i, j int) bool { return ds[i].less(ds[j]) })
	return ds
}

// A CoinID uniquely identifies an unspent output.
type CoinID struct {
	TxHash TxHash
	Index  uint8
}

// String implements fmt.Stringer.
func (id CoinID) String() string {
	return hex.EncodeToString(id.TxHash[:]) + "-" + strconv.Itoa(int(id.Index))
}

// Compare orders CoinIDs by transaction hash, then by index.
func (id CoinID) Compare(o CoinID) int {
	if c := bytes.Compare(id.TxHash[:], o.TxHash[:]); c != 0 {
		return c
	} else if id.Index < o.Index {
		return -1
	} else if id.Index > o.Index {
		return 1
	}
	return 0
}

// CoinData is the content of an output.
type CoinData struct {
	CovHash        Address   `json:"covhash"`
	Value          CoinValue `json:"value"`
	Denom          Denom     `json:"denom"`
	AdditionalData []byte    `json:"additionalData"`
}

// CoinDataHeight is a CoinData along with the height at which it was created.
type CoinDataHeight struct {
	CoinData CoinData `json:"coinData"`
	Height   uint64   `json:"height"`
}

// A Transaction transfers value between coins, and optionally performs
// additional kind-specific actions.
type Transaction struct {
	Kind      TxKind     `json:"kind"`
	Inputs    []CoinID   `json:"inputs"`
	Outputs   []CoinData `json:"outputs"`
	Fee       CoinValue  `json:"fee"`
	Covenants [][]byte   `json:"covenants"`
	Data      []byte     `json:"data"`
	Sigs      [][]byte   `json:"sigs"`
}

// HashNoSigs returns the hash of the transaction with its signatures stripped.
// This is the transaction's identity: signatures never affect it.
func (txn *Transaction) HashNoSigs() TxHash {
	return TxHash(HashObject(txnSansSigs(*txn)))
}

// OutputCoinID returns the ID of the i'th output of txn.
func (txn *Transaction) OutputCoinID(i int) CoinID {
	return CoinID{TxHash: txn.HashNoSigs(), Index: uint8(i)}
}

// TotalOutputs returns the sum of txn's outputs, per denomination. The fee is
// counted as an output in DenomMel. Sums saturate rather than overflow.
func (txn *Transaction) TotalOutputs() map[Denom]CoinValue {
	totals := map[Denom]CoinValue{DenomMel: txn.Fee}
	for _, out := range txn.Outputs {
		totals[out.Denom] = totals[out.Denom].SaturatingAdd(out.Value)
	}
	return totals
}

// CovenantsAsMap returns txn's covenants keyed by their hash.
func (txn *Transaction) CovenantsAsMap() map[Address][]byte {
	m := make(map[Address][]byte, len(txn.Covenants))
	for _, c := range txn.Covenants {
		m[Address(HashBytes(c))] = c
	}
	return m
}

// IsWellFormed reports whether txn satisfies the structural bounds on its
// fields. It does not consult any ledger state.
func (txn *Transaction) IsWellFormed() bool {
	if len(txn.Inputs) > MaxInputs || len(txn.Outputs) > MaxOutputs || len(txn.Covenants) > MaxCovenants {
		return false
	} else if len(txn.Data) > MaxTxData || txn.Fee.Cmp(MaxCoinValue) > 0 {
		return false
	}
	for _, out := range txn.Outputs {
		if out.Value.Cmp(MaxCoinValue) > 0 || len(out.AdditionalData) > MaxAdditionalData {
			return false
		} else if out.Denom.Kind > DenomKindCustom {
			return false
		} else if out.Denom.Kind != DenomKindCustom && out.Denom.TxHash != (TxHash{}) {
			return false
		}
	}
	for _, c := range txn.Covenants {
		if len(c) > MaxCovenantSize {
			return false
		}
	}
	return true
}

// SignEd25519 signs the transaction's hash with key and appends the signature.
func (txn *Transaction) SignEd25519(key PrivateKey) {
	h := txn.HashNoSigs()
	txn.Sigs = append(txn.Sigs, key.SignMessage(h[:]))
}

// A StakeDoc describes a quantity of the staking unit locked for an epoch
// range.
type StakeDoc struct {
	Pubkey PublicKey `json:"pubkey"`
	// EStart is the epoch at which the stake starts counting.
	EStart uint64 `json:"eStart"`
	// EPostEnd is the first epoch at which the stake no longer counts.
	EPostEnd   uint64    `json:"ePostEnd"`
	SymsStaked CoinValue `json:"symsStaked"`
}

// A Header commits to the state of the ledger at a particular height.
type Header struct {
	Network          NetID     `json:"network"`
	Previous         Hash256   `json:"previous"`
	Height           uint64    `json:"height"`
	HistoryHash      Hash256   `json:"historyHash"`
	CoinsHash        Hash256   `json:"coinsHash"`
	TransactionsHash Hash256   `json:"transactionsHash"`
	FeePool          CoinValue `json:"feePool"`
	FeeMultiplier    uint64    `json:"feeMultiplier"`
	DoscSpeed        uint64    `json:"doscSpeed"`
	StakesHash       Hash256   `json:"stakesHash"`
}

// Hash returns the hash of the header.
func (h Header) Hash() Hash256 {
	return HashObject(h)
}

// Implementations of fmt.Stringer, encoding.Text(Un)marshaler, and json.(Un)marshaler

func stringerHex(prefix string, data []byte) string {
	return prefix + ":" + hex.EncodeToString(data[:])
}

func marshalHex(prefix string, data []byte) ([]byte, error) {
	return []byte(stringerHex(prefix, data)), nil
}

func unmarshalHex(dst []byte, prefix string, data []byte) error {
	data = bytes.TrimPrefix(data, []byte(prefix+":"))
	if hex.DecodedLen(len(data)) != len(dst) {
		return fmt.Errorf("decoding %v:<hex> failed: %w", prefix, io.ErrUnexpectedEOF)
	}
	n, err := hex.Decode(dst, data)
	if n < len(dst) {
		err = io.ErrUnexpectedEOF
	}
	if err != nil {
		return fmt.Errorf("decoding %v:<hex> failed: %w", prefix, err)
	}
	return nil
}

// String implements fmt.Stringer.
func (h Hash256) String() string { return stringerHex("h", h[:]) }

// MarshalText implements encoding.TextMarshaler.
func (h Hash256) MarshalText() ([]byte, error) { return marshalHex("h", h[:]) }

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash256) UnmarshalText(b []byte) error { return unmarshalHex(h[:], "h", b) }

// String implements fmt.Stringer.
func (h TxHash) String() string { return stringerHex("txn", h[:]) }

// MarshalText implements encoding.TextMarshaler.
func (h TxHash) MarshalText() ([]byte, error) { return marshalHex("txn", h[:]) }

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *TxHash) UnmarshalText(b []byte) error { return unmarshalHex(h[:], "txn", b) }

// String implements fmt.Stringer.
func (a Address) String() string { return stringerHex("addr", a[:]) }

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) { return marshalHex("addr", a[:]) }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(b []byte) error { return unmarshalHex(a[:], "addr", b) }

// ParseAddress parses an address from a prefixed hex encoded string.
func ParseAddress(s string) (a Address, err error) {
	err = a.UnmarshalText([]byte(s))
	return
}

// String implements fmt.Stringer.
func (pk PublicKey) String() string { return stringerHex("ed25519", pk[:]) }

// MarshalText implements encoding.TextMarshaler.
func (pk PublicKey) MarshalText() ([]byte, error) { return marshalHex("ed25519", pk[:]) }

// UnmarshalText implements encoding.TextUnmarshaler.
func (pk *PublicKey) UnmarshalText(b []byte) error { return unmarshalHex(pk[:], "ed25519", b) }

// MarshalText implements encoding.TextMarshaler.
func (d Denom) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Denom) UnmarshalText(b []byte) error {
	switch s := string(b); s {
	case "MEL":
		*d = DenomMel
	case "SYM":
		*d = DenomSym
	case "ERG":
		*d = DenomErg
	case "(NEWCUSTOM)":
		*d = DenomNewCoin
	default:
		var h TxHash
		if !strings.HasPrefix(s, "CUSTOM-") {
			return fmt.Errorf("unknown denomination %q", s)
		} else if hex.DecodedLen(len(s)-len("CUSTOM-")) != len(h) {
			return fmt.Errorf("invalid custom denomination %q", s)
		} else if n, err := hex.Decode(h[:], b[len("CUSTOM-"):]); err != nil || n != len(h) {
			return fmt.Errorf("invalid custom denomination %q", s)
		}
		*d = CustomDenom(h)
	}
	return nil
}

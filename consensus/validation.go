package consensus

import (
	"go.melnet.tech/stf/melmint"
	"go.melnet.tech/stf/melpow"
	"go.melnet.tech/stf/types"
	"go.uber.org/zap"
)

// DoscMintData is the payload of a mint transaction: a proof of sequential
// work at the claimed difficulty.
type DoscMintData struct {
	Difficulty uint32
	Proof      []byte
}

// EncodeTo implements types.EncoderTo.
func (dm DoscMintData) EncodeTo(e *types.Encoder) {
	e.WriteUint32(dm.Difficulty)
	e.WriteBytes(dm.Proof)
}

// DecodeFrom implements types.DecoderFrom.
func (dm *DoscMintData) DecodeFrom(d *types.Decoder) {
	dm.Difficulty = d.ReadUint32()
	dm.Proof = d.ReadBytes()
}

// DoscMintChallenge returns the puzzle seed for a mint proof spending the coin
// id, created in the block with the given header.
func DoscMintChallenge(parent types.Header, id types.CoinID) []byte {
	h := parent.Hash()
	chi := types.HashKeyed(h[:], types.EncodeBytes(id))
	return chi[:]
}

func (h *StateHandle) validateDoscMint(txn *types.Transaction) error {
	s := h.state
	if len(txn.Inputs) == 0 {
		return ErrMalformedTx
	}
	id := txn.Inputs[0]
	cdh, ok := h.coins.Get(id)
	if !ok || cdh.Height > s.Height {
		return ErrMalformedTx
	}
	age := s.Height - cdh.Height
	if age == 0 || age < s.Network.MinDoscAge {
		h.log.Warn("rejecting mint of recent coin", zap.Stringer("coin", id), zap.Uint64("age", age))
		return ErrInvalidMelPoW
	}
	parent, ok := s.Store.Header(cdh.Height)
	if !ok {
		return ErrMalformedTx
	}
	chi := DoscMintChallenge(parent, id)

	var data DoscMintData
	if err := types.DecodeBytes(txn.Data, &data); err != nil {
		h.log.Warn("rejecting mint with malformed payload", zap.Error(err))
		return ErrMalformedTx
	}
	proof, err := melpow.ProofFromBytes(data.Proof)
	if err != nil {
		h.log.Warn("rejecting mint with malformed proof", zap.Error(err))
		return ErrMalformedTx
	} else if data.Difficulty > melpow.MaxDifficulty {
		return ErrInvalidMelPoW
	}
	difficulty := int(data.Difficulty)

	var tip910 bool
	switch {
	case proof.Verify(chi, difficulty, melpow.LegacyHash):
	case s.tip910() && proof.Verify(chi, difficulty, melpow.SHA3Hash):
		tip910 = true
	default:
		return ErrInvalidMelPoW
	}

	mySpeed := (uint64(1) << data.Difficulty) / age
	var prevSpeed uint64
	if s.Height > 0 {
		if prev, ok := s.Store.Header(s.Height - 1); ok {
			prevSpeed = prev.DoscSpeed
		}
	}
	reward := melmint.CalculateReward(mySpeed, prevSpeed, data.Difficulty, tip910)
	h.mu.Lock()
	h.doscSpeed = max(h.doscSpeed, mySpeed)
	h.mu.Unlock()

	nominal := melmint.DoscToErg(s.Height, reward)
	if minted := txn.TotalOutputs()[types.DenomErg]; minted.Cmp(nominal) > 0 {
		h.log.Warn("rejecting mint exceeding reward",
			zap.Stringer("minted", minted),
			zap.Stringer("reward", nominal))
		return ErrInvalidMelPoW
	}
	return nil
}

// legacyStakeRules reports whether stake transactions at the state's height are
// accepted unconditionally, as they were before stake validation was enforced.
func (s *State) legacyStakeRules() bool {
	id := s.Network.ID
	return (id == types.NetIDMainnet || id == types.NetIDTestnet) && s.Height < s.Network.LegacyStakeHeight
}

func (h *StateHandle) validateStake(txn *types.Transaction) error {
	s := h.state
	var sd types.StakeDoc
	if err := types.DecodeBytes(txn.Data, &sd); err != nil {
		return ErrMalformedTx
	} else if len(txn.Outputs) == 0 {
		return ErrMalformedTx
	}
	if s.legacyStakeRules() {
		h.log.Warn("accepting unchecked stake under legacy rules", zap.Uint64("height", s.Height))
		return nil
	}
	first := txn.Outputs[0]
	if first.Denom != types.DenomSym {
		return ErrMalformedTx
	}
	txid := txn.HashNoSigs()
	if sd.EStart > s.Epoch() && sd.EPostEnd > sd.EStart && sd.SymsStaked == first.Value {
		h.stakes.Set(txid, sd)
		h.log.Info("registered stake",
			zap.Stringer("txid", txid),
			zap.Stringer("pubkey", sd.Pubkey),
			zap.Uint64("eStart", sd.EStart),
			zap.Uint64("ePostEnd", sd.EPostEnd))
		return nil
	}
	h.log.Warn("ignoring invalid stake", zap.Stringer("txid", txid))
	return nil
}

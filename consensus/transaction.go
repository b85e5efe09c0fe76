package consensus

import (
	"crypto/sha256"
	"encoding/binary"
)

// TxType enumerates the transaction kinds of §3.1.
type TxType uint8

const (
	TxCoinGeneration TxType = 0
	TxSeed           TxType = 1
	TxStandard       TxType = 2
	TxCycle          TxType = 3
	TxCycleSignature TxType = 4
)

func (t TxType) Valid() bool {
	switch t {
	case TxCoinGeneration, TxSeed, TxStandard, TxCycle, TxCycleSignature:
		return true
	default:
		return false
	}
}

// CycleVote is one voter's signature over a Cycle/CycleSignature transaction
// (§3.1 "Cycle-typed transactions carry additional per-voter signature
// maps"). The cycle supermajority over a transaction's voter set is what
// promotes it from pending to approved in executor bookkeeping (§4.2 step 7).
type CycleVote struct {
	Voter     Identifier
	Signature Signature
}

// Transaction is the value-bearing record of §3.1.
type Transaction struct {
	Type               TxType
	Timestamp          int64
	Amount             int64
	ReceiverID         Identifier
	SenderID           Identifier // zero for CoinGeneration
	SenderData         []byte     // 0..32 bytes
	PreviousHashHeight uint64
	PreviousBlockHash  Hash
	Signature          Signature // zero for CoinGeneration

	// CycleSignatures carries the per-voter signature set for Cycle and
	// CycleSignature transactions; empty for all other types.
	CycleSignatures []CycleVote
}

// cycleTxFeeAmount is the type-specific fee schedule for Cycle transactions (§3.1).
// A Cycle transaction moves cycle-account funds and is charged the standard
// minimum fee; a CycleSignature transaction only appends a voter signature
// to an existing pending transaction and carries no fee of its own.
const cycleTxFeeAmount = 1

// Fee computes the transaction fee per §3.1: max(1, amount/400) for
// Standard and Seed, zero for CoinGeneration, and the Cycle fee schedule for
// Cycle/CycleSignature types.
func (tx *Transaction) Fee() int64 {
	switch tx.Type {
	case TxCoinGeneration:
		return 0
	case TxStandard, TxSeed:
		f := tx.Amount / 400
		if f < 1 {
			f = 1
		}
		return f
	case TxCycle:
		return cycleTxFeeAmount
	case TxCycleSignature:
		return 0
	default:
		return 0
	}
}

// TypeAllowedAtHeight reports whether a transaction of type t may appear in
// a block at the given height under the given blockchain_version (§3.1,
// §4.3 step 3): CoinGeneration only at height 0, Seed only below the
// published cutoff height, Cycle/CycleSignature only from version >= 2.
func TypeAllowedAtHeight(t TxType, height uint64, version uint16) bool {
	switch t {
	case TxCoinGeneration:
		return height == 0
	case TxSeed:
		return height < SeedTxCutoffHeight
	case TxStandard:
		return true
	case TxCycle, TxCycleSignature:
		return version >= 2
	default:
		return false
	}
}

// SigningBody returns the canonical bytes signed by SenderID (§3.1):
// type ‖ timestamp ‖ amount ‖ receiver_id ‖ previous_block_hash ‖ sender_id ‖
// sha256(sender_data). The signature itself is not part of the body.
func (tx *Transaction) SigningBody() []byte {
	senderDataHash := sha256.Sum256(tx.SenderData)

	out := make([]byte, 0, 1+8+8+32+32+32+32)
	out = append(out, byte(tx.Type))

	var tmp8 [8]byte
	binary.BigEndian.PutUint64(tmp8[:], uint64(tx.Timestamp))
	out = append(out, tmp8[:]...)

	binary.BigEndian.PutUint64(tmp8[:], uint64(tx.Amount))
	out = append(out, tmp8[:]...)

	out = append(out, tx.ReceiverID[:]...)
	out = append(out, tx.PreviousBlockHash[:]...)
	out = append(out, tx.SenderID[:]...)
	out = append(out, senderDataHash[:]...)
	return out
}

// ChainHashLookup resolves the block hash recorded at a given height, as
// observed by the validating peer at the time of validation (§3.1
// "previous_block_hash must equal the stored hash at that height at
// validation time").
type ChainHashLookup func(height uint64) (Hash, bool)

// ValidateStatic checks the static validity rules of §3.1 that do not
// require a balance snapshot: type/height/version compatibility, signature,
// previous-hash binding, and sender_data length. Balance sufficiency and
// dust rules are enforced later by TxAdmission (§4.3).
func (tx *Transaction) ValidateStatic(height uint64, version uint16, scheme SignatureScheme, lookup ChainHashLookup) error {
	if !tx.Type.Valid() {
		return invalidErr(ErrTypeForHeight, "unknown transaction type")
	}
	if !TypeAllowedAtHeight(tx.Type, height, version) {
		return invalidErr(ErrTypeForHeight, "type not allowed at this height/version")
	}
	if len(tx.SenderData) > 32 {
		return invalidErr(ErrSenderData, "sender_data exceeds 32 bytes")
	}
	if tx.Type != TxCoinGeneration {
		if scheme == nil || !scheme.Verify(tx.Signature, tx.SigningBody(), tx.SenderID) {
			return invalidErr(ErrSignature, "signature does not verify")
		}
	}
	if lookup != nil {
		stored, ok := lookup(tx.PreviousHashHeight)
		if !ok || stored != tx.PreviousBlockHash {
			return invalidErr(ErrPreviousHash, "previous_block_hash does not match chain")
		}
	}
	return nil
}

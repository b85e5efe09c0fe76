package consensus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransactionFeeSchedule(t *testing.T) {
	std := &Transaction{Type: TxStandard, Amount: 1000}
	require.Equal(t, int64(2), std.Fee())

	dustAmount := &Transaction{Type: TxStandard, Amount: 1}
	require.Equal(t, int64(1), dustAmount.Fee(), "fee never rounds below 1 micro-unit")

	coinGen := &Transaction{Type: TxCoinGeneration, Amount: TotalSupply}
	require.Equal(t, int64(0), coinGen.Fee())

	cycle := &Transaction{Type: TxCycle, Amount: 500}
	require.Equal(t, int64(1), cycle.Fee())

	cycleSig := &Transaction{Type: TxCycleSignature}
	require.Equal(t, int64(0), cycleSig.Fee())
}

func TestTypeAllowedAtHeight(t *testing.T) {
	require.True(t, TypeAllowedAtHeight(TxCoinGeneration, 0, 0))
	require.False(t, TypeAllowedAtHeight(TxCoinGeneration, 1, 0))

	require.True(t, TypeAllowedAtHeight(TxSeed, SeedTxCutoffHeight-1, 0))
	require.False(t, TypeAllowedAtHeight(TxSeed, SeedTxCutoffHeight, 0))

	require.True(t, TypeAllowedAtHeight(TxStandard, 1_000_000_000, 5))

	require.False(t, TypeAllowedAtHeight(TxCycle, 10, 1))
	require.True(t, TypeAllowedAtHeight(TxCycle, 10, 2))
}

func TestValidateStaticRejectsBadSignature(t *testing.T) {
	sender := idFromByte(1)
	tx := &Transaction{
		Type:       TxStandard,
		Timestamp:  1,
		Amount:     10,
		ReceiverID: idFromByte(2),
		SenderID:   sender,
	}
	wrong := idFromByte(9)
	signTx(tx, wrong[:]) // wrong secret

	err := tx.ValidateStatic(100, 0, fakeScheme{}, nil)
	require.Error(t, err)
	require.Equal(t, ErrSignature, Code(err))
}

func TestValidateStaticAcceptsGoodSignature(t *testing.T) {
	sender := idFromByte(1)
	tx := &Transaction{
		Type:       TxStandard,
		Timestamp:  1,
		Amount:     10,
		ReceiverID: idFromByte(2),
		SenderID:   sender,
	}
	signTx(tx, sender[:])

	err := tx.ValidateStatic(100, 0, fakeScheme{}, nil)
	require.NoError(t, err)
}

func TestValidateStaticEnforcesPreviousHashBinding(t *testing.T) {
	sender := idFromByte(1)
	want := DoubleSHA256([]byte("chain-tip"))
	tx := &Transaction{
		Type:               TxStandard,
		Timestamp:          1,
		Amount:             10,
		ReceiverID:         idFromByte(2),
		SenderID:           sender,
		PreviousHashHeight: 50,
		PreviousBlockHash:  DoubleSHA256([]byte("stale")),
	}
	signTx(tx, sender[:])

	lookup := func(height uint64) (Hash, bool) {
		if height == 50 {
			return want, true
		}
		return Hash{}, false
	}

	err := tx.ValidateStatic(100, 0, fakeScheme{}, lookup)
	require.Error(t, err)
	require.Equal(t, ErrPreviousHash, Code(err))
}

func TestValidateStaticRejectsOversizeSenderData(t *testing.T) {
	sender := idFromByte(1)
	tx := &Transaction{
		Type:       TxStandard,
		ReceiverID: idFromByte(2),
		SenderID:   sender,
		SenderData: make([]byte, 33),
	}
	signTx(tx, sender[:])

	err := tx.ValidateStatic(1, 0, fakeScheme{}, nil)
	require.Error(t, err)
	require.Equal(t, ErrSenderData, Code(err))
}

func TestTransactionEncodeDecodeRoundTrip(t *testing.T) {
	tx := &Transaction{
		Type:               TxCycle,
		Timestamp:          123,
		Amount:             456,
		ReceiverID:         idFromByte(2),
		SenderID:           idFromByte(1),
		SenderData:         []byte("hello"),
		PreviousHashHeight: 7,
		PreviousBlockHash:  DoubleSHA256([]byte("p")),
		CycleSignatures: []CycleVote{
			{Voter: idFromByte(3), Signature: Signature{1, 2, 3}},
		},
	}
	signTx(tx, tx.SenderID[:])

	encoded := tx.Encode()
	decoded, n, err := DecodeTransaction(encoded)
	require.NoError(t, err)
	require.Equal(t, len(encoded), n)
	require.Equal(t, tx.Type, decoded.Type)
	require.Equal(t, tx.Timestamp, decoded.Timestamp)
	require.Equal(t, tx.Amount, decoded.Amount)
	require.Equal(t, tx.ReceiverID, decoded.ReceiverID)
	require.Equal(t, tx.SenderID, decoded.SenderID)
	require.Equal(t, tx.SenderData, decoded.SenderData)
	require.Equal(t, tx.PreviousBlockHash, decoded.PreviousBlockHash)
	require.Equal(t, tx.Signature, decoded.Signature)
	require.Equal(t, tx.CycleSignatures, decoded.CycleSignatures)
}

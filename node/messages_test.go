package node

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nyzo.dev/verifier/consensus"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	e := Envelope{Type: MessageVote, Payload: []byte("hello")}
	raw := e.Encode()
	got, n, err := DecodeEnvelope(raw)
	require.NoError(t, err)
	require.Equal(t, len(raw), n)
	require.Equal(t, e, got)
}

func TestVoteMessageSignVerifyRoundTrip(t *testing.T) {
	voter := idFromByte(7)
	m := VoteMessage{Height: 42, CandidateHash: consensus.Hash{9}, Voter: voter, TimestampMs: 1000}
	require.NoError(t, m.Sign(fakeScheme{}, voter[:]))
	require.True(t, m.Verify(fakeScheme{}))

	raw := m.Encode()
	got, err := DecodeVoteMessage(raw)
	require.NoError(t, err)
	require.Equal(t, m, got)
}

func TestMissingRequestRoundTrip(t *testing.T) {
	r := MissingRequest{FromHeight: 100, Limit: 50}
	got, err := DecodeMissingRequest(r.Encode())
	require.NoError(t, err)
	require.Equal(t, r, got)
}

func TestMissingResponseRoundTrip(t *testing.T) {
	signer := idFromByte(1)
	b := &consensus.Block{Height: 1, SignerID: signer}
	require.NoError(t, b.Sign(fakeScheme{}, signer[:]))
	r := MissingResponse{Blocks: []*consensus.Block{b}}

	got, err := DecodeMissingResponse(r.Encode())
	require.NoError(t, err)
	require.Len(t, got.Blocks, 1)
	require.Equal(t, b.Hash(), got.Blocks[0].Hash())
}

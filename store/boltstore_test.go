package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nyzo.dev/verifier/consensus"
)

func TestBoltStorePutGetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, "deadbeef")
	require.NoError(t, err)
	defer s.Close()

	cfg := GenesisConfig{
		StartTimestampMs: 1_700_000_000_000,
		SignerID:         consensus.Identifier{1},
		InitialHolder:    consensus.Identifier{2},
	}
	block, snapshot := BuildGenesis(cfg)
	require.NoError(t, block.Sign(testScheme{}, cfg.SignerID[:]))
	tracker := consensus.NewGenesisCycleTracker().Next(cfg.SignerID)

	require.NoError(t, s.PutBlock(0, block, snapshot, tracker))

	gotBlock, ok, err := s.GetBlock(0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, block.Height, gotBlock.Height)

	gotSnapshot, ok, err := s.GetSnapshot(0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, snapshot.Items, gotSnapshot.Items)

	gotTracker, ok, err := s.GetCycleTracker(0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, tracker.Identifiers, gotTracker.Identifiers)

	hash, ok, err := s.HashAtHeight(0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, block.Hash(), hash)

	frozen, err := s.FrozenHeight()
	require.NoError(t, err)
	require.Equal(t, uint64(0), frozen)
}

func TestBoltStoreReopenPreservesManifest(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, "deadbeef")
	require.NoError(t, err)

	cfg := GenesisConfig{StartTimestampMs: 1, SignerID: consensus.Identifier{9}, InitialHolder: consensus.Identifier{1}}
	block, snapshot := BuildGenesis(cfg)
	require.NoError(t, block.Sign(testScheme{}, cfg.SignerID[:]))
	tracker := consensus.NewGenesisCycleTracker().Next(cfg.SignerID)
	require.NoError(t, s.PutBlock(0, block, snapshot, tracker))
	require.NoError(t, s.Close())

	reopened, err := Open(dir, "deadbeef")
	require.NoError(t, err)
	defer reopened.Close()

	frozen, err := reopened.FrozenHeight()
	require.NoError(t, err)
	require.Equal(t, uint64(0), frozen)
}

// testScheme mirrors consensus' internal fakeScheme for store-package tests
// that cannot import consensus' unexported test helper.
type testScheme struct{}

func (testScheme) Sign(body []byte, secret []byte) (consensus.Signature, error) {
	bh := consensus.DoubleSHA256(body)
	sh := consensus.DoubleSHA256(secret)
	var sig consensus.Signature
	for i := 0; i < 32; i++ {
		sig[i] = bh[i]
		sig[i+32] = sh[i]
	}
	return sig, nil
}

func (testScheme) Verify(sig consensus.Signature, body []byte, id consensus.Identifier) bool {
	want, _ := testScheme{}.Sign(body, id[:])
	return want == sig
}

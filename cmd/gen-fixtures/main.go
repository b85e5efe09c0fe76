package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"nyzo.dev/verifier/consensus"
	"nyzo.dev/verifier/store"
)

// This generator writes blocks.json: a signed genesis block plus one chained
// block at height 1, each with its encoded bytes and hash. Both blocks are
// signed with fixtureScheme, a deterministic non-cryptographic scheme, not
// with Ed25519. Adapted from the conformance fixture generator's
// load/mutate/write shape, without a witness-signature backfill step.

type fixtureScheme struct{}

func (fixtureScheme) Sign(body []byte, secret []byte) (consensus.Signature, error) {
	bh := consensus.DoubleSHA256(body)
	sh := consensus.DoubleSHA256(secret)
	var sig consensus.Signature
	for i := 0; i < 32; i++ {
		sig[i] = bh[i]
		sig[i+32] = sh[i]
	}
	return sig, nil
}

func (fixtureScheme) Verify(sig consensus.Signature, body []byte, id consensus.Identifier) bool {
	want, _ := fixtureScheme{}.Sign(body, id[:])
	return want == sig
}

type blockFixture struct {
	Vectors []blockVector `json:"vectors"`
}

type blockVector struct {
	ID       string `json:"id"`
	Height   uint64 `json:"height"`
	BlockHex string `json:"block_hex"`
	HashHex  string `json:"hash_hex"`
}

func main() {
	outDir := flag.String("out", "fixtures", "output directory for generated fixture files")
	flag.Parse()

	if err := run(*outDir); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func idFromByte(b byte) consensus.Identifier {
	var id consensus.Identifier
	id[0] = b
	return id
}

func run(outDir string) error {
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return err
	}

	signer := idFromByte(1)
	holder := idFromByte(2)
	scheme := fixtureScheme{}

	genesisCfg := store.GenesisConfig{
		StartTimestampMs: 1_700_000_000_000,
		SignerID:         signer,
		InitialHolder:    holder,
	}
	genesis, snapshot := store.BuildGenesis(genesisCfg)
	if err := genesis.Sign(scheme, signer[:]); err != nil {
		return fmt.Errorf("sign genesis: %w", err)
	}

	genesisHash := genesis.Hash()
	fixture := blockFixture{Vectors: []blockVector{{
		ID:       "GENESIS-01",
		Height:   genesis.Height,
		BlockHex: hex.EncodeToString(genesis.Encode()),
		HashHex:  hex.EncodeToString(genesisHash[:]),
	}}}

	next := consensus.Block{
		Version:               genesis.Version,
		Height:                genesis.Height + 1,
		PreviousBlockHash:     genesisHash,
		StartTimestamp:        consensus.StartTimestamp(genesisCfg.StartTimestampMs, genesis.Height+1),
		VerificationTimestamp: consensus.StartTimestamp(genesisCfg.StartTimestampMs, genesis.Height+1),
		BalanceListHash:       snapshot.Hash(),
		SignerID:              signer,
	}
	if err := next.Sign(scheme, signer[:]); err != nil {
		return fmt.Errorf("sign height-1 block: %w", err)
	}
	nextHash := next.Hash()
	fixture.Vectors = append(fixture.Vectors, blockVector{
		ID:       "CHAIN-01",
		Height:   next.Height,
		BlockHex: hex.EncodeToString(next.Encode()),
		HashHex:  hex.EncodeToString(nextHash[:]),
	})

	path := filepath.Join(outDir, "blocks.json")
	raw, err := json.MarshalIndent(fixture, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o640)
}

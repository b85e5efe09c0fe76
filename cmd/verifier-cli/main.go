package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"nyzo.dev/verifier/consensus"
	"nyzo.dev/verifier/crypto"
)

// Request is a single JSON op read from stdin, mirroring the conformance
// tool's request/response shape: one op per process invocation, one JSON
// object per line read and written.
type Request struct {
	Op           string `json:"op"`
	BlockHex     string `json:"block_hex,omitempty"`
	TxHex        string `json:"tx_hex,omitempty"`
	SnapshotHex  string `json:"snapshot_hex,omitempty"`
	SignerSecret string `json:"signer_secret_hex,omitempty"`
	AccountHex   string `json:"account_hex,omitempty"`
}

type Response struct {
	Ok         bool   `json:"ok"`
	Err        string `json:"err,omitempty"`
	HashHex    string `json:"hash_hex,omitempty"`
	SignatureH string `json:"signature_hex,omitempty"`
	Balance    int64  `json:"balance,omitempty"`
	HasBalance bool   `json:"has_balance,omitempty"`
	Height     uint64 `json:"height,omitempty"`
}

func main() {
	os.Exit(run(os.Stdin, os.Stdout))
}

func run(in io.Reader, out io.Writer) int {
	var req Request
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		writeResp(out, Response{Ok: false, Err: fmt.Sprintf("bad request: %v", err)})
		return 1
	}

	resp, err := dispatch(req)
	if err != nil {
		writeResp(out, Response{Ok: false, Err: err.Error()})
		return 1
	}
	resp.Ok = true
	writeResp(out, resp)
	return 0
}

func dispatch(req Request) (Response, error) {
	switch req.Op {
	case "hash_block":
		return hashBlock(req)
	case "hash_transaction":
		return hashTransaction(req)
	case "sign_block":
		return signBlock(req)
	case "snapshot_balance":
		return snapshotBalance(req)
	default:
		return Response{}, fmt.Errorf("unknown op %q", req.Op)
	}
}

func hashBlock(req Request) (Response, error) {
	raw, err := hex.DecodeString(req.BlockHex)
	if err != nil {
		return Response{}, fmt.Errorf("block_hex: %w", err)
	}
	block, err := consensus.DecodeBlock(raw)
	if err != nil {
		return Response{}, err
	}
	h := block.Hash()
	return Response{HashHex: hex.EncodeToString(h[:]), Height: block.Height}, nil
}

func hashTransaction(req Request) (Response, error) {
	raw, err := hex.DecodeString(req.TxHex)
	if err != nil {
		return Response{}, fmt.Errorf("tx_hex: %w", err)
	}
	tx, _, err := consensus.DecodeTransaction(raw)
	if err != nil {
		return Response{}, err
	}
	h := consensus.DoubleSHA256(tx.SigningBody())
	return Response{HashHex: hex.EncodeToString(h[:])}, nil
}

func signBlock(req Request) (Response, error) {
	raw, err := hex.DecodeString(req.BlockHex)
	if err != nil {
		return Response{}, fmt.Errorf("block_hex: %w", err)
	}
	block, err := consensus.DecodeBlock(raw)
	if err != nil {
		return Response{}, err
	}
	secret, err := hex.DecodeString(req.SignerSecret)
	if err != nil {
		return Response{}, fmt.Errorf("signer_secret_hex: %w", err)
	}
	scheme := crypto.Ed25519Scheme{}
	if err := block.Sign(scheme, secret); err != nil {
		return Response{}, err
	}
	sig := block.SignerSignature
	return Response{SignatureH: hex.EncodeToString(sig[:])}, nil
}

func snapshotBalance(req Request) (Response, error) {
	raw, err := hex.DecodeString(req.SnapshotHex)
	if err != nil {
		return Response{}, fmt.Errorf("snapshot_hex: %w", err)
	}
	snapshot, err := consensus.DecodeBalanceSnapshot(raw)
	if err != nil {
		return Response{}, err
	}
	accountRaw, err := hex.DecodeString(req.AccountHex)
	if err != nil {
		return Response{}, fmt.Errorf("account_hex: %w", err)
	}
	var id consensus.Identifier
	if len(accountRaw) != len(id) {
		return Response{}, fmt.Errorf("account_hex must be %d bytes", len(id))
	}
	copy(id[:], accountRaw)
	balance, ok := snapshot.Balance(id)
	return Response{Balance: balance, HasBalance: ok, Height: snapshot.BlockHeight}, nil
}

func writeResp(w io.Writer, resp Response) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(resp)
}

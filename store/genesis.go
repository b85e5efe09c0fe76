package store

import "nyzo.dev/verifier/consensus"

// GenesisConfig describes the single-block-zero parameters a network agrees
// on before any verifier runs (§3.3, §5 "Genesis").
type GenesisConfig struct {
	StartTimestampMs int64
	SignerID         consensus.Identifier
	InitialHolder    consensus.Identifier
}

// BuildGenesis constructs the height-0 block and its balance snapshot: a
// single CoinGeneration transaction crediting InitialHolder with the entire
// supply, signed by SignerID. The caller still must call Sign before
// persisting it, since signing requires the signer's secret.
func BuildGenesis(cfg GenesisConfig) (*consensus.Block, *consensus.BalanceSnapshot) {
	coinGen := &consensus.Transaction{
		Type:       consensus.TxCoinGeneration,
		Timestamp:  cfg.StartTimestampMs,
		Amount:     consensus.TotalSupply,
		ReceiverID: cfg.InitialHolder,
	}

	block := &consensus.Block{
		Version:               0,
		Height:                0,
		StartTimestamp:        cfg.StartTimestampMs,
		VerificationTimestamp: cfg.StartTimestampMs,
		Transactions:          []*consensus.Transaction{coinGen},
		SignerID:              cfg.SignerID,
	}

	snapshot := &consensus.BalanceSnapshot{
		BlockHeight: 0,
		Items: []consensus.AccountItem{
			{Identifier: cfg.InitialHolder, Balance: consensus.TotalSupply, BlocksUntilFee: 0},
		},
	}
	block.BalanceListHash = snapshot.Hash()
	return block, snapshot
}

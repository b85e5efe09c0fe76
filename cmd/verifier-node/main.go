package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"nyzo.dev/verifier/consensus"
	"nyzo.dev/verifier/crypto"
	"nyzo.dev/verifier/node"
	"nyzo.dev/verifier/store"
)

func main() {
	if err := run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	defaults := node.DefaultConfig()

	app := &cli.App{
		Name:  "verifier-node",
		Usage: "runs an account-balance verifier node",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "network", Value: defaults.Network, Usage: "network name"},
			&cli.StringFlag{Name: "datadir", Value: defaults.DataDir, Usage: "node data directory"},
			&cli.StringFlag{Name: "bind", Value: defaults.BindAddr, Usage: "bind address host:port"},
			&cli.StringFlag{Name: "log-level", Value: defaults.LogLevel, Usage: "zerolog level: debug|info|warn|error"},
			&cli.StringSliceFlag{Name: "peer", Usage: "bootstrap peer host:port (repeatable)"},
			&cli.IntFlag{Name: "max-peers", Value: defaults.MaxPeers},
			&cli.StringFlag{Name: "keystore", Value: defaults.KeystorePath, Usage: "path to the wrapped signer keystore"},
			&cli.BoolFlag{Name: "generate-identity", Usage: "generate a new signer identity at --keystore and exit"},
			&cli.StringFlag{Name: "metrics-addr", Value: "127.0.0.1:9420", Usage: "address to serve Prometheus metrics on"},
			&cli.Int64Flag{Name: "genesis-start-ms", Usage: "genesis start_timestamp in unix milliseconds"},
			&cli.StringFlag{Name: "config", Usage: "path to a JSON config file; flags override its values"},
		},
		Action: func(c *cli.Context) error {
			return runNode(c)
		},
	}
	return app.Run(args)
}

func runNode(c *cli.Context) error {
	cfg := node.DefaultConfig()
	if path := c.String("config"); path != "" {
		fileCfg, err := node.LoadConfigFile(path)
		if err != nil {
			return err
		}
		cfg = fileCfg
	}
	if c.IsSet("network") {
		cfg.Network = c.String("network")
	}
	if c.IsSet("datadir") {
		cfg.DataDir = c.String("datadir")
	}
	if c.IsSet("bind") {
		cfg.BindAddr = c.String("bind")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("max-peers") {
		cfg.MaxPeers = c.Int("max-peers")
	}
	if c.IsSet("keystore") {
		cfg.KeystorePath = c.String("keystore")
	}
	if c.IsSet("genesis-start-ms") {
		cfg.GenesisStartMs = c.Int64("genesis-start-ms")
	}
	if peers := c.StringSlice("peer"); len(peers) > 0 {
		cfg.Peers = node.NormalizePeers(peers...)
	}
	if err := node.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	runID := uuid.NewString()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).Level(level).With().Timestamp().
		Str("network", cfg.Network).Str("run_id", runID).Logger()

	kek := make([]byte, 32) // TODO: source from an operator-supplied passphrase/KMS instead of a zero key
	var identity *node.SignerIdentity
	if c.Bool("generate-identity") {
		identity, err = node.GenerateSignerIdentity(cfg.KeystorePath, kek)
		if err != nil {
			return fmt.Errorf("generate identity: %w", err)
		}
		logger.Info().Str("id", fmt.Sprintf("%x", identity.ID)).Msg("generated signer identity")
		return nil
	}
	identity, err = node.LoadSignerIdentity(cfg.KeystorePath, kek)
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return fmt.Errorf("datadir create: %w", err)
	}
	blockStore, err := store.Open(cfg.DataDir, cfg.Network)
	if err != nil {
		return fmt.Errorf("store open: %w", err)
	}
	blockStore.SetLogger(logger)
	defer func() { _ = blockStore.Close() }()

	scheme := crypto.Ed25519Scheme{}
	chain, err := node.OpenFrozenChain(blockStore, node.FrozenChainConfig{
		Scheme:            scheme,
		GenesisStartMs:    cfg.GenesisStartMs,
		BlockchainVersion: cfg.BlockchainVersion,
	})
	if err != nil {
		return fmt.Errorf("open frozen chain: %w", err)
	}
	chain.SetLogger(logger)

	producer, err := node.NewProducer(blockStore, node.ProducerConfig{
		Scheme:            scheme,
		SignerID:          identity.ID,
		Secret:            identity.Secret(),
		GenesisStartMs:    cfg.GenesisStartMs,
		BlockchainVersion: cfg.BlockchainVersion,
	})
	if err != nil {
		return fmt.Errorf("new producer: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics := node.NewMetrics(registry)
	metricsSrv := &http.Server{Addr: c.String("metrics-addr"), Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{})}

	loop := node.NewLoop(
		chain,
		node.NewUnfrozenStore(0),
		node.NewVoteTallier(0),
		producer,
		node.NewFetchCoordinator(node.FetchCoordinatorConfig{}),
		&noopTransport{},
		identity,
		node.LoopConfig{CycleSize: func() int { return len(chain.TipTracker().CycleList()) }},
	)
	loop.SetMetrics(metrics)
	loop.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		return metricsSrv.Close()
	})
	group.Go(func() error {
		return loop.Run(groupCtx)
	})

	logger.Info().Uint64("frozen_height", chain.Height()).Msg("verifier node starting")
	if err := group.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info().Msg("verifier node stopped")
	return nil
}

// noopTransport is the default Transport until a real gossip layer is
// wired in: it never delivers peer traffic, so a node running it only
// ever freezes its own candidates (useful standalone, e.g. a devnet of
// one verifier).
type noopTransport struct{}

func (noopTransport) BroadcastCandidate(*consensus.Block) {}
func (noopTransport) BroadcastVote(node.VoteMessage)      {}
func (noopTransport) PollCandidates() []*consensus.Block  { return nil }
func (noopTransport) PollVotes() []node.VoteMessage       { return nil }

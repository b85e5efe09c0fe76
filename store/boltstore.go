package store

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"

	"nyzo.dev/verifier/consensus"
)

var (
	bucketBlocks    = []byte("blocks_by_height")
	bucketSnapshots = []byte("snapshots_by_height")
	bucketTrackers  = []byte("cycle_trackers_by_height")
)

// BoltStore is the bbolt-backed BlockStore (C12), keyed throughout by
// big-endian block height rather than by hash: the frozen chain is a single
// linear sequence, so height is the natural and only lookup key this module
// ever needs (unlike a fork-choice chain, which must index by hash).
type BoltStore struct {
	chainDir string
	db       *bolt.DB
	manifest *Manifest
	logger   zerolog.Logger
}

// SetLogger attaches the structured logger BoltStore reports fatal write
// failures to. Safe to call at any time; defaults to a no-op logger.
func (s *BoltStore) SetLogger(logger zerolog.Logger) {
	s.logger = logger
}

// Open opens (creating if absent) the bbolt database for networkIDHex under
// datadir. If no manifest exists yet, the returned store has FrozenHeight()
// == 0 with no block 0 stored; the caller must call PutBlock for the
// Genesis block before anything else.
func Open(datadir string, networkIDHex string) (*BoltStore, error) {
	if datadir == "" {
		return nil, fmt.Errorf("datadir required")
	}
	if networkIDHex == "" {
		return nil, fmt.Errorf("network_id_hex required")
	}

	chainDir := ChainDir(datadir, networkIDHex)
	if err := ensureDir(chainDir); err != nil {
		return nil, err
	}
	if err := ensureDir(filepath.Join(chainDir, "db")); err != nil {
		return nil, err
	}

	path := filepath.Join(chainDir, "db", "kv.db")
	bdb, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt: %w", err)
	}

	s := &BoltStore{chainDir: chainDir, db: bdb, logger: zerolog.Nop()}

	if err := s.db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketBlocks, bucketSnapshots, bucketTrackers} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", string(b), err)
			}
		}
		return nil
	}); err != nil {
		_ = bdb.Close()
		return nil, err
	}

	m, err := readManifest(chainDir)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil // uninitialized chain; caller must store Genesis.
		}
		_ = bdb.Close()
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if m.SchemaVersion > SchemaVersionV1 {
		_ = bdb.Close()
		return nil, fmt.Errorf("manifest schema_version %d > supported %d", m.SchemaVersion, SchemaVersionV1)
	}
	s.manifest = m
	return s, nil
}

func heightKey(height uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], height)
	return k[:]
}

func (s *BoltStore) PutBlock(height uint64, block *consensus.Block, snapshot *consensus.BalanceSnapshot, tracker *consensus.CycleTracker) error {
	blockBytes := block.Encode()
	snapshotBytes := snapshot.Encode()
	trackerBytes := tracker.Encode()
	key := heightKey(height)

	hash := block.Hash()
	if err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketBlocks).Put(key, blockBytes); err != nil {
			return err
		}
		if err := tx.Bucket(bucketSnapshots).Put(key, snapshotBytes); err != nil {
			return err
		}
		return tx.Bucket(bucketTrackers).Put(key, trackerBytes)
	}); err != nil {
		s.logger.Error().Uint64("height", height).Str("hash", hex.EncodeToString(hash[:])).
			Str("kind", string(consensus.KindFatal)).Err(err).Msg("store write failed")
		return consensusStoreErr(err)
	}

	m := &Manifest{
		SchemaVersion:     SchemaVersionV1,
		NetworkIDHex:      s.networkIDHex(),
		FrozenHeight:      height,
		FrozenHashHex:     hex.EncodeToString(hash[:]),
		BlockchainVersion: block.Version,
	}
	if s.manifest != nil {
		m.GenesisStartMs = s.manifest.GenesisStartMs
	}
	if err := writeManifestAtomic(s.chainDir, m); err != nil {
		s.logger.Error().Uint64("height", height).Str("hash", hex.EncodeToString(hash[:])).
			Str("kind", string(consensus.KindFatal)).Err(err).Msg("manifest write failed")
		return consensusStoreErr(err)
	}
	s.manifest = m
	return nil
}

func (s *BoltStore) GetBlock(height uint64) (*consensus.Block, bool, error) {
	raw, ok, err := s.get(bucketBlocks, height)
	if err != nil || !ok {
		return nil, ok, err
	}
	b, err := consensus.DecodeBlock(raw)
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *BoltStore) GetSnapshot(height uint64) (*consensus.BalanceSnapshot, bool, error) {
	raw, ok, err := s.get(bucketSnapshots, height)
	if err != nil || !ok {
		return nil, ok, err
	}
	snap, err := consensus.DecodeBalanceSnapshot(raw)
	if err != nil {
		return nil, false, err
	}
	return snap, true, nil
}

func (s *BoltStore) GetCycleTracker(height uint64) (*consensus.CycleTracker, bool, error) {
	raw, ok, err := s.get(bucketTrackers, height)
	if err != nil || !ok {
		return nil, ok, err
	}
	t, err := consensus.DecodeCycleTracker(raw)
	if err != nil {
		return nil, false, err
	}
	return t, true, nil
}

func (s *BoltStore) HashAtHeight(height uint64) (consensus.Hash, bool, error) {
	b, ok, err := s.GetBlock(height)
	if err != nil || !ok {
		return consensus.Hash{}, ok, err
	}
	return b.Hash(), true, nil
}

func (s *BoltStore) FrozenHeight() (uint64, error) {
	if s.manifest == nil {
		return 0, nil
	}
	return s.manifest.FrozenHeight, nil
}

func (s *BoltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *BoltStore) get(bucket []byte, height uint64) ([]byte, bool, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucket).Get(heightKey(height))
		if v == nil {
			return nil
		}
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if out == nil {
		return nil, false, nil
	}
	return out, true, nil
}

func (s *BoltStore) networkIDHex() string {
	if s.manifest != nil {
		return s.manifest.NetworkIDHex
	}
	return ""
}

func consensusStoreErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("store write failed: %w", err)
}

package node

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
)

// Config is the verifier node's ambient configuration, unmarshaled from
// JSON or flags at startup (§1, §5).
type Config struct {
	Network      string   `json:"network"`
	DataDir      string   `json:"data_dir"`
	BindAddr     string   `json:"bind_addr"`
	LogLevel     string   `json:"log_level"`
	Peers        []string `json:"peers"`
	MaxPeers     int      `json:"max_peers"`
	KeystorePath string   `json:"keystore_path"`

	// GenesisStartMs anchors start_timestamp(height) for this network
	// (§3.3, §6.4).
	GenesisStartMs int64 `json:"genesis_start_ms"`

	// BlockchainVersion selects which version-gated behaviors are active
	// (unlock accounting, cycle transactions; §3.2, §4.2).
	BlockchainVersion uint16 `json:"blockchain_version"`
}

var allowedLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".verifier"
	}
	return filepath.Join(home, ".verifier")
}

func DefaultConfig() Config {
	return Config{
		Network:           "devnet",
		DataDir:           DefaultDataDir(),
		BindAddr:          "0.0.0.0:9444",
		Peers:             nil,
		LogLevel:          "info",
		MaxPeers:          64,
		KeystorePath:      filepath.Join(DefaultDataDir(), "identity.json"),
		BlockchainVersion: 2,
	}
}

// LoadConfigFile reads a JSON-encoded Config from path, layered over
// DefaultConfig. path is split into directory and base name and read via
// readFileFromDir so a path containing ".." or escaping its directory is
// rejected before the file is ever opened.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := readFileByPath(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func NormalizePeers(raw ...string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, token := range raw {
		for _, p := range strings.Split(token, ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.Network) == "" {
		return errors.New("network is required")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return errors.New("data_dir is required")
	}
	if err := validateAddr(cfg.BindAddr); err != nil {
		return fmt.Errorf("invalid bind_addr: %w", err)
	}
	for _, peer := range cfg.Peers {
		if err := validatePeerAddr(peer); err != nil {
			return fmt.Errorf("invalid peer %q: %w", peer, err)
		}
	}
	logLevel := strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if _, ok := allowedLogLevels[logLevel]; !ok {
		return fmt.Errorf("invalid log_level %q", cfg.LogLevel)
	}
	if cfg.MaxPeers <= 0 {
		return errors.New("max_peers must be > 0")
	}
	if cfg.MaxPeers > 4096 {
		return errors.New("max_peers must be <= 4096")
	}
	if strings.TrimSpace(cfg.KeystorePath) == "" {
		return errors.New("keystore_path is required")
	}
	if cfg.GenesisStartMs <= 0 {
		return errors.New("genesis_start_ms must be > 0")
	}
	return nil
}

func validateAddr(addr string) error {
	if strings.TrimSpace(addr) == "" {
		return errors.New("empty address")
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	if strings.TrimSpace(port) == "" {
		return errors.New("missing port")
	}
	if strings.Contains(host, " ") {
		return errors.New("invalid host")
	}
	return nil
}

func validatePeerAddr(addr string) error {
	if err := validateAddr(addr); err != nil {
		return err
	}
	host, _, _ := net.SplitHostPort(addr)
	if strings.TrimSpace(host) == "" {
		return errors.New("missing host")
	}
	return nil
}

package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// ChainDir returns the on-disk directory for a given network under datadir:
// datadir/chains/<network_id_hex>/
func ChainDir(datadir string, networkIDHex string) string {
	return filepath.Join(datadir, "chains", networkIDHex)
}

func ensureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	return nil
}

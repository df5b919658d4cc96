package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"voxelguard.ai/internal/persistence/indexdb"
)

// openIndex opens the optional SQLite read model of the audit trail. It
// never affects protection decisions; a nil index means indexing is off.
func openIndex(dataDir string, disableDB bool) (*indexdb.SQLiteIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("VG_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(indexPath(dataDir))
	default:
		return nil, fmt.Errorf("unsupported VG_INDEX_BACKEND: %s", backend)
	}
}

func indexPath(dataDir string) string {
	return filepath.Join(dataDir, "index", "guard.sqlite")
}

package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"scrapworks.ai/internal/persistence/ledgerstore"
)

const (
	ledgerFileName   = "miner_crafts.json.zst"
	ledgerSQLiteName = "miner_crafts.sqlite"
)

// openLedgerStore picks the craft ledger backend from SW_LEDGER_BACKEND (file, sqlite
// or none). A nil store keeps counts in memory only.
func openLedgerStore(dataDir string, logger *log.Logger) (ledgerstore.Store, error) {
	backend := strings.ToLower(strings.TrimSpace(os.Getenv("SW_LEDGER_BACKEND")))
	if backend == "" {
		backend = "file"
	}

	switch backend {
	case "none", "off", "memory":
		logger.Printf("craft ledger is memory-only (SW_LEDGER_BACKEND=%s)", backend)
		return nil, nil
	case "file":
		st, err := ledgerstore.OpenFile(filepath.Join(dataDir, ledgerFileName))
		if err != nil {
			return nil, err
		}
		return st, nil
	case "sqlite":
		st, err := ledgerstore.OpenSQLite(filepath.Join(dataDir, "index", ledgerSQLiteName))
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unsupported SW_LEDGER_BACKEND: %s", backend)
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

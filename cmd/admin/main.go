package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"scrapworks.ai/internal/miner"
	"scrapworks.ai/internal/persistence/ledgerstore"
	persistlog "scrapworks.ai/internal/persistence/log"
)

const usage = `usage: admin <command> [flags]

commands:
  ledger list|wipe   read or clear the craft ledger store (server must be stopped for wipe)
  production         dump the production log
  audit              dump the craft audit log
  db crafts|meta     query the sqlite ledger directly
  state              GET /admin/v1/state from a running server
  save               POST /admin/v1/save to a running server
  console            run console commands over the websocket`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	args := os.Args[2:]
	switch os.Args[1] {
	case "ledger":
		ledgerCmd(args)
	case "production":
		productionCmd(args)
	case "audit":
		auditCmd(args)
	case "db":
		dbCmd(args)
	case "state":
		stateCmd(args)
	case "save":
		saveCmd(args)
	case "console":
		consoleCmd(args)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}

func openStore(dataDir, backend string) (ledgerstore.Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "file":
		st, err := ledgerstore.OpenFile(filepath.Join(dataDir, "miner_crafts.json.zst"))
		if err != nil {
			return nil, err
		}
		return st, nil
	case "sqlite":
		st, err := ledgerstore.OpenSQLite(filepath.Join(dataDir, "index", "miner_crafts.sqlite"))
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unsupported backend: %s", backend)
	}
}

func ledgerCmd(args []string) {
	fs := flag.NewFlagSet("ledger", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	backend := fs.String("backend", os.Getenv("SW_LEDGER_BACKEND"), "ledger backend: file|sqlite")
	limit := fs.Int("limit", 0, "list at most this many entries (0 = all)")
	_ = fs.Parse(args)

	op := "list"
	if fs.NArg() > 0 {
		op = strings.TrimSpace(fs.Arg(0))
	}

	st, err := openStore(*dataDir, *backend)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer st.Close()

	counts, err := st.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load:", err)
		os.Exit(1)
	}

	switch op {
	case "list":
		entries := ledgerstore.Entries(counts)
		if *limit > 0 && len(entries) > *limit {
			entries = entries[:*limit]
		}
		enc := json.NewEncoder(os.Stdout)
		for _, e := range entries {
			_ = enc.Encode(e)
		}
	case "wipe":
		if err := st.Save(map[string]int{}); err != nil {
			fmt.Fprintln(os.Stderr, "save:", err)
			os.Exit(1)
		}
		fmt.Printf("wiped %d entries\n", len(counts))
	default:
		fmt.Fprintln(os.Stderr, "unknown ledger op:", op)
		os.Exit(2)
	}
}

func productionCmd(args []string) {
	fs := flag.NewFlagSet("production", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	entity := fs.Uint64("entity", 0, "only this entity id")
	since := fs.String("since", "", "only entries at or after this RFC3339 time")
	summary := fs.Bool("summary", false, "print per-entity totals instead of entries")
	_ = fs.Parse(args)

	var from time.Time
	if s := strings.TrimSpace(*since); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			fmt.Fprintln(os.Stderr, "bad -since:", err)
			os.Exit(2)
		}
		from = t
	}

	totals := map[uint64]int{}
	enc := json.NewEncoder(os.Stdout)
	err := persistlog.ReadAll(filepath.Join(*dataDir, "production"), "production", func(line []byte) error {
		var e miner.ProductionEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return err
		}
		if *entity != 0 && e.EntityID != *entity {
			return nil
		}
		if !from.IsZero() && e.Time.Before(from) {
			return nil
		}
		if *summary {
			totals[e.EntityID] += e.Inserted
			return nil
		}
		return enc.Encode(e)
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	if *summary {
		for id, n := range totals {
			fmt.Printf("%d\t%d\n", id, n)
		}
	}
}

func auditCmd(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	user := fs.String("user", "", "only this user id")
	_ = fs.Parse(args)

	enc := json.NewEncoder(os.Stdout)
	err := persistlog.ReadAll(filepath.Join(*dataDir, "audit"), "audit", func(line []byte) error {
		var e persistlog.CraftEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return err
		}
		if *user != "" && e.UserID != *user {
			return nil
		}
		return enc.Encode(e)
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
}

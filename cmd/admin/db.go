package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"voxelguard.ai/internal/persistence/indexdb"
)

const dbUsage = "usage: admin db [-data ./data|-db PATH] [-limit N] [-since 24h] [-world W] denials|placements|actor <name-or-uuid>"

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	since := fs.Duration("since", 0, "only rows newer than this")
	world := fs.String("world", "", "world filter")
	_ = fs.Parse(args)

	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, dbUsage)
		os.Exit(2)
	}
	f, err := dbFilter(fs.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, dbUsage)
		os.Exit(2)
	}
	f.Limit = *limit
	f.World = strings.TrimSpace(*world)
	if *since > 0 {
		f.Since = time.Now().Add(-*since)
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "guard.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	db, err := indexdb.Open(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	rows, err := indexdb.QueryDecisions(context.Background(), db, f)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	for _, r := range rows {
		printJSON(r)
	}
}

// dbFilter maps a query name and its arguments to an index filter.
func dbFilter(args []string) (indexdb.Filter, error) {
	switch args[0] {
	case "denials":
		return indexdb.Filter{DeniedOnly: true}, nil
	case "placements":
		return indexdb.Filter{Action: "PLACE"}, nil
	case "actor":
		if len(args) < 2 || strings.TrimSpace(args[1]) == "" {
			return indexdb.Filter{}, fmt.Errorf("actor: missing name or uuid")
		}
		return indexdb.Filter{Actor: strings.TrimSpace(args[1])}, nil
	default:
		return indexdb.Filter{}, fmt.Errorf("unknown query: %s", args[0])
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

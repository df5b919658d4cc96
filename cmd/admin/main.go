package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"voxelguard.ai/internal/catalogs"
	"voxelguard.ai/internal/config"
	persistlog "voxelguard.ai/internal/persistence/log"
)

const usage = `usage: admin <command> [flags] [args]

state file (stop the server first; it rewrites the file on shutdown):
  list                 show unbreakable types and the placed-block count
  add <block>          flag a block type unbreakable
  remove <block>       unflag a block type
  check <world;x;y;z>  show the recorded owner of a location

audit:
  audit                dump decoded audit records as JSON lines
  db denials|placements|actor <name-or-uuid>
                       query the SQLite audit index

running server (loopback admin endpoints):
  state                GET /admin/v1/state
  save                 POST /admin/v1/save`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	args := os.Args[2:]
	switch os.Args[1] {
	case "list", "add", "remove", "check":
		stateFileCmd(os.Args[1], args)
	case "audit":
		auditCmd(args)
	case "db":
		dbCmd(args)
	case "state":
		stateCmd(args)
	case "save":
		saveCmd(args)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}

func stateFileCmd(name string, args []string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	configPath := fs.String("config", "", "path to config.yml (default: <data>/config.yml)")
	configDir := fs.String("configs", "./configs", "catalog directory")
	_ = fs.Parse(args)

	cp := strings.TrimSpace(*configPath)
	if cp == "" {
		cp = filepath.Join(*dataDir, "config.yml")
	}
	cfg, err := config.Load(cp)
	if err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	cats, err := catalogs.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "catalogs:", err)
		os.Exit(1)
	}
	sf := stateFile{path: cfg.StatePath(*dataDir), blocks: cats.Blocks}

	needArg := func() string {
		if fs.NArg() != 1 {
			fmt.Fprintf(os.Stderr, "usage: admin %s [flags] <arg>\n", name)
			os.Exit(2)
		}
		return fs.Arg(0)
	}
	switch name {
	case "list":
		err = sf.list(os.Stdout)
	case "add":
		err = sf.add(os.Stdout, needArg())
	case "remove":
		err = sf.remove(os.Stdout, needArg())
	case "check":
		err = sf.check(os.Stdout, needArg())
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func auditCmd(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	since := fs.Duration("since", 0, "only records newer than this (e.g. 2h)")
	action := fs.String("action", "", "PLACE, BREAK, EXPLODE, PISTON or REMOVE")
	actor := fs.String("actor", "", "actor uuid or name")
	world := fs.String("world", "", "world name")
	outcome := fs.String("outcome", "", "ALLOWED, DENIED or DENIED_DECREMENTED")
	_ = fs.Parse(args)

	f := persistlog.AuditFilter{
		Action:  strings.TrimSpace(*action),
		Actor:   strings.TrimSpace(*actor),
		World:   strings.TrimSpace(*world),
		Outcome: strings.TrimSpace(*outcome),
	}
	if *since > 0 {
		f.Since = time.Now().Add(-*since)
	}
	recs, err := persistlog.ReadAudit(*dataDir, f)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read audit:", err)
		os.Exit(1)
	}
	for _, r := range recs {
		printJSON(r)
	}
}

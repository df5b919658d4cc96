package main

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"voxelguard.ai/internal/catalogs"
	"voxelguard.ai/internal/guard"
	"voxelguard.ai/internal/persistence/state"
)

func newStateFile(t *testing.T) stateFile {
	t.Helper()
	return stateFile{
		path:   filepath.Join(t.TempDir(), "placed_blocks.yml"),
		blocks: catalogs.Defaults().Blocks,
	}
}

func TestStateFileAddRemoveList(t *testing.T) {
	sf := newStateFile(t)
	var out bytes.Buffer

	if err := sf.add(&out, "minecraft:bedrock"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := sf.add(&out, "OBSIDIAN"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := sf.add(&out, "bedrock"); err != nil {
		t.Fatalf("re-add: %v", err)
	}
	if !strings.Contains(out.String(), "BEDROCK is already unbreakable") {
		t.Fatalf("out=%q", out.String())
	}
	if err := sf.add(&out, "not_a_block"); !errors.Is(err, catalogs.ErrUnknownBlock) {
		t.Fatalf("unknown block err=%v", err)
	}

	if err := sf.remove(&out, "obsidian"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	out.Reset()
	if err := sf.remove(&out, "obsidian"); err != nil {
		t.Fatalf("remove again: %v", err)
	}
	if !strings.Contains(out.String(), "OBSIDIAN is not unbreakable") {
		t.Fatalf("out=%q", out.String())
	}

	out.Reset()
	if err := sf.list(&out); err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := out.String(); !strings.Contains(got, "unbreakable (1):\n  BEDROCK\n") || !strings.Contains(got, "placed: 0") {
		t.Fatalf("list=%q", got)
	}
}

func TestStateFileCheckKeepsUnknownWorlds(t *testing.T) {
	sf := newStateFile(t)
	owner := uuid.New()
	loc := guard.Location{World: "skyblock", X: -3, Y: 64, Z: 12}
	if err := state.Save(sf.path, guard.State{
		Blocks: []guard.BlockType{"BEDROCK"},
		Placed: map[guard.Location]uuid.UUID{loc: owner},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var out bytes.Buffer
	if err := sf.check(&out, "skyblock;-3;64;12"); err != nil {
		t.Fatalf("check: %v", err)
	}
	if !strings.Contains(out.String(), owner.String()) {
		t.Fatalf("out=%q", out.String())
	}
	if err := sf.check(&out, "skyblock;0;0;0"); !errors.Is(err, errNoOwner) {
		t.Fatalf("missing owner err=%v", err)
	}
	if err := sf.check(&out, "bad-key"); !errors.Is(err, guard.ErrMalformedKey) {
		t.Fatalf("malformed err=%v", err)
	}

	// A registry edit must not drop placed records from worlds the CLI
	// knows nothing about.
	if err := sf.add(&out, "OBSIDIAN"); err != nil {
		t.Fatalf("add: %v", err)
	}
	st, _, err := state.Load(sf.path, nil, sf.blocks)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if st.Placed[loc] != owner || len(st.Blocks) != 2 {
		t.Fatalf("state after add=%+v", st)
	}
}

func TestDBFilter(t *testing.T) {
	if f, err := dbFilter([]string{"denials"}); err != nil || !f.DeniedOnly {
		t.Fatalf("denials=%+v err=%v", f, err)
	}
	if f, err := dbFilter([]string{"placements"}); err != nil || f.Action != "PLACE" {
		t.Fatalf("placements=%+v err=%v", f, err)
	}
	if f, err := dbFilter([]string{"actor", "Steve"}); err != nil || f.Actor != "Steve" {
		t.Fatalf("actor=%+v err=%v", f, err)
	}
	if _, err := dbFilter([]string{"actor"}); err == nil {
		t.Fatalf("actor without arg accepted")
	}
	if _, err := dbFilter([]string{"snapshots"}); err == nil {
		t.Fatalf("unknown query accepted")
	}
}

func TestAdminClient(t *testing.T) {
	saves := 0
	ts := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/admin/v1/state" && r.Method == http.MethodGet:
			_, _ = rw.Write([]byte(`{"unbreakable":["BEDROCK"],"placed":2}`))
		case r.URL.Path == "/admin/v1/save" && r.Method == http.MethodPost:
			saves++
			if saves > 1 {
				rw.WriteHeader(http.StatusServiceUnavailable)
				_, _ = rw.Write([]byte(`{"ok":false,"error":"disk full"}`))
				return
			}
			_, _ = rw.Write([]byte(`{"ok":true}`))
		default:
			rw.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer ts.Close()

	c := newAdminClient(ts.URL+"/", time.Second)
	body, err := c.call(http.MethodGet, "state")
	if err != nil || body["placed"] != float64(2) {
		t.Fatalf("state=%v err=%v", body, err)
	}
	if _, err := c.call(http.MethodPost, "save"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := c.call(http.MethodPost, "save"); err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("failing save err=%v", err)
	}
	if _, err := c.call(http.MethodGet, "save"); err == nil || !strings.Contains(err.Error(), "405") {
		t.Fatalf("wrong method err=%v", err)
	}
}

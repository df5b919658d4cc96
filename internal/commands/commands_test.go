package commands

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"voxelguard.ai/internal/catalogs"
	"voxelguard.ai/internal/guard"
)

func newHandler(t *testing.T, protected ...guard.BlockType) (*Handler, *int) {
	t.Helper()
	changes := 0
	h := &Handler{
		Engine:   guard.NewEngine(guard.EngineConfig{DefaultHits: 3}, protected...),
		Blocks:   catalogs.Defaults().Blocks,
		Worlds:   guard.NewWorldSet("world", "world_nether"),
		OnChange: func() { changes++ },
	}
	return h, &changes
}

func admin() guard.Actor {
	return guard.Actor{ID: uuid.New(), Name: "op", Permissions: []string{PermAdd, PermRemove, PermList, PermCheck}}
}

func TestRun_UsageAndUnknown(t *testing.T) {
	h, _ := newHandler(t)
	if res := h.Run(Caller{Actor: admin()}, nil); len(res.Lines) != 1 || res.Lines[0] != msgUsage {
		t.Fatalf("usage: %+v", res)
	}
	if res := h.Run(Caller{Actor: admin()}, []string{"trust"}); res.Lines[0] != msgUnknown {
		t.Fatalf("unknown: %+v", res)
	}
}

func TestAddRemove(t *testing.T) {
	h, changes := newHandler(t)
	c := Caller{Actor: admin(), World: "world"}

	res := h.Run(c, []string{"add", "obsidian"})
	if !res.Changed || !strings.Contains(res.Lines[0], "Added OBSIDIAN") || !h.Engine.Registry().Has("OBSIDIAN") {
		t.Fatalf("add: %+v", res)
	}
	if res := h.Run(c, []string{"ADD", "OBSIDIAN"}); res.Changed || res.Lines[0] != msgAlready {
		t.Fatalf("re-add: %+v", res)
	}
	if res := h.Run(c, []string{"add", "not_a_block"}); res.Lines[0] != msgInvalidBlock {
		t.Fatalf("invalid: %+v", res)
	}
	if res := h.Run(c, []string{"remove", "obsidian"}); !res.Changed || h.Engine.Registry().Has("OBSIDIAN") {
		t.Fatalf("remove: %+v", res)
	}
	if res := h.Run(c, []string{"remove", "obsidian"}); res.Lines[0] != msgNotProtected {
		t.Fatalf("re-remove: %+v", res)
	}
	if *changes != 2 {
		t.Fatalf("changes=%d", *changes)
	}
}

func TestAdd_DefaultsToTarget(t *testing.T) {
	h, _ := newHandler(t)
	c := Caller{Actor: admin(), World: "world"}

	if res := h.Run(c, []string{"add"}); res.Lines[0] != msgLookAtBlock {
		t.Fatalf("no target: %+v", res)
	}
	c.Target = &guard.BlockAt{Loc: guard.Location{World: "world"}, Block: "AIR"}
	if res := h.Run(c, []string{"add"}); res.Lines[0] != msgLookAtBlock {
		t.Fatalf("air target: %+v", res)
	}
	c.Target.Block = "BEDROCK"
	if res := h.Run(c, []string{"add"}); !res.Changed || !h.Engine.Registry().Has("BEDROCK") {
		t.Fatalf("target add: %+v", res)
	}
}

func TestAddRemove_TargetMustBeCatalogued(t *testing.T) {
	h, changes := newHandler(t, "BEDROCK")
	c := Caller{Actor: admin(), World: "world", Target: &guard.BlockAt{Loc: guard.Location{World: "world"}, Block: "not_a_block"}}

	if res := h.Run(c, []string{"add"}); res.Changed || res.Lines[0] != msgInvalidBlock {
		t.Fatalf("uncatalogued add: %+v", res)
	}
	if h.Engine.Registry().Has("not_a_block") || h.Engine.Registry().Len() != 1 {
		t.Fatalf("registry=%v", h.Engine.Registry().Sorted())
	}
	if res := h.Run(c, []string{"remove"}); res.Changed || res.Lines[0] != msgInvalidBlock {
		t.Fatalf("uncatalogued remove: %+v", res)
	}

	c.Target.Block = "minecraft:obsidian"
	if res := h.Run(c, []string{"add"}); !res.Changed || !h.Engine.Registry().Has("OBSIDIAN") {
		t.Fatalf("target add normalizes: %+v", res)
	}
	if *changes != 1 {
		t.Fatalf("changes=%d", *changes)
	}
}

func TestPermissions(t *testing.T) {
	h, changes := newHandler(t, "BEDROCK")
	c := Caller{Actor: guard.Actor{ID: uuid.New()}, World: "world"}
	for _, args := range [][]string{{"add", "stone"}, {"remove", "bedrock"}, {"list"}, {"check", "world;0;0;0"}} {
		if res := h.Run(c, args); res.Lines[0] != msgNoPermission {
			t.Fatalf("%v: %+v", args, res)
		}
	}
	if *changes != 0 || !h.Engine.Registry().Has("BEDROCK") {
		t.Fatalf("unauthorized command changed state")
	}
}

func TestList(t *testing.T) {
	h, _ := newHandler(t, "OBSIDIAN", "BEDROCK")
	res := h.Run(Caller{Actor: admin()}, []string{"list"})
	want := []string{msgListHeader, "§fBEDROCK", "§fOBSIDIAN", msgListFooter}
	if strings.Join(res.Lines, "|") != strings.Join(want, "|") {
		t.Fatalf("list=%q", res.Lines)
	}
}

func TestCheck(t *testing.T) {
	h, _ := newHandler(t, "BEDROCK")
	owner := guard.Actor{ID: uuid.New(), Name: "alex"}
	h.NameOf = func(id uuid.UUID) string {
		if id == owner.ID {
			return owner.Name
		}
		return ""
	}
	loc := guard.Location{World: "world", X: 4, Y: 70, Z: -1}
	h.Engine.Decide(guard.PlaceIntent{Actor: owner, At: guard.BlockAt{Loc: loc, Block: "BEDROCK"}})

	c := Caller{Actor: admin(), World: "world", Target: &guard.BlockAt{Loc: loc, Block: "BEDROCK"}}
	res := h.Run(c, []string{"check"})
	if len(res.Lines) != 2 || !strings.Contains(res.Lines[0], "alex") || !strings.Contains(res.Lines[0], owner.ID.String()) {
		t.Fatalf("target check: %q", res.Lines)
	}
	if !strings.Contains(res.Lines[1], "3 hit(s)") {
		t.Fatalf("hits line: %q", res.Lines[1])
	}

	if res := h.Run(c, []string{"check", "world;4;70;-1"}); !strings.Contains(res.Lines[0], "alex") {
		t.Fatalf("key check: %q", res.Lines)
	}
	if res := h.Run(c, []string{"check", "4", "70", "-1"}); !strings.Contains(res.Lines[0], "alex") {
		t.Fatalf("xyz check: %q", res.Lines)
	}
	if res := h.Run(c, []string{"check", "world;4;70;0"}); res.Lines[0] != msgNoRecord {
		t.Fatalf("untracked key check: %q", res.Lines)
	}
	if res := h.Run(c, []string{"check", "4", "70", "0"}); res.Lines[0] != msgNoRecord {
		t.Fatalf("untracked xyz check: %q", res.Lines)
	}
	natural := &guard.BlockAt{Loc: guard.Location{World: "world", X: 4, Y: 70}, Block: "BEDROCK"}
	if res := h.Run(Caller{Actor: admin(), World: "world", Target: natural}, []string{"check"}); res.Lines[0] != msgNoOwner {
		t.Fatalf("untracked target check: %q", res.Lines)
	}
	if res := h.Run(c, []string{"check", "mars;4;70;0"}); res.Lines[0] != msgBadLocation {
		t.Fatalf("bad world: %q", res.Lines)
	}
	if res := h.Run(c, []string{"check", "4", "up", "0"}); res.Lines[0] != msgBadLocation {
		t.Fatalf("bad xyz: %q", res.Lines)
	}

	c.Target = &guard.BlockAt{Loc: loc, Block: "STONE"}
	if res := h.Run(c, []string{"check"}); res.Lines[0] != msgNotProtected {
		t.Fatalf("unprotected target: %q", res.Lines)
	}
}

func TestComplete(t *testing.T) {
	h, _ := newHandler(t)
	c := Caller{Actor: admin()}
	if got := h.Complete(c, []string{""}); len(got) != 4 {
		t.Fatalf("subcommands=%v", got)
	}
	if got := h.Complete(c, []string{"re"}); len(got) != 1 || got[0] != "remove" {
		t.Fatalf("prefix=%v", got)
	}
	if got := h.Complete(c, []string{"add", "obs"}); len(got) != 1 || got[0] != "OBSIDIAN" {
		t.Fatalf("blocks=%v", got)
	}
	if got := h.Complete(c, []string{"list", "x"}); len(got) != 0 {
		t.Fatalf("list arg=%v", got)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yml")
	body := `
unbreakable-blocks: [BEDROCK, obsidian]
reinforced-default: 5
messages:
  break-deny: "nope"
`
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.UnbreakableBlocks) != 2 || c.UnbreakableBlocks[1] != "obsidian" {
		t.Fatalf("blocks=%v", c.UnbreakableBlocks)
	}
	if c.ReinforcedDefault != 5 || c.Messages.BreakDeny != "nope" {
		t.Fatalf("unexpected values: %+v", c)
	}
	if c.Feedback.Sound != DefaultSound || c.Feedback.Particle != DefaultParticle || c.Feedback.ParticleCount != 10 {
		t.Fatalf("feedback defaults lost: %+v", c.Feedback)
	}
	if len(c.Worlds) != 3 || c.StateFile != DefaultStateFile {
		t.Fatalf("world/state defaults lost: %+v", c)
	}
}

func TestLoad_NormalizesNonPositiveHits(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yml")
	_ = os.WriteFile(p, []byte("reinforced-default: 0\nbypass-permission: \"\"\n"), 0o644)
	c, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.ReinforcedDefault != 1 || c.BypassPermission != "unbreakable.bypass" {
		t.Fatalf("normalize failed: %+v", c)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if c.ReinforcedDefault != 1 {
		t.Fatalf("defaults not returned alongside error")
	}
}

func TestLoad_BadYAML(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yml")
	_ = os.WriteFile(p, []byte("reinforced-default: [oops\n"), 0o644)
	if _, err := Load(p); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestSuperUserIDs(t *testing.T) {
	c := Defaults()
	c.SuperUsers = []string{"6f1c2a8e-1111-4d5e-9a6b-000000000001", "Carlos215"}
	ids, bad := c.SuperUserIDs()
	if len(ids) != 1 || len(bad) != 1 || bad[0] != "Carlos215" {
		t.Fatalf("ids=%v bad=%v", ids, bad)
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yml")
	c := Defaults()
	c.UnbreakableBlocks = []string{"BEDROCK"}
	if err := Write(p, c); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.UnbreakableBlocks) != 1 || got.Messages.BreakDeny != DefaultBreakDeny {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestStatePath(t *testing.T) {
	c := Defaults()
	if got := c.StatePath("data"); got != filepath.Join("data", DefaultStateFile) {
		t.Fatalf("relative: %s", got)
	}
	abs := filepath.Join(t.TempDir(), "elsewhere.yml")
	c.StateFile = abs
	if got := c.StatePath("data"); got != abs {
		t.Fatalf("absolute: %s", got)
	}
}

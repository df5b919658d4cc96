package catalogs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults_LookupIsCaseInsensitive(t *testing.T) {
	c := Defaults()
	for _, name := range []string{"bedrock", "BEDROCK", " Bedrock ", "minecraft:bedrock"} {
		id, err := c.Blocks.Lookup(name)
		if err != nil || id != "BEDROCK" {
			t.Fatalf("lookup %q: id=%q err=%v", name, id, err)
		}
	}
	if _, err := c.Blocks.Lookup("NOT_A_BLOCK"); !errors.Is(err, ErrUnknownBlock) {
		t.Fatalf("expected ErrUnknownBlock, got %v", err)
	}
	if _, err := c.Blocks.Lookup(""); !errors.Is(err, ErrUnknownBlock) {
		t.Fatalf("empty name: expected ErrUnknownBlock, got %v", err)
	}
	if !c.Blocks.IsAir("AIR") || c.Blocks.IsAir("STONE") {
		t.Fatalf("air flags wrong")
	}
}

func TestDefaults_FeedbackNames(t *testing.T) {
	c := Defaults()
	if id, err := c.Feedback.Sound("entity_item_break"); err != nil || id != "ENTITY_ITEM_BREAK" {
		t.Fatalf("sound: id=%q err=%v", id, err)
	}
	if _, err := c.Feedback.Sound("NOPE"); !errors.Is(err, ErrUnknownSound) {
		t.Fatalf("expected ErrUnknownSound, got %v", err)
	}
	if _, err := c.Feedback.Particle("NOPE"); !errors.Is(err, ErrUnknownParticle) {
		t.Fatalf("expected ErrUnknownParticle, got %v", err)
	}
}

func TestWithPrefix(t *testing.T) {
	c := Defaults()
	got := c.Blocks.WithPrefix("obs")
	if len(got) != 1 || got[0] != "OBSIDIAN" {
		t.Fatalf("WithPrefix(obs)=%v", got)
	}
}

func TestLoad_OverridesFromDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "blocks.json"), []byte(`[{"id":"AIR","air":true},{"id":"ruby_block"}]`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.Blocks.Palette) != 2 || c.Blocks.Palette[1] != "RUBY_BLOCK" {
		t.Fatalf("palette=%v", c.Blocks.Palette)
	}
	if _, err := c.Feedback.Particle("SMOKE"); err != nil {
		t.Fatalf("feedback should fall back to defaults: %v", err)
	}
}

func TestLoad_RequiresAir(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "blocks.json"), []byte(`[{"id":"STONE"}]`), 0o644)
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected missing AIR error")
	}
}

package feedback

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/google/uuid"

	"voxelguard.ai/internal/catalogs"
	"voxelguard.ai/internal/config"
	"voxelguard.ai/internal/guard"
)

func TestRenderer_ValidatesOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	cfg := config.Defaults()
	cfg.Feedback.Particle = "NOT_A_PARTICLE"

	r := NewRenderer(cfg.Messages, cfg.Feedback, catalogs.Defaults().Feedback, logger)
	n := r.Render(guard.Actor{ID: uuid.New(), Name: "steve"}, guard.Location{World: "world", X: 1, Y: 2, Z: 3})

	if n.Sound != "ENTITY_ITEM_BREAK" {
		t.Fatalf("sound=%q", n.Sound)
	}
	if n.Particle != "" || n.Count != 0 {
		t.Fatalf("unknown particle should be disabled: %+v", n)
	}
	if n.Message != config.DefaultBreakDeny || n.Pos != [3]int{1, 2, 3} || n.ActorName != "steve" {
		t.Fatalf("notice=%+v", n)
	}
	if !strings.Contains(buf.String(), "particle disabled") {
		t.Fatalf("expected log line, got %q", buf.String())
	}
}

func TestSink_TargetAndDrop(t *testing.T) {
	cfg := config.Defaults()
	s := NewSink(NewRenderer(cfg.Messages, cfg.Feedback, catalogs.Defaults().Feedback, nil))
	drops := 0
	s.OnDrop = func(Notice) { drops++ }

	a := guard.Actor{ID: uuid.New()}
	loc := guard.Location{World: "world"}

	s.NotifyDenied(a, loc)
	if drops != 1 {
		t.Fatalf("no target: drops=%d", drops)
	}

	var got []Notice
	restore := s.SetTarget(func(n Notice) bool { got = append(got, n); return true })
	s.NotifyDenied(a, loc)
	restore()
	if len(got) != 1 || got[0].Particle != "SMOKE" || got[0].Count != 10 {
		t.Fatalf("got=%+v", got)
	}

	s.SetTarget(func(Notice) bool { return false })
	s.NotifyDenied(a, loc)
	if drops != 2 {
		t.Fatalf("full target: drops=%d", drops)
	}
}

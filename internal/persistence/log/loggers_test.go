package log

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"voxelguard.ai/internal/guard"
)

func TestAuditLogger_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewAuditLogger(dir, t.Logf)
	clock := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	l.w.now = func() time.Time { return clock }

	eng := guard.NewEngine(guard.EngineConfig{DefaultHits: 2}, "BEDROCK")
	eng.Observe(l.Record)

	owner := guard.Actor{ID: uuid.New(), Name: "alex"}
	other := guard.Actor{ID: uuid.New(), Name: "steve"}
	at := guard.BlockAt{Loc: guard.Location{World: "world", X: 1, Y: 2, Z: 3}, Block: "BEDROCK"}

	eng.Decide(guard.PlaceIntent{Actor: owner, At: at})
	eng.Decide(guard.PlaceIntent{Actor: owner, At: guard.BlockAt{Loc: at.Loc, Block: "STONE"}})
	clock = clock.Add(2 * time.Minute) // next hour, new file
	eng.Decide(guard.BreakIntent{Actor: other, At: at})

	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	files, _ := filepath.Glob(filepath.Join(dir, "audit", "audit-*.jsonl.zst"))
	if len(files) != 2 {
		t.Fatalf("files=%v", files)
	}

	all, err := ReadAudit(dir, AuditFilter{})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("entries=%+v", all)
	}
	if all[0].Action != guard.KindPlace || all[0].ActorName != "alex" || all[0].Pos != [3]int{1, 2, 3} {
		t.Fatalf("first=%+v", all[0])
	}
	if all[1].Outcome != "DENIED_DECREMENTED" || all[1].HitsLeft != 1 {
		t.Fatalf("second=%+v", all[1])
	}

	denied, err := ReadAudit(dir, AuditFilter{Outcome: "denied_decremented", Actor: "steve"})
	if err != nil || len(denied) != 1 {
		t.Fatalf("filtered=%+v err=%v", denied, err)
	}
	late, _ := ReadAudit(dir, AuditFilter{Since: time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)})
	if len(late) != 1 || late[0].Action != guard.KindBreak {
		t.Fatalf("since=%+v", late)
	}
}

func TestJSONLZstdWriter_SyncMakesFrameReadable(t *testing.T) {
	dir := t.TempDir()
	l := NewAuditLogger(dir, nil)
	defer l.Close()
	if err := l.WriteAudit(guard.AuditEntry{Time: time.Now().UTC(), Action: guard.KindRemove, World: "world", Outcome: "ALLOWED"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := l.Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}
	got, err := ReadAudit(dir, AuditFilter{})
	if err != nil || len(got) != 1 {
		t.Fatalf("got=%+v err=%v", got, err)
	}
}

func TestReadAudit_MissingDir(t *testing.T) {
	if _, err := ReadAudit(t.TempDir(), AuditFilter{}); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist, got %v", err)
	}
}

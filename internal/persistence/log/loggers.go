package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"voxelguard.ai/internal/guard"
)

const hourLayout = "2006-01-02-15"

// JSONLZstdWriter appends JSON lines to zstd files rotated every UTC hour:
// <baseDir>/<prefix>-YYYY-MM-DD-HH.jsonl.zst.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format(hourLayout)
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

// Sync ends the current zstd frame so readers see every line written so
// far. The next Write reopens the hour file in append mode.
func (w *JSONLZstdWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	err := w.closeLocked()
	w.curHour = ""
	return err
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	path := w.pathForHour(hour)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err error
	if w.w != nil {
		_ = w.w.Flush()
		w.w = nil
	}
	if w.enc != nil {
		err = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	return err
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// AuditLogger writes one compressed JSONL record per protected decision.
type AuditLogger struct {
	w   *JSONLZstdWriter
	log func(format string, args ...any)
}

func NewAuditLogger(dataDir string, logf func(format string, args ...any)) *AuditLogger {
	return &AuditLogger{w: NewJSONLZstdWriter(filepath.Join(dataDir, "audit"), "audit"), log: logf}
}

func (l *AuditLogger) WriteAudit(e guard.AuditEntry) error { return l.w.Write(e) }

// Record is an engine observer. Write failures are logged, never returned.
func (l *AuditLogger) Record(d guard.Decision) {
	for _, e := range d.AuditEntries(l.w.now()) {
		if err := l.WriteAudit(e); err != nil && l.log != nil {
			l.log("audit: %v", err)
			return
		}
	}
}

func (l *AuditLogger) Sync() error  { return l.w.Sync() }
func (l *AuditLogger) Close() error { return l.w.Close() }

// AuditFilter selects records in ReadAudit; zero fields match everything.
type AuditFilter struct {
	Since   time.Time
	Until   time.Time
	Action  string
	Actor   string
	World   string
	Outcome string
}

func (f AuditFilter) match(e guard.AuditEntry) bool {
	switch {
	case !f.Since.IsZero() && e.Time.Before(f.Since):
		return false
	case !f.Until.IsZero() && e.Time.After(f.Until):
		return false
	case f.Action != "" && !strings.EqualFold(f.Action, e.Action):
		return false
	case f.Actor != "" && f.Actor != e.Actor && !strings.EqualFold(f.Actor, e.ActorName):
		return false
	case f.World != "" && f.World != e.World:
		return false
	case f.Outcome != "" && !strings.EqualFold(f.Outcome, e.Outcome):
		return false
	}
	return true
}

// ReadAudit decodes every audit file under dataDir/audit in chronological
// file order and returns the matching records.
func ReadAudit(dataDir string, f AuditFilter) ([]guard.AuditEntry, error) {
	dir := filepath.Join(dataDir, "audit")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, "audit-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	out := make([]guard.AuditEntry, 0, 256)
	for _, name := range names {
		recs, err := readAuditFile(filepath.Join(dir, name), f)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

func readAuditFile(path string, f AuditFilter) ([]guard.AuditEntry, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	dec, err := zstd.NewReader(fh)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []guard.AuditEntry
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		var e guard.AuditEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		if f.match(e) {
			out = append(out, e)
		}
	}
	return out, sc.Err()
}

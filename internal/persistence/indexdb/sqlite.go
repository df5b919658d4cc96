package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"voxelguard.ai/internal/guard"
)

// SQLiteIndex is a queryable secondary copy of the audit trail. Writes go
// through a bounded queue to one writer goroutine and are dropped when the
// queue is full; the JSONL audit files remain the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan guard.AuditEntry
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropped   atomic.Uint64
	written   atomic.Uint64
	txFailed  atomic.Uint64
	commitMax time.Duration
}

type Stats struct {
	QueueDepth    int    `json:"queue_depth"`
	QueueCapacity int    `json:"queue_capacity"`
	Written       uint64 `json:"written_total"`
	Dropped       uint64 `json:"dropped_total"`
	TxFailed      uint64 `json:"tx_failed_total"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db:        db,
		ch:        make(chan guard.AuditEntry, 65536),
		commitMax: 2 * time.Second,
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

// Open opens the database file with the index pragmas applied. Readers such
// as the admin CLI use it directly.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS decisions (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			ts_ms INTEGER NOT NULL,
			action TEXT NOT NULL,
			actor TEXT NOT NULL,
			actor_name TEXT NOT NULL,
			world TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			block TEXT NOT NULL,
			outcome TEXT NOT NULL,
			reason TEXT NOT NULL,
			hits_left INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_actor_ts ON decisions(actor, ts_ms);`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_outcome_ts ON decisions(outcome, ts_ms);`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_pos ON decisions(world, x, z, y);`,
		`INSERT OR IGNORE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) WriteAudit(e guard.AuditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- e:
	default:
		s.dropped.Add(1)
	}
	return nil
}

// Record is an engine observer.
func (s *SQLiteIndex) Record(d guard.Decision) {
	for _, e := range d.AuditEntries(time.Now()) {
		_ = s.WriteAudit(e)
	}
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		Written:       s.written.Load(),
		Dropped:       s.dropped.Load(),
		TxFailed:      s.txFailed.Load(),
	}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insert, err := s.db.Prepare(`INSERT INTO decisions(ts_ms,action,actor,actor_name,world,x,y,z,block,outcome,reason,hits_left,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		// Nothing can be indexed; drain so producers never block.
		for range s.ch {
			s.dropped.Add(1)
		}
		return
	}
	defer insert.Close()

	var (
		tx          *sql.Tx
		pending     uint64
		lastCommit  = time.Now()
		commitEvery = 2000
	)

	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.txFailed.Add(1)
		} else {
			s.written.Add(pending)
		}
		tx = nil
		pending = 0
		lastCommit = time.Now()
	}

	idle := time.NewTicker(s.commitMax)
	defer idle.Stop()

	for {
		select {
		case e, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			if tx == nil {
				txx, err := s.db.BeginTx(ctx, nil)
				if err != nil {
					s.txFailed.Add(1)
					s.dropped.Add(1)
					continue
				}
				tx = txx
				lastCommit = time.Now()
			}
			raw, _ := json.Marshal(e)
			if _, err := tx.Stmt(insert).Exec(
				e.Time.UnixMilli(),
				e.Action,
				e.Actor,
				e.ActorName,
				e.World,
				e.Pos[0], e.Pos[1], e.Pos[2],
				e.Block,
				e.Outcome,
				e.Reason,
				int64(e.HitsLeft),
				string(raw),
			); err != nil {
				_ = tx.Rollback()
				tx = nil
				s.txFailed.Add(1)
				s.dropped.Add(pending + 1)
				pending = 0
				continue
			}
			pending++
			if int(pending) >= commitEvery || time.Since(lastCommit) >= s.commitMax {
				commit()
			}
		case <-idle.C:
			commit()
		}
	}
}

// Filter narrows QueryDecisions; zero fields match everything.
type Filter struct {
	DeniedOnly bool
	Action     string
	Actor      string
	World      string
	Since      time.Time
	Limit      int
}

// QueryDecisions returns matching rows newest first.
func QueryDecisions(ctx context.Context, db *sql.DB, f Filter) ([]guard.AuditEntry, error) {
	var (
		where []string
		args  []any
	)
	if f.DeniedOnly {
		where = append(where, "outcome <> ?")
		args = append(args, guard.Allowed.String())
	}
	if f.Action != "" {
		where = append(where, "action = ?")
		args = append(args, strings.ToUpper(f.Action))
	}
	if f.Actor != "" {
		where = append(where, "(actor = ? OR actor_name = ? COLLATE NOCASE)")
		args = append(args, f.Actor, f.Actor)
	}
	if f.World != "" {
		where = append(where, "world = ?")
		args = append(args, f.World)
	}
	if !f.Since.IsZero() {
		where = append(where, "ts_ms >= ?")
		args = append(args, f.Since.UnixMilli())
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	q := `SELECT ts_ms,action,actor,actor_name,world,x,y,z,block,outcome,reason,hits_left FROM decisions`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY seq DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []guard.AuditEntry
	for rows.Next() {
		var (
			e    guard.AuditEntry
			ts   int64
			hits int64
		)
		if err := rows.Scan(&ts, &e.Action, &e.Actor, &e.ActorName, &e.World, &e.Pos[0], &e.Pos[1], &e.Pos[2], &e.Block, &e.Outcome, &e.Reason, &hits); err != nil {
			return nil, err
		}
		e.Time = time.UnixMilli(ts).UTC()
		e.HitsLeft = uint(hits)
		out = append(out, e)
	}
	return out, rows.Err()
}

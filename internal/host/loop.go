package host

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"voxelguard.ai/internal/catalogs"
	"voxelguard.ai/internal/commands"
	"voxelguard.ai/internal/feedback"
	"voxelguard.ai/internal/guard"
	"voxelguard.ai/internal/persistence/state"
)

// Store is where the engine state lives between runs.
type Store interface {
	Load() (guard.State, state.LoadReport, error)
	Save(guard.State) error
}

type Config struct {
	Engine   *guard.Engine
	Store    Store
	Feedback *feedback.Sink
	Blocks   catalogs.BlockCatalog
	Worlds   guard.WorldResolver
	Logger   *log.Logger

	// Seed is the registry used when no state file exists yet.
	Seed []guard.BlockType
	// AutosaveEvery saves dirty state periodically; zero disables it.
	AutosaveEvery time.Duration
	// NameOf resolves owner ids for /unbreakable check; optional.
	NameOf func(id uuid.UUID) string
}

// Loop is the single goroutine that owns the engine. Every other goroutine
// talks to it through the request methods below.
type Loop struct {
	cfg    Config
	engine *guard.Engine
	cmds   *commands.Handler
	logger *log.Logger

	decide   chan decideReq
	command  chan commandReq
	complete chan completeReq
	save     chan saveReq
	status   chan statusReq
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	dirty    bool
	lastSave time.Time
	saves    uint64
	saveErrs uint64
}

type decideReq struct {
	Intent  guard.Intent
	Deliver func(feedback.Notice) bool
	Resp    chan guard.Decision
}

type commandReq struct {
	Caller commands.Caller
	Args   []string
	Resp   chan commands.Result
}

type completeReq struct {
	Caller commands.Caller
	Args   []string
	Resp   chan []string
}

type saveReq struct {
	Resp chan error
}

type statusReq struct {
	Resp chan Status
}

// Status is a point-in-time view of the loop for admin surfaces.
type Status struct {
	Blocks     []string  `json:"unbreakable"`
	Placed     int       `json:"placed"`
	Reinforced int       `json:"reinforced"`
	Dirty      bool      `json:"dirty"`
	LastSave   time.Time `json:"last_save,omitempty"`
	Saves      uint64    `json:"saves"`
	SaveErrors uint64    `json:"save_errors"`
}

var ErrStopped = errors.New("host loop stopped")

func New(cfg Config) *Loop {
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stdout, "[host] ", log.LstdFlags|log.Lmicroseconds)
	}
	l := &Loop{
		cfg:      cfg,
		engine:   cfg.Engine,
		logger:   cfg.Logger,
		decide:   make(chan decideReq, 256),
		command:  make(chan commandReq, 16),
		complete: make(chan completeReq, 16),
		save:     make(chan saveReq, 4),
		status:   make(chan statusReq, 4),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	l.cmds = &commands.Handler{
		Engine:   cfg.Engine,
		Blocks:   cfg.Blocks,
		Worlds:   cfg.Worlds,
		OnChange: func() { l.dirty = true; l.saveNow("registry change") },
	}
	l.cmds.NameOf = cfg.NameOf
	cfg.Engine.Observe(func(d guard.Decision) {
		if d.Protected {
			l.dirty = true
		}
	})
	return l
}

// Load restores the engine from the store. It must be called before Run. A
// file that cannot be parsed at all is moved aside and the engine starts
// empty.
func (l *Loop) Load() (state.LoadReport, error) {
	st, rep, err := l.cfg.Store.Load()
	if err != nil {
		if !errors.Is(err, state.ErrDamaged) {
			return rep, err
		}
		l.logger.Printf("state: %v", err)
		if m, ok := l.cfg.Store.(interface{ MoveAside() (string, error) }); ok {
			if aside, rerr := m.MoveAside(); rerr != nil {
				l.logger.Printf("state: move aside: %v", rerr)
			} else {
				l.logger.Printf("state: damaged file moved to %s", aside)
			}
		}
		st = guard.State{}
		rep = state.LoadReport{}
	}
	if !rep.Found {
		st.Blocks = append(st.Blocks, l.cfg.Seed...)
	}
	l.engine.Restore(st)
	l.logger.Printf("loaded %d placed blocks (skipped %d), %d unbreakable types (skipped %d)",
		rep.Placed, rep.SkippedPlaced, l.engine.Registry().Len(), rep.SkippedBlocks)
	return rep, nil
}

// Run serves requests until ctx is done or Stop is called, then saves once.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)

	var tick <-chan time.Time
	if l.cfg.AutosaveEvery > 0 {
		t := time.NewTicker(l.cfg.AutosaveEvery)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			l.saveNow("shutdown")
			return ctx.Err()
		case <-l.stop:
			l.saveNow("shutdown")
			return nil
		case req := <-l.decide:
			l.handleDecide(req)
		case req := <-l.command:
			req.Resp <- l.cmds.Run(req.Caller, req.Args)
		case req := <-l.complete:
			req.Resp <- l.cmds.Complete(req.Caller, req.Args)
		case req := <-l.save:
			req.Resp <- l.saveNow("admin")
		case req := <-l.status:
			req.Resp <- l.snapshotStatus()
		case <-tick:
			if l.dirty {
				l.saveNow("autosave")
			}
		}
	}
}

func (l *Loop) Stop() { l.stopOnce.Do(func() { close(l.stop) }) }

// Done is closed once Run has returned and the final save happened.
func (l *Loop) Done() <-chan struct{} { return l.done }

func (l *Loop) handleDecide(req decideReq) {
	if l.cfg.Feedback != nil && req.Deliver != nil {
		restore := l.cfg.Feedback.SetTarget(req.Deliver)
		defer restore()
	}
	req.Resp <- l.engine.Decide(req.Intent)
}

func (l *Loop) saveNow(why string) error {
	if err := l.cfg.Store.Save(l.engine.Snapshot()); err != nil {
		l.saveErrs++
		l.logger.Printf("save (%s): %v", why, err)
		return fmt.Errorf("save: %w", err)
	}
	l.dirty = false
	l.lastSave = time.Now().UTC()
	l.saves++
	return nil
}

func (l *Loop) snapshotStatus() Status {
	types := l.engine.Registry().Sorted()
	blocks := make([]string, 0, len(types))
	for _, t := range types {
		blocks = append(blocks, string(t))
	}
	return Status{
		Blocks:     blocks,
		Placed:     l.engine.Ledger().Len(),
		Reinforced: l.engine.Ledger().ReinforcedLen(),
		Dirty:      l.dirty,
		LastSave:   l.lastSave,
		Saves:      l.saves,
		SaveErrors: l.saveErrs,
	}
}

// Decide asks the loop for a verdict. deliver receives any feedback notice
// produced while deciding; it must not block.
func (l *Loop) Decide(ctx context.Context, in guard.Intent, deliver func(feedback.Notice) bool) (guard.Decision, error) {
	resp := make(chan guard.Decision, 1)
	if err := send(ctx, l, l.decide, decideReq{Intent: in, Deliver: deliver, Resp: resp}); err != nil {
		return guard.Decision{}, err
	}
	return recv(ctx, l, resp)
}

func (l *Loop) Command(ctx context.Context, c commands.Caller, args []string) (commands.Result, error) {
	resp := make(chan commands.Result, 1)
	if err := send(ctx, l, l.command, commandReq{Caller: c, Args: args, Resp: resp}); err != nil {
		return commands.Result{}, err
	}
	return recv(ctx, l, resp)
}

func (l *Loop) Complete(ctx context.Context, c commands.Caller, args []string) ([]string, error) {
	resp := make(chan []string, 1)
	if err := send(ctx, l, l.complete, completeReq{Caller: c, Args: args, Resp: resp}); err != nil {
		return nil, err
	}
	return recv(ctx, l, resp)
}

// Save persists the current state from the loop goroutine.
func (l *Loop) Save(ctx context.Context) error {
	resp := make(chan error, 1)
	if err := send(ctx, l, l.save, saveReq{Resp: resp}); err != nil {
		return err
	}
	err, rerr := recv(ctx, l, resp)
	if rerr != nil {
		return rerr
	}
	return err
}

func (l *Loop) Status(ctx context.Context) (Status, error) {
	resp := make(chan Status, 1)
	if err := send(ctx, l, l.status, statusReq{Resp: resp}); err != nil {
		return Status{}, err
	}
	return recv(ctx, l, resp)
}

func send[T any](ctx context.Context, l *Loop, ch chan<- T, v T) error {
	select {
	case ch <- v:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func recv[T any](ctx context.Context, l *Loop, ch <-chan T) (T, error) {
	var zero T
	select {
	case v := <-ch:
		return v, nil
	case <-l.done:
		select {
		case v := <-ch:
			return v, nil
		default:
			return zero, ErrStopped
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"voxelguard.ai/internal/catalogs"
	"voxelguard.ai/internal/config"
	"voxelguard.ai/internal/feedback"
	"voxelguard.ai/internal/guard"
	"voxelguard.ai/internal/host"
	"voxelguard.ai/internal/metrics"
	"voxelguard.ai/internal/persistence/indexdb"
	persistlog "voxelguard.ai/internal/persistence/log"
	"voxelguard.ai/internal/persistence/state"
	"voxelguard.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "catalog directory (blocks.json, feedback.json)")
		configPath = flag.String("config", "", "path to config.yml (default: <data>/config.yml)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		disableDB  = flag.Bool("disable_db", false, "disable the SQLite audit index")
		autosave   = flag.Duration("autosave", 5*time.Minute, "save dirty state this often (0 disables)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}

	cp := strings.TrimSpace(*configPath)
	if cp == "" {
		cp = filepath.Join(*dataDir, "config.yml")
	}
	cfg, err := config.Load(cp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load config: %v", err)
		}
		logger.Printf("config not found (%s); writing defaults", cp)
		if err := config.Write(cp, cfg); err != nil {
			logger.Printf("write default config: %v", err)
		}
	}

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	superUsers, invalid := cfg.SuperUserIDs()
	for _, s := range invalid {
		logger.Printf("config: super-users entry %q is not a uuid; ignored", s)
	}
	var seed []guard.BlockType
	for _, name := range cfg.UnbreakableBlocks {
		id, err := cats.Blocks.Lookup(name)
		if err != nil {
			logger.Printf("config: unbreakable-blocks entry %q: %v", name, err)
			continue
		}
		seed = append(seed, guard.BlockType(id))
	}
	worlds := guard.NewWorldSet(cfg.Worlds...)

	m := metrics.New()

	sink := feedback.NewSink(feedback.NewRenderer(cfg.Messages, cfg.Feedback, cats.Feedback, logger))
	sink.OnDrop = func(feedback.Notice) { m.FeedbackDropped() }

	eng := guard.NewEngine(guard.EngineConfig{
		DefaultHits: uint(cfg.ReinforcedDefault),
		Auth:        guard.NewPermissionAuthorizer(cfg.BypassPermission, superUsers),
		Feedback:    sink,
	})

	loop := host.New(host.Config{
		Engine:   eng,
		Feedback: sink,
		Store: state.Store{
			Path:   cfg.StatePath(*dataDir),
			Worlds: worlds,
			Blocks: cats.Blocks,
		},
		Blocks:        cats.Blocks,
		Worlds:        worlds,
		Seed:          seed,
		AutosaveEvery: *autosave,
		Logger:        log.New(os.Stdout, "[guard] ", log.LstdFlags|log.Lmicroseconds),
	})
	if _, err := loop.Load(); err != nil {
		logger.Fatalf("load state: %v", err)
	}
	m.SetLedger(eng.Registry().Len(), eng.Ledger().Len(), eng.Ledger().ReinforcedLen())

	auditLog := persistlog.NewAuditLogger(*dataDir, logger.Printf)
	eng.Observe(auditLog.Record)

	idx, err := openIndex(*dataDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		eng.Observe(idx.Record)
		m.WatchIndex(idx.Stats)
	}
	eng.Observe(m.Engine(eng))

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("host loop stopped: %v", err)
		}
	}()
	go watchSaveErrors(ctx, loop, m)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", m.Handler())

	if envBool("VG_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()) {
		var stats func() indexdb.Stats
		if idx != nil {
			stats = idx.Stats
		}
		registerAdmin(mux, loop, stats)
	} else {
		logger.Printf("admin endpoints disabled (VG_ENABLE_ADMIN_HTTP=false)")
	}
	if envBool("VG_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	bridge := ws.NewServer(loop, log.New(os.Stdout, "[bridge] ", log.LstdFlags|log.Lmicroseconds), ws.Options{
		Worlds:   worlds,
		Catalogs: cats,
		Observer: m,
	})
	mux.HandleFunc("/v1/bridge", bridge.Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s (protected types=%d placed=%d)", *addr, eng.Registry().Len(), eng.Ledger().Len())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}

	// Observers run on the loop goroutine; close their sinks only after the
	// shutdown save has finished.
	cancel()
	<-loop.Done()
	if err := auditLog.Close(); err != nil {
		logger.Printf("close audit log: %v", err)
	}
	if idx != nil {
		if err := idx.Close(); err != nil {
			logger.Printf("close index: %v", err)
		}
	}
	logger.Printf("stopped")
}

// watchSaveErrors mirrors the loop's save failure count into metrics.
func watchSaveErrors(ctx context.Context, loop *host.Loop, m *metrics.Metrics) {
	t := time.NewTicker(15 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			st, err := loop.Status(ctx)
			if err != nil {
				continue
			}
			m.SetSaveErrors(st.SaveErrors)
		}
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

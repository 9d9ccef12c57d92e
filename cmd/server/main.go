package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"scrapworks.ai/internal/console"
	"scrapworks.ai/internal/craft"
	"scrapworks.ai/internal/host"
	"scrapworks.ai/internal/lang"
	"scrapworks.ai/internal/miner"
	persistlog "scrapworks.ai/internal/persistence/log"
	"scrapworks.ai/internal/sim/catalogs"
	"scrapworks.ai/internal/sim/hostsim"
	"scrapworks.ai/internal/sim/tuning"
	"scrapworks.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", "127.0.0.1:8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		frameHz    = flag.Int("frame_hz", 10, "host frame rate")
		token      = flag.String("console_token", "", "admin console token (or set SW_CONSOLE_TOKEN)")
		remote     = flag.Bool("console_allow_remote", false, "accept console connections from non-loopback addresses")

		demoFridges = flag.Int("demo_fridges", envInt("SW_DEMO_FRIDGES", 0), "spawn this many target fridges at startup")
		demoPower   = flag.String("demo_power", "energy", "power api of demo fridges: energy|passthrough|flag|none")
		demoWatts   = flag.Int("demo_watts", 120, "power input of demo fridges")
	)
	flag.Parse()

	logFlags := log.LstdFlags | log.Lmicroseconds
	logger := log.New(os.Stdout, "[server] ", logFlags)

	consoleToken := strings.TrimSpace(*token)
	if consoleToken == "" {
		consoleToken = strings.TrimSpace(os.Getenv("SW_CONSOLE_TOKEN"))
	}

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}
	logger.Printf("items catalog: %d defs (sha256 %s)", len(cats.Items.Defs), cats.Items.Digest[:12])
	_ = os.MkdirAll(*dataDir, 0o755)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, fellBack := tuning.LoadOrDefault(tp, logger)
	if fellBack {
		logger.Printf("using default tuning (written to %s)", tp)
	}

	messages, err := lang.Load(filepath.Join(*configDir, "lang"))
	if err != nil {
		logger.Printf("load lang overrides: %v; using defaults", err)
		messages = lang.Default()
	}

	store, err := openLedgerStore(*dataDir, logger)
	if err != nil {
		logger.Fatalf("open ledger store: %v", err)
	}
	if store != nil {
		defer store.Close()
	}
	ledger := craft.OpenLedger(store, log.New(os.Stdout, "[craft] ", logFlags))

	prodLog := persistlog.NewProductionLogger(*dataDir)
	auditLog := persistlog.NewAuditLogger(*dataDir)
	defer prodLog.Close()
	defer auditLog.Close()

	w := hostsim.New(hostsim.Config{FrameRateHz: *frameHz}, cats.Items, log.New(os.Stdout, "[host] ", logFlags))
	plugin := miner.New(w, tune, miner.Options{
		Logger:     log.New(os.Stdout, "[miner] ", logFlags),
		ConfigPath: tp,
		Sink:       prodLog,
		Flushers:   []miner.Flusher{ledger, prodLog, auditLog},
	})
	crafts := craft.NewService(craft.Deps{
		Config: plugin,
		Items:  w,
		Perms:  w.Permissions(),
		Ledger: ledger,
		Lang:   messages,
		Audit:  auditLog,
		Logger: log.New(os.Stdout, "[craft] ", logFlags),
	})
	crafts.RegisterPermissions()
	w.Attach(plugin)

	if *demoFridges > 0 {
		if err := spawnDemoFridges(w, tune.TargetSkinID, *demoFridges, *demoPower, *demoWatts); err != nil {
			logger.Fatalf("demo fridges: %v", err)
		}
		logger.Printf("spawned %d demo fridges (%s, %dW)", *demoFridges, *demoPower, *demoWatts)
	}

	router := console.NewRouter(plugin, crafts, messages, logger)
	players := func(id uint64) (host.Player, bool) {
		p, ok := w.Player(id)
		if !ok {
			return nil, false
		}
		return p, true
	}
	consoleSrv := ws.NewServer(w, router, players, ws.Options{Token: consoleToken, AllowRemote: *remote}, log.New(os.Stdout, "[console] ", logFlags))

	ctx, cancel := signalContext()
	defer cancel()

	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		ctx2, cancel2 := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel2()
		var snap metricsSnapshot
		if err := w.Submit(ctx2, func() {
			snap = metricsSnapshot{Stats: plugin.Stats(), Frame: w.Frame(), Ledger: ledger.Len()}
		}); err != nil {
			http.Error(rw, err.Error(), http.StatusServiceUnavailable)
			return
		}
		snap.Sessions = consoleSrv.Sessions()
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, snap)
	})
	if envBool("SW_ENABLE_ADMIN_HTTP", true) {
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			ctx2, cancel2 := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel2()
			var resp struct {
				Frame    uint64      `json:"frame"`
				Interval string      `json:"interval"`
				Stats    miner.Stats `json:"stats"`
			}
			if err := w.Submit(ctx2, func() {
				resp.Frame = w.Frame()
				resp.Interval = plugin.Interval().String()
				resp.Stats = plugin.Stats()
			}); err != nil {
				http.Error(rw, err.Error(), http.StatusServiceUnavailable)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(resp)
		})
		mux.HandleFunc("/admin/v1/save", func(rw http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			w.RequestSave()
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true})
		})
	} else {
		logger.Printf("admin endpoints disabled (SW_ENABLE_ADMIN_HTTP=false)")
	}
	if envBool("SW_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/console", consoleSrv.Handler())

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

	logger.Printf("listening on %s (production every %s)", *addr, tune.Interval())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Printf("ListenAndServe: %v", err)
		cancel()
	}

	<-worldDone
	// The loop has exited; nothing else touches the world now.
	plugin.Unload()
	logger.Printf("shutdown complete")
}

func spawnDemoFridges(w *hostsim.World, skin uint64, n int, power string, watts int) error {
	api, err := hostsim.ParsePowerAPI(power)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		e := w.NewFridge(skin, api)
		if f, ok := hostsim.Unwrap(e); ok {
			f.SetWatts(watts)
		}
		w.Spawn(e)
	}
	return nil
}

type metricsSnapshot struct {
	Stats    miner.Stats
	Frame    uint64
	Ledger   int
	Sessions int64
}

// writeMetrics renders the Prometheus text exposition format.
func writeMetrics(rw http.ResponseWriter, m metricsSnapshot) {
	s := m.Stats.Scheduler
	running := 0
	if s.Running {
		running = 1
	}

	fmt.Fprintf(rw, "# HELP scrapworks_host_frame Current host frame.\n")
	fmt.Fprintf(rw, "# TYPE scrapworks_host_frame gauge\n")
	fmt.Fprintf(rw, "scrapworks_host_frame %d\n", m.Frame)

	fmt.Fprintf(rw, "# HELP scrapworks_miner_tracked Tracked producer entities.\n")
	fmt.Fprintf(rw, "# TYPE scrapworks_miner_tracked gauge\n")
	fmt.Fprintf(rw, "scrapworks_miner_tracked %d\n", m.Stats.Tracked)

	fmt.Fprintf(rw, "# HELP scrapworks_miner_pending Spawned entities awaiting inspection.\n")
	fmt.Fprintf(rw, "# TYPE scrapworks_miner_pending gauge\n")
	fmt.Fprintf(rw, "scrapworks_miner_pending %d\n", m.Stats.Pending)

	fmt.Fprintf(rw, "# HELP scrapworks_miner_running Whether the production timer is armed.\n")
	fmt.Fprintf(rw, "# TYPE scrapworks_miner_running gauge\n")
	fmt.Fprintf(rw, "scrapworks_miner_running %d\n", running)

	fmt.Fprintf(rw, "# HELP scrapworks_miner_interval_seconds Production interval.\n")
	fmt.Fprintf(rw, "# TYPE scrapworks_miner_interval_seconds gauge\n")
	fmt.Fprintf(rw, "scrapworks_miner_interval_seconds %.3f\n", s.Interval.Seconds())

	fmt.Fprintf(rw, "# HELP scrapworks_miner_ticks_total Production passes run.\n")
	fmt.Fprintf(rw, "# TYPE scrapworks_miner_ticks_total counter\n")
	fmt.Fprintf(rw, "scrapworks_miner_ticks_total %d\n", s.Ticks)

	fmt.Fprintf(rw, "# HELP scrapworks_miner_inserted_total Resource units inserted.\n")
	fmt.Fprintf(rw, "# TYPE scrapworks_miner_inserted_total counter\n")
	fmt.Fprintf(rw, "scrapworks_miner_inserted_total %d\n", s.InsertedTotal)

	fmt.Fprintf(rw, "# HELP scrapworks_miner_failures_total Per-entity failures.\n")
	fmt.Fprintf(rw, "# TYPE scrapworks_miner_failures_total counter\n")
	fmt.Fprintf(rw, "scrapworks_miner_failures_total %d\n", s.FailuresTotal)

	fmt.Fprintf(rw, "# HELP scrapworks_miner_last_pass Outcome counts of the last pass.\n")
	fmt.Fprintf(rw, "# TYPE scrapworks_miner_last_pass gauge\n")
	fmt.Fprintf(rw, "scrapworks_miner_last_pass{metric=%q} %d\n", "produced", s.Last.Produced)
	fmt.Fprintf(rw, "scrapworks_miner_last_pass{metric=%q} %d\n", "inserted", s.Last.Inserted)
	fmt.Fprintf(rw, "scrapworks_miner_last_pass{metric=%q} %d\n", "removed", s.Last.Removed)
	fmt.Fprintf(rw, "scrapworks_miner_last_pass{metric=%q} %d\n", "not_io", s.Last.Skipped[miner.SkipNotIO])
	fmt.Fprintf(rw, "scrapworks_miner_last_pass{metric=%q} %d\n", "underpowered", s.Last.Skipped[miner.SkipUnderpowered])
	fmt.Fprintf(rw, "scrapworks_miner_last_pass{metric=%q} %d\n", "failures", len(s.Last.Failures))

	r := m.Stats.Resolver
	fmt.Fprintf(rw, "# HELP scrapworks_resolver Container resolver cache counters.\n")
	fmt.Fprintf(rw, "# TYPE scrapworks_resolver gauge\n")
	fmt.Fprintf(rw, "scrapworks_resolver{metric=%q} %d\n", "cached", r.Cached)
	fmt.Fprintf(rw, "scrapworks_resolver{metric=%q} %d\n", "hits", r.Hits)
	fmt.Fprintf(rw, "scrapworks_resolver{metric=%q} %d\n", "misses", r.Misses)
	fmt.Fprintf(rw, "scrapworks_resolver{metric=%q} %d\n", "probes", r.Probes)

	fmt.Fprintf(rw, "# HELP scrapworks_craft_ledger_entries Participants with a recorded craft.\n")
	fmt.Fprintf(rw, "# TYPE scrapworks_craft_ledger_entries gauge\n")
	fmt.Fprintf(rw, "scrapworks_craft_ledger_entries %d\n", m.Ledger)

	fmt.Fprintf(rw, "# HELP scrapworks_console_sessions Open admin console sessions.\n")
	fmt.Fprintf(rw, "# TYPE scrapworks_console_sessions gauge\n")
	fmt.Fprintf(rw, "scrapworks_console_sessions %d\n", m.Sessions)
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

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

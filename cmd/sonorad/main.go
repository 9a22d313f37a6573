// Command sonorad is the sonora sound daemon. It loads a sound library,
// serves the control API, and advertises itself over mDNS.
// Run with --mock to use simulated playback handles (no media files required).
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/sonora-audio/sonora-go/internal/api"
	"github.com/sonora-audio/sonora-go/internal/config"
	"github.com/sonora-audio/sonora-go/internal/events"
	"github.com/sonora-audio/sonora-go/internal/manager"
	"github.com/sonora-audio/sonora-go/internal/models"
	"github.com/sonora-audio/sonora-go/internal/platform"
	"github.com/sonora-audio/sonora-go/internal/zeroconf"
)

func main() {
	var (
		mock     = flag.Bool("mock", false, "use mock playback handles (no media files required)")
		addr     = flag.String("addr", ":8090", "HTTP listen address")
		cfgDir   = flag.String("config-dir", "", "config directory (default: ~/.config/sonora)")
		library  = flag.String("library", "", "sound library file (default: <config-dir>/library.json)")
		basePath = flag.String("base-path", "", "base directory for relative sound paths")
		strategy = flag.String("cache-strategy", string(models.StrategyLazy), "cache strategy: preload or lazy")
		debug    = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	// Configure logging
	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Resolve config directory
	if *cfgDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			slog.Error("cannot determine home directory", "err", err)
			os.Exit(1)
		}
		*cfgDir = filepath.Join(home, ".config", "sonora")
	}
	if err := os.MkdirAll(*cfgDir, 0755); err != nil {
		slog.Error("cannot create config directory", "path", *cfgDir, "err", err)
		os.Exit(1)
	}
	if *library == "" {
		*library = filepath.Join(*cfgDir, "library.json")
	}

	// Graceful shutdown context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Playback factory
	var factory platform.Factory
	if *mock {
		slog.Info("using mock playback handles")
		factory = platform.NewMockFactory(&sync.Map{})
	} else {
		factory = platform.NewFileFactory()
	}

	// Settings store and event bus
	store := config.NewJSONStore(*cfgDir)
	bus := events.NewBus()

	// Manager
	mcfg := models.DefaultManagerConfig()
	mcfg.BasePath = *basePath
	mcfg.CacheStrategy = models.CacheStrategy(*strategy)
	mcfg.Debug = *debug
	pcfg := models.DefaultPreloaderConfig()
	pcfg.Debug = *debug

	mgr, err := manager.New(mcfg, pcfg, factory, store, bus)
	if err != nil {
		slog.Error("manager initialization failed", "err", err)
		os.Exit(1)
	}

	// Sound library
	lib, err := config.LoadLibrary(*library)
	if err != nil {
		slog.Warn("sound library unavailable, starting empty", "path", *library, "err", err)
		lib = &config.Library{}
	}
	if appErr := mgr.Initialize(ctx, lib.Sounds); appErr != nil {
		slog.Error("manager initialize failed", "err", appErr)
		os.Exit(1)
	}
	for _, g := range lib.Groups {
		if appErr := mgr.RegisterGroup(g); appErr != nil {
			slog.Warn("group registration failed", "group", g.ID, "err", appErr)
		}
	}

	// Library hot reload: new definitions and groups are picked up on save.
	watcher, err := config.WatchLibrary(*library, func(lib *config.Library) {
		added := mgr.Register(lib.Sounds)
		for _, g := range lib.Groups {
			if appErr := mgr.RegisterGroup(g); appErr != nil {
				slog.Warn("group registration failed", "group", g.ID, "err", appErr)
			}
		}
		slog.Info("library reloaded", "new_sounds", added, "groups", len(lib.Groups))
	})
	if err != nil {
		slog.Warn("library watch unavailable", "err", err)
	} else {
		defer watcher.Close()
	}

	// Zeroconf mDNS registration
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "sonora"
	}
	port := 8090
	if parts := strings.SplitN(*addr, ":", 2); len(parts) == 2 && parts[1] != "" {
		if p, err := strconv.Atoi(parts[1]); err == nil {
			port = p
		}
	}
	zc := zeroconf.New(hostname, port)
	go func() {
		if err := zc.Start(ctx); err != nil {
			slog.Warn("zeroconf failed", "err", err)
		}
	}()

	// HTTP server
	srv := &http.Server{
		Addr:         *addr,
		Handler:      api.NewRouter(mgr, bus),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 0 = no timeout (needed for SSE)
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("sonora listening", "addr", *addr, "mock", *mock, "config", *cfgDir)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()

	// Fade out anything still audible before tearing down
	fadeOut := 250 * time.Millisecond
	mgr.StopAll(shutCtx, &manager.StopOptions{FadeOut: &fadeOut})
	mgr.Destroy()

	// Graceful HTTP shutdown
	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("server shutdown error", "err", err)
	}

	slog.Info("shutdown complete")
}

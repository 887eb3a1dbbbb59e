// Command kbcompanion is the settings daemon of the keyboard companion app.
// Run with --bridge mock to work without a running keyboard process.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/glyphkey/kbcompanion/internal/api"
	"github.com/glyphkey/kbcompanion/internal/bridge"
	"github.com/glyphkey/kbcompanion/internal/cloud"
	"github.com/glyphkey/kbcompanion/internal/config"
	"github.com/glyphkey/kbcompanion/internal/controller"
	"github.com/glyphkey/kbcompanion/internal/events"
	"github.com/glyphkey/kbcompanion/internal/identity"
	"github.com/glyphkey/kbcompanion/internal/maintenance"
	"github.com/glyphkey/kbcompanion/internal/models"
	"github.com/glyphkey/kbcompanion/internal/prefs"
	"github.com/glyphkey/kbcompanion/internal/zeroconf"
)

func main() {
	var (
		cfgPath   = flag.String("config", "", "YAML config file (optional)")
		addr      = flag.String("addr", "", "HTTP listen address (overrides config)")
		dataDir   = flag.String("data-dir", "", "data directory (default: ~/.config/kbcompanion)")
		transport = flag.String("bridge", "", "keyboard transport: http, dbus or mock (overrides config)")
		debug     = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		slog.Error("cannot load config", "path", *cfgPath, "err", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Listen = *addr
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *transport != "" {
		cfg.Bridge.Transport = *transport
	}
	if *debug {
		cfg.Debug = true
	}

	// Configure logging
	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "err", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		slog.Error("cannot create data directory", "path", cfg.DataDir, "err", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("kbcompanion stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	// Graceful shutdown context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Preference store
	store := prefs.NewJSONStore(cfg.DataDir)
	if _, err := prefs.Migrate(store, controller.Migrations); err != nil {
		return err
	}

	info, err := identity.Load(store, cfg.DataDir)
	if err != nil {
		return err
	}

	kb, closeBridge, err := openBridge(cfg)
	if err != nil {
		return err
	}
	defer closeBridge()

	mirror, closeMirror, err := openMirror(cfg)
	if err != nil {
		return err
	}
	defer closeMirror()

	bus := events.NewBus()

	// Controllers live until shutdown, not per request.
	mgrCtx, mgrCancel := context.WithCancel(context.Background())
	defer mgrCancel()
	mgr := controller.NewManager(mgrCtx, controller.Options{
		Store:         store,
		Bridge:        kb,
		Mirror:        mirror,
		DocID:         info.DeviceID,
		Bus:           bus,
		Delay:         cfg.GetSyncDelay(),
		NotifyDelay:   cfg.GetNotifyDelay(),
		BridgeTimeout: cfg.GetBridgeTimeout(),
		CloudTimeout:  cfg.GetCloudTimeout(),
	})

	// Pick up writes the keyboard process makes to the shared preferences.
	watcher, err := prefs.NewWatcher(store, mgr.Reload)
	if err != nil {
		return err
	}

	maint := maintenance.New(mgr.Status, store, maintenance.Options{
		StatusInterval: cfg.GetStatusInterval(),
		BackupDir:      cfg.BackupDir(),
		BackupKeep:     cfg.Maintenance.BackupKeep,
		OnStatus: func(st models.KeyboardStatus) {
			slog.Info("keyboard status changed", "enabled", st.Enabled, "active", st.Active)
			bus.Publish(events.Event{Kind: events.KindStatus, Values: map[string]any{
				"enabled": st.Enabled,
				"active":  st.Active,
			}})
		},
	})

	srv := &http.Server{
		Addr:         cfg.Listen,
		Handler:      api.NewRouter(api.Deps{Manager: mgr, Bus: bus, Info: info, Backups: maint}),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 0 = no timeout (needed for SSE)
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("kbcompanion listening", "addr", cfg.Listen, "bridge", cfg.Bridge.Transport,
			"data_dir", cfg.DataDir, "device", info.DeviceID)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error { return watcher.Run(gctx) })
	g.Go(func() error { return maint.Start(gctx) })
	if cfg.Zeroconf.Enabled {
		zc := zeroconf.New(info, listenPort(cfg.Listen))
		g.Go(func() error {
			if err := zc.Start(gctx); err != nil {
				slog.Warn("zeroconf failed", "err", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutCancel()

		// Graceful HTTP shutdown
		if err := srv.Shutdown(shutCtx); err != nil {
			slog.Warn("server shutdown error", "err", err)
		}
		// Flush open screens and pending preference writes
		if err := mgr.CloseAll(shutCtx); err != nil {
			slog.Warn("failed to flush settings", "err", err)
		}
		return nil
	})

	err = g.Wait()
	slog.Info("shutdown complete")
	return err
}

func openBridge(cfg *config.Config) (bridge.Bridge, func(), error) {
	switch cfg.Bridge.Transport {
	case config.TransportDBus:
		d, err := bridge.NewDBus(cfg.Bridge.BusName, cfg.Bridge.ObjectPath)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("using D-Bus keyboard bridge", "name", cfg.Bridge.BusName)
		return d, func() { _ = d.Close() }, nil
	case config.TransportMock:
		slog.Info("using mock keyboard bridge")
		return bridge.NewMock(), func() {}, nil
	default:
		slog.Info("using HTTP keyboard bridge", "url", cfg.Bridge.URL)
		return bridge.NewHTTPClient(cfg.Bridge.URL, cfg.GetBridgeTimeout()), func() {}, nil
	}
}

func openMirror(cfg *config.Config) (cloud.Mirror, func(), error) {
	if !cfg.Cloud.Enabled {
		return cloud.Nop{}, func() {}, nil
	}
	if cfg.Cloud.Backend == config.CloudSQLite {
		m, err := cloud.OpenSQLite(cfg.CloudSQLitePath())
		if err != nil {
			return nil, nil, err
		}
		slog.Info("mirroring settings to sqlite", "path", cfg.CloudSQLitePath())
		return m, func() { _ = m.Close() }, nil
	}
	slog.Info("mirroring settings to cloud", "url", cfg.Cloud.URL, "collection", cfg.Cloud.Collection)
	return cloud.NewHTTPMirror(cloud.HTTPOptions{
		BaseURL:    cfg.Cloud.URL,
		Collection: cfg.Cloud.Collection,
		Token:      cfg.Cloud.Token,
		Timeout:    cfg.GetCloudTimeout(),
		RatePerSec: cfg.Cloud.RatePerSec,
		Burst:      cfg.Cloud.Burst,
	}), func() {}, nil
}

func listenPort(addr string) int {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 80
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return 80
	}
	return port
}

// Package main is the entry point for the overbard status strip daemon.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/overbar/internal/audio"
	"github.com/jmylchreest/overbar/internal/config"
	"github.com/jmylchreest/overbar/internal/daemon"
	"github.com/jmylchreest/overbar/internal/dbus"
	"github.com/jmylchreest/overbar/internal/display"
	"github.com/jmylchreest/overbar/internal/model"
	"github.com/jmylchreest/overbar/internal/overlay"
	"github.com/jmylchreest/overbar/internal/store"
	"github.com/jmylchreest/overbar/internal/theme"
)

const appID = "io.github.jmylchreest.overbard"

var (
	// Build-time variables
	version = "dev"
)

func main() {
	debug := flag.Bool("debug", false, "Enable debug logging")
	configPath := flag.String("config", "", "Path to config file (default: ~/.config/overbar/overbard.toml)")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("overbard version", version)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	os.Exit(run(*configPath, logger))
}

// dispatch runs f on the GTK main loop.
func dispatch(f func()) {
	glib.IdleAdd(f)
}

func run(configPath string, logger *slog.Logger) int {
	logger.Info("starting overbard", "version", version)

	if configPath == "" {
		p, err := config.DaemonConfigPath()
		if err != nil {
			logger.Error("failed to get config path", "error", err)
			return 1
		}
		configPath = p
	}

	cfg, err := config.LoadDaemonConfigFrom(configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return 1
	}

	app := adw.NewApplication(appID, 0)

	// Owned by the GTK main loop.
	var (
		bar           *display.Bar
		themeLoader   *theme.Loader
		audioManager  *audio.Manager
		server        *dbus.Server
		mirror        *daemon.Mirror
		configWatcher *daemon.ConfigWatcher
		stateFile     *store.StateFile
		lazy          *overlay.Lazy
		running       atomic.Bool
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		glib.IdleAdd(func() {
			app.Quit()
		})
	}()

	app.ConnectActivate(func() {
		if running.Load() {
			logger.Warn("application already running")
			return
		}
		running.Store(true)

		stateFile, err = store.OpenDefault(logger)
		if err != nil {
			logger.Warn("state persistence unavailable", "error", err)
		} else if snap, err := stateFile.Snapshot(); err == nil {
			logger.Debug("loaded overlay state", "path", stateFile.Path(), "flags", snap.Flags)
		}

		themeLoader = theme.NewLoader(logger)
		if err := themeLoader.LoadTheme(cfg.Theme.Name); err != nil {
			logger.Warn("failed to load theme, using default", "error", err)
		}
		themeLoader.SetColorScheme(config.ColorScheme(cfg.Theme.ColorScheme))
		themeLoader.Apply(nil)
		themeLoader.StartHotReload()

		audioManager = audio.NewManager(cfg, logger)

		bar, err = display.NewBar(&app.Application, cfg, logger)
		if err != nil {
			logger.Error("failed to create bar", "error", err)
			app.Quit()
			return
		}

		lazy = overlay.NewLazy(func() overlay.Options {
			opts := overlay.Options{
				Clock:             overlay.NewSystemClock(dispatch),
				Dispatch:          dispatch,
				Renderer:          bar,
				Delegate:          overlay.MultiDelegate{server.Delegate(), audioManager.Delegate()},
				Logger:            logger,
				Animation:         cfg.AnimationStyle(),
				DisableAnimations: !cfg.Animation.Enabled,
			}
			if stateFile != nil {
				opts.StateStore = stateFile
			}
			return opts
		})

		host := daemon.NewHost(daemon.HostOptions{
			Overlay:  lazy,
			Dispatch: dispatch,
			Config:   cfg,
			Logger:   logger,
		})
		server = dbus.NewServer(host, logger)

		bar.SetGestureHandler(func(g model.Gesture) {
			lazy.Get().Touch(g)
		})

		notifier := daemon.NewInternalNotifier(
			func(text string, t model.MessageType) (model.Message, error) {
				return host.NewMessage(text, t, -1, cfg.Animation.Enabled, false)
			},
			host.PostMessage,
			logger,
		)

		if err := server.Start(); err != nil {
			logger.Error("failed to start D-Bus server", "error", err)
			app.Quit()
			return
		}

		o := lazy.Get()
		if cfg.State.RestoreOnStart {
			if err := o.RestoreState(); err != nil {
				logger.Warn("failed to restore state", "error", err)
			}
		}

		mirror = daemon.NewMirror(host.PostMessage, cfg, logger)
		if err := mirror.Apply(cfg); err != nil {
			logger.Warn("failed to start notification mirror", "error", err)
			notifier.NotifyMirrorError(err)
		}

		configWatcher, err = daemon.NewConfigWatcher(configPath, logger)
		if err != nil {
			logger.Warn("failed to create config watcher", "error", err)
		} else {
			configWatcher.SetReloadCallback(func(newConfig *config.DaemonConfig) {
				glib.IdleAdd(func() {
					applyConfig(cfg, newConfig, bar, audioManager, themeLoader, host, mirror, notifier, logger)
					cfg = newConfig
				})
			})
			configWatcher.SetErrorCallback(func(err error) {
				notifier.NotifyConfigError(err)
			})
			if err := configWatcher.Start(cfg); err != nil {
				logger.Warn("failed to start config watcher", "error", err)
			}
		}

		logger.Info("overbard ready", "dbus_interface", dbus.DBusInterface)

		// GTK apps quit when all windows are closed; the bar is unmapped
		// while hidden.
		keepAliveWindow := gtk.NewWindow()
		keepAliveWindow.SetApplication(&app.Application)
		keepAliveWindow.SetDefaultSize(1, 1)
		keepAliveWindow.SetDecorated(false)
		keepAliveWindow.SetVisible(false)
	})

	app.ConnectShutdown(func() {
		logger.Info("application shutting down")
		if lazy != nil && cfg.State.SaveOnExit {
			if err := lazy.Get().SaveState(); err != nil {
				logger.Warn("failed to save state", "error", err)
			}
		}
		if configWatcher != nil {
			configWatcher.Stop()
		}
		if mirror != nil {
			mirror.Stop()
		}
		if server != nil {
			_ = server.Stop()
		}
		if lazy != nil {
			lazy.Get().Close()
		}
		if audioManager != nil {
			audioManager.Stop()
		}
		if themeLoader != nil {
			themeLoader.StopHotReload()
		}
		if bar != nil {
			bar.Stop()
		}
		if stateFile != nil {
			_ = stateFile.Close()
		}
		running.Store(false)
	})

	status := app.Run(os.Args[:1])
	if status != 0 {
		logger.Error("application exited with error", "status", status)
		return status
	}

	logger.Info("overbard stopped")
	return 0
}

// applyConfig pushes a reloaded config to every component. Runs on the
// GTK main loop.
func applyConfig(
	old, cfg *config.DaemonConfig,
	bar *display.Bar,
	audioManager *audio.Manager,
	themeLoader *theme.Loader,
	host *daemon.Host,
	mirror *daemon.Mirror,
	notifier *daemon.InternalNotifier,
	logger *slog.Logger,
) {
	bar.UpdateConfig(cfg)
	audioManager.UpdateConfig(cfg)
	host.SetConfig(cfg)

	if cfg.Theme.ColorScheme != old.Theme.ColorScheme {
		themeLoader.SetColorScheme(config.ColorScheme(cfg.Theme.ColorScheme))
	}
	if cfg.Theme.Name != old.Theme.Name {
		if err := themeLoader.LoadTheme(cfg.Theme.Name); err != nil {
			logger.Warn("failed to load new theme", "theme", cfg.Theme.Name, "error", err)
			notifier.NotifyThemeError(err)
		}
		themeLoader.Apply(nil)
		themeLoader.StartHotReload()
	}

	if err := mirror.Apply(cfg); err != nil {
		notifier.NotifyMirrorError(err)
	}

	notifier.NotifyConfigReloaded()
}

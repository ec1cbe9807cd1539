package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ayusman/handsign/internal/app"
	"github.com/ayusman/handsign/internal/config"
	"github.com/ayusman/handsign/internal/log"
	"github.com/ayusman/handsign/internal/server"
	"github.com/ayusman/handsign/internal/store"
	"github.com/ayusman/handsign/internal/tray"
)

func main() {
	if err := run(); err != nil {
		log.Error("handsign exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log.Init(cfg.Log.Level)
	logger := log.L()

	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	a, err := app.New(app.Config{
		Settings: cfg,
		Store:    st,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	webDir := cfg.Server.StaticDir
	if webDir == "" {
		webDir = findWebDir()
	}
	if webDir != "" {
		logger.Info("serving static files", "dir", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		App:       a,
		Store:     st,
		Logger:    logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe(cfg.Server.Addr)
	}()

	if cfg.Tray.Enabled {
		runTray(ctx, a)
		stop()
	}

	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		err = errors.Join(err, serr)
	}
	return err
}

// runTray blocks on the tray menu until Quit is chosen or ctx ends.
func runTray(ctx context.Context, a *app.App) {
	t := tray.New()
	t.OnStart(func() {
		go func() {
			if err := a.Start(context.Background()); err != nil {
				log.Warn("start from tray failed", "error", err)
			}
		}()
	})
	t.OnStop(a.Stop)
	t.OnReset(func() { a.Reset(context.Background()) })

	events, cancel := a.Subscribe()
	defer cancel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				t.Quit()
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				switch e.Type {
				case app.EventState:
					t.SetState(e.State)
				case app.EventText:
					t.SetText(e.Text)
				}
			}
		}
	}()

	t.Run()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.handsign/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web", filepath.Join(config.DataDir(), "web")} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/Carmen-Shannon/oxy-water/engine"
	"github.com/Carmen-Shannon/oxy-water/engine/config"
)

func init() {
	// GLFW and the surface must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the TOML config file; edits are applied live")
	assetsRoot := flag.String("assets", "", "override assets.root")
	resolution := flag.Int("resolution", 0, "override simulation.resolution")
	flag.Parse()

	if err := run(*configPath, *assetsRoot, *resolution); err != nil {
		fmt.Fprintln(os.Stderr, "oxywater:", err)
		os.Exit(1)
	}
}

func run(configPath, assetsRoot string, resolution int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("setup failed: %v", r)
		}
	}()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if assetsRoot != "" {
		cfg.Assets.Root = assetsRoot
	}
	if resolution > 0 {
		cfg.Simulation.Resolution = resolution
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := engine.Bootstrap(ctx, cfg, configPath)
	if err != nil {
		return err
	}
	defer eng.Release()

	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("shutdown", "frames", eng.Frames())
	return nil
}

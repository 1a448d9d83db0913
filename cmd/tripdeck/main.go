package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/tripdeck/internal/config"
	"git.home.luguber.info/inful/tripdeck/internal/daemon"
	"git.home.luguber.info/inful/tripdeck/internal/persist"
	"git.home.luguber.info/inful/tripdeck/internal/storage"
	"git.home.luguber.info/inful/tripdeck/internal/store"
	"git.home.luguber.info/inful/tripdeck/internal/timer"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"tripdeck.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Serve struct{} `cmd:"" help:"Run the tripdeck daemon"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`

	Show struct{} `cmd:"" help:"Print the current timer snapshot as JSON"`

	PurgeArchive struct{} `cmd:"" help:"Hard-delete every archived timer"`
}

func main() {
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	switch ctx.Command() {
	case "serve":
		if err := runServe(CLI.Config); err != nil {
			slog.Error("Daemon failed", "error", err)
			os.Exit(1)
		}
	case "init":
		if err := config.WriteDefault(CLI.Config, CLI.Init.Force); err != nil {
			slog.Error("Init failed", "error", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", CLI.Config)
	case "show":
		if err := runShow(CLI.Config); err != nil {
			slog.Error("Show failed", "error", err)
			os.Exit(1)
		}
	case "purge-archive":
		if err := runPurgeArchive(CLI.Config); err != nil {
			slog.Error("Purge failed", "error", err)
			os.Exit(1)
		}
	default:
		_ = ctx.PrintUsage(false)
		os.Exit(1)
	}
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	d, err := daemon.New(cfg)
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return d.Run(runCtx)
}

func runShow(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	kv, err := daemon.OpenKV(cfg.Storage)
	if err != nil {
		return err
	}
	defer func() { _ = kv.Close() }()

	runCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	raw, err := kv.Get(runCtx, cfg.Storage.SnapshotKey)
	if err != nil {
		if storage.IsNotFound(err) {
			raw = "" // first run; show the empty snapshot
		} else {
			return err
		}
	}

	snap := timer.EmptySnapshot()
	if raw != "" {
		snap, err = timer.MigrateSnapshot([]byte(raw), time.Now())
		if err != nil {
			return err
		}
	}

	out, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// runPurgeArchive hydrates a store offline, purges the archive, and flushes
// the result through the persistence gateway so the on-disk format stays
// gateway-owned.
func runPurgeArchive(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	kv, err := daemon.OpenKV(cfg.Storage)
	if err != nil {
		return err
	}
	defer func() { _ = kv.Close() }()

	st := store.New(store.Options{KV: kv, Key: cfg.Storage.SnapshotKey})
	gw, err := persist.NewGateway(kv, cfg.Storage.SnapshotKey, persist.GatewayConfig{
		IsReady: st.IsHydrated,
	})
	if err != nil {
		return err
	}
	st.Subscribe(gw.Notify)

	runCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := st.Hydrate(runCtx); err != nil {
		return err
	}

	before := len(st.State().Archived)
	st.PurgeArchive()
	gw.Flush(runCtx)
	st.Wait()

	fmt.Printf("Purged %d archived timer(s)\n", before)
	return nil
}

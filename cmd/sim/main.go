package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hedgerow/hedgerow/internal/config"
	"github.com/hedgerow/hedgerow/internal/core/observability/log"
	"github.com/hedgerow/hedgerow/internal/persistence/journal"
	"github.com/hedgerow/hedgerow/internal/server"
)

func main() {
	configPath := flag.String("config", "world.yaml", "world definition file")
	debug := flag.Bool("debug", false, "debug-level logging")
	flag.Parse()

	level := log.LevelInfo
	if *debug {
		level = log.LevelDebug
	}
	logger := log.New(level)

	if err := run(logger, *configPath); err != nil {
		logger.Error("simulation failed", log.Error(err))
		os.Exit(1)
	}
}

func run(logger *log.Logger, configPath string) error {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}
	logger.Info("config loaded",
		log.String("path", configPath),
		log.String("digest", fmt.Sprintf("%016x", cfg.Digest)))

	world, err := cfg.BuildWorld(logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Journal.Dir != "" {
		w, err := journal.New(cfg.Journal.Dir, cfg.Digest, time.Now())
		if err != nil {
			return err
		}
		defer w.Close()
		if _, err := w.Attach(world.Bus); err != nil {
			return err
		}
		logger.Info("journaling", log.String("path", w.Path()))
	}

	loop := newSimLoop(logger, world, cfg.Tuning.Dt)

	g, ctx := errgroup.WithContext(ctx)
	if cfg.Server.Addr != "" {
		srv := server.New(server.Deps{
			Logger:       logger,
			Controller:   loop,
			ConfigDigest: cfg.Digest,
		})
		if _, err := srv.Attach(world.Bus); err != nil {
			return err
		}
		g.Go(func() error { return srv.Run(ctx, cfg.Server.Addr) })
	}
	g.Go(func() error { return loop.run(ctx) })

	return g.Wait()
}

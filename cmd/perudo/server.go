package main

import (
	"time"

	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"perudo/cmd/perudo/shared"
	"perudo/internal/randutil"
	"perudo/internal/server"
)

// ServerCmd contains core server configuration
type ServerCmd struct {
	Config string `kong:"default='perudo.hcl',help='Path to HCL config file'"`
	Addr   string `kong:"help='Listen address, overrides config'"`
	Port   int    `kong:"help='Listen port, overrides config'"`
	Debug  bool   `kong:"help='Enable debug logging'"`
	Seed   *int64 `kong:"help='Deterministic RNG seed for the server (optional)'"`
}

func (c *ServerCmd) Run() error {
	cfg, err := server.LoadServerConfig(c.Config)
	if err != nil {
		return err
	}
	if c.Addr != "" {
		cfg.Server.Address = c.Addr
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}

	logger := shared.SetupLoggerWithLevel(cfg.Server.LogLevel)
	if c.Debug {
		logger = shared.SetupLogger(true)
	}

	seed := cfg.Game.Seed
	if c.Seed != nil {
		seed = *c.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
		logger.Info("Using random seed", "seed", seed)
	} else {
		logger.Info("Using deterministic seed", "seed", seed)
	}

	clock := quartz.NewReal()
	timing := cfg.Timing()

	store := server.NewStore()
	hub := server.NewHub(logger)
	service := server.NewGameService(logger, store, hub, clock, seed, timing)
	scheduler := server.NewScheduler(logger, service, store, clock, randutil.New(seed+1), timing)
	srv := server.NewServer(logger, cfg, service, hub)

	logger.Info("Starting perudo server",
		"address", cfg.Server.Address,
		"port", cfg.Server.Port,
		"max_players", cfg.Game.MaxPlayers)

	ctx := shared.SetupSignalHandlerWithLogger(logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx)
	})
	g.Go(func() error {
		return scheduler.Run(ctx)
	})
	return g.Wait()
}

// Command trafficd runs a simulation in real time and serves it over HTTP.
//
// Configuration comes from the environment, optionally loaded from a .env
// file in the working directory:
//
//	TRAFFICD_ADDR          listen address (default :8080)
//	TRAFFICD_SCENARIO      scenario JSON file (default: demo grid)
//	TRAFFICD_GRAPH         text graph file
//	TRAFFICD_OSM           OpenStreetMap XML extract
//	TRAFFICD_TICK_MS       wall-clock milliseconds per tick, 0 for manual (default 100)
//	TRAFFICD_SEED          spawn random seed
//	TRAFFICD_ORIGINS       comma-separated CORS origins (default: all)
//	TRAFFICD_RECORDS       traffic records CSV for /api/suggestions
//	TRAFFICD_LOG_LEVEL     debug, info, warn or error (default info)
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/elektrokombinacija/trafficsim/internal/loader"
	"github.com/elektrokombinacija/trafficsim/internal/server"
	"github.com/elektrokombinacija/trafficsim/internal/sim"
)

type config struct {
	addr     string
	source   loader.Source
	tick     time.Duration
	seed     *int64
	origins  []string
	records  string
	logLevel slog.Level
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func loadConfig() (config, error) {
	c := config{
		addr: getenv("TRAFFICD_ADDR", ":8080"),
		source: loader.Source{
			Scenario: os.Getenv("TRAFFICD_SCENARIO"),
			Graph:    os.Getenv("TRAFFICD_GRAPH"),
			OSM:      os.Getenv("TRAFFICD_OSM"),
		},
		records: os.Getenv("TRAFFICD_RECORDS"),
	}

	ms, err := strconv.Atoi(getenv("TRAFFICD_TICK_MS", "100"))
	if err != nil || ms < 0 {
		return c, fmt.Errorf("TRAFFICD_TICK_MS: want a non-negative integer, got %q", os.Getenv("TRAFFICD_TICK_MS"))
	}
	c.tick = time.Duration(ms) * time.Millisecond

	if v := os.Getenv("TRAFFICD_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c, fmt.Errorf("TRAFFICD_SEED: %w", err)
		}
		c.seed = &seed
	}

	if v := os.Getenv("TRAFFICD_ORIGINS"); v != "" {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.origins = append(c.origins, o)
			}
		}
	}

	if err := c.logLevel.UnmarshalText([]byte(getenv("TRAFFICD_LOG_LEVEL", "info"))); err != nil {
		return c, fmt.Errorf("TRAFFICD_LOG_LEVEL: %w", err)
	}
	return c, nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found, using environment variables")
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.logLevel}))
	if cfg.logLevel > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, log); err != nil {
		log.Error("trafficd stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := loader.Load(ctx, cfg.source)
	if err != nil {
		return fmt.Errorf("load scenario: %w", err)
	}
	simCfg := s.Apply(sim.DefaultConfig())
	simCfg.Logger = log
	if cfg.seed != nil {
		simCfg.Seed = *cfg.seed
		s.Sim.Seed = nil
	}
	clock, err := s.Build(simCfg)
	if err != nil {
		return fmt.Errorf("build scenario %q: %w", s.Name, err)
	}
	log.Info("scenario loaded",
		"scenario", s.Name,
		"nodes", clock.Network().NodeCount(),
		"edges", clock.Network().EdgeCount(),
		"signals", len(clock.Controllers()),
		"run_id", clock.Metrics().RunID,
	)

	runner := server.NewRunner(clock, log)
	if cfg.records != "" {
		recs, err := loader.LoadTrafficFile(cfg.records)
		if err != nil {
			return fmt.Errorf("load records: %w", err)
		}
		runner.SetRecords(recs)
		log.Info("traffic records loaded", "count", len(recs))
	}

	srvCfg := server.DefaultConfig()
	srvCfg.AllowOrigins = cfg.origins
	srvCfg.Logger = log
	srv := server.New(runner, srvCfg)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	tickErr := make(chan error, 1)
	go func() {
		err := runner.Run(ctx, cfg.tick)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		if err != nil {
			cancel()
		}
		tickErr <- err
	}()

	serveErr := srv.ListenAndServe(ctx, cfg.addr)
	cancel()
	return errors.Join(serveErr, <-tickErr)
}

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/lineup/internal/loadtest"
	"github.com/okian/lineup/pkg/logger"
)

const defaultRunTimeout = 10 * time.Minute

func main() {
	def := loadtest.DefaultConfig()
	var (
		baseURL    = flag.String("url", def.BaseURL, "Base URL of the service")
		requests   = flag.Int("requests", def.Requests, "Number of lineup requests")
		workers    = flag.Int("workers", def.Workers, "Concurrent submitters")
		rps        = flag.Float64("rps", 0, "Submission rate limit, 0 for unlimited")
		teams      = flag.Int("teams", 0, "Store lineups under this many teams, 0 uses /optimize")
		minPlayers = flag.Int("min", def.MinPlayers, "Smallest roster")
		maxPlayers = flag.Int("max", def.MaxPlayers, "Largest roster")
		cannot     = flag.Float64("cannot", def.CannotPlayRatio, "Chance a preference is cannotPlay")
		wants      = flag.Float64("wants", def.WantsRatio, "Chance a preference is wantsToPlay")
		seed       = flag.Uint64("seed", def.Seed, "Generator seed")
		timeout    = flag.Duration("timeout", def.Timeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Write the generated requests to this JSON file")
		logFile    = flag.String("log", "", "Log file (default lineup_load_TIMESTAMP.log)")
		logFormat  = flag.String("log-format", logger.FormatText, "Log format: text or json")
		verbose    = flag.Bool("verbose", false, "Log every failed request")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadtest.ShowHelp()
		return
	}

	closer, err := loadtest.SetupLogging(*logFile, *logFormat)
	if err != nil {
		os.Stderr.WriteString("failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closer.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	cfg := &loadtest.Config{
		BaseURL:         *baseURL,
		Requests:        *requests,
		Workers:         *workers,
		RPS:             *rps,
		Timeout:         *timeout,
		Teams:           *teams,
		MinPlayers:      *minPlayers,
		MaxPlayers:      *maxPlayers,
		CannotPlayRatio: *cannot,
		WantsRatio:      *wants,
		Seed:            *seed,
		OutputFile:      *outputFile,
		Verbose:         *verbose,
	}

	log := logger.Named("loadtest")
	if _, err := loadtest.Run(ctx, cfg, log); err != nil {
		log.Error(ctx, "load run failed", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

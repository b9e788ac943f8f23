package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v3"

	"github.com/okian/scorecard/internal/simulate"
	"github.com/okian/scorecard/pkg/logger"
)

// Default configuration constants.
const (
	defaultCandidates = 30
	defaultEvaluators = 5
	defaultItems      = 6
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		os.Stderr.WriteString("simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	var (
		cfg      simulate.Config
		logLevel = fs.String("log-level", "info", "log level: debug, info, warn, error")
		deadline = fs.Duration("deadline", defaultRunTimeout, "overall run timeout")
	)
	fs.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "base URL of the service")
	fs.IntVar(&cfg.Candidates, "candidates", defaultCandidates, "candidates to seed")
	fs.IntVar(&cfg.Evaluators, "evaluators", defaultEvaluators, "evaluators to seed")
	fs.IntVar(&cfg.Items, "items", defaultItems, "rubric items to seed")
	fs.IntVar(&cfg.Workers, "workers", runtime.NumCPU()*defaultWorkers, "concurrent evaluator sessions")
	fs.Float64Var(&cfg.RPS, "rps", 0, "request rate limit, 0 for unlimited")
	fs.StringVar(&cfg.AdminToken, "admin-token", "", "admin bearer token")
	fs.DurationVar(&cfg.Timeout, "timeout", defaultTimeout, "HTTP request timeout")
	fs.Uint64Var(&cfg.Seed, "seed", uint64(time.Now().UnixNano()), "seed for generated scores")
	fs.StringVar(&cfg.RunID, "run-id", fmt.Sprintf("sim%d", time.Now().Unix()), "prefix for seeded ids")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "log every submitted session")

	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("SCORECARD_SIM")); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if cfg.Verbose {
		*logLevel = "debug"
	}
	if err := logger.SetLevelString(*logLevel); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *deadline)
	defer cancel()

	_, err := simulate.Run(ctx, &cfg)
	return err
}

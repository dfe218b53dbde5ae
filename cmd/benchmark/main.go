// Command benchmark runs a simulation command once per region and appends
// timing, git, and settings details for each run to a CSV log.
//
// Usage:
//
//	go run ./cmd/benchmark \
//	  --command "python run_feds.py" \
//	  --regions Africa,India \
//	  --start 2023-01-02:AM --end 2023-01-02:PM
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/couchcryptid/firms-ingest/internal/benchmark"
	"github.com/couchcryptid/firms-ingest/internal/observability"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error: read .env: %v\n", err)
		os.Exit(1)
	}
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		regions []string
		start   string
		end     string
		logFile string
		command string
	)

	flagSet := pflag.NewFlagSet("benchmark", pflag.ContinueOnError)
	flagSet.StringSliceVar(&regions, "regions", []string{"Africa"}, "regions to run, each outlined by <region>.geojson")
	flagSet.StringVar(&start, "start", "2023-01-02:AM", "first time step (YYYY-MM-DD:AM|PM)")
	flagSet.StringVar(&end, "end", "2023-01-02:PM", "last time step (YYYY-MM-DD:AM|PM)")
	flagSet.StringVar(&logFile, "log-file", benchmark.DefaultLogFile, "CSV run log to append to")
	flagSet.StringVar(&command, "command", "", "simulation command; region, geojson, start and end are appended")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	fields := strings.Fields(command)
	if len(fields) == 0 {
		return errors.New("--command is required")
	}
	tst, err := benchmark.ParseTimeStep(start)
	if err != nil {
		return err
	}
	ted, err := benchmark.ParseTimeStep(end)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Job output owns stdout; logs go to stderr.
	logger := observability.NewLoggerFromEnv(os.Stderr)
	job := benchmark.CommandJob{Path: fields[0], Args: fields[1:], Stdout: os.Stdout, Stderr: os.Stderr}
	runner := benchmark.NewRunner(job, logFile, logger)

	for _, name := range regions {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := runner.Run(ctx, benchmark.NewRegion(name), tst, ted); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// Package benchmark times simulation runs for a region and appends the
// outcome to a CSV run log.
package benchmark

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/jonboulle/clockwork"
)

// DefaultLogFile is where run entries are appended unless overridden.
const DefaultLogFile = "benchmark_logs/run_log.csv"

// Job runs one simulation for a region and window.
type Job interface {
	Run(ctx context.Context, region Region, start, end TimeStep, profile string) error
}

// CommandJob runs an external command. The region name, GeoJSON file, start
// and end steps are appended to Args. The profile file name is exported as
// BENCHMARK_PROFILE.
type CommandJob struct {
	Path   string
	Args   []string
	Stdout io.Writer
	Stderr io.Writer
}

func (j CommandJob) Run(ctx context.Context, region Region, start, end TimeStep, profile string) error {
	args := append(append([]string{}, j.Args...), region.Name, region.GeoJSON, start.String(), end.String())
	cmd := exec.CommandContext(ctx, j.Path, args...)
	cmd.Stdout = j.Stdout
	cmd.Stderr = j.Stderr
	cmd.Env = append(os.Environ(), "BENCHMARK_PROFILE="+profile)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run %s: %w", j.Path, err)
	}
	return nil
}

// GitInfo reports the current branch and commit hash. Empty strings mean unknown.
type GitInfo func(ctx context.Context) (branch, commit string)

// Settings are the simulation settings recorded with each run.
type Settings struct {
	FireSource  string
	DaskWorkers string
	FtypOpt     string
}

// SettingsFromEnv reads FIRE_SOURCE, N_DASK_WORKERS and FTYP_OPT.
func SettingsFromEnv() Settings {
	return Settings{
		FireSource:  os.Getenv("FIRE_SOURCE"),
		DaskWorkers: os.Getenv("N_DASK_WORKERS"),
		FtypOpt:     os.Getenv("FTYP_OPT"),
	}
}

// Runner executes jobs and records them in the run log.
type Runner struct {
	job      Job
	logFile  string
	settings Settings
	git      GitInfo
	clock    clockwork.Clock
	logger   *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithClock sets the clock used for start and end times.
func WithClock(c clockwork.Clock) Option {
	return func(r *Runner) { r.clock = c }
}

// WithGitInfo replaces the git lookup.
func WithGitInfo(g GitInfo) Option {
	return func(r *Runner) { r.git = g }
}

// WithSettings replaces the settings read from the environment.
func WithSettings(s Settings) Option {
	return func(r *Runner) { r.settings = s }
}

// NewRunner creates a Runner appending to logFile.
func NewRunner(job Job, logFile string, logger *slog.Logger, opts ...Option) *Runner {
	if logFile == "" {
		logFile = DefaultLogFile
	}
	r := &Runner{
		job:      job,
		logFile:  logFile,
		settings: SettingsFromEnv(),
		git:      gitInfo,
		clock:    clockwork.NewRealClock(),
		logger:   logger,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run executes the job for one region and appends the entry to the run log.
// A failed job is recorded with RunCompleted false; only log I/O errors are returned.
func (r *Runner) Run(ctx context.Context, region Region, start, end TimeStep) (Entry, error) {
	prior, err := ReadLog(r.logFile)
	if err != nil {
		return Entry{}, err
	}
	runName := fmt.Sprintf("%s_run%d", region.Name, countRuns(prior, region.Name))

	entry := Entry{
		RunName:      runName,
		RunStartTime: r.clock.Now(),
		Region:       region.Name,
		RegionFile:   region.GeoJSON,
		Start:        start.String(),
		End:          end.String(),
		FireSource:   r.settings.FireSource,
		DaskWorkers:  r.settings.DaskWorkers,
		FtypOpt:      r.settings.FtypOpt,
		ProfileFile:  runName + ".html",
	}
	entry.GitBranch, entry.GitCommitHash = r.git(ctx)

	r.logger.Info("run starting", "run", runName, "region", region.Name, "start", entry.Start, "end", entry.End)
	if err := r.job.Run(ctx, region, start, end, entry.ProfileFile); err != nil {
		r.logger.Error("run failed", "run", runName, "error", err)
		entry.Error = err.Error()
	} else {
		entry.RunCompleted = true
	}

	entry.RunEndTime = r.clock.Now()
	entry.DurationSeconds = entry.RunEndTime.Sub(entry.RunStartTime).Seconds()

	if err := AppendLog(r.logFile, entry); err != nil {
		return entry, err
	}
	r.logger.Info("run logged",
		"run", runName,
		"completed", entry.RunCompleted,
		"duration_seconds", entry.DurationSeconds,
		"log_file", r.logFile,
		"profile_file", entry.ProfileFile,
	)
	return entry, nil
}

func gitInfo(ctx context.Context) (branch, commit string) {
	return gitOutput(ctx, "rev-parse", "--abbrev-ref", "HEAD"), gitOutput(ctx, "rev-parse", "HEAD")
}

func gitOutput(ctx context.Context, args ...string) string {
	out, err := exec.CommandContext(ctx, "git", args...).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

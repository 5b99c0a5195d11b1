// Package cli provides the trialkit command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	// Task types available to session files.
	_ "github.com/gxo-labs/trialkit/modules/flanker"
	_ "github.com/gxo-labs/trialkit/modules/sart"
	_ "github.com/gxo-labs/trialkit/modules/simon"
)

const (
	ExitSuccess    = 0
	ExitFailure    = 1
	ExitUsageError = 2
	ExitTimeout    = 124
	ExitSigInt     = 128 + int(syscall.SIGINT)

	DefaultLogLevel     = "info"
	DefaultLogFmt       = "text"
	DefaultEventBusSize = 256
)

// Version information set at build time.
var (
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps an Execute error onto a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// App is the trialkit CLI application.
type App struct {
	root   *cobra.Command
	stdout io.Writer
	stderr io.Writer
}

// New creates the CLI with all subcommands attached.
func New() *App {
	app := &App{stdout: os.Stdout, stderr: os.Stderr}
	app.root = &cobra.Command{
		Use:   "trialkit",
		Short: "Timed response-capture engine for flanker, go/no-go and Simon trials",
		Long: `trialkit presents timed cognitive-psychology trials, captures keyboard and
mouse responses with a concurrent detection-response probe, and classifies
every trial into a result record.

Session files list the trials to run in order. The simulate command replays
their scripted input against the engine in real time.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	app.root.AddCommand(
		app.newVersionCmd(),
		app.newValidateCmd(),
		app.newSimulateCmd(),
		app.newSchemaCmd(),
	)
	return app
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// Execute runs the CLI. SIGINT and SIGTERM cancel the command context.
func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the CLI with specific arguments.
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "trialkit version %s\n", Version)
			fmt.Fprintf(a.stdout, "commit: %s\n", GitCommit)
			fmt.Fprintf(a.stdout, "built: %s\n", BuildDate)
			fmt.Fprintf(a.stdout, "go version: %s\n", runtime.Version())
			fmt.Fprintf(a.stdout, "os/arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"subleqevo/internal/logs"
	"subleqevo/internal/storage"
	"subleqevo/pkg/subleqevo"
)

const (
	defaultBenchmarksDir = "benchmarks"
	defaultExportsDir    = "exports"
	defaultDBPath        = "subleqevo.db"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// globalOptions are shared by every subcommand.
type globalOptions struct {
	storeKind     string
	dbPath        string
	benchmarksDir string
	exportsDir    string
	logLevel      string
	logFile       string

	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "subleqctl",
		Short:         "Evolve self-replicating SUBLEQ programs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.storeKind, "store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	flags.StringVar(&opts.dbPath, "db-path", defaultDBPath, "sqlite database path")
	flags.StringVar(&opts.benchmarksDir, "benchmarks-dir", defaultBenchmarksDir, "directory for run artifacts")
	flags.StringVar(&opts.exportsDir, "exports-dir", defaultExportsDir, "default export directory")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level: debug|info|warn|error")
	flags.StringVar(&opts.logFile, "log-file", "", "append JSON logs to this file")

	root.AddCommand(
		newRunCmd(opts),
		newExecCmd(opts),
		newRunsCmd(opts),
		newFitnessCmd(opts),
		newReplicatorCmd(opts),
		newExportCmd(opts),
	)
	return root
}

// logger builds the command logger. The returned close func releases the
// log file, if any.
func (o *globalOptions) logger() (*slog.Logger, func(), error) {
	level, err := logs.ParseLevel(o.logLevel)
	if err != nil {
		return nil, nil, err
	}
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	logOpts := logs.Options{Terminal: o.stderr, Level: levelVar}
	closeFn := func() {}
	if o.logFile != "" {
		file, err := logs.OpenFile(o.logFile)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		logOpts.File = file
		closeFn = func() { _ = file.Close() }
	}
	return logs.New(logOpts), closeFn, nil
}

func (o *globalOptions) client(extra subleqevo.Options) (*subleqevo.Client, error) {
	extra.StoreKind = o.storeKind
	extra.DBPath = o.dbPath
	extra.BenchmarksDir = o.benchmarksDir
	extra.ExportsDir = o.exportsDir
	return subleqevo.New(extra)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"subleqevo/internal/config"
	"subleqevo/internal/model"
	"subleqevo/pkg/subleqevo"
)

type runOptions struct {
	configPath  string
	metricsAddr string
	jsonOut     bool
	cfg         config.Config
}

func newRunCmd(global *globalOptions) *cobra.Command {
	opts := &runOptions{cfg: config.Default()}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Search for a self-replicating program",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.resolve(cmd)
			if err != nil {
				return err
			}
			return runSearch(cmd.Context(), global, opts, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "YAML or JSON config file; flags override its values")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running, e.g. :9090")
	flags.BoolVar(&opts.jsonOut, "json", false, "emit the run summary as JSON")
	flags.IntVar(&opts.cfg.PopulationSize, "population", opts.cfg.PopulationSize, "programs per generation")
	flags.IntVar(&opts.cfg.Generations, "generations", opts.cfg.Generations, "generation budget")
	flags.Float64Var(&opts.cfg.MutationRate, "mutation-rate", opts.cfg.MutationRate, "per-cell mutation probability")
	flags.IntVar(&opts.cfg.MinProgramLength, "min-length", opts.cfg.MinProgramLength, "shortest program length")
	flags.IntVar(&opts.cfg.MaxProgramLength, "max-length", opts.cfg.MaxProgramLength, "longest program length")
	flags.IntVar(&opts.cfg.MemorySize, "memory-size", opts.cfg.MemorySize, "machine memory cells")
	flags.IntVar(&opts.cfg.MaxExecutionSteps, "max-steps", opts.cfg.MaxExecutionSteps, "instruction budget per execution")
	flags.Int64Var(&opts.cfg.Seed, "seed", opts.cfg.Seed, "random seed")
	flags.IntVar(&opts.cfg.Workers, "workers", opts.cfg.Workers, "parallel workers (0 uses GOMAXPROCS)")
	return cmd
}

// resolve layers explicitly set flags over the config file over defaults.
func (o *runOptions) resolve(cmd *cobra.Command) (config.Config, error) {
	cfg := o.cfg
	if o.configPath != "" {
		fileCfg, err := config.Load(o.configPath)
		if err != nil {
			return config.Config{}, err
		}
		flags := cmd.Flags()
		if flags.Changed("population") {
			fileCfg.PopulationSize = cfg.PopulationSize
		}
		if flags.Changed("generations") {
			fileCfg.Generations = cfg.Generations
		}
		if flags.Changed("mutation-rate") {
			fileCfg.MutationRate = cfg.MutationRate
		}
		if flags.Changed("min-length") {
			fileCfg.MinProgramLength = cfg.MinProgramLength
		}
		if flags.Changed("max-length") {
			fileCfg.MaxProgramLength = cfg.MaxProgramLength
		}
		if flags.Changed("memory-size") {
			fileCfg.MemorySize = cfg.MemorySize
		}
		if flags.Changed("max-steps") {
			fileCfg.MaxExecutionSteps = cfg.MaxExecutionSteps
		}
		if flags.Changed("seed") {
			fileCfg.Seed = cfg.Seed
		}
		if flags.Changed("workers") {
			fileCfg.Workers = cfg.Workers
		}
		cfg = fileCfg
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func runSearch(ctx context.Context, global *globalOptions, opts *runOptions, cfg config.Config) error {
	logger, closeLog, err := global.logger()
	if err != nil {
		return err
	}
	defer closeLog()

	clientOpts := subleqevo.Options{Logger: logger}
	if opts.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		stop, err := serveMetrics(opts.metricsAddr, reg, logger)
		if err != nil {
			return err
		}
		defer stop()
		clientOpts.Registerer = reg
	}

	client, err := global.client(clientOpts)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, subleqevo.RunRequest{Config: cfg})
	if err != nil {
		return err
	}

	out := global.stdout
	if opts.jsonOut {
		return writeJSON(out, summaryJSON(summary))
	}

	fmt.Fprintf(out, "run_id=%s outcome=%s generations=%s evaluations=%s final_best_fitness=%d\n",
		summary.RunID,
		summary.Outcome,
		humanize.Comma(int64(summary.GenerationsRun)),
		humanize.Comma(summary.Evaluations),
		summary.FinalBestFitness,
	)
	if summary.Outcome == model.OutcomeSuccess && summary.Replicator != nil {
		r := summary.Replicator
		fmt.Fprintf(out, "self-replicating program found at generation %d\n", r.Generation)
		fmt.Fprintf(out, "program: %v\n", []int32(r.Genome))
		fmt.Fprintf(out, "steps: %d\n", r.Steps)
		fmt.Fprintf(out, "memory: %v\n", r.FinalMemory)
	} else {
		fmt.Fprintln(out, "no self-replicating program found")
	}
	fmt.Fprintf(out, "artifacts=%s\n", summary.ArtifactsDir)
	return nil
}

// serveMetrics exposes reg on addr until the returned stop func is called.
func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

type runSummaryJSON struct {
	RunID            string            `json:"run_id"`
	Outcome          model.Outcome     `json:"outcome"`
	GenerationsRun   int               `json:"generations_run"`
	Evaluations      int64             `json:"evaluations"`
	BestByGeneration []int64           `json:"best_by_generation"`
	FinalBestFitness int64             `json:"final_best_fitness"`
	Replicator       *model.Replicator `json:"replicator,omitempty"`
	ArtifactsDir     string            `json:"artifacts_dir"`
}

func summaryJSON(s subleqevo.RunSummary) runSummaryJSON {
	return runSummaryJSON{
		RunID:            s.RunID,
		Outcome:          s.Outcome,
		GenerationsRun:   s.GenerationsRun,
		Evaluations:      s.Evaluations,
		BestByGeneration: s.BestByGeneration,
		FinalBestFitness: s.FinalBestFitness,
		Replicator:       s.Replicator,
		ArtifactsDir:     s.ArtifactsDir,
	}
}

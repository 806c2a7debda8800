package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"subleqevo/internal/config"
	"subleqevo/internal/model"
	"subleqevo/pkg/subleqevo"
)

func newExecCmd(global *globalOptions) *cobra.Command {
	defaults := config.Default()
	var (
		genomeText string
		memorySize int
		maxSteps   int
		show       int
		jsonOut    bool
	)

	cmd := &cobra.Command{
		Use:   "exec",
		Short: "Execute one program and score it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			genome, err := parseGenome(genomeText)
			if err != nil {
				return err
			}
			client, err := global.client(subleqevo.Options{})
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			res, err := client.Execute(cmd.Context(), subleqevo.ExecuteRequest{
				Genome:            genome,
				MemorySize:        memorySize,
				MaxExecutionSteps: maxSteps,
			})
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(global.stdout, map[string]any{
					"genome":      []int32(genome),
					"steps":       res.Steps,
					"best_match":  res.BestMatch,
					"fitness":     res.Fitness,
					"replicates":  res.Replicates,
					"halted":      res.Halted,
					"memory":      res.Memory,
					"memory_size": memorySize,
				})
			}

			if show <= 0 || show > len(res.Memory) {
				show = len(res.Memory)
			}
			fmt.Fprintf(global.stdout, "steps=%d halted=%t best_match=%d/%d fitness=%d replicates=%t\n",
				res.Steps, res.Halted, res.BestMatch, len(genome), res.Fitness, res.Replicates)
			fmt.Fprintf(global.stdout, "memory[0:%d]: %v\n", show, res.Memory[:show])
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&genomeText, "genome", "", "comma-separated program cells, e.g. 1,1,0")
	flags.IntVar(&memorySize, "memory-size", defaults.MemorySize, "machine memory cells")
	flags.IntVar(&maxSteps, "max-steps", defaults.MaxExecutionSteps, "instruction budget")
	flags.IntVar(&show, "show", 0, "memory cells to print (0 prints all)")
	flags.BoolVar(&jsonOut, "json", false, "emit the result as JSON")
	return cmd
}

func newRunsCmd(global *globalOptions) *cobra.Command {
	var (
		limit   int
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return errors.New("limit must be > 0")
			}
			client, err := global.client(subleqevo.Options{})
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			runs, err := client.Runs(cmd.Context(), subleqevo.RunsRequest{Limit: limit})
			if err != nil {
				return err
			}
			if jsonOut {
				type runsItem struct {
					RunID            string        `json:"run_id"`
					CreatedAtUTC     string        `json:"created_at_utc"`
					Seed             int64         `json:"seed"`
					PopulationSize   int           `json:"population_size"`
					Generations      int           `json:"generations"`
					Outcome          model.Outcome `json:"outcome"`
					GenerationsRun   int           `json:"generations_run"`
					FinalBestFitness int64         `json:"final_best_fitness"`
				}
				items := make([]runsItem, 0, len(runs))
				for _, r := range runs {
					items = append(items, runsItem{
						RunID:            r.RunID,
						CreatedAtUTC:     r.CreatedAtUTC,
						Seed:             r.Seed,
						PopulationSize:   r.Population,
						Generations:      r.Generations,
						Outcome:          r.Outcome,
						GenerationsRun:   r.GenerationsRun,
						FinalBestFitness: r.FinalBestFitness,
					})
				}
				return writeJSON(global.stdout, items)
			}
			if len(runs) == 0 {
				fmt.Fprintln(global.stdout, "no runs found")
				return nil
			}
			for _, r := range runs {
				fmt.Fprintf(global.stdout, "run_id=%s created_at=%s outcome=%s seed=%d population=%s generations=%d/%d final_best_fitness=%d\n",
					r.RunID, r.CreatedAtUTC, r.Outcome, r.Seed, humanize.Comma(int64(r.Population)),
					r.GenerationsRun, r.Generations, r.FinalBestFitness)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max runs to list")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit runs list as JSON")
	return cmd
}

func newFitnessCmd(global *globalOptions) *cobra.Command {
	var (
		runID   string
		latest  bool
		limit   int
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "fitness",
		Short: "Show per-generation fitness of a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireRun(runID, latest); err != nil {
				return err
			}
			if limit < 0 {
				limit = 0
			}
			client, err := global.client(subleqevo.Options{})
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			history, err := client.FitnessHistory(cmd.Context(), subleqevo.FitnessHistoryRequest{
				RunID:  runID,
				Latest: latest,
				Limit:  limit,
			})
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(global.stdout, history)
			}
			if len(history) == 0 {
				fmt.Fprintln(global.stdout, "no fitness history")
				return nil
			}
			for _, record := range history {
				fmt.Fprintf(global.stdout, "generation=%d best_fitness=%d mean_fitness=%.3f best_length=%d\n",
					record.Generation, record.BestFitness, record.MeanFitness, record.BestLength)
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&runID, "run-id", "", "run id")
	flags.BoolVar(&latest, "latest", false, "use the most recent run")
	flags.IntVar(&limit, "limit", 50, "max generations to print (<=0 for all)")
	flags.BoolVar(&jsonOut, "json", false, "emit fitness history as JSON")
	return cmd
}

func newReplicatorCmd(global *globalOptions) *cobra.Command {
	var (
		runID   string
		latest  bool
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "replicator",
		Short: "Show the self-replicating program found by a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireRun(runID, latest); err != nil {
				return err
			}
			client, err := global.client(subleqevo.Options{})
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			replicator, err := client.Replicator(cmd.Context(), subleqevo.ReplicatorRequest{RunID: runID, Latest: latest})
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(global.stdout, replicator)
			}
			fmt.Fprintf(global.stdout, "generation=%d length=%d steps=%d fitness=%d\n",
				replicator.Generation, len(replicator.Genome), replicator.Steps, replicator.Fitness)
			fmt.Fprintf(global.stdout, "program: %v\n", []int32(replicator.Genome))
			fmt.Fprintf(global.stdout, "memory: %v\n", replicator.FinalMemory)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&runID, "run-id", "", "run id")
	flags.BoolVar(&latest, "latest", false, "use the most recent run")
	flags.BoolVar(&jsonOut, "json", false, "emit the replicator as JSON")
	return cmd
}

func newExportCmd(global *globalOptions) *cobra.Command {
	var (
		runID  string
		latest bool
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Copy a run's artifacts to an export directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireRun(runID, latest); err != nil {
				return err
			}
			client, err := global.client(subleqevo.Options{})
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			exported, err := client.Export(cmd.Context(), subleqevo.ExportRequest{RunID: runID, Latest: latest, OutDir: outDir})
			if err != nil {
				return err
			}
			fmt.Fprintf(global.stdout, "exported run_id=%s to=%s\n", exported.RunID, exported.Directory)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&runID, "run-id", "", "run id")
	flags.BoolVar(&latest, "latest", false, "export the most recent run")
	flags.StringVar(&outDir, "out", "", "export output directory (defaults to --exports-dir)")
	return cmd
}

func requireRun(runID string, latest bool) error {
	if runID != "" && latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if runID == "" && !latest {
		return errors.New("requires --run-id or --latest")
	}
	return nil
}

func parseGenome(text string) (model.Genome, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("--genome is required")
	}
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ' '
	})
	genome := make(model.Genome, 0, len(fields))
	for _, field := range fields {
		v, err := strconv.ParseInt(field, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("parse genome cell %q: %w", field, err)
		}
		genome = append(genome, int32(v))
	}
	return genome, nil
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"subleqevo/internal/model"
)

const (
	runIndexFile       = "run_index.json"
	configFile         = "config.json"
	fitnessHistoryFile = "fitness_history.json"
	replicatorFile     = "replicator.json"
	fitnessSeriesFile  = "fitness_series.csv"
)

type RunConfig struct {
	RunID             string  `json:"run_id"`
	Scape             string  `json:"scape"`
	PopulationSize    int     `json:"population_size"`
	Generations       int     `json:"generations"`
	MutationRate      float64 `json:"mutation_rate"`
	MinProgramLength  int     `json:"min_program_length"`
	MaxProgramLength  int     `json:"max_program_length"`
	MemorySize        int     `json:"memory_size"`
	MaxExecutionSteps int     `json:"max_execution_steps"`
	Seed              int64   `json:"seed"`
	Workers           int     `json:"workers"`
}

type FitnessHistory struct {
	Outcome          model.Outcome            `json:"outcome"`
	BestByGeneration []int64                  `json:"best_by_generation"`
	Generations      []model.GenerationRecord `json:"generations"`
	FinalBestFitness int64                    `json:"final_best_fitness"`
}

type RunArtifacts struct {
	Config     RunConfig
	History    FitnessHistory
	Replicator *model.Replicator
}

type RunIndexEntry struct {
	RunID            string        `json:"run_id"`
	Scape            string        `json:"scape"`
	PopulationSize   int           `json:"population_size"`
	Generations      int           `json:"generations"`
	Seed             int64         `json:"seed"`
	Workers          int           `json:"workers"`
	Outcome          model.Outcome `json:"outcome"`
	GenerationsRun   int           `json:"generations_run"`
	FinalBestFitness int64         `json:"final_best_fitness"`
	CreatedAtUTC     string        `json:"created_at_utc"`
}

// WriteRunArtifacts writes one directory per run under baseDir. The
// replicator file is only written for successful runs.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if strings.TrimSpace(artifacts.Config.RunID) == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, configFile), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, fitnessHistoryFile), artifacts.History); err != nil {
		return "", err
	}
	if err := WriteFitnessSeries(runDir, artifacts.History.Generations); err != nil {
		return "", err
	}
	if artifacts.Replicator != nil {
		if err := writeJSON(filepath.Join(runDir, replicatorFile), artifacts.Replicator); err != nil {
			return "", err
		}
	}

	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := readRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns index entries newest first. Entries sharing a
// timestamp keep the later-appended one in front.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	entries, err := readRunIndex(baseDir)
	if err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

func readRunIndex(baseDir string) ([]RunIndexEntry, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ExportRunArtifacts copies a run directory to outDir/<runID>.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	for _, file := range []string{configFile, fitnessHistoryFile} {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	for _, file := range []string{fitnessSeriesFile, replicatorFile} {
		path := filepath.Join(src, file)
		if _, err := os.Stat(path); err == nil {
			if err := copyFile(path, filepath.Join(dst, file)); err != nil {
				return "", err
			}
		} else if !os.IsNotExist(err) {
			return "", err
		}
	}

	return dst, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	var cfg RunConfig
	ok, err := readJSON(filepath.Join(baseDir, runID, configFile), &cfg)
	return cfg, ok, err
}

func ReadFitnessHistory(baseDir, runID string) (FitnessHistory, bool, error) {
	var history FitnessHistory
	ok, err := readJSON(filepath.Join(baseDir, runID, fitnessHistoryFile), &history)
	return history, ok, err
}

func ReadReplicator(baseDir, runID string) (model.Replicator, bool, error) {
	var replicator model.Replicator
	ok, err := readJSON(filepath.Join(baseDir, runID, replicatorFile), &replicator)
	return replicator, ok, err
}

// WriteFitnessSeries writes generation,best_fitness,mean_fitness rows for
// plotting.
func WriteFitnessSeries(runDir string, generations []model.GenerationRecord) error {
	file, err := os.Create(filepath.Join(runDir, fitnessSeriesFile))
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"generation", "best_fitness", "mean_fitness"}); err != nil {
		return err
	}
	for _, record := range generations {
		if err := writer.Write([]string{
			strconv.Itoa(record.Generation),
			strconv.FormatInt(record.BestFitness, 10),
			strconv.FormatFloat(record.MeanFitness, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadFitnessSeries returns the best_fitness column.
func ReadFitnessSeries(baseDir, runID string) ([]int64, bool, error) {
	file, err := os.Open(filepath.Join(baseDir, runID, fitnessSeriesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []int64{}, true, nil
		}
		return nil, false, err
	}
	if len(header) < 2 {
		return nil, false, fmt.Errorf("fitness series header must have at least 2 columns")
	}

	series := make([]int64, 0, 128)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		if len(record) < 2 {
			return nil, false, fmt.Errorf("fitness series row must have at least 2 columns")
		}
		value, err := strconv.ParseInt(record[1], 10, 64)
		if err != nil {
			return nil, false, err
		}
		series = append(series, value)
	}
	return series, true, nil
}

func readJSON(path string, value any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, value); err != nil {
		return false, err
	}
	return true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/san-kum/popsim/internal/config"
	"github.com/san-kum/popsim/internal/sim"
	"github.com/san-kum/popsim/internal/universe"
)

const (
	metadataFile = "metadata.json"
	statsFile    = "stats.csv"
	configFile   = "config.yaml"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Scenario    string             `json:"scenario"`
	Timestamp   time.Time          `json:"timestamp"`
	Seed        int64              `json:"seed"`
	Dt          float64            `json:"dt"`
	Ticks       int                `json:"ticks"`
	TicksTaken  int                `json:"ticks_taken"`
	Interrupted bool               `json:"interrupted"`
	MassDrift   float64            `json:"mass_drift"`
	Metrics     map[string]float64 `json:"metrics"`
}

// StatsRow is one line of stats.csv.
type StatsRow struct {
	Tick            int     `csv:"tick"`
	Time            float64 `csv:"time"`
	Bodies          int     `csv:"bodies"`
	Merges          int     `csv:"merges"`
	CollisionPasses int     `csv:"collision_passes"`
	Collapsed       int     `csv:"collapsed"`
	BodyMass        float64 `csv:"body_mass"`
	GasMass         float64 `csv:"gas_mass"`
	TotalMass       float64 `csv:"total_mass"`
	MomentumX       float64 `csv:"momentum_x"`
	MomentumY       float64 `csv:"momentum_y"`
	GasMinMass      float64 `csv:"gas_min_mass"`
	GasMaxMass      float64 `csv:"gas_max_mass"`
	GasStdDev       float64 `csv:"gas_std_dev"`
	MeanTemperature float64 `csv:"mean_temperature"`
	MaxSpeed        float64 `csv:"max_speed"`
	DurationMS      float64 `csv:"duration_ms"`
}

func RowFromStats(s universe.TickStats) StatsRow {
	return StatsRow{
		Tick:            s.Tick,
		Time:            s.Time,
		Bodies:          s.Bodies,
		Merges:          s.Merges,
		CollisionPasses: s.CollisionPasses,
		Collapsed:       s.Collapsed,
		BodyMass:        s.BodyMass,
		GasMass:         s.GasMass,
		TotalMass:       s.TotalMass,
		MomentumX:       s.Momentum.X,
		MomentumY:       s.Momentum.Y,
		GasMinMass:      s.Gas.MinMass,
		GasMaxMass:      s.Gas.MaxMass,
		GasStdDev:       s.Gas.MassStdDev,
		MeanTemperature: s.Gas.MeanTemperature,
		MaxSpeed:        s.Gas.MaxSpeed,
		DurationMS:      float64(s.Duration.Microseconds()) / 1000,
	}
}

// Run is an open run directory. It streams tick rows to stats.csv as a
// sim.Observer and writes metadata.json on Close.
type Run struct {
	ID   string
	dir  string
	meta RunMetadata

	file          *os.File
	headerWritten bool
	err           error
}

// Create opens a new run directory and records the configuration it was
// started with.
func (s *Store) Create(name string, cfg *config.Config) (*Run, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", name, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("creating run directory: %w", err)
	}
	if err := config.Save(filepath.Join(runDir, configFile), cfg); err != nil {
		return nil, fmt.Errorf("writing config: %w", err)
	}

	f, err := os.Create(filepath.Join(runDir, statsFile))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", statsFile, err)
	}

	return &Run{
		ID:   runID,
		dir:  runDir,
		file: f,
		meta: RunMetadata{
			ID:        runID,
			Name:      name,
			Scenario:  cfg.Scenario.Kind,
			Timestamp: now,
			Seed:      cfg.Seed,
			Dt:        cfg.Dt,
			Ticks:     cfg.Ticks,
		},
	}, nil
}

// OnTick appends one row. The first write error is kept and reported by
// Close; later ticks are dropped.
func (r *Run) OnTick(s universe.TickStats) {
	if r.err != nil {
		return
	}
	r.err = r.write([]StatsRow{RowFromStats(s)})
}

func (r *Run) write(rows []StatsRow) error {
	if !r.headerWritten {
		if err := gocsv.Marshal(rows, r.file); err != nil {
			return fmt.Errorf("writing stats: %w", err)
		}
		r.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(rows, r.file); err != nil {
		return fmt.Errorf("writing stats: %w", err)
	}
	return nil
}

// Close writes metadata.json from the result, which may be partial or nil.
func (r *Run) Close(result *sim.Result) error {
	if result != nil {
		r.meta.TicksTaken = result.TicksTaken
		r.meta.Interrupted = result.Interrupted
		r.meta.MassDrift = result.MassDrift
		r.meta.Metrics = result.Metrics
	}

	closeErr := r.file.Close()
	if r.err != nil {
		return r.err
	}
	if closeErr != nil {
		return closeErr
	}
	return writeJSON(filepath.Join(r.dir, metadataFile), r.meta)
}

// Save stores a finished run in one go.
func (s *Store) Save(name string, cfg *config.Config, result *sim.Result) (string, error) {
	run, err := s.Create(name, cfg)
	if err != nil {
		return "", err
	}
	if len(result.Stats) > 0 {
		rows := make([]StatsRow, len(result.Stats))
		for i, st := range result.Stats {
			rows[i] = RowFromStats(st)
		}
		run.err = run.write(rows)
	}
	if err := run.Close(result); err != nil {
		return "", err
	}
	return run.ID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadStats(runID string) ([]StatsRow, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, statsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer f.Close()

	rows := make([]StatsRow, 0)
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return rows, nil
		}
		return nil, err
	}
	return rows, nil
}

// LoadConfig returns the configuration a run was started with.
func (s *Store) LoadConfig(runID string) (*config.Config, error) {
	return config.Load(filepath.Join(s.baseDir, runID, configFile))
}

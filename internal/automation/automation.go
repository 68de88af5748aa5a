package automation

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/gridstep/internal/config"
	"github.com/san-kum/gridstep/internal/experiment"
	"github.com/san-kum/gridstep/internal/storage"
)

// Scenario is a scripted batch of offline runs.
type Scenario struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Runs        []ScenarioRun `yaml:"runs"`
}

// ScenarioRun renders one song with a preset plus parameter overrides.
type ScenarioRun struct {
	Song     string             `yaml:"song"`
	Preset   string             `yaml:"preset"`
	Mode     string             `yaml:"mode"`
	Duration float64            `yaml:"duration"`
	Seed     int64              `yaml:"seed"`
	Params   map[string]float64 `yaml:"params"`
	SaveAs   string             `yaml:"save_as"`
}

// RunSummary is what a scenario run produced.
type RunSummary struct {
	Song    string
	RunID   string
	Steps   int
	Metrics map[string]float64
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if len(scenario.Runs) == 0 {
		return nil, fmt.Errorf("scenario %q has no runs", scenario.Name)
	}
	return &scenario, nil
}

// BuildConfig resolves the preset and overrides of one run.
func (r ScenarioRun) BuildConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if r.Preset != "" {
		cfg = config.GetPreset(r.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", r.Preset)
		}
	}
	if r.Mode != "" {
		cfg.Mode = r.Mode
	}
	if r.Seed != 0 {
		cfg.Seed = r.Seed
	}
	for k, v := range r.Params {
		if err := cfg.SetParam(k, v); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RunScenario executes every run in order. Runs are saved to store when it
// is non-nil.
func RunScenario(ctx context.Context, scenario *Scenario, registry *experiment.Registry, store *storage.Store, logger *slog.Logger) ([]RunSummary, error) {
	if logger == nil {
		logger = slog.Default()
	}
	results := make([]RunSummary, 0, len(scenario.Runs))

	for i, run := range scenario.Runs {
		logger.Info("scenario run",
			"scenario", scenario.Name,
			"index", i+1,
			"of", len(scenario.Runs),
			"song", run.Song,
		)

		cfg, err := run.BuildConfig()
		if err != nil {
			return results, fmt.Errorf("run %d: %w", i+1, err)
		}

		length := time.Duration(run.Duration * float64(time.Second))
		track, err := registry.Track(run.Song, length)
		if err != nil {
			return results, fmt.Errorf("run %d: %w", i+1, err)
		}

		exp, err := experiment.New(experiment.Config{
			Session:  cfg,
			Track:    track,
			Duration: length,
			Logger:   logger,
		})
		if err != nil {
			return results, fmt.Errorf("run %d setup: %w", i+1, err)
		}

		res, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("run %d: %w", i+1, err)
		}

		summary := RunSummary{Song: run.Song, Steps: len(res.Steps), Metrics: res.Metrics}
		if store != nil {
			id, err := store.Save(storage.RunMetadata{
				ID:       run.SaveAs,
				Song:     run.Song,
				Mode:     cfg.Mode,
				Seed:     cfg.Seed,
				BPM:      cfg.Tempo.BPM,
				GridSize: cfg.GridSize,
				Duration: res.Duration,
				Metrics:  res.Metrics,
			}, res.Steps)
			if err != nil {
				return results, fmt.Errorf("run %d save: %w", i+1, err)
			}
			summary.RunID = id
		}
		results = append(results, summary)
	}

	return results, nil
}

// ParameterSweep renders one song repeatedly across a range of one param.
type ParameterSweep struct {
	Song      string
	Preset    string
	ParamName string
	ParamMin  float64
	ParamMax  float64
	NumSteps  int
	Duration  float64
}

type SweepResult struct {
	ParamValue  float64
	Steps       int
	StepsPerMin float64
	Jitter      float64
}

func RunSweep(ctx context.Context, sweep *ParameterSweep, registry *experiment.Registry, logger *slog.Logger) ([]SweepResult, error) {
	if sweep.NumSteps < 2 {
		return nil, fmt.Errorf("sweep needs at least 2 steps, got %d", sweep.NumSteps)
	}
	if logger == nil {
		logger = slog.Default()
	}

	length := time.Duration(sweep.Duration * float64(time.Second))
	track, err := registry.Track(sweep.Song, length)
	if err != nil {
		return nil, err
	}

	paramStep := (sweep.ParamMax - sweep.ParamMin) / float64(sweep.NumSteps-1)
	values := make([]float64, sweep.NumSteps)
	cfgs := make([]experiment.Config, sweep.NumSteps)
	for i := range cfgs {
		values[i] = sweep.ParamMin + float64(i)*paramStep

		cfg, err := ScenarioRun{
			Preset: sweep.Preset,
			Params: map[string]float64{sweep.ParamName: values[i]},
		}.BuildConfig()
		if err != nil {
			return nil, err
		}
		cfgs[i] = experiment.Config{
			Session:  cfg,
			Track:    track,
			Duration: length,
			Logger:   logger,
		}
	}

	logger.Info("sweep started",
		"param", sweep.ParamName,
		"runs", sweep.NumSteps,
	)
	runs, err := experiment.RunAll(ctx, cfgs)
	if err != nil {
		return nil, err
	}

	results := make([]SweepResult, len(runs))
	for i, res := range runs {
		results[i] = SweepResult{
			ParamValue:  values[i],
			Steps:       len(res.Steps),
			StepsPerMin: res.Metrics["steps_per_min"],
			Jitter:      res.Metrics["jitter_ms"],
		}
	}
	return results, nil
}

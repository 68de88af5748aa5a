package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/gridstep/internal/camera"
	"github.com/san-kum/gridstep/internal/session"
)

var ErrNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunMetadata describes one recorded session.
type RunMetadata struct {
	ID        string             `json:"id"`
	Song      string             `json:"song"`
	Mode      string             `json:"mode"`
	Timestamp time.Time          `json:"timestamp"`
	Seed      int64              `json:"seed"`
	BPM       float64            `json:"bpm,omitempty"`
	GridSize  int                `json:"grid_size"`
	Duration  float64            `json:"duration"`
	Steps     int                `json:"steps"`
	Metrics   map[string]float64 `json:"metrics"`
}

var stepsHeader = []string{"index", "t_ms", "playback_s", "cam_x", "cam_y", "cam_z"}

// Save writes metadata.json and steps.csv under a new run directory. An
// empty meta.ID is replaced by a name derived from the song and the time.
func (s *Store) Save(meta RunMetadata, steps []session.StepEvent) (string, error) {
	if meta.ID == "" {
		meta.ID = fmt.Sprintf("%s_%d", runSlug(meta.Song, meta.Mode), time.Now().UnixNano())
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	meta.Steps = len(steps)

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "steps.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write(stepsHeader); err != nil {
		return "", err
	}
	for _, ev := range steps {
		row := []string{
			strconv.Itoa(ev.Index),
			strconv.FormatInt(ev.At.Milliseconds(), 10),
			strconv.FormatFloat(ev.Playback, 'f', 6, 64),
			strconv.FormatFloat(ev.Camera.X, 'f', 3, 64),
			strconv.FormatFloat(ev.Camera.Y, 'f', 3, 64),
			strconv.FormatFloat(ev.Camera.Z, 'f', 3, 64),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	return meta.ID, nil
}

func runSlug(song, mode string) string {
	name := strings.TrimSuffix(filepath.Base(song), filepath.Ext(song))
	if song == "" || name == "." {
		name = "session"
	}
	name = strings.Map(func(r rune) rune {
		if r == ' ' || r == os.PathSeparator {
			return '-'
		}
		return r
	}, name)
	if mode != "" {
		name += "_" + mode
	}
	return name
}

// List returns every readable run, newest first.
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

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: parse %s metadata: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadSteps(runID string) ([]session.StepEvent, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "steps.csv"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(stepsHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []session.StepEvent{}, nil
	}

	steps := make([]session.StepEvent, 0, len(records)-1)
	for i, record := range records[1:] {
		var vals [6]float64
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("storage: steps.csv row %d col %s: %w", i+1, stepsHeader[j], err)
			}
			vals[j] = v
		}
		steps = append(steps, session.StepEvent{
			Index:    int(vals[0]),
			At:       time.Duration(vals[1]) * time.Millisecond,
			Playback: vals[2],
			Camera:   camera.V(vals[3], vals[4], vals[5]),
		})
	}
	return steps, nil
}

package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/marbles/internal/scene"
)

// Components recorded per body in each trace frame.
const (
	CompX = iota
	CompY
	CompAngle
	numComps
)

var compNames = [numComps]string{"x", "y", "a"}

type TraceMetadata struct {
	ID        string             `json:"id"`
	Scene     string             `json:"scene"`
	Timestamp time.Time          `json:"timestamp"`
	Dt        float64            `json:"dt"`
	Steps     int                `json:"steps"`
	Preset    string             `json:"preset,omitempty"`
	Bodies    []scene.ID         `json:"bodies"`
	Labels    []string           `json:"labels"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Trace is a recorded run: one frame per step holding x, y and angle of
// every tracked body in Meta.Bodies order.
type Trace struct {
	Meta   TraceMetadata
	Times  []float64
	Frames [][]float64
}

func NewTrace(sceneName string, dt float64, bodies []scene.ID, labels []string) *Trace {
	return &Trace{Meta: TraceMetadata{
		Scene:     sceneName,
		Timestamp: time.Now(),
		Dt:        dt,
		Bodies:    bodies,
		Labels:    labels,
		Metrics:   map[string]float64{},
	}}
}

func (t *Trace) Append(at float64, frame []float64) {
	t.Times = append(t.Times, at)
	t.Frames = append(t.Frames, frame)
	t.Meta.Steps = len(t.Frames)
}

// Series extracts one component of one body over the whole trace.
func (t *Trace) Series(body scene.ID, comp int) ([]float64, error) {
	col := -1
	for i, id := range t.Meta.Bodies {
		if id == body {
			col = i*numComps + comp
		}
	}
	if col < 0 || comp < 0 || comp >= numComps {
		return nil, fmt.Errorf("%w: body %v component %d", ErrNotFound, body, comp)
	}
	out := make([]float64, 0, len(t.Frames))
	for _, f := range t.Frames {
		if col < len(f) {
			out = append(out, f[col])
		}
	}
	return out, nil
}

// SaveTrace writes a trace and returns its id. An empty name gets a
// generated one from the scene name and the current time.
func (s *Store) SaveTrace(name string, t *Trace) (string, error) {
	if name == "" {
		name = fmt.Sprintf("%s_%d", t.Meta.Scene, time.Now().Unix())
	}
	if err := validName(name); err != nil {
		return "", err
	}
	runDir := filepath.Join(s.baseDir, tracesDir, name)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := t.Meta
	meta.ID = name
	meta.Steps = len(t.Frames)

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

	csvFile, err := os.Create(filepath.Join(runDir, "states.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	header := []string{"time"}
	for _, id := range meta.Bodies {
		for _, c := range compNames {
			header = append(header, fmt.Sprintf("b%d_%s", id, c))
		}
	}
	if err := w.Write(header); err != nil {
		return "", err
	}
	for i, frame := range t.Frames {
		row := []string{strconv.FormatFloat(t.Times[i], 'f', 6, 64)}
		for _, val := range frame {
			row = append(row, strconv.FormatFloat(val, 'f', 6, 64))
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	t.Meta = meta
	return name, nil
}

func (s *Store) LoadTraceMetadata(id string) (*TraceMetadata, error) {
	if err := validName(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.baseDir, tracesDir, id, "metadata.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: trace %q", ErrNotFound, id)
		}
		return nil, err
	}

	var meta TraceMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadTrace reads metadata and frames. Rows that fail to parse are skipped.
func (s *Store) LoadTrace(id string) (*Trace, error) {
	meta, err := s.LoadTraceMetadata(id)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filepath.Join(s.baseDir, tracesDir, id, "states.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	t := &Trace{Meta: *meta}
	for i := 1; i < len(records); i++ {
		record := records[i]
		if len(record) == 0 {
			continue
		}
		tm, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			continue
		}
		frame := make([]float64, 0, len(record)-1)
		for j := 1; j < len(record); j++ {
			val, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				continue
			}
			frame = append(frame, val)
		}
		t.Times = append(t.Times, tm)
		t.Frames = append(t.Frames, frame)
	}
	return t, nil
}

// ListTraces returns trace metadata, newest first.
func (s *Store) ListTraces() ([]TraceMetadata, error) {
	entries, err := os.ReadDir(filepath.Join(s.baseDir, tracesDir))
	if err != nil {
		if os.IsNotExist(err) {
			return []TraceMetadata{}, nil
		}
		return nil, err
	}

	traces := make([]TraceMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.LoadTraceMetadata(entry.Name())
		if err != nil {
			continue
		}
		traces = append(traces, *meta)
	}
	sort.Slice(traces, func(i, j int) bool { return traces[i].Timestamp.After(traces[j].Timestamp) })
	return traces, nil
}

func (s *Store) DeleteTrace(id string) error {
	if err := validName(id); err != nil {
		return err
	}
	dir := filepath.Join(s.baseDir, tracesDir, id)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("%w: trace %q", ErrNotFound, id)
	}
	return os.RemoveAll(dir)
}

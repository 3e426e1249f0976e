package storage

import (
	"encoding/json"
	"io"
	"os"
)

type ExportData struct {
	ID      string             `json:"id"`
	Scene   string             `json:"scene"`
	Dt      float64            `json:"dt"`
	Steps   int                `json:"steps"`
	Columns []string           `json:"columns"`
	Times   []float64          `json:"times"`
	Frames  [][]float64        `json:"frames"`
	Metrics map[string]float64 `json:"metrics"`
}

func newExportData(t *Trace) ExportData {
	cols := make([]string, 0, len(t.Meta.Bodies)*numComps)
	for i, id := range t.Meta.Bodies {
		name := id.String()
		if i < len(t.Meta.Labels) && t.Meta.Labels[i] != "" {
			name = t.Meta.Labels[i]
		}
		for _, c := range compNames {
			cols = append(cols, name+"."+c)
		}
	}
	return ExportData{
		ID:      t.Meta.ID,
		Scene:   t.Meta.Scene,
		Dt:      t.Meta.Dt,
		Steps:   len(t.Frames),
		Columns: cols,
		Times:   t.Times,
		Frames:  t.Frames,
		Metrics: t.Meta.Metrics,
	}
}

// ExportJSON writes the trace as a single JSON document.
func ExportJSON(w io.Writer, t *Trace) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(newExportData(t))
}

func ExportJSONFile(path string, t *Trace) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return ExportJSON(file, t)
}

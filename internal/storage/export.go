package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/gridstep/internal/session"
)

type ExportData struct {
	RunMetadata
	Events []ExportStep `json:"events"`
}

type ExportStep struct {
	Index    int        `json:"index"`
	TimeMs   int64      `json:"t_ms"`
	Playback float64    `json:"playback_s"`
	Camera   [3]float64 `json:"camera"`
}

// ExportJSON writes a run and its steps as one indented JSON document.
func ExportJSON(w io.Writer, meta RunMetadata, steps []session.StepEvent) error {
	data := ExportData{
		RunMetadata: meta,
		Events:      make([]ExportStep, len(steps)),
	}
	for i, ev := range steps {
		data.Events[i] = ExportStep{
			Index:    ev.Index,
			TimeMs:   ev.At.Milliseconds(),
			Playback: ev.Playback,
			Camera:   [3]float64{ev.Camera.X, ev.Camera.Y, ev.Camera.Z},
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

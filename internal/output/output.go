// Package output writes jremap results to files.
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"

	"jremap/internal/batch"
	"jremap/internal/classfmt"
	"jremap/internal/mapping"
)

// Report is the JSON summary of a remap run.
type Report struct {
	Input    string              `json:"input"`
	Output   string              `json:"output"`
	Mode     string              `json:"mode"`
	Workers  int                 `json:"workers"`
	Mappings mapping.Stats       `json:"mappings"`
	Summary  batch.Summary       `json:"summary"`
	Classes  []batch.ClassResult `json:"classes"`
	Diags    []classfmt.Diag     `json:"diags,omitempty"`
}

// NewReport collects a batch result into a Report.
func NewReport(in, out string, opts classfmt.Options, stats mapping.Stats, res *batch.Result) Report {
	return Report{
		Input:    in,
		Output:   out,
		Mode:     opts.Mode.String(),
		Workers:  opts.EffectiveWorkers(),
		Mappings: stats,
		Summary:  res.Summary(),
		Classes:  res.Classes,
		Diags:    res.Diags.Items(),
	}
}

// WriteReport writes r to path as indented JSON.
func WriteReport(path string, r Report) error {
	return writeJSON(path, r)
}

// WriteDOT writes Graphviz source to path.
func WriteDOT(path, dot string) error {
	if err := os.WriteFile(path, []byte(dot), 0644); err != nil {
		return fmt.Errorf("output: write %s: %w", path, err)
	}
	return nil
}

// EncodeJSON writes v to w as indented JSON without HTML escaping.
func EncodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("output: encode: %w", err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: create %s: %w", path, err)
	}
	defer f.Close()

	if err := EncodeJSON(f, v); err != nil {
		return fmt.Errorf("output: %s: %w", path, err)
	}
	return nil
}

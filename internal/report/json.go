package report

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/VTVIMAL/WebP-Converter/internal/catalog"
	"github.com/VTVIMAL/WebP-Converter/internal/reconcile"
)

// JSONReport is the stable machine-readable form of a reconciliation.
type JSONReport struct {
	RunID        string    `json:"run_id"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	InputRoot    string    `json:"input_root"`
	OutputRoot   string    `json:"output_root"`
	Target       string    `json:"target"`
	TargetSource string    `json:"target_source"`

	Summary Summary `json:"summary"`

	Missing            []string        `json:"missing"`
	Unexpected         []string        `json:"unexpected"`
	MissingDirectories []string        `json:"missing_directories"`
	MissingOtherFiles  []string        `json:"missing_other_files"`
	Entries            []JSONEntry     `json:"entries"`
	Collisions         []JSONCollision `json:"collisions,omitempty"`
	Warnings           []string        `json:"warnings,omitempty"`
}

// Summary holds the counts and verdict.
type Summary struct {
	Convertible    int     `json:"convertible"`
	Converted      int     `json:"converted"`
	AlreadyTarget  int     `json:"already_target"`
	Missing        int     `json:"missing"`
	Unexpected     int     `json:"unexpected"`
	ConversionRate float64 `json:"conversion_rate"`
	Verdict        string  `json:"verdict"`
	Complete       bool    `json:"complete"`
}

// JSONEntry is one checklist line.
type JSONEntry struct {
	Source string `json:"source"`
	Output string `json:"output,omitempty"`
	Status string `json:"status"`
}

// JSONCollision lists sources predicted onto the same output.
type JSONCollision struct {
	Output  string   `json:"output"`
	Sources []string `json:"sources"`
}

// BuildJSON converts r into its JSON form. Timestamps are stored in UTC.
func BuildJSON(r *reconcile.Report, started, finished time.Time) JSONReport {
	out := JSONReport{
		RunID:        uuid.New().String(),
		StartedAt:    started.UTC(),
		FinishedAt:   finished.UTC(),
		InputRoot:    r.InputRoot,
		OutputRoot:   r.OutputRoot,
		Target:       r.Target,
		TargetSource: string(r.TargetSource),
		Summary: Summary{
			Convertible:    r.Convertible(),
			Converted:      r.Converted(),
			AlreadyTarget:  r.Input.TargetFiles,
			Missing:        len(r.Missing),
			Unexpected:     len(r.Unexpected),
			ConversionRate: r.ConversionRate(),
			Verdict:        string(r.Verdict()),
			Complete:       r.Complete(),
		},
		Missing:            strs(r.Missing),
		Unexpected:         strs(r.Unexpected),
		MissingDirectories: strs(r.MissingDirectories),
		MissingOtherFiles:  strs(r.MissingOtherFiles),
		Entries:            make([]JSONEntry, 0, len(r.Entries)),
		Warnings:           r.Warnings,
	}
	for _, e := range r.Entries {
		out.Entries = append(out.Entries, JSONEntry{Source: string(e.Source), Output: string(e.Output), Status: string(e.Status)})
	}
	for _, c := range r.Collisions {
		srcs := append([]catalog.RelPath{c.Owner}, c.Others...)
		out.Collisions = append(out.Collisions, JSONCollision{Output: string(c.Output), Sources: strs(srcs)})
	}
	return out
}

// WriteJSON writes the JSON report for r to path.
func WriteJSON(path string, r *reconcile.Report, started, finished time.Time) error {
	data, err := json.MarshalIndent(BuildJSON(r, started, finished), "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode json report")
	}
	data = append(data, '\n')
	if err := writeAtomic(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write json report %s", path)
	}
	return nil
}

// strs returns the paths sorted as strings; never nil, so lists encode as [].
func strs(paths []catalog.RelPath) []string {
	sorted := append([]catalog.RelPath(nil), paths...)
	catalog.SortPaths(sorted)
	out := make([]string, len(sorted))
	for i, p := range sorted {
		out[i] = string(p)
	}
	return out
}

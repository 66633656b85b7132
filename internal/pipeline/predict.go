package pipeline

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/VTVIMAL/WebP-Converter/internal/catalog"
	"github.com/VTVIMAL/WebP-Converter/internal/codec"
	"github.com/VTVIMAL/WebP-Converter/internal/config"
	"github.com/VTVIMAL/WebP-Converter/internal/display"
	"github.com/VTVIMAL/WebP-Converter/internal/logging"
	"github.com/VTVIMAL/WebP-Converter/internal/term"
)

// Row notes, worst first.
const (
	noteNoDecoder  = "no decoder"
	noteUnreadable = "unreadable"
	noteTooLarge   = "too large"
	noteClash      = "name clash"
	noteExists     = "exists"
)

// planRow is one line of the predict table.
type planRow struct {
	Source catalog.RelPath
	Output catalog.RelPath
	Bytes  int64
	Note   string
}

// Prediction counts what a convert run with the same settings would do.
type Prediction struct {
	Planned   int
	Exists    int // Planned output already present in the output root.
	Clashes   int // Sources renamed because another source owns their natural name.
	TooLarge  int
	NoDecoder int // Sources whose header no decoder accepts; the run would fail them.
	Outliers  int // Sources whose size is an IQR outlier (mild or extreme).
}

// Predict resolves the naming plan for cfg.InputDir and prints it as a
// table on w, one row per convertible source with its planned output name,
// its size, and anything that would make the convert run deviate from the
// plan. Source sizes are classified with the IQR rule so unusually large or
// small images stand out. Nothing is written to disk.
func Predict(ctx context.Context, cfg *config.Config, log *logging.Logger, w io.Writer) (Prediction, error) {
	var pred Prediction

	inv, err := Discover(cfg)
	if err != nil {
		return pred, err
	}
	sources := inv.Plan.Sources()
	if len(sources) == 0 {
		log.Warn("No convertible images found in %s", cfg.InputDir)
		return pred, nil
	}

	owners := map[catalog.RelPath]bool{}
	for _, c := range inv.Plan.Collisions {
		for _, o := range c.Others {
			owners[o] = true
		}
	}

	total := len(sources)
	isTTY := term.IsTerminal(os.Stdout) && w == os.Stdout
	rows := make([]planRow, 0, total)
	var sizes []float64

	for i, src := range sources {
		if ctx.Err() != nil {
			if isTTY {
				clearProgress(w)
			}
			log.Warn("Interrupted")
			return pred, ctx.Err()
		}
		printProgress(w, isTTY, i+1, total, src.Base())

		row := planRow{Source: src, Output: inv.Plan.Outputs[src]}
		srcPath := src.Under(cfg.InputDir)
		if fi, err := os.Stat(srcPath); err == nil {
			row.Bytes = fi.Size()
			sizes = append(sizes, float64(fi.Size()))
		}

		sniffErr := codec.Sniff(srcPath)
		switch {
		case sniffErr != nil:
			row.Note = noteUnreadable
			if errors.Is(sniffErr, codec.ErrNoDecoder) {
				row.Note = noteNoDecoder
			}
			log.Debug("  %s: %v", src, sniffErr)
			pred.NoDecoder++
		case cfg.MaxImageBytes > 0 && row.Bytes > cfg.MaxImageBytes:
			row.Note = noteTooLarge
			pred.TooLarge++
		case owners[src]:
			row.Note = noteClash
			pred.Clashes++
		case cfg.OutputDir != "" && pathExists(row.Output.Under(cfg.OutputDir)):
			row.Note = noteExists
			pred.Exists++
		}
		rows = append(rows, row)
	}
	if isTTY {
		clearProgress(w)
	}
	pred.Planned = len(rows)

	bounds := computeStats(sizes)
	printPlanTable(w, rows, bounds)
	for _, r := range rows {
		if bounds.classify(float64(r.Bytes)) != "" {
			pred.Outliers++
		}
	}
	logPrediction(cfg, log, &inv, &pred, bounds)
	return pred, nil
}

func logPrediction(cfg *config.Config, log *logging.Logger, inv *Inventory, pred *Prediction, b iqrBounds) {
	log.Info("Planned %d conversions to %s", pred.Planned, strings.ToUpper(cfg.Target))
	if n := len(inv.Scan.TargetFiles); n > 0 {
		log.Info("  %d already in %s format", n, strings.ToUpper(cfg.Target))
	}
	if n := len(inv.Scan.Directories); n > 0 {
		log.Info("  %d directories would be mirrored", n)
	}
	if b.valid {
		log.Info("  Size IQR: %s to %s (outlier above %s)",
			display.FormatBytes(int64(b.q1)), display.FormatBytes(int64(b.q3)),
			display.FormatBytes(int64(b.outlierHi)))
	}
	if pred.Exists > 0 {
		verb := "skipped"
		if cfg.OnExisting == config.ExistingRename {
			verb = "renamed"
		}
		log.Warn("  %d outputs already exist and would be %s", pred.Exists, verb)
	}
	if pred.Clashes > 0 {
		log.Warn("  %d sources clash with another source's name and would get a fresh name", pred.Clashes)
		log.Debug("  first clash: %v", inv.Plan.Err())
	}
	if pred.TooLarge > 0 {
		log.Skip("  %d sources exceed the size limit", pred.TooLarge)
	}
	if pred.NoDecoder > 0 {
		log.Error("  %d sources cannot be decoded and would fail", pred.NoDecoder)
	}
	if pred.Outliers > 0 {
		log.Info("  %d size outlier(s) flagged [*] or [!]", pred.Outliers)
	}
}

// iqrBounds holds the IQR-based thresholds for outlier classification.
type iqrBounds struct {
	q1, q3    float64
	outlierLo float64 // Q1 - 1.5*IQR
	outlierHi float64 // Q3 + 1.5*IQR
	extremeLo float64 // Q1 - 3.0*IQR
	extremeHi float64 // Q3 + 3.0*IQR
	valid     bool
}

func computeStats(vals []float64) iqrBounds {
	if len(vals) < 4 {
		return iqrBounds{}
	}

	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	q1 := percentile(sorted, 25)
	q3 := percentile(sorted, 75)
	iqr := q3 - q1

	return iqrBounds{
		q1:        q1,
		q3:        q3,
		outlierLo: q1 - 1.5*iqr,
		outlierHi: q3 + 1.5*iqr,
		extremeLo: q1 - 3.0*iqr,
		extremeHi: q3 + 3.0*iqr,
		valid:     iqr > 0,
	}
}

// classify returns "" (normal), "outlier", or "extreme" for a value.
func (b *iqrBounds) classify(v float64) string {
	if !b.valid || v <= 0 {
		return ""
	}
	if v < b.extremeLo || v > b.extremeHi {
		return "extreme"
	}
	if v < b.outlierLo || v > b.outlierHi {
		return "outlier"
	}
	return ""
}

func printPlanTable(w io.Writer, rows []planRow, sizes iqrBounds) {
	srcW := len("Source")
	outW := len("Output")
	sizeW := len("Size")
	for _, r := range rows {
		srcW = max(srcW, utf8.RuneCountInString(string(r.Source)))
		outW = max(outW, utf8.RuneCountInString(string(r.Output)))
		sizeW = max(sizeW, len(display.FormatBytes(r.Bytes)))
	}
	srcW = min(srcW, 50)
	outW = min(outW, 50)

	header := fmt.Sprintf("  %-*s  %-*s  %-*s  %s", srcW, "Source", outW, "Output", sizeW, "Size", "Note")
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, "  "+strings.Repeat("─", len(header)-2))

	for _, r := range rows {
		class := sizes.classify(float64(r.Bytes))
		// Pad before coloring so escape bytes do not count as width.
		sizeCell := colorPad(display.FormatBytes(r.Bytes), sizeW, class)
		fmt.Fprintf(w, "  %-*s  %-*s  %s  %s%s\n",
			srcW, truncate(string(r.Source), srcW),
			outW, truncate(string(r.Output), outW),
			sizeCell, formatNote(r.Note), formatFlag(class))
	}
	fmt.Fprintln(w)
}

// truncate shortens s to width runes, marking the cut with an ellipsis.
func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	r := []rune(s)
	return string(r[:width-1]) + "…"
}

func formatNote(note string) string {
	switch note {
	case "":
		return ""
	case noteNoDecoder, noteUnreadable:
		return term.Red + note + term.NC + " "
	case noteTooLarge:
		return term.Orange + note + term.NC + " "
	default:
		return term.Yellow + note + term.NC + " "
	}
}

func formatFlag(flag string) string {
	switch flag {
	case "extreme":
		return term.Red + "[!]" + term.NC
	case "outlier":
		return term.Orange + "[*]" + term.NC
	default:
		return ""
	}
}

func colorPad(s string, width int, class string) string {
	padded := fmt.Sprintf("%-*s", width, s)
	switch class {
	case "extreme":
		return term.Red + padded + term.NC
	case "outlier":
		return term.Orange + padded + term.NC
	default:
		return padded
	}
}

// printProgress shows a live counter on a TTY and is a no-op otherwise.
func printProgress(w io.Writer, isTTY bool, current, total int, name string) {
	if !isTTY {
		return
	}
	status := fmt.Sprintf("  Planning [%d/%d] %d%% %s", current, total, current*100/total, truncate(name, 40))
	if len(status) < 80 {
		status += strings.Repeat(" ", 80-len(status))
	}
	fmt.Fprintf(w, "\r%s", status)
}

func clearProgress(w io.Writer) {
	fmt.Fprintf(w, "\r%s\r", strings.Repeat(" ", 80))
}

// percentile computes the p-th percentile using linear interpolation.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := (p / 100) * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi || hi >= len(sorted) {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

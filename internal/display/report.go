package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/VTVIMAL/WebP-Converter/internal/catalog"
	"github.com/VTVIMAL/WebP-Converter/internal/reconcile"
	"github.com/VTVIMAL/WebP-Converter/internal/term"
)

const ruleWidth = 60

// PrintReport writes the human-readable verify report: per-side counts, the
// per-image checklist, the summary with its verdict, and the parity lists.
func PrintReport(w io.Writer, r *reconcile.Report) {
	target := strings.ToUpper(r.Target)

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", ruleWidth))
	fmt.Fprintf(w, "%sFOLDER COMPARISON REPORT (%s CONVERSION)%s\n", term.Bold, target, term.NC)
	fmt.Fprintln(w, strings.Repeat("=", ruleWidth))

	fmt.Fprintf(w, "\nInput:  %s\n", r.InputRoot)
	fmt.Fprintf(w, "   Images: %s\n", FormatCount(r.Input.Images+r.Input.TargetFiles))
	fmt.Fprintf(w, "   %s files (skipped): %s\n", target, FormatCount(r.Input.TargetFiles))
	fmt.Fprintf(w, "   Convertible: %s\n", FormatCount(r.Input.Convertible))
	fmt.Fprintf(w, "   Other files: %s\n", FormatCount(r.Input.OtherFiles))
	fmt.Fprintf(w, "   Directories: %s\n", FormatCount(r.Input.Directories))

	fmt.Fprintf(w, "\nOutput: %s\n", r.OutputRoot)
	fmt.Fprintf(w, "   %s files: %s\n", target, FormatCount(r.Output.TargetFiles))
	fmt.Fprintf(w, "   Other files: %s\n", FormatCount(r.Output.OtherFiles))
	fmt.Fprintf(w, "   Directories: %s\n", FormatCount(r.Output.Directories))

	fmt.Fprintln(w, "\nChecklist:")
	fmt.Fprintln(w, strings.Repeat("-", ruleWidth))
	for _, e := range r.Entries {
		switch e.Status {
		case reconcile.StatusConverted:
			fmt.Fprintf(w, "%sCONVERTED%s %s -> %s\n", term.Green, term.NC, e.Source, e.Output)
		case reconcile.StatusMissing:
			fmt.Fprintf(w, "%sMISSING%s   %s -> %s\n", term.Red, term.NC, e.Source, e.Output)
		case reconcile.StatusAlreadyTarget:
			fmt.Fprintf(w, "%sSKIPPED%s   %s (already %s)\n", term.Blue, term.NC, e.Source, target)
		}
	}
	fmt.Fprintln(w, strings.Repeat("-", ruleWidth))

	fmt.Fprintln(w, "Summary:")
	fmt.Fprintf(w, "   Images checked: %s\n", FormatCount(len(r.Entries)))
	fmt.Fprintf(w, "   Converted: %s\n", FormatCount(r.Converted()))
	fmt.Fprintf(w, "   Skipped (already %s): %s\n", target, FormatCount(r.Input.TargetFiles))
	fmt.Fprintf(w, "   Missing: %s\n", FormatCount(len(r.Missing)))
	fmt.Fprintf(w, "   Conversion rate: %.1f%%\n", r.ConversionRate())

	fmt.Fprintln(w)
	fmt.Fprintln(w, verdictLine(r, target))

	printPaths(w, term.Yellow, "Unexpected "+target+" files", r.Unexpected)
	printPaths(w, term.Red, "Missing directories", r.MissingDirectories)
	printPaths(w, term.Red, "Missing other files", r.MissingOtherFiles)
}

func verdictLine(r *reconcile.Report, target string) string {
	rate := r.ConversionRate()
	switch r.Verdict() {
	case reconcile.VerdictPerfect:
		return fmt.Sprintf("%sPERFECT CONVERSION!%s All %d images converted to %s",
			term.Green, term.NC, r.Converted(), target)
	case reconcile.VerdictAllTarget:
		return fmt.Sprintf("%sALL IMAGES ALREADY IN %s FORMAT%s", term.Green, target, term.NC)
	case reconcile.VerdictGood:
		return fmt.Sprintf("%sGOOD CONVERSION%s %.1f%% of images converted", term.Green, term.NC, rate)
	case reconcile.VerdictPartial:
		return fmt.Sprintf("%sPARTIAL CONVERSION%s Only %.1f%% of images converted", term.Yellow, term.NC, rate)
	case reconcile.VerdictPoor:
		return fmt.Sprintf("%sPOOR CONVERSION%s Only %.1f%% of images converted", term.Red, term.NC, rate)
	default:
		return "No images to convert"
	}
}

func printPaths(w io.Writer, color, heading string, paths []catalog.RelPath) {
	if len(paths) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s%s (%d):%s\n", color, heading, len(paths), term.NC)
	for _, p := range paths {
		fmt.Fprintf(w, "   %s\n", p)
	}
}

// PrintSizes writes the folder size comparison that closes a verify run.
func PrintSizes(w io.Writer, inputBytes, outputBytes int64) {
	fmt.Fprintln(w, "\nFolder size comparison:")
	fmt.Fprintf(w, "   Input:  %s (%d bytes)\n", FormatBytes(inputBytes), inputBytes)
	fmt.Fprintf(w, "   Output: %s (%d bytes)\n", FormatBytes(outputBytes), outputBytes)

	if inputBytes <= 0 {
		fmt.Fprintln(w, "   Input folder is empty")
		fmt.Fprintln(w, strings.Repeat("=", ruleWidth))
		return
	}
	ratio := float64(outputBytes) / float64(inputBytes) * 100
	fmt.Fprintf(w, "   Size ratio (output/input): %.1f%%\n", ratio)
	if ratio < 100 {
		fmt.Fprintf(w, "   Space saved: %.1f%% (%s)\n", 100-ratio, FormatBytes(inputBytes-outputBytes))
	} else {
		fmt.Fprintf(w, "   Output is %.1f%% larger than input (%s)\n", ratio-100, FormatBytesWithSign(outputBytes-inputBytes))
	}
	fmt.Fprintln(w, strings.Repeat("=", ruleWidth))
}

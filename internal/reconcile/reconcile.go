// Package reconcile checks a converted tree against its source tree.
//
// Both roots are scanned, the naming plan predicts where every convertible
// source should have landed, and plain set differences classify the result:
// missing outputs, unexpected target-format files, and directory and
// other-file parity. A missing output is a finding, never an error; only
// genuine I/O failures are returned as errors.
package reconcile

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/VTVIMAL/WebP-Converter/internal/catalog"
	"github.com/VTVIMAL/WebP-Converter/internal/config"
	"github.com/VTVIMAL/WebP-Converter/internal/naming"
)

// Status is the checklist outcome for one input image.
type Status string

const (
	StatusConverted     Status = "converted"      // Expected output exists.
	StatusMissing       Status = "missing"        // Expected output not found.
	StatusAlreadyTarget Status = "already-target" // Source is in the target format; nothing to convert.
)

// Verdict summarizes a report in one word.
type Verdict string

const (
	VerdictPerfect          Verdict = "perfect"            // Nothing missing.
	VerdictAllTarget        Verdict = "all-target"         // Every input image was already in the target format.
	VerdictGood             Verdict = "good"               // At least 90% converted.
	VerdictPartial          Verdict = "partial"            // At least 50% converted.
	VerdictPoor             Verdict = "poor"               // Under 50% converted.
	VerdictNothingToConvert Verdict = "nothing-to-convert" // No input images at all.
)

// Entry is one checklist line.
type Entry struct {
	Source catalog.RelPath
	Output catalog.RelPath // Empty for StatusAlreadyTarget.
	Status Status
}

// SideStats counts what one side of the comparison holds.
type SideStats struct {
	Images      int // Supported images not in the target format.
	TargetFiles int
	Convertible int
	OtherFiles  int
	Directories int
}

func sideStats(s catalog.ScanResult) SideStats {
	return SideStats{
		Images:      len(s.Images),
		TargetFiles: len(s.TargetFiles),
		Convertible: len(s.Convertible()),
		OtherFiles:  len(s.OtherFiles),
		Directories: len(s.Directories),
	}
}

// Report is the read-only outcome of one reconciliation.
type Report struct {
	InputRoot    string
	OutputRoot   string
	Target       string
	TargetSource config.TargetSource

	Missing            []catalog.RelPath // Expected outputs absent from the output tree.
	Unexpected         []catalog.RelPath // Target-format files in the output that no source predicts.
	MissingDirectories []catalog.RelPath
	MissingOtherFiles  []catalog.RelPath
	Matched            map[catalog.RelPath]catalog.RelPath // Source -> existing output.
	Entries            []Entry

	Input  SideStats
	Output SideStats

	Collisions []naming.Collision
	Warnings   []string
}

// Options configures Reconcile.
type Options struct {
	// Target is the expected output extension, or "auto" / "" to detect it
	// from the output tree.
	Target   string
	Fallback config.FallbackPolicy
	Scan     catalog.Options
}

// Reconcile compares inputRoot against outputRoot.
//
// A missing root on either side is recorded as a warning and treated as an
// empty tree. Any other scan failure aborts the comparison.
func Reconcile(inputRoot, outputRoot string, opts Options) (*Report, error) {
	target, source, note, err := config.ResolveTarget(opts.Target, opts.Fallback, func() (string, error) {
		return catalog.DetectTarget(outputRoot, opts.Scan)
	})
	if err != nil {
		return nil, err
	}

	r := &Report{
		InputRoot:    inputRoot,
		OutputRoot:   outputRoot,
		Target:       target,
		TargetSource: source,
		Matched:      map[catalog.RelPath]catalog.RelPath{},
	}
	if note != "" {
		r.Warnings = append(r.Warnings, note)
	}

	in, err := scanSide(inputRoot, target, opts.Scan, r)
	if err != nil {
		return nil, errors.Wrap(err, "scan input")
	}
	out, err := scanSide(outputRoot, target, opts.Scan, r)
	if err != nil {
		return nil, errors.Wrap(err, "scan output")
	}

	r.diff(in, out)
	return r, nil
}

// Compare builds a report from two existing scans. Both must have been made
// for the same target.
func Compare(in, out catalog.ScanResult) *Report {
	r := &Report{
		InputRoot:    in.Root,
		OutputRoot:   out.Root,
		Target:       in.Target,
		TargetSource: config.SourceExplicit,
		Matched:      map[catalog.RelPath]catalog.RelPath{},
	}
	r.Warnings = append(r.Warnings, in.Warnings...)
	r.Warnings = append(r.Warnings, out.Warnings...)
	r.diff(in, out)
	return r
}

func scanSide(root, target string, opts catalog.Options, r *Report) (catalog.ScanResult, error) {
	res, err := catalog.Scan(root, target, opts)
	r.Warnings = append(r.Warnings, res.Warnings...)
	if errors.Is(err, catalog.ErrRootNotFound) {
		return res, nil
	}
	return res, err
}

func (r *Report) diff(in, out catalog.ScanResult) {
	plan := naming.Resolve(in.Convertible(), r.Target)
	expected := plan.Expected()

	r.Collisions = plan.Collisions
	for _, c := range plan.Collisions {
		for _, o := range c.Others {
			r.Warnings = append(r.Warnings, fmt.Sprintf("%s belongs to %s; %s is expected as %s",
				c.Output, c.Owner, o, plan.Outputs[o]))
		}
	}
	r.Missing = expected.Minus(out.TargetFiles)
	r.Unexpected = out.TargetFiles.Minus(expected)
	r.MissingDirectories = in.Directories.Minus(out.Directories)
	r.MissingOtherFiles = in.OtherFiles.Minus(out.OtherFiles)
	r.Input = sideStats(in)
	r.Output = sideStats(out)

	for _, src := range plan.Sources() {
		dst := plan.Outputs[src]
		e := Entry{Source: src, Output: dst, Status: StatusMissing}
		if out.TargetFiles.Has(dst) {
			e.Status = StatusConverted
			r.Matched[src] = dst
		}
		r.Entries = append(r.Entries, e)
	}
	for _, src := range in.TargetFiles.Sorted() {
		r.Entries = append(r.Entries, Entry{Source: src, Status: StatusAlreadyTarget})
	}
	sort.SliceStable(r.Entries, func(i, j int) bool {
		return catalog.Less(r.Entries[i].Source, r.Entries[j].Source)
	})
}

// Converted is the number of sources whose expected output exists.
func (r *Report) Converted() int { return len(r.Matched) }

// Convertible is the number of sources that needed conversion.
func (r *Report) Convertible() int { return r.Input.Convertible }

// ConversionRate is the converted share of convertible sources, in percent.
// It is 100 when nothing needed converting.
func (r *Report) ConversionRate() float64 {
	if r.Convertible() == 0 {
		return 100
	}
	return float64(r.Converted()) / float64(r.Convertible()) * 100
}

// HasMissing reports whether any output, directory or other file is absent.
func (r *Report) HasMissing() bool {
	return len(r.Missing) > 0 || len(r.MissingDirectories) > 0 || len(r.MissingOtherFiles) > 0
}

// Complete reports whether every convertible source has its output and
// nothing unexpected sits in the output tree.
func (r *Report) Complete() bool {
	return len(r.Missing) == 0 && len(r.Unexpected) == 0
}

// Verdict grades the conversion the way the summary line reports it.
func (r *Report) Verdict() Verdict {
	switch {
	case r.Convertible() == 0 && r.Input.TargetFiles > 0:
		return VerdictAllTarget
	case r.Convertible() == 0:
		return VerdictNothingToConvert
	case len(r.Missing) == 0:
		return VerdictPerfect
	}
	rate := r.ConversionRate()
	switch {
	case rate >= 90:
		return VerdictGood
	case rate >= 50:
		return VerdictPartial
	default:
		return VerdictPoor
	}
}

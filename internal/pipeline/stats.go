package pipeline

import "sort"

// RunStats tracks aggregate counters and byte totals across a batch run.
type RunStats struct {
	Total         int // Convertible sources planned.
	Current       int
	Converted     int // Includes dry-run "would convert".
	Skipped       int // Output already present (skip policy).
	SkippedLarge  int // Source above the size cap.
	AlreadyTarget int // Sources already in the target format.
	Failed        int

	TotalInputBytes  int64
	TotalOutputBytes int64

	// FormatCounts counts converted sources by lowercase extension.
	FormatCounts map[string]int
}

func newRunStats() RunStats {
	return RunStats{FormatCounts: map[string]int{}}
}

// SpaceSaved returns the aggregate byte difference between inputs and outputs.
// Positive means outputs are smaller; negative means they grew.
func (s *RunStats) SpaceSaved() int64 {
	return s.TotalInputBytes - s.TotalOutputBytes
}

// SuccessRate is the converted share of planned sources, in percent.
func (s *RunStats) SuccessRate() float64 {
	if s.Total == 0 {
		return 100
	}
	return float64(s.Converted) / float64(s.Total) * 100
}

// Formats returns the extensions in FormatCounts, most frequent first.
func (s *RunStats) Formats() []string {
	out := make([]string, 0, len(s.FormatCounts))
	for ext := range s.FormatCounts {
		out = append(out, ext)
	}
	sort.Slice(out, func(i, j int) bool {
		ci, cj := s.FormatCounts[out[i]], s.FormatCounts[out[j]]
		if ci != cj {
			return ci > cj
		}
		return out[i] < out[j]
	})
	return out
}

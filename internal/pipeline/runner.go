package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/VTVIMAL/WebP-Converter/internal/catalog"
	"github.com/VTVIMAL/WebP-Converter/internal/codec"
	"github.com/VTVIMAL/WebP-Converter/internal/config"
	"github.com/VTVIMAL/WebP-Converter/internal/display"
	"github.com/VTVIMAL/WebP-Converter/internal/logging"
	"github.com/VTVIMAL/WebP-Converter/internal/naming"
)

// Run is the top-level batch entry point. It discovers images, recreates the
// input directory tree under the output root, converts each planned source
// sequentially, and returns aggregate stats. cfg.Target must be concrete and
// cfg.OutputDir set. The error is non-nil only when the batch could not
// start; per-file failures are counted in the stats.
func Run(ctx context.Context, cfg *config.Config, log *logging.Logger) (RunStats, error) {
	stats := newRunStats()

	inv, err := Discover(cfg)
	if err != nil {
		return stats, err
	}
	stats.Total = len(inv.Plan.Outputs)
	stats.AlreadyTarget = len(inv.Scan.TargetFiles)

	logBatchHeader(cfg, log, &inv, &stats)

	if err := mirrorDirectories(cfg, log, inv.Scan.Directories); err != nil {
		return stats, err
	}

	// Every planned name is reserved for its source up front, so a name
	// allocated at write time can never land on another source's plan.
	claims := naming.NewClaims()
	for src, out := range inv.Plan.Outputs {
		claims.Claim(string(src), out.Under(cfg.OutputDir))
	}

	for i, src := range inv.Plan.Sources() {
		stats.Current = i + 1

		if ctx.Err() != nil {
			log.Warn("Interrupted")
			break
		}

		processFile(ctx, cfg, log, src, inv.Plan.Outputs[src], claims, &stats)
	}

	logSummary(cfg, log, &stats)
	return stats, nil
}

// mirrorDirectories creates the output root and every input directory under
// it, including directories that hold no images.
func mirrorDirectories(cfg *config.Config, log *logging.Logger, dirs catalog.Set) error {
	if cfg.DryRun {
		log.Info("[DRY] Would create %d directories under %s", len(dirs), cfg.OutputDir)
		return nil
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return errors.Wrap(err, "create output directory")
	}
	for _, d := range dirs.Sorted() {
		if err := os.MkdirAll(d.Under(cfg.OutputDir), 0o755); err != nil {
			return errors.Wrapf(err, "create directory %s", d)
		}
	}
	log.Debug("Mirrored %d directories", len(dirs))
	return nil
}

// processFile handles one source image: validate, pick the output name,
// convert, and update stats.
func processFile(
	ctx context.Context,
	cfg *config.Config,
	log *logging.Logger,
	src, planned catalog.RelPath,
	claims *naming.Claims,
	stats *RunStats,
) {
	srcPath := src.Under(cfg.InputDir)
	log.Info("[%d/%d] %s", stats.Current, stats.Total, src)

	// --- Validate ---
	fi, err := os.Stat(srcPath)
	if err != nil {
		log.Error("Cannot read source: %v", err)
		stats.Failed++
		return
	}
	if cfg.MaxImageBytes > 0 && fi.Size() > cfg.MaxImageBytes {
		log.Skip("Too large: %s (limit %s)", display.FormatBytes(fi.Size()), display.FormatBytes(cfg.MaxImageBytes))
		stats.SkippedLarge++
		return
	}
	if !codec.CanDecode(srcPath) {
		log.Error("No decoder for %s files", catalog.ExtOf(srcPath))
		stats.Failed++
		return
	}

	// --- Resolve output path ---
	plannedPath := planned.Under(cfg.OutputDir)
	dst, ok := chooseOutput(cfg, log, claims, string(src), plannedPath)
	if !ok {
		stats.Skipped++
		return
	}
	log.Info("  -> %s", relOut(cfg, dst))

	// --- Dry-run ---
	if cfg.DryRun {
		log.Success("[DRY] Would convert")
		stats.Converted++
		stats.FormatCounts[catalog.ExtOf(srcPath)]++
		return
	}

	// --- Convert ---
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		log.Error("Cannot create output directory: %v", err)
		releaseAllocated(claims, dst, plannedPath)
		stats.Failed++
		return
	}

	start := time.Now()
	opts := codec.Options{Quality: cfg.Quality, Lossless: cfg.Lossless}
	if cfg.Verbose {
		opts.Stderr = os.Stderr
	}
	res, err := codec.ConvertFile(ctx, srcPath, dst, cfg.Target, opts)
	if err != nil {
		releaseAllocated(claims, dst, plannedPath)
		stats.Failed++
		if ctx.Err() != nil {
			log.Warn("Interrupted during conversion")
			return
		}
		log.Error("Conversion failed: %v", err)
		logToolStderr(log, err)
		return
	}

	// --- Update stats ---
	stats.TotalInputBytes += res.InputBytes
	stats.TotalOutputBytes += res.OutputBytes
	stats.Converted++
	stats.FormatCounts[catalog.ExtOf(srcPath)]++

	ratio := int64(100)
	if res.InputBytes > 0 {
		ratio = res.OutputBytes * 100 / res.InputBytes
	}
	log.Debug("  %dx%d, %s -> %s", res.Width, res.Height, display.FormatBytes(res.InputBytes), display.FormatBytes(res.OutputBytes))
	log.Success("Converted in %s (%d%% of original)", time.Since(start).Round(time.Millisecond), ratio)
}

// chooseOutput settles where src is written. Planned names are claimed
// before the loop, so a file found at the planned name was there before the
// run: the skip policy leaves it alone, the rename policy allocates a fresh
// name for the source stem next to it. A planned name owned by another
// source is always re-allocated.
func chooseOutput(cfg *config.Config, log *logging.Logger, claims *naming.Claims, src, planned string) (string, bool) {
	owner, claimed := claims.Owner(planned)
	ownedElsewhere := claimed && owner != src
	if !ownedElsewhere {
		if !pathExists(planned) {
			claims.Claim(src, planned)
			return planned, true
		}
		if cfg.OnExisting == config.ExistingSkip {
			log.Skip("Output exists: %s", relOut(cfg, planned))
			return "", false
		}
	}

	stem, origExt := catalog.SplitExt(filepath.Base(src))
	base := filepath.Join(filepath.Dir(planned), stem)
	dst := claims.AllocateAndClaim(src, base, origExt, cfg.Target)
	log.Warn("  %s is taken, writing %s instead", filepath.Base(planned), filepath.Base(dst))
	return dst, true
}

// releaseAllocated drops a write-time claim after a failed conversion. The
// planned name stays reserved for its source.
func releaseAllocated(claims *naming.Claims, dst, planned string) {
	if dst != planned {
		claims.Release(dst)
	}
}

func pathExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func relOut(cfg *config.Config, path string) string {
	if rel, err := filepath.Rel(cfg.OutputDir, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}

// logToolStderr prints the tail of an external encoder's stderr.
func logToolStderr(log *logging.Logger, err error) {
	var te *codec.ToolError
	if !errors.As(err, &te) || te.Stderr == "" {
		return
	}
	log.Error("Last %s output:", te.Tool)
	lines := strings.Split(strings.TrimSpace(te.Stderr), "\n")
	start := 0
	if len(lines) > 20 {
		start = len(lines) - 20
	}
	for _, l := range lines[start:] {
		log.Error("  %s", l)
	}
}

// --- Logging helpers ---

func logBatchHeader(cfg *config.Config, log *logging.Logger, inv *Inventory, stats *RunStats) {
	log.Info("Found %d images to convert in %s", stats.Total, cfg.InputDir)
	if stats.AlreadyTarget > 0 {
		log.Info("  %d already in %s format (left as-is)", stats.AlreadyTarget, strings.ToUpper(cfg.Target))
	}
	if n := len(inv.Scan.OtherFiles); n > 0 {
		log.Info("  %d other files (not converted)", n)
	}

	encoding := "quality " + strconv.Itoa(cfg.Quality)
	if cfg.Lossless && codec.NeedsTool(cfg.Target) {
		encoding = "lossless"
	}
	log.Info("Target: %s (%s)", strings.ToUpper(cfg.Target), encoding)
	log.Info("Output: %s", cfg.OutputDir)
	log.Info("Existing outputs: %s", cfg.OnExisting)
	if cfg.MaxImageBytes > 0 {
		log.Info("Size limit: %s", display.FormatBytes(cfg.MaxImageBytes))
	}

	for _, d := range inv.Excluded {
		log.Warn("Excluding %s", d)
	}
	for _, s := range inv.Scan.Skipped {
		log.Warn("Unreadable, skipped: %s", s)
	}
	for _, c := range inv.Plan.Collisions {
		others := make([]string, len(c.Others))
		for i, o := range c.Others {
			others[i] = string(o)
		}
		log.Warn("Name clash: %s is planned for %s and %s; later sources get a fresh name",
			c.Output, c.Owner, strings.Join(others, ", "))
	}
	if cfg.DryRun {
		log.Info("Dry run: nothing will be written")
	}
}

func logSummary(cfg *config.Config, log *logging.Logger, stats *RunStats) {
	log.Info("==============================")
	log.Info("Done: %d converted, %d skipped, %d too large, %d failed",
		stats.Converted, stats.Skipped, stats.SkippedLarge, stats.Failed)
	log.Info("Summary report:")
	log.Info("  Total images processed: %d of %d", stats.Current, stats.Total)
	if len(stats.FormatCounts) > 0 {
		parts := make([]string, 0, len(stats.FormatCounts))
		for _, ext := range stats.Formats() {
			parts = append(parts, strings.TrimPrefix(ext, ".")+": "+strconv.Itoa(stats.FormatCounts[ext]))
		}
		log.Info("  By source format: %s", strings.Join(parts, ", "))
	}
	if stats.Total > 0 {
		log.Info("  Success rate: %.1f%%", stats.SuccessRate())
	}

	if cfg.DryRun {
		log.Info("  Total space saved: n/a (dry run)")
		return
	}

	saved := stats.SpaceSaved()
	if saved >= 0 {
		log.Success("  Total space saved: %s (input %s -> output %s)",
			display.FormatBytes(saved),
			display.FormatBytes(stats.TotalInputBytes),
			display.FormatBytes(stats.TotalOutputBytes))
	} else {
		log.Warn("  Total space saved: -%s (overall output is larger)",
			display.FormatBytes(-saved))
	}
}

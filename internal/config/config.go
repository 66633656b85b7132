// Package config holds runtime configuration: defaults, the optional YAML
// config file, CLI parsing, validation, and target-format resolution.
package config

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/VTVIMAL/WebP-Converter/internal/catalog"
)

// --- Enum types for validated string fields ---

// Command is the selected subcommand.
type Command string

const (
	CmdConvert Command = "convert" // Convert a tree of images.
	CmdVerify  Command = "verify"  // Reconcile an input tree against an output tree.
	CmdPredict Command = "predict" // Print the planned output names.
	CmdDoctor  Command = "doctor"  // System diagnostics.
)

// FallbackPolicy decides what happens when the target format is "auto" and
// the output tree offers nothing to detect it from.
type FallbackPolicy string

const (
	FallbackWebP FallbackPolicy = "webp" // Assume webp (default).
	FallbackFail FallbackPolicy = "fail" // Refuse to guess.
)

// ExistingPolicy controls what convert does when the planned output exists.
type ExistingPolicy string

const (
	ExistingSkip   ExistingPolicy = "skip"   // Leave the existing output alone (default).
	ExistingRename ExistingPolicy = "rename" // Write next to it under a fresh unique name.
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// TargetAuto asks verify to detect the target format from the output tree.
const TargetAuto = "auto"

// DefaultTarget is the format produced when nothing else is configured.
const DefaultTarget = "webp"

// Config holds all runtime settings. It is populated by [DefaultConfig],
// then the optional config file, then CLI flags, and passed by pointer to
// the packages that need it.
type Config struct {
	Command Command

	// Paths (set from positional args).
	InputDir  string
	OutputDir string

	// Target format. "auto" (default) is only meaningful for verify;
	// convert, predict and doctor fall back to DefaultTarget.
	Target   string
	Fallback FallbackPolicy // Default: "webp".

	// Encoding.
	Quality  int  // Default: 80 (0-100).
	Lossless bool // Default: false.

	// Behavior.
	OnExisting    ExistingPolicy // Default: "skip".
	MaxImageBytes int64          // Default: 50 MiB. Larger sources are skipped.
	Exclude       []string       // Default: ["node_modules"].
	DryRun        bool
	VerifyAfter   bool // convert: run verify when done.

	// Reports.
	ReportFile string // Default: "missing_files.txt". Empty disables.
	JSONReport string // Optional JSON report path.
	ShowSizes  bool   // Default: true. Folder size comparison after verify.

	// Display and logging.
	Verbose    bool
	ColorMode  ColorMode // Default: "auto".
	LogFile    string    // Optional log file path.
	ConfigFile string    // Optional YAML config file.
}

// DefaultConfig returns a Config with all defaults applied. Used as the base
// before the config file and CLI flags are layered on.
func DefaultConfig() Config {
	return Config{
		Target:        TargetAuto,
		Fallback:      FallbackWebP,
		Quality:       80,
		Lossless:      false,
		OnExisting:    ExistingSkip,
		MaxImageBytes: 50 * 1024 * 1024,
		Exclude:       append([]string(nil), catalog.DefaultExclude...),
		ReportFile:    "missing_files.txt",
		ShowSizes:     true,
		ColorMode:     ColorAuto,
	}
}

// ScanOptions returns the catalog traversal policy derived from the config.
func (c *Config) ScanOptions() catalog.Options {
	return catalog.Options{Exclude: c.Exclude}
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// DefaultOutputDir places the output next to the input, named after it with
// the target appended: photos -> photos_webp.
func DefaultOutputDir(inputDir, target string) string {
	clean := filepath.Clean(inputDir)
	return filepath.Join(filepath.Dir(clean), filepath.Base(clean)+"_"+catalog.NormalizeTarget(target))
}

// Validate checks enum fields and ranges, and that the paths required by the
// selected command are present. It normalizes Target in place.
func (c *Config) Validate() error {
	switch c.Fallback {
	case FallbackWebP, FallbackFail:
		// valid
	default:
		return errors.New("invalid fallback (use 'webp' or 'fail')")
	}

	switch c.OnExisting {
	case ExistingSkip, ExistingRename:
		// valid
	default:
		return errors.New("invalid on-existing policy (use 'skip' or 'rename')")
	}

	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return errors.New("invalid color mode (use 'auto', 'always' or 'never')")
	}

	if c.Quality < 0 || c.Quality > 100 {
		return errors.Errorf("quality must be between 0 and 100 (got %d)", c.Quality)
	}
	if c.MaxImageBytes < 0 {
		return errors.New("max image size must not be negative")
	}

	target := catalog.NormalizeTarget(c.Target)
	switch {
	case target == TargetAuto:
		if c.Command != CmdVerify {
			return errors.New("target 'auto' is only valid for verify")
		}
	case target == "":
		return errors.New("target format must not be empty")
	case !catalog.IsSupported("." + target):
		return errors.Errorf("unsupported target format %q", c.Target)
	}
	c.Target = target

	switch c.Command {
	case CmdConvert, CmdPredict:
		if c.InputDir == "" {
			return errors.New("need input_dir")
		}
	case CmdVerify:
		if c.InputDir == "" || c.OutputDir == "" {
			return errors.New("need exactly input_dir and output_dir")
		}
	case CmdDoctor:
		// no paths
	default:
		return errors.Errorf("unknown command %q", c.Command)
	}
	return nil
}

// ValidatePaths ensures the resolved output directory is not inside (or equal
// to) the resolved input directory. This prevents a later scan of the input
// from discovering its own converted output. Both arguments must be
// absolute, symlink-resolved paths.
func (c *Config) ValidatePaths(inputAbs, outputAbs string) error {
	sep := string(filepath.Separator)
	if outputAbs == inputAbs || strings.HasPrefix(outputAbs+sep, inputAbs+sep) {
		return errors.New("output directory must not be inside input directory")
	}
	return nil
}

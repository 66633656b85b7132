package config

// This file implements CLI parsing with kong. Flags are grouped into
// global (display/logging), target, encoding, behavior, and report groups.
// Defaults are interpolated from the Config built so far, so the layering is
// DefaultConfig < config file < command-line flags.

import (
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/pkg/errors"
)

// AppName is the binary name shown in help and version output.
const AppName = "imgconv"

type scanFlags struct {
	Exclude   []string `help:"Directory names to skip (case-insensitive)." default:"${exclude}" placeholder:"NAME" group:"Behavior"`
	NoExclude bool     `help:"Scan every directory, including the default exclusions." group:"Behavior"`
}

type convertCmd struct {
	Input  string `arg:"" help:"Directory of images to convert."`
	Output string `arg:"" optional:"" help:"Output directory (default: <input>_<target> next to the input)."`

	Target     string `short:"t" help:"Output format." default:"${convert_target}" group:"Target"`
	Quality    int    `short:"q" help:"Lossy quality 0-100 (jpeg, webp)." default:"${quality}" group:"Encoding"`
	Lossless   bool   `help:"Lossless webp." default:"${lossless}" negatable:"" group:"Encoding"`
	OnExisting string `help:"When the output already exists: skip | rename." enum:"skip,rename" default:"${on_existing}" group:"Behavior"`
	MaxSize    string `help:"Skip sources larger than this (0 = no limit)." default:"${max_size}" group:"Behavior"`
	DryRun     bool   `short:"d" help:"Plan only; write nothing." group:"Behavior"`
	Verify     bool   `help:"Run verify when the conversion finishes." group:"Behavior"`

	scanFlags `embed:""`
}

type verifyCmd struct {
	Input  string `arg:"" help:"Source directory."`
	Output string `arg:"" help:"Converted directory."`

	Target   string `short:"t" help:"Expected output format, or auto to detect it from the output tree." default:"${verify_target}" group:"Target"`
	Fallback string `help:"When auto-detection finds nothing: webp | fail." enum:"webp,fail" default:"${fallback}" group:"Target"`
	Report   string `help:"Missing-files report path (empty disables)." default:"${report}" group:"Reports"`
	JSON     string `help:"Also write a JSON report here." default:"${json_report}" group:"Reports"`
	Sizes    bool   `help:"Compare folder sizes." default:"${sizes}" negatable:"" group:"Reports"`

	scanFlags `embed:""`
}

type predictCmd struct {
	Input  string `arg:"" help:"Source directory."`
	Target string `short:"t" help:"Output format." default:"${convert_target}" group:"Target"`

	scanFlags `embed:""`
}

type doctorCmd struct {
	Target string `short:"t" help:"Output format to check encoder support for." default:"${convert_target}" group:"Target"`
}

type cli struct {
	Config     string           `help:"YAML config file." placeholder:"FILE"`
	ForceColor bool             `name:"color" help:"Force colored output."`
	NoColor    bool             `help:"Disable colored output."`
	Verbose    bool             `short:"v" help:"Debug output." default:"${verbose}"`
	Log        string           `short:"l" help:"Append log output to FILE." default:"${log}" placeholder:"FILE"`
	Version    kong.VersionFlag `short:"V" help:"Print version and exit."`

	Convert convertCmd `cmd:"" help:"Convert every image under a directory to one format."`
	Verify  verifyCmd  `cmd:"" help:"Check that every source image has a converted counterpart."`
	Predict predictCmd `cmd:"" help:"Print the output name each source would receive."`
	Doctor  doctorCmd  `cmd:"" help:"Check encoders and external tools."`
}

// ParseOptions lets callers and tests redirect help output and intercept
// kong's exit on --help / --version.
type ParseOptions struct {
	Stdout io.Writer
	Stderr io.Writer
	Exit   func(int)
}

// Parse builds a Config from args (without the program name). A --config
// file, when given, is loaded before the flags so flags win.
func Parse(args []string, version string, po ParseOptions) (Config, error) {
	cfg := DefaultConfig()
	if path := configFlag(args); path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	var c cli
	opts := []kong.Option{
		kong.Name(AppName),
		kong.Description("Batch image converter and conversion verifier."),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Vars(defaultVars(&cfg, version)),
	}
	if po.Stdout != nil || po.Stderr != nil {
		opts = append(opts, kong.Writers(po.Stdout, po.Stderr))
	}
	if po.Exit != nil {
		opts = append(opts, kong.Exit(po.Exit))
	}

	parser, err := kong.New(&c, opts...)
	if err != nil {
		return cfg, errors.Wrap(err, "build command line parser")
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return cfg, err
	}

	if err := c.apply(kctx, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// apply copies parsed flag values onto cfg for the selected command.
func (c *cli) apply(kctx *kong.Context, cfg *Config) error {
	fields := strings.Fields(kctx.Command())
	if len(fields) == 0 {
		return errors.New("no command given")
	}
	cfg.Command = Command(fields[0])

	if c.Config != "" {
		cfg.ConfigFile = c.Config
	}
	switch {
	case c.NoColor:
		cfg.ColorMode = ColorNever
	case c.ForceColor:
		cfg.ColorMode = ColorAlways
	}
	cfg.Verbose = c.Verbose
	cfg.LogFile = c.Log

	var scan scanFlags
	switch cfg.Command {
	case CmdConvert:
		f := c.Convert
		cfg.InputDir = NormalizeDirArg(f.Input)
		cfg.OutputDir = NormalizeDirArg(f.Output)
		cfg.Target = f.Target
		cfg.Quality = f.Quality
		cfg.Lossless = f.Lossless
		cfg.OnExisting = ExistingPolicy(f.OnExisting)
		cfg.DryRun = f.DryRun
		cfg.VerifyAfter = f.Verify
		n, err := ParseSize(f.MaxSize)
		if err != nil {
			return err
		}
		cfg.MaxImageBytes = n
		scan = f.scanFlags
	case CmdVerify:
		f := c.Verify
		cfg.InputDir = NormalizeDirArg(f.Input)
		cfg.OutputDir = NormalizeDirArg(f.Output)
		cfg.Target = f.Target
		cfg.Fallback = FallbackPolicy(f.Fallback)
		cfg.ReportFile = f.Report
		cfg.JSONReport = f.JSON
		cfg.ShowSizes = f.Sizes
		scan = f.scanFlags
	case CmdPredict:
		cfg.InputDir = NormalizeDirArg(c.Predict.Input)
		cfg.Target = c.Predict.Target
		scan = c.Predict.scanFlags
	case CmdDoctor:
		cfg.Target = c.Doctor.Target
		return nil
	default:
		return errors.Errorf("unknown command %q", cfg.Command)
	}

	if scan.NoExclude {
		cfg.Exclude = nil
	} else {
		cfg.Exclude = nonEmpty(scan.Exclude)
	}
	return nil
}

// defaultVars exposes the layered defaults to kong's ${...} interpolation.
func defaultVars(cfg *Config, version string) kong.Vars {
	convertTarget := cfg.Target
	if convertTarget == TargetAuto || convertTarget == "" {
		convertTarget = DefaultTarget
	}
	verifyTarget := cfg.Target
	if verifyTarget == "" {
		verifyTarget = TargetAuto
	}
	maxSize := "0"
	if cfg.MaxImageBytes > 0 {
		maxSize = strconv.FormatInt(cfg.MaxImageBytes, 10)
	}
	return kong.Vars{
		"version":        AppName + " v" + version,
		"convert_target": convertTarget,
		"verify_target":  verifyTarget,
		"fallback":       string(cfg.Fallback),
		"quality":        strconv.Itoa(cfg.Quality),
		"lossless":       strconv.FormatBool(cfg.Lossless),
		"on_existing":    string(cfg.OnExisting),
		"max_size":       maxSize,
		"exclude":        strings.Join(cfg.Exclude, ","),
		"report":         cfg.ReportFile,
		"json_report":    cfg.JSONReport,
		"sizes":          strconv.FormatBool(cfg.ShowSizes),
		"verbose":        strconv.FormatBool(cfg.Verbose),
		"log":            cfg.LogFile,
	}
}

// configFlag finds --config before kong runs, since the file feeds kong's
// defaults.
func configFlag(args []string) string {
	for i, a := range args {
		if a == "--" {
			break
		}
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
		if v, ok := strings.CutPrefix(a, "--config="); ok {
			return v
		}
	}
	return ""
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

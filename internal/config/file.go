package config

import (
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the settable subset of Config as it appears in a YAML
// config file. Pointer fields distinguish "absent" from a zero value so the
// file only overrides what it names.
type fileConfig struct {
	Target     *string   `yaml:"target"`
	Fallback   *string   `yaml:"fallback"`
	Quality    *int      `yaml:"quality"`
	Lossless   *bool     `yaml:"lossless"`
	OnExisting *string   `yaml:"on_existing"`
	MaxSize    *string   `yaml:"max_size"` // humanized, e.g. "50MiB"
	Exclude    *[]string `yaml:"exclude"`
	Report     *string   `yaml:"report"`
	JSONReport *string   `yaml:"json_report"`
	Sizes      *bool     `yaml:"sizes"`
	Verbose    *bool     `yaml:"verbose"`
	Color      *string   `yaml:"color"`
	Log        *string   `yaml:"log"`
}

// LoadFile reads a YAML config file and applies every key it sets onto cfg.
// Unknown keys are rejected so typos surface instead of being ignored.
func LoadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open config file")
	}
	defer f.Close()

	var fc fileConfig
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		// An empty file decodes to io.EOF; treat it as "no overrides".
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errors.Wrapf(err, "parse config file %s", path)
	}
	if err := fc.apply(cfg); err != nil {
		return errors.Wrapf(err, "config file %s", path)
	}
	cfg.ConfigFile = path
	return nil
}

func (fc *fileConfig) apply(cfg *Config) error {
	if fc.Target != nil {
		cfg.Target = *fc.Target
	}
	if fc.Fallback != nil {
		cfg.Fallback = FallbackPolicy(*fc.Fallback)
	}
	if fc.Quality != nil {
		cfg.Quality = *fc.Quality
	}
	if fc.Lossless != nil {
		cfg.Lossless = *fc.Lossless
	}
	if fc.OnExisting != nil {
		cfg.OnExisting = ExistingPolicy(*fc.OnExisting)
	}
	if fc.MaxSize != nil {
		n, err := ParseSize(*fc.MaxSize)
		if err != nil {
			return err
		}
		cfg.MaxImageBytes = n
	}
	if fc.Exclude != nil {
		cfg.Exclude = append([]string(nil), (*fc.Exclude)...)
	}
	if fc.Report != nil {
		cfg.ReportFile = *fc.Report
	}
	if fc.JSONReport != nil {
		cfg.JSONReport = *fc.JSONReport
	}
	if fc.Sizes != nil {
		cfg.ShowSizes = *fc.Sizes
	}
	if fc.Verbose != nil {
		cfg.Verbose = *fc.Verbose
	}
	if fc.Color != nil {
		cfg.ColorMode = ColorMode(*fc.Color)
	}
	if fc.Log != nil {
		cfg.LogFile = *fc.Log
	}
	return nil
}

// ParseSize converts a human size such as "50MiB", "2 MB" or "1048576" into
// bytes. "0" disables the size cap.
func ParseSize(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid size %q", s)
	}
	if n > uint64(1<<62) {
		return 0, errors.Errorf("size %q is too large", s)
	}
	return int64(n), nil
}

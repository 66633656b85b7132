// Command imgconv is the CLI entrypoint for the batch image converter.
//
// It parses flags and the optional config file, validates configuration and
// paths, and dispatches to convert, verify, predict or doctor.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"

	"github.com/VTVIMAL/WebP-Converter/internal/config"
	"github.com/VTVIMAL/WebP-Converter/internal/display"
	"github.com/VTVIMAL/WebP-Converter/internal/logging"
)

// version and commit are injected at build time via -ldflags.
var (
	version = "1.0.0"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Phase 1: Bootstrap. The logger doesn't exist yet, so errors go
	// directly to stderr.
	cfg, err := config.Parse(os.Args[1:], version, config.ParseOptions{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", config.AppName, err)
		return 2
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", config.AppName, err)
		return 2
	}

	log, err := logging.NewLogger(&cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", config.AppName, err)
		return 1
	}
	defer log.Close()

	// Phase 2: Logger available.
	display.PrintBanner(os.Stdout)
	log.Debug("%s %s (%s)", config.AppName, version, commit)
	if cfg.ConfigFile != "" {
		log.Info("Config: %s", cfg.ConfigFile)
	}

	// Phase 3: Signal handling. Cancel on SIGINT/SIGTERM so a batch stops
	// between files without leaving partial output.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Received interrupt, finishing current file…")
			cancel()
		case <-ctx.Done():
		}
	}()

	// Phase 4: Dispatch.
	switch cfg.Command {
	case config.CmdConvert:
		return runConvert(ctx, &cfg, log)
	case config.CmdVerify:
		return runVerify(&cfg, log)
	case config.CmdPredict:
		return runPredict(ctx, &cfg, log)
	case config.CmdDoctor:
		return runDoctor(&cfg, log)
	}
	log.Error("Unknown command %q", cfg.Command)
	return 2
}

// absPath returns the absolute, symlink-resolved path for safe comparison
// of input vs output directory hierarchies. A path that does not exist yet
// is resolved through its nearest existing parent.
func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err == nil {
		return resolved, nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}
	parent := filepath.Dir(abs)
	if parent == abs {
		return abs, nil
	}
	resolvedParent, err := absPath(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedParent, filepath.Base(abs)), nil
}

// requireDir resolves path and checks that it is an existing directory.
func requireDir(path string) (string, error) {
	abs, err := absPath(path)
	if err != nil {
		return "", err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !fi.IsDir() {
		return "", errors.Errorf("%s is not a directory", path)
	}
	return abs, nil
}

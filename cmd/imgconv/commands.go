package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/VTVIMAL/WebP-Converter/internal/catalog"
	"github.com/VTVIMAL/WebP-Converter/internal/check"
	"github.com/VTVIMAL/WebP-Converter/internal/config"
	"github.com/VTVIMAL/WebP-Converter/internal/display"
	"github.com/VTVIMAL/WebP-Converter/internal/logging"
	"github.com/VTVIMAL/WebP-Converter/internal/pipeline"
	"github.com/VTVIMAL/WebP-Converter/internal/reconcile"
	"github.com/VTVIMAL/WebP-Converter/internal/report"
)

// resolveIO resolves the input and output directories in place and makes
// sure the output does not sit inside the input. A missing output is fine.
func resolveIO(cfg *config.Config, log *logging.Logger) bool {
	inputAbs, err := requireDir(cfg.InputDir)
	if err != nil {
		log.Error("Input not found: %s", cfg.InputDir)
		return false
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = config.DefaultOutputDir(inputAbs, cfg.Target)
	}
	outputAbs, err := absPath(cfg.OutputDir)
	if err != nil {
		log.Error("Cannot resolve output path: %s", cfg.OutputDir)
		return false
	}
	if err := cfg.ValidatePaths(inputAbs, outputAbs); err != nil {
		log.Error("%v", err)
		log.Error("Choose an output path outside: %s", cfg.InputDir)
		return false
	}
	cfg.InputDir, cfg.OutputDir = inputAbs, outputAbs
	return true
}

func runConvert(ctx context.Context, cfg *config.Config, log *logging.Logger) int {
	if !resolveIO(cfg, log) {
		return 1
	}

	log.Info("In:  %s", cfg.InputDir)
	log.Info("Out: %s", cfg.OutputDir)
	if cfg.DryRun {
		log.Warn("DRY RUN: no files will be written")
	}
	log.Info("")

	// Fail fast if the target has no working encoder. A dry run encodes
	// nothing, so a missing cwebp is only worth a warning there.
	if err := check.CheckDeps(cfg); err != nil {
		if !cfg.DryRun {
			log.Error("%v", err)
			return 1
		}
		log.Warn("%v", err)
	}

	stats, err := pipeline.Run(ctx, cfg, log)
	if err != nil {
		log.Error("%v", err)
		return 1
	}

	code := 0
	if stats.Failed > 0 || ctx.Err() != nil {
		code = 1
	}
	if cfg.VerifyAfter && !cfg.DryRun && ctx.Err() == nil {
		log.Info("")
		if vcode := runVerify(cfg, log); vcode != 0 {
			code = vcode
		}
	}
	return code
}

// runVerify compares the trees, prints the report, writes the report files,
// and returns 1 when anything is missing.
func runVerify(cfg *config.Config, log *logging.Logger) int {
	inputAbs, err := requireDir(cfg.InputDir)
	if err != nil {
		log.Error("Input folder %s does not exist", cfg.InputDir)
		return 1
	}
	outputAbs, err := requireDir(cfg.OutputDir)
	if err != nil {
		log.Error("Output folder %s does not exist", cfg.OutputDir)
		return 1
	}

	started := time.Now()
	log.Info("Scanning input folder: %s", inputAbs)
	log.Info("Scanning output folder: %s", outputAbs)
	r, err := reconcile.Reconcile(inputAbs, outputAbs, reconcile.Options{
		Target:   cfg.Target,
		Fallback: cfg.Fallback,
		Scan:     cfg.ScanOptions(),
	})
	if err != nil {
		log.Error("Verification failed: %v", err)
		return 1
	}
	finished := time.Now()

	// A fallback explains itself through r.Warnings.
	if r.TargetSource == config.SourceDetected {
		log.Info("Auto-detected output format: %s", strings.ToUpper(r.Target))
	}
	for _, w := range r.Warnings {
		log.Warn("%s", w)
	}
	log.Info("Found %d convertible images in input (%d already %s)",
		r.Convertible(), r.Input.TargetFiles, strings.ToUpper(r.Target))

	display.PrintReport(os.Stdout, r)

	if cfg.ReportFile != "" {
		wrote, err := report.WriteMissingList(cfg.ReportFile, r)
		switch {
		case err != nil:
			log.Error("Cannot write missing files list: %v", err)
		case wrote:
			log.Info("Missing files list saved to: %s", cfg.ReportFile)
		default:
			log.Success("No missing files to report")
		}
	}
	if cfg.JSONReport != "" {
		if err := report.WriteJSON(cfg.JSONReport, r, started, finished); err != nil {
			log.Error("Cannot write JSON report: %v", err)
		} else {
			log.Info("JSON report saved to: %s", cfg.JSONReport)
		}
	}

	if cfg.ShowSizes {
		opts := cfg.ScanOptions()
		inSize, inErr := catalog.FolderSize(inputAbs, opts)
		outSize, outErr := catalog.FolderSize(outputAbs, opts)
		if inErr != nil || outErr != nil {
			log.Warn("Cannot compute folder sizes")
		} else {
			if n := inSize.Skipped + outSize.Skipped; n > 0 {
				log.Warn("%d entries could not be measured; sizes are a lower bound", n)
			}
			display.PrintSizes(os.Stdout, inSize.Bytes, outSize.Bytes)
		}
	}

	if r.HasMissing() {
		return 1
	}
	return 0
}

func runPredict(ctx context.Context, cfg *config.Config, log *logging.Logger) int {
	if !resolveIO(cfg, log) {
		return 1
	}
	log.Info("Planning %s output names for %s", strings.ToUpper(cfg.Target), cfg.InputDir)
	pred, err := pipeline.Predict(ctx, cfg, log, os.Stdout)
	if err != nil {
		log.Error("%v", err)
		return 1
	}
	if pred.NoDecoder > 0 {
		return 1
	}
	return 0
}

func runDoctor(cfg *config.Config, log *logging.Logger) int {
	if !check.RunCheck(cfg, log) {
		return 1
	}
	return 0
}

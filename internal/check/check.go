// Package check provides system diagnostics (doctor) and pre-run dependency
// validation (CheckDeps) for the image encoders.
package check

import (
	"context"
	"image"
	"image/color"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/VTVIMAL/WebP-Converter/internal/codec"
	"github.com/VTVIMAL/WebP-Converter/internal/config"
)

// Sentinel errors returned by CheckDeps.
var (
	ErrCwebpNotFound     = errors.New("cwebp not found on PATH (install libwebp tools)")
	ErrUnsupportedTarget = errors.New("no encoder for target format")
)

// Logger is the minimal logging interface needed by RunCheck.
// Defined here (rather than importing the logging package) so that check
// remains dependency-light and testable with a mock logger.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
	Debug(string, ...interface{})
}

// nativeTargets are the formats encoded in-process, in display order.
var nativeTargets = []string{"png", "jpg", "gif", "bmp", "tiff"}

// RunCheck prints the availability of every encoder and the state of the
// configured target. It returns false when the configured target cannot be
// produced; other findings are informational.
func RunCheck(cfg *config.Config, log Logger) bool {
	log.Info("=== System Check ===")

	cwebpOK := checkCwebp(log)
	checkNativeEncoders(log)

	target := cfg.Target
	if target == "" || target == config.TargetAuto {
		target = config.DefaultTarget
	}
	if err := checkTarget(target, cwebpOK); err != nil {
		log.Error("Target %s: %v", strings.ToUpper(target), err)
		return false
	}
	log.Success("Target %s is ready", strings.ToUpper(target))
	return true
}

// checkCwebp verifies cwebp is on PATH and logs its version string.
func checkCwebp(log Logger) bool {
	path, err := exec.LookPath(codec.CwebpTool)
	if err != nil {
		log.Warn("cwebp not found (WEBP output unavailable)")
		return false
	}
	log.Debug("cwebp at %s", path)

	out, err := exec.Command(path, "-version").Output()
	if err != nil {
		log.Warn("cwebp found but -version failed: %v", err)
		return false
	}
	version := strings.TrimSpace(string(out))
	if idx := strings.Index(version, "\n"); idx > 0 {
		version = version[:idx]
	}
	log.Success("cwebp: %s", version)

	log.Info("Testing WEBP encode...")
	if err := testEncode("webp"); err != nil {
		log.Error("WEBP test encode failed: %v", err)
		return false
	}
	log.Success("WEBP encoder works")
	return true
}

// checkNativeEncoders runs a tiny test encode for each in-process format.
func checkNativeEncoders(log Logger) {
	log.Info("Built-in encoders:")
	for _, t := range nativeTargets {
		if err := testEncode(t); err != nil {
			log.Error("  %s: %v", strings.ToUpper(t), err)
			continue
		}
		log.Success("  %s works", strings.ToUpper(t))
	}
}

// CheckDeps is the pre-run validation for convert: the target must have an
// encoder, and WEBP additionally needs a working cwebp on PATH. Returns a
// sentinel error on failure.
func CheckDeps(cfg *config.Config) error {
	_, err := exec.LookPath(codec.CwebpTool)
	return checkTarget(cfg.Target, err == nil)
}

func checkTarget(target string, cwebpOK bool) error {
	if !codec.Supported(target) {
		return errors.Wrapf(ErrUnsupportedTarget, "%q", target)
	}
	if codec.NeedsTool(target) && !cwebpOK {
		return ErrCwebpNotFound
	}
	return nil
}

// testEncode writes a 16x16 image in target format to a temp directory.
func testEncode(target string) error {
	dir, err := os.MkdirTemp("", "imgconv-check-")
	if err != nil {
		return errors.Wrap(err, "create temp dir")
	}
	defer os.RemoveAll(dir)

	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	img.SetNRGBA(0, 0, color.NRGBA{A: 0})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return codec.Encode(ctx, img, filepath.Join(dir, "sample."+target), target, codec.Options{Quality: 50})
}

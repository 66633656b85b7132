package config

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/VTVIMAL/WebP-Converter/internal/catalog"
)

// TargetSource records how the target format was chosen.
type TargetSource string

const (
	SourceExplicit TargetSource = "explicit" // Named on the command line or in the config file.
	SourceDetected TargetSource = "detected" // Most common supported extension in the output tree.
	SourceFallback TargetSource = "fallback" // Nothing to detect; FallbackWebP applied.
)

// ErrTargetUndetermined is returned when the target is "auto", detection
// finds nothing, and the fallback policy is "fail".
var ErrTargetUndetermined = errors.New("cannot determine target format")

// ResolveTarget applies [ResolveTarget] with the configured target and
// fallback policy.
func (c *Config) ResolveTarget(detect func() (string, error)) (string, TargetSource, string, error) {
	return ResolveTarget(c.Target, c.Fallback, detect)
}

// ResolveTarget turns a configured target into a concrete extension
// (lowercase, no dot). An explicit target is returned as-is. For "auto" the
// detect function is consulted. When it finds no images or the output root
// is missing, the fallback policy decides; any other detect error is
// returned. A fallback comes with a note explaining why detection did not
// settle it.
func ResolveTarget(target string, policy FallbackPolicy, detect func() (string, error)) (resolved string, source TargetSource, note string, err error) {
	t := catalog.NormalizeTarget(target)
	if t != TargetAuto && t != "" {
		return t, SourceExplicit, "", nil
	}

	detected, derr := detect()
	if derr == nil && detected != "" {
		return catalog.NormalizeTarget(detected), SourceDetected, "", nil
	}
	if derr == nil {
		derr = catalog.ErrNoImages
	}
	if !errors.Is(derr, catalog.ErrNoImages) && !errors.Is(derr, catalog.ErrRootNotFound) {
		return "", "", "", errors.Wrap(derr, "detect target format")
	}

	if policy == FallbackFail {
		return "", "", "", errors.Wrap(ErrTargetUndetermined, derr.Error())
	}
	note = fmt.Sprintf("could not detect target format (%v), assuming %s", derr, DefaultTarget)
	return DefaultTarget, SourceFallback, note, nil
}

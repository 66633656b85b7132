package pipeline

import (
	"github.com/pkg/errors"

	"github.com/VTVIMAL/WebP-Converter/internal/catalog"
	"github.com/VTVIMAL/WebP-Converter/internal/config"
	"github.com/VTVIMAL/WebP-Converter/internal/naming"
)

// Inventory is the scanned input tree plus the naming plan for it.
type Inventory struct {
	Scan     catalog.ScanResult
	Plan     naming.Plan
	Excluded []catalog.RelPath // Excluded directories found under the input.
}

// Discover scans cfg.InputDir for cfg.Target and resolves output names for
// every convertible source. A missing input root is an error here: there is
// nothing to convert.
func Discover(cfg *config.Config) (Inventory, error) {
	var inv Inventory
	opts := cfg.ScanOptions()

	scan, err := catalog.Scan(cfg.InputDir, cfg.Target, opts)
	if err != nil {
		return inv, errors.Wrap(err, "scan input")
	}
	inv.Scan = scan

	excluded, err := catalog.FindExcluded(cfg.InputDir, opts)
	if err != nil {
		return inv, errors.Wrap(err, "find excluded directories")
	}
	inv.Excluded = excluded

	inv.Plan = naming.Resolve(scan.Convertible(), cfg.Target)
	return inv, nil
}

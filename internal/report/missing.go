// Package report writes reconciliation results to disk: the plain-text
// missing-files list and an optional machine-readable JSON report.
package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/VTVIMAL/WebP-Converter/internal/catalog"
	"github.com/VTVIMAL/WebP-Converter/internal/reconcile"
)

// DirPrefix marks directory lines in the missing-files list.
const DirPrefix = "DIR: "

// FormatMissingList renders the missing-files list. It returns nil when
// nothing is missing.
func FormatMissingList(r *reconcile.Report) []byte {
	if !r.HasMissing() {
		return nil
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, "Missing files for %s conversion\n", strings.ToUpper(r.Target))
	b.WriteString(strings.Repeat("=", 50))
	b.WriteString("\n")

	section(&b, "Missing outputs", "", r.Missing)
	section(&b, "Missing directories", DirPrefix, r.MissingDirectories)
	section(&b, "Missing other files", "", r.MissingOtherFiles)
	return b.Bytes()
}

func section(b *bytes.Buffer, heading, prefix string, paths []catalog.RelPath) {
	if len(paths) == 0 {
		return
	}
	sorted := append([]catalog.RelPath(nil), paths...)
	catalog.SortPaths(sorted)

	fmt.Fprintf(b, "\n%s (%d)\n", heading, len(sorted))
	b.WriteString(strings.Repeat("-", len(heading)))
	b.WriteString("\n")
	for _, p := range sorted {
		b.WriteString(prefix)
		b.WriteString(string(p))
		b.WriteString("\n")
	}
}

// WriteMissingList writes the missing-files list to path. When nothing is
// missing it writes nothing and returns false.
func WriteMissingList(path string, r *reconcile.Report) (bool, error) {
	data := FormatMissingList(r)
	if data == nil {
		return false, nil
	}
	if err := writeAtomic(path, data, 0o644); err != nil {
		return false, errors.Wrapf(err, "write missing list %s", path)
	}
	return true, nil
}

// writeAtomic writes data to a temp file beside path and renames it into
// place, so readers never see a half-written report.
func writeAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	temp, err := os.CreateTemp(dir, ".tmp-report-*")
	if err != nil {
		return err
	}
	tempPath := temp.Name()
	cleanup := func() { _ = os.Remove(tempPath) }

	if _, err = temp.Write(data); err != nil {
		_ = temp.Close()
		cleanup()
		return err
	}
	if err = temp.Chmod(perm); err != nil {
		_ = temp.Close()
		cleanup()
		return err
	}
	if err = temp.Close(); err != nil {
		cleanup()
		return err
	}
	if err = os.Rename(tempPath, path); err != nil {
		cleanup()
		return err
	}
	return nil
}

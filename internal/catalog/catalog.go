// Package catalog enumerates a directory tree into the disjoint path sets the
// converter and the completeness check work from: convertible images, files
// already in the target format, other files, and directories.
package catalog

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ErrRootNotFound is returned (together with an empty ScanResult) when the
// scan root does not exist.
var ErrRootNotFound = errors.New("scan root does not exist")

// ErrNoImages is returned by DetectTarget when the root holds no supported
// image files.
var ErrNoImages = errors.New("no supported image files found")

// DefaultExclude is the directory-name exclusion used unless configured
// otherwise. Dependency caches routinely carry thousands of icons nobody
// wants converted.
var DefaultExclude = []string{"node_modules"}

// Options controls traversal policy. Exclusion is decided before the scan;
// the catalog only honors it.
type Options struct {
	// Exclude holds directory names (matched case-insensitively on the last
	// path element) that are pruned before descending.
	Exclude []string
}

// ScanResult is an immutable snapshot of one tree. Every file under Root
// appears in exactly one of Images, TargetFiles and OtherFiles.
type ScanResult struct {
	Root   string
	Target string

	Images      Set
	TargetFiles Set
	OtherFiles  Set
	Directories Set

	// Skipped lists entries that could not be read (permission denied).
	Skipped  []RelPath
	Warnings []string
}

func newResult(root, target string) ScanResult {
	return ScanResult{
		Root:        root,
		Target:      target,
		Images:      Set{},
		TargetFiles: Set{},
		OtherFiles:  Set{},
		Directories: Set{},
	}
}

// Files returns the union of the three file sets.
func (r ScanResult) Files() Set {
	out := make(Set, len(r.Images)+len(r.TargetFiles)+len(r.OtherFiles))
	for _, s := range []Set{r.Images, r.TargetFiles, r.OtherFiles} {
		for p := range s {
			out.Add(p)
		}
	}
	return out
}

// Convertible returns the images that need conversion, i.e. whose extension
// differs from the target, sorted.
func (r ScanResult) Convertible() []RelPath {
	ext := "." + r.Target
	out := make([]RelPath, 0, len(r.Images))
	for p := range r.Images {
		if ExtOf(p.Base()) != ext {
			out = append(out, p)
		}
	}
	SortPaths(out)
	return out
}

// Scan walks root and classifies every entry relative to it. target is the
// extension being produced (any case, with or without dot).
//
// A missing root yields an empty result, a warning, and ErrRootNotFound so
// the caller decides whether that is fatal. Entries that cannot be read for
// lack of permission are recorded in Skipped and otherwise ignored. Any
// other filesystem error aborts the scan.
func Scan(root, target string, opts Options) (ScanResult, error) {
	root = filepath.Clean(root)
	target = NormalizeTarget(target)
	res := newResult(root, target)

	fi, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			res.Warnings = append(res.Warnings, "folder "+root+" does not exist")
			return res, ErrRootNotFound
		}
		return res, errors.Wrapf(err, "stat %s", root)
	}
	if !fi.IsDir() {
		return res, errors.Errorf("%s is not a directory", root)
	}

	targetExt := "." + target
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if errors.Is(walkErr, fs.ErrPermission) && path != root {
				res.Skipped = append(res.Skipped, relTo(root, path))
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			return walkErr
		}
		if path == root {
			return nil
		}

		rel := relTo(root, path)
		if d.IsDir() {
			if isExcluded(d.Name(), opts.Exclude) {
				return filepath.SkipDir
			}
			res.Directories.Add(rel)
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			if st, err := os.Stat(path); err == nil && st.IsDir() {
				res.Directories.Add(rel)
				return nil
			}
		}

		switch ext := ExtOf(d.Name()); {
		case ext == targetExt:
			res.TargetFiles.Add(rel)
		case SupportedExtensions[ext]:
			res.Images.Add(rel)
		default:
			res.OtherFiles.Add(rel)
		}
		return nil
	})
	if err != nil {
		return newResult(root, target), errors.Wrapf(err, "scan %s", root)
	}
	SortPaths(res.Skipped)
	return res, nil
}

// FindExcluded lists the excluded directories present under root, so callers
// can tell the user what is being left out.
func FindExcluded(root string, opts Options) ([]RelPath, error) {
	var found []RelPath
	if len(opts.Exclude) == 0 {
		return found, nil
	}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				return nil
			}
			return err
		}
		if d.IsDir() && path != root && isExcluded(d.Name(), opts.Exclude) {
			found = append(found, relTo(root, path))
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "scan %s", root)
	}
	SortPaths(found)
	return found, nil
}

// DetectTarget picks the most common supported image extension in root
// (returned without the dot). Ties go to the alphabetically first extension
// so the answer does not depend on traversal order.
func DetectTarget(root string, opts Options) (string, error) {
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return "", ErrRootNotFound
		}
		return "", errors.Wrapf(err, "stat %s", root)
	}

	counts := map[string]int{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if path != root && isExcluded(d.Name(), opts.Exclude) {
				return filepath.SkipDir
			}
			return nil
		}
		if ext := ExtOf(d.Name()); SupportedExtensions[ext] {
			counts[ext]++
		}
		return nil
	})
	if err != nil {
		return "", errors.Wrapf(err, "scan %s", root)
	}
	if len(counts) == 0 {
		return "", ErrNoImages
	}

	exts := make([]string, 0, len(counts))
	for ext := range counts {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	best := exts[0]
	for _, ext := range exts[1:] {
		if counts[ext] > counts[best] {
			best = ext
		}
	}
	return strings.TrimPrefix(best, "."), nil
}

// FolderUsage is the byte total of a tree and the number of entries that
// could not be measured.
type FolderUsage struct {
	Bytes   int64
	Skipped int
}

// FolderSize sums the sizes of all regular files under root. Unreadable
// directories and entries whose size cannot be read are counted in Skipped.
func FolderSize(root string, opts Options) (FolderUsage, error) {
	var u FolderUsage
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				u.Skipped++
				return nil
			}
			return err
		}
		if d.IsDir() {
			if path != root && isExcluded(d.Name(), opts.Exclude) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		u.add(d)
		return nil
	})
	if err != nil {
		return FolderUsage{}, errors.Wrapf(err, "size of %s", root)
	}
	return u, nil
}

func (u *FolderUsage) add(d fs.DirEntry) {
	info, err := d.Info()
	if err != nil {
		u.Skipped++
		return
	}
	u.Bytes += info.Size()
}

func relTo(root, path string) RelPath {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	return FromOS(rel)
}

func isExcluded(name string, exclude []string) bool {
	for _, x := range exclude {
		if x != "" && strings.EqualFold(name, x) {
			return true
		}
	}
	return false
}
